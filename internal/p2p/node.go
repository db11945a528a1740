package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	logging "github.com/ipfs/go-log/v2"
	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"huddle/internal/proto"
	"huddle/internal/util"
)

func init() {
	// Silence noisy libp2p subsystems — dial failures and backoff errors
	// go to stderr by default and pollute terminal output.
	logging.SetLogLevel("swarm2", "error")
	logging.SetLogLevel("autonat", "warn")
}

// Node is the libp2p side of a huddle peer: one host, LAN discovery via
// mDNS, and two gossipsub topics — presence pulses and audio-activity
// pulses.
type Node struct {
	Host host.Host
	ps   *pubsub.PubSub

	presenceTopic *pubsub.Topic
	presenceSub   *pubsub.Subscription
	activityTopic *pubsub.Topic
	activitySub   *pubsub.Subscription

	selfName  func() string
	selfAVOff func() bool

	presenceTTL time.Duration
}

type mdnsNotifee struct {
	h host.Host
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), util.DefaultConnectTimeout)
	defer cancel()
	_ = n.h.Connect(ctx, pi)
}

// loadOrCreateKey loads a persistent identity key from disk,
// or generates a new Ed25519 key and saves it on first run.
func loadOrCreateKey(keyFile string) (crypto.PrivKey, bool, error) {
	data, err := os.ReadFile(keyFile)
	if err == nil {
		priv, err := crypto.UnmarshalPrivateKey(data)
		if err == nil {
			return priv, false, nil
		}
		log.Printf("WARNING: corrupt identity key at %s: %v (generating new key)", keyFile, err)
	}

	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, false, err
	}

	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, false, fmt.Errorf("marshal identity key: %w", err)
	}

	if dir := filepath.Dir(keyFile); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, false, fmt.Errorf("create key directory: %w", err)
		}
	}

	if err := os.WriteFile(keyFile, raw, 0600); err != nil {
		return nil, false, fmt.Errorf("save identity key: %w", err)
	}

	return priv, true, nil
}

// Options configures a Node.
type Options struct {
	ListenPort    int
	KeyFile       string
	MdnsTag       string
	PresenceTopic string
	ActivityTopic string
	PresenceTTL   time.Duration

	SelfName  func() string
	SelfAVOff func() bool
}

func New(ctx context.Context, opts Options) (*Node, error) {
	priv, isNew, err := loadOrCreateKey(opts.KeyFile)
	if err != nil {
		return nil, err
	}
	if isNew {
		log.Printf("P2P: generated new identity key: %s", opts.KeyFile)
	} else {
		log.Printf("P2P: loaded identity key: %s", opts.KeyFile)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", opts.ListenPort)),
	)
	if err != nil {
		return nil, err
	}

	// LAN discovery via mDNS
	md := mdns.NewMdnsService(h, opts.MdnsTag, &mdnsNotifee{h: h})
	if err := md.Start(); err != nil {
		_ = h.Close()
		return nil, err
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	presenceTopic, err := ps.Join(opts.PresenceTopic)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	presenceSub, err := presenceTopic.Subscribe()
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	activityTopic, err := ps.Join(opts.ActivityTopic)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	activitySub, err := activityTopic.Subscribe()
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	return &Node{
		Host:          h,
		ps:            ps,
		presenceTopic: presenceTopic,
		presenceSub:   presenceSub,
		activityTopic: activityTopic,
		activitySub:   activitySub,
		selfName:      opts.SelfName,
		selfAVOff:     opts.SelfAVOff,
		presenceTTL:   opts.PresenceTTL,
	}, nil
}

func (n *Node) Close() error {
	return n.Host.Close()
}

func (n *Node) ID() string {
	return n.Host.ID().String()
}

// PublishPresence broadcasts a presence pulse. Online and update pulses
// carry the profile and the host's reachable addresses; offline pulses
// carry only the identity.
func (n *Node) PublishPresence(ctx context.Context, typ string) {
	msg := proto.PresenceMsg{
		Type:   typ,
		PeerID: n.ID(),
		TS:     proto.NowMillis(),
	}
	if typ == proto.TypeOnline || typ == proto.TypeUpdate {
		msg.Name = n.selfName()
		msg.AVOff = n.selfAVOff()
		msg.Addrs = n.wanAddrs()
	}

	b, _ := json.Marshal(msg)
	_ = n.presenceTopic.Publish(ctx, b)
}

// PublishActivity broadcasts one audio-activity pulse.
func (n *Node) PublishActivity(ctx context.Context, msg proto.ActivityMsg) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.activityTopic.Publish(ctx, b)
}

// wanAddrs returns the host's multiaddresses filtered to exclude loopback
// and link-local addresses.
func (n *Node) wanAddrs() []string {
	var out []string
	for _, a := range n.Host.Addrs() {
		ip, err := manet.ToIP(a)
		if err != nil {
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		out = append(out, a.String())
	}
	return out
}

// addPeerAddrs parses multiaddr strings and adds them to the peerstore so
// group streams can be dialed directly.
func (n *Node) addPeerAddrs(peerID string, addrs []string) {
	if len(addrs) == 0 {
		return
	}
	pid, err := peer.Decode(peerID)
	if err != nil {
		return
	}
	var parsed []ma.Multiaddr
	for _, s := range addrs {
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			continue
		}
		if ip, err := manet.ToIP(a); err == nil {
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
		}
		parsed = append(parsed, a)
	}
	ttl := n.presenceTTL
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	if len(parsed) > 0 {
		n.Host.Peerstore().AddAddrs(pid, parsed, ttl)
	}
}

// RunPresenceLoop consumes presence pulses until ctx is cancelled. Own
// pulses are skipped; addresses go into the peerstore before onEvent runs.
func (n *Node) RunPresenceLoop(ctx context.Context, onEvent func(msg proto.PresenceMsg)) {
	go func() {
		for {
			m, err := n.presenceSub.Next(ctx)
			if err != nil {
				return
			}

			var pm proto.PresenceMsg
			if err := json.Unmarshal(m.Data, &pm); err != nil {
				continue
			}
			if pm.PeerID == "" || pm.Type == "" {
				continue
			}
			if pm.PeerID == n.ID() {
				continue
			}

			if pm.Type == proto.TypeOnline || pm.Type == proto.TypeUpdate {
				n.addPeerAddrs(pm.PeerID, pm.Addrs)
			}

			if onEvent != nil {
				onEvent(pm)
			}
		}
	}()
}

// RunActivityLoop consumes audio-activity pulses until ctx is cancelled.
// Own pulses are skipped — the sender's indicators are driven locally.
func (n *Node) RunActivityLoop(ctx context.Context, onActivity func(msg proto.ActivityMsg)) {
	go func() {
		for {
			m, err := n.activitySub.Next(ctx)
			if err != nil {
				return
			}

			var am proto.ActivityMsg
			if err := json.Unmarshal(m.Data, &am); err != nil {
				continue
			}
			if am.PeerID == "" || am.GroupID == "" {
				continue
			}
			if am.PeerID == n.ID() {
				continue
			}

			if onActivity != nil {
				onActivity(am)
			}
		}
	}()
}
