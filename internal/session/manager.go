package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"huddle/internal/proto"
	"huddle/internal/state"
	"huddle/internal/storage"
)

// Event is emitted to local listeners (panels, viewer SSE).
type Event struct {
	Type    string `json:"type"`
	Group   string `json:"group"`
	From    string `json:"from,omitempty"`
	Name    string `json:"name,omitempty"`
	Payload any    `json:"payload,omitempty"`
	TS      int64  `json:"ts,omitempty"`
}

// Manager handles the group protocol, both host-side (relay) and
// client-side (connection). Membership changes flow into the roster table,
// which is the single source the panel reconciles from.
type Manager struct {
	host     host.Host
	db       *storage.DB
	roster   *state.RosterTable
	selfName func() string

	mu     sync.RWMutex
	selfID string

	// Host-side: groupID -> *hostedGroup
	groups map[string]*hostedGroup

	// Client-side: groupID -> connection
	conns map[string]*clientConn

	listeners []chan *Event
}

type hostedGroup struct {
	info    storage.GroupRow
	members map[string]*memberConn // peerID -> connection
	mu      sync.RWMutex
}

type memberConn struct {
	peerID   string
	name     string
	joinedAt int64
	stream   network.Stream
	encoder  *json.Encoder
	cancel   context.CancelFunc
}

type clientConn struct {
	hostPeerID string
	groupID    string
	stream     network.Stream
	encoder    *json.Encoder
	cancel     context.CancelFunc
}

// New creates a session manager and registers the stream handlers.
// selfName supplies the current display name at send time so profile
// renames take effect without reconnecting.
func New(h host.Host, db *storage.DB, roster *state.RosterTable, selfName func() string) *Manager {
	m := &Manager{
		host:      h,
		db:        db,
		roster:    roster,
		selfName:  selfName,
		selfID:    h.ID().String(),
		groups:    make(map[string]*hostedGroup),
		conns:     make(map[string]*clientConn),
		listeners: make([]chan *Event, 0),
	}

	// Load hosted groups from DB into memory
	if groups, err := db.ListGroups(); err == nil {
		for _, g := range groups {
			m.groups[g.ID] = &hostedGroup{
				info:    g,
				members: make(map[string]*memberConn),
			}
			m.roster.Join(g.ID, m.selfID, m.selfName())
		}
	}

	h.SetStreamHandler(protocol.ID(proto.GroupProtoID), m.handleIncomingStream)
	h.SetStreamHandler(protocol.ID(proto.GroupInviteProtoID), m.handleInviteStream)
	return m
}

// ─── Host-side: stream handler ───────────────────────────────────────────────

func (m *Manager) handleIncomingStream(s network.Stream) {
	remotePeer := s.Conn().RemotePeer().String()
	dec := json.NewDecoder(s)
	enc := json.NewEncoder(s)

	// First message must be a join carrying the member's display name
	var joinMsg Message
	if err := dec.Decode(&joinMsg); err != nil {
		log.Printf("SESSION: Failed to decode join from %s: %v", remotePeer, err)
		s.Reset()
		return
	}
	if joinMsg.Type != TypeJoin {
		log.Printf("SESSION: Expected join from %s, got %s", remotePeer, joinMsg.Type)
		enc.Encode(Message{Type: TypeError, Payload: ErrorPayload{Code: "bad_first_msg", Message: "first message must be join"}})
		s.Reset()
		return
	}
	var jp JoinPayload
	DecodePayload(joinMsg.Payload, &jp)

	groupID := joinMsg.Group
	m.mu.RLock()
	hg, exists := m.groups[groupID]
	m.mu.RUnlock()

	if !exists {
		enc.Encode(Message{Type: TypeError, Group: groupID, Payload: ErrorPayload{Code: "not_found", Message: "group not found"}})
		s.Reset()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &memberConn{
		peerID:   remotePeer,
		name:     jp.Name,
		joinedAt: proto.NowMillis(),
		stream:   s,
		encoder:  enc,
		cancel:   cancel,
	}
	hg.mu.Lock()
	hg.members[remotePeer] = mc
	memberList := m.memberList(hg)
	title := hg.info.Title
	hg.mu.Unlock()

	m.roster.Join(groupID, remotePeer, jp.Name)

	log.Printf("SESSION: %s (%s) joined group %s", remotePeer, jp.Name, groupID)

	// Send welcome to the new member
	enc.Encode(Message{
		Type:  TypeWelcome,
		Group: groupID,
		Payload: WelcomePayload{
			GroupName: hg.info.Name,
			Title:     title,
			AVEnabled: hg.info.AVEnabled,
			Members:   memberList,
		},
	})

	// Broadcast updated member list to all other members
	hg.broadcast(Message{
		Type:    TypeMembers,
		Group:   groupID,
		Payload: MembersPayload{Members: memberList},
	}, remotePeer)

	m.notifyListeners(&Event{Type: TypeMembers, Group: groupID, Payload: MembersPayload{Members: memberList}})

	// Read loop: relay messages from this member to others
	m.readLoop(ctx, dec, hg, mc, groupID)

	// Cleanup on disconnect
	cancel()
	hg.mu.Lock()
	delete(hg.members, remotePeer)
	updatedMembers := m.memberList(hg)
	hg.mu.Unlock()

	s.Close()

	m.roster.Leave(groupID, remotePeer)

	log.Printf("SESSION: %s left group %s", remotePeer, groupID)

	hg.broadcast(Message{
		Type:    TypeMembers,
		Group:   groupID,
		Payload: MembersPayload{Members: updatedMembers},
	}, "")

	m.notifyListeners(&Event{Type: TypeMembers, Group: groupID, From: remotePeer, Payload: MembersPayload{Members: updatedMembers}})
}

func (m *Manager) readLoop(ctx context.Context, dec *json.Decoder, hg *hostedGroup, mc *memberConn, groupID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var msg Message
		if err := dec.Decode(&msg); err != nil {
			return // disconnect
		}

		// Host-side: enforce sender identity
		msg.From = mc.peerID
		msg.Group = groupID
		if msg.TS == 0 {
			msg.TS = proto.NowMillis()
		}

		switch msg.Type {
		case TypeLeave:
			return
		case TypeMsg, TypeAction:
			hg.broadcast(msg, mc.peerID)
			m.notifyListeners(&Event{Type: msg.Type, Group: groupID, From: mc.peerID, Name: mc.name, Payload: msg.Payload, TS: msg.TS})
		case TypeRename:
			var rp RenamePayload
			DecodePayload(msg.Payload, &rp)
			hg.mu.Lock()
			mc.name = rp.Name
			hg.mu.Unlock()
			m.roster.Rename(groupID, mc.peerID, rp.Name)
			hg.broadcast(msg, mc.peerID)
			m.notifyListeners(&Event{Type: TypeRename, Group: groupID, From: mc.peerID, Name: rp.Name, TS: msg.TS})
		case TypeTitle:
			var tp TitlePayload
			DecodePayload(msg.Payload, &tp)
			tp.Author = mc.name
			hg.mu.Lock()
			hg.info.Title = tp.Title
			hg.mu.Unlock()
			if err := m.db.SetGroupTitle(groupID, tp.Title); err != nil {
				log.Printf("SESSION: Failed to persist title for %s: %v", groupID, err)
			}
			relayed := Message{Type: TypeTitle, Group: groupID, From: mc.peerID, TS: msg.TS, Payload: tp}
			hg.broadcast(relayed, mc.peerID)
			m.notifyListeners(&Event{Type: TypeTitle, Group: groupID, From: mc.peerID, Name: mc.name, Payload: tp, TS: msg.TS})
		}
	}
}

// ─── Host-side: group management ─────────────────────────────────────────────

// CreateGroup creates a new hosted group. The host itself is the first
// roster member.
func (m *Manager) CreateGroup(id, name string, avEnabled bool) error {
	if err := m.db.CreateGroup(id, name, avEnabled); err != nil {
		return err
	}

	g, err := m.db.GetGroup(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.groups[id] = &hostedGroup{
		info:    g,
		members: make(map[string]*memberConn),
	}
	m.mu.Unlock()

	m.roster.Join(id, m.selfID, m.selfName())

	log.Printf("SESSION: Created group %s (%s)", id, name)
	return nil
}

// CloseGroup closes a hosted group, notifying all members.
func (m *Manager) CloseGroup(groupID string) error {
	m.mu.Lock()
	hg, exists := m.groups[groupID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("group not found: %s", groupID)
	}
	delete(m.groups, groupID)
	m.mu.Unlock()

	closeMsg := Message{Type: TypeClose, Group: groupID}
	hg.mu.Lock()
	for _, mc := range hg.members {
		mc.encoder.Encode(closeMsg)
		mc.cancel()
		mc.stream.Close()
	}
	hg.members = nil
	hg.mu.Unlock()

	if err := m.db.DeleteGroup(groupID); err != nil {
		log.Printf("SESSION: Failed to delete group %s from DB: %v", groupID, err)
	}

	m.roster.Clear(groupID)
	m.notifyListeners(&Event{Type: TypeClose, Group: groupID})

	log.Printf("SESSION: Closed group %s", groupID)
	return nil
}

// SetTitle changes a hosted group's title and announces it to all members.
func (m *Manager) SetTitle(groupID, title string) error {
	m.mu.RLock()
	hg, exists := m.groups[groupID]
	m.mu.RUnlock()
	if !exists {
		return m.sendTitleAsClient(groupID, title)
	}

	hg.mu.Lock()
	hg.info.Title = title
	hg.mu.Unlock()
	if err := m.db.SetGroupTitle(groupID, title); err != nil {
		return err
	}

	tp := TitlePayload{Title: title, Author: m.selfName()}
	msg := Message{Type: TypeTitle, Group: groupID, From: m.selfID, TS: proto.NowMillis(), Payload: tp}
	hg.broadcast(msg, "")
	m.notifyListeners(&Event{Type: TypeTitle, Group: groupID, From: m.selfID, Name: tp.Author, Payload: tp, TS: msg.TS})
	return nil
}

func (m *Manager) sendTitleAsClient(groupID, title string) error {
	m.mu.RLock()
	cc := m.conns[groupID]
	m.mu.RUnlock()
	if cc == nil {
		return fmt.Errorf("group not found: %s", groupID)
	}
	return cc.encoder.Encode(Message{
		Type:    TypeTitle,
		Group:   groupID,
		TS:      proto.NowMillis(),
		Payload: TitlePayload{Title: title},
	})
}

// ListHostedGroups returns all hosted groups.
func (m *Manager) ListHostedGroups() ([]storage.GroupRow, error) {
	return m.db.ListGroups()
}

// IsGroupHost returns true if this peer hosts the given group.
func (m *Manager) IsGroupHost(groupID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.groups[groupID]
	return exists
}

// HostedGroupInfo returns the info for a hosted group.
func (m *Manager) HostedGroupInfo(groupID string) (storage.GroupRow, bool) {
	m.mu.RLock()
	hg, exists := m.groups[groupID]
	m.mu.RUnlock()
	if !exists {
		return storage.GroupRow{}, false
	}
	hg.mu.RLock()
	defer hg.mu.RUnlock()
	return hg.info, true
}

// ─── Client-side: connecting to remote groups ────────────────────────────────

// JoinRemoteGroup opens a stream to a remote host and joins a group.
func (m *Manager) JoinRemoteGroup(ctx context.Context, hostPeerID, groupID string) error {
	m.mu.Lock()
	if _, ok := m.conns[groupID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("already connected to group %s", groupID)
	}
	m.mu.Unlock()

	pid, err := peer.Decode(hostPeerID)
	if err != nil {
		return fmt.Errorf("invalid host peer ID: %w", err)
	}

	stream, err := m.host.NewStream(ctx, pid, protocol.ID(proto.GroupProtoID))
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	enc := json.NewEncoder(stream)
	dec := json.NewDecoder(stream)

	if err := enc.Encode(Message{Type: TypeJoin, Group: groupID, Payload: JoinPayload{Name: m.selfName()}}); err != nil {
		stream.Close()
		return fmt.Errorf("failed to send join: %w", err)
	}

	var welcome Message
	if err := dec.Decode(&welcome); err != nil {
		stream.Close()
		return fmt.Errorf("failed to read welcome: %w", err)
	}

	if welcome.Type == TypeError {
		stream.Close()
		return fmt.Errorf("join rejected: %v", welcome.Payload)
	}

	if welcome.Type != TypeWelcome {
		stream.Close()
		return fmt.Errorf("unexpected response type: %s", welcome.Type)
	}

	var wp WelcomePayload
	DecodePayload(welcome.Payload, &wp)

	connCtx, cancel := context.WithCancel(context.Background())
	cc := &clientConn{
		hostPeerID: hostPeerID,
		groupID:    groupID,
		stream:     stream,
		encoder:    enc,
		cancel:     cancel,
	}

	m.mu.Lock()
	m.conns[groupID] = cc
	m.mu.Unlock()

	// Seed the roster from the welcome member list
	m.roster.Clear(groupID)
	for _, mi := range wp.Members {
		m.roster.Join(groupID, mi.PeerID, mi.Name)
	}
	m.roster.Join(groupID, m.selfID, m.selfName())

	m.db.AddSubscription(hostPeerID, groupID, wp.GroupName, "member", wp.AVEnabled)

	m.notifyListeners(&Event{Type: TypeWelcome, Group: groupID, Payload: wp})

	log.Printf("SESSION: Joined group %s on host %s", groupID, hostPeerID)

	go m.clientReadLoop(connCtx, dec, cc)

	return nil
}

func (m *Manager) clientReadLoop(ctx context.Context, dec *json.Decoder, cc *clientConn) {
	defer func() {
		m.mu.Lock()
		if m.conns[cc.groupID] == cc {
			delete(m.conns, cc.groupID)
		}
		m.mu.Unlock()
		cc.stream.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var msg Message
		if err := dec.Decode(&msg); err != nil {
			log.Printf("SESSION: Connection to group %s lost: %v", cc.groupID, err)
			m.roster.Clear(cc.groupID)
			m.notifyListeners(&Event{Type: TypeClose, Group: cc.groupID})
			return
		}

		switch msg.Type {
		case TypeClose:
			log.Printf("SESSION: Group %s closed by host", cc.groupID)
			m.db.RemoveSubscription(cc.hostPeerID, cc.groupID)
			m.roster.Clear(cc.groupID)
			m.notifyListeners(&Event{Type: TypeClose, Group: cc.groupID})
			cc.cancel()
			return
		case TypeMembers:
			var mp MembersPayload
			DecodePayload(msg.Payload, &mp)
			m.applyMemberList(cc.groupID, mp.Members)
			m.notifyListeners(&Event{Type: TypeMembers, Group: cc.groupID, Payload: mp})
		case TypeRename:
			var rp RenamePayload
			DecodePayload(msg.Payload, &rp)
			m.roster.Rename(cc.groupID, msg.From, rp.Name)
			m.notifyListeners(&Event{Type: TypeRename, Group: cc.groupID, From: msg.From, Name: rp.Name, TS: msg.TS})
		case TypeMsg, TypeAction, TypeTitle, TypeError:
			m.notifyListeners(&Event{Type: msg.Type, Group: msg.Group, From: msg.From, Payload: msg.Payload, TS: msg.TS})
		}
	}
}

// applyMemberList reconciles the roster table against an authoritative
// member list from the host. The local peer is always kept.
func (m *Manager) applyMemberList(groupID string, members []MemberInfo) {
	current := m.roster.Snapshot(groupID)
	seen := map[string]struct{}{m.selfID: {}}
	for _, mi := range members {
		seen[mi.PeerID] = struct{}{}
		if cur, ok := current[mi.PeerID]; ok {
			if cur.Name != mi.Name {
				m.roster.Rename(groupID, mi.PeerID, mi.Name)
			}
		} else {
			m.roster.Join(groupID, mi.PeerID, mi.Name)
		}
	}
	for id := range current {
		if _, ok := seen[id]; !ok {
			m.roster.Leave(groupID, id)
		}
	}
}

// ─── Sending ─────────────────────────────────────────────────────────────────

// SendText sends a chat message to a group. Hosts broadcast directly;
// clients send through their connection. Returns the message ID.
func (m *Manager) SendText(groupID, text string) (string, error) {
	return m.send(groupID, TypeMsg, TextPayload{Text: text})
}

// SendAction sends a "/me"-style action message to a group.
func (m *Manager) SendAction(groupID, text string) (string, error) {
	return m.send(groupID, TypeAction, TextPayload{Text: text})
}

func (m *Manager) send(groupID, msgType string, payload any) (string, error) {
	id := uuid.NewString()
	msg := Message{
		Type:    msgType,
		ID:      id,
		Group:   groupID,
		TS:      proto.NowMillis(),
		Payload: payload,
	}

	m.mu.RLock()
	hg, isHost := m.groups[groupID]
	cc := m.conns[groupID]
	m.mu.RUnlock()

	switch {
	case isHost:
		msg.From = m.selfID
		hg.broadcast(msg, "")
		m.notifyListeners(&Event{Type: msgType, Group: groupID, From: m.selfID, Name: m.selfName(), Payload: payload, TS: msg.TS})
		return id, nil
	case cc != nil:
		if err := cc.encoder.Encode(msg); err != nil {
			return "", err
		}
		return id, nil
	default:
		return "", fmt.Errorf("not connected to group %s", groupID)
	}
}

// AnnounceRename propagates a local display-name change to every joined
// group.
func (m *Manager) AnnounceRename(name string) {
	m.mu.RLock()
	hosted := make([]string, 0, len(m.groups))
	for id := range m.groups {
		hosted = append(hosted, id)
	}
	conns := make([]*clientConn, 0, len(m.conns))
	for _, cc := range m.conns {
		conns = append(conns, cc)
	}
	m.mu.RUnlock()

	for _, groupID := range hosted {
		m.roster.Rename(groupID, m.selfID, name)
		m.mu.RLock()
		hg := m.groups[groupID]
		m.mu.RUnlock()
		if hg != nil {
			hg.broadcast(Message{
				Type:    TypeRename,
				Group:   groupID,
				From:    m.selfID,
				TS:      proto.NowMillis(),
				Payload: RenamePayload{Name: name},
			}, "")
		}
	}
	for _, cc := range conns {
		m.roster.Rename(cc.groupID, m.selfID, name)
		cc.encoder.Encode(Message{
			Type:    TypeRename,
			Group:   cc.groupID,
			TS:      proto.NowMillis(),
			Payload: RenamePayload{Name: name},
		})
	}
}

// LeaveGroup disconnects from a joined remote group.
func (m *Manager) LeaveGroup(groupID string) error {
	m.mu.Lock()
	cc := m.conns[groupID]
	delete(m.conns, groupID)
	m.mu.Unlock()

	if cc == nil {
		return fmt.Errorf("not connected to group %s", groupID)
	}

	cc.encoder.Encode(Message{Type: TypeLeave, Group: cc.groupID})
	cc.cancel()
	cc.stream.Close()

	m.db.RemoveSubscription(cc.hostPeerID, cc.groupID)
	m.roster.Clear(groupID)
	m.notifyListeners(&Event{Type: TypeLeave, Group: cc.groupID})

	log.Printf("SESSION: Left group %s", cc.groupID)
	return nil
}

// JoinedGroups returns the IDs of groups with an active client connection.
func (m *Manager) JoinedGroups() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	return ids
}

// ─── Event subscription ──────────────────────────────────────────────────────

// Subscribe returns a channel that receives session events.
func (m *Manager) Subscribe() <-chan *Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *Event, 10)
	m.listeners = append(m.listeners, ch)
	return ch
}

// Unsubscribe removes a listener channel.
func (m *Manager) Unsubscribe(ch <-chan *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, listener := range m.listeners {
		if listener == ch {
			close(listener)
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) notifyListeners(evt *Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, listener := range m.listeners {
		select {
		case listener <- evt:
		default:
			// Listener buffer full, skip
		}
	}
}

// ─── Subscriptions (client-side persistence) ─────────────────────────────────

// ListSubscriptions returns all stored group subscriptions.
func (m *Manager) ListSubscriptions() ([]storage.SubscriptionRow, error) {
	return m.db.ListSubscriptions()
}

// ─── Hosted group helpers ────────────────────────────────────────────────────

// memberList builds the member list for a hosted group, host included.
// Caller holds hg.mu.
func (m *Manager) memberList(hg *hostedGroup) []MemberInfo {
	members := make([]MemberInfo, 0, len(hg.members)+1)
	members = append(members, MemberInfo{PeerID: m.selfID, Name: m.selfName()})
	for _, mc := range hg.members {
		members = append(members, MemberInfo{
			PeerID:   mc.peerID,
			Name:     mc.name,
			JoinedAt: mc.joinedAt,
		})
	}
	return members
}

func (g *hostedGroup) broadcast(msg Message, excludePeerID string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for pid, mc := range g.members {
		if pid == excludePeerID {
			continue
		}
		if err := mc.encoder.Encode(msg); err != nil {
			log.Printf("SESSION: Failed to send to %s: %v", pid, err)
		}
	}
}

// DecodePayload remarshals a generic payload into a typed struct. Payloads
// arrive as map[string]any because Message.Payload is any.
func DecodePayload(payload, out any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	json.Unmarshal(b, out)
}

// ─── Invitations ─────────────────────────────────────────────────────────────

// inviteMsg is the wire format for a group invitation.
type inviteMsg struct {
	GroupID    string `json:"group_id"`
	GroupName  string `json:"group_name"`
	HostPeerID string `json:"host_peer_id"`
}

// InvitePeer sends a group invitation to a remote peer. The peer's invite
// handler will auto-join the group.
func (m *Manager) InvitePeer(ctx context.Context, peerID, groupID string) error {
	m.mu.RLock()
	hg, exists := m.groups[groupID]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("group not found: %s", groupID)
	}

	pid, err := peer.Decode(peerID)
	if err != nil {
		return fmt.Errorf("invalid peer ID: %w", err)
	}

	// Best-effort connect
	_ = m.host.Connect(ctx, peer.AddrInfo{ID: pid})

	s, err := m.host.NewStream(ctx, pid, protocol.ID(proto.GroupInviteProtoID))
	if err != nil {
		return fmt.Errorf("failed to open invite stream: %w", err)
	}
	defer s.Close()

	inv := inviteMsg{
		GroupID:    groupID,
		GroupName:  hg.info.Name,
		HostPeerID: m.selfID,
	}
	if err := json.NewEncoder(s).Encode(inv); err != nil {
		return fmt.Errorf("failed to send invite: %w", err)
	}

	log.Printf("SESSION: Sent invite for group %s to peer %s", groupID, peerID)
	return nil
}

// handleInviteStream processes incoming group invitations from a host.
// It auto-joins the group by opening a group stream back to the host.
func (m *Manager) handleInviteStream(s network.Stream) {
	defer s.Close()

	var inv inviteMsg
	if err := json.NewDecoder(s).Decode(&inv); err != nil {
		log.Printf("SESSION: Failed to decode invite: %v", err)
		return
	}

	log.Printf("SESSION: Received invite for group %s from host %s", inv.GroupID, inv.HostPeerID)

	// Auto-join in a goroutine so we don't block the stream handler
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := m.JoinRemoteGroup(ctx, inv.HostPeerID, inv.GroupID); err != nil {
			log.Printf("SESSION: Auto-join after invite failed: %v", err)
		}
	}()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Close shuts down the session manager, closing all streams and listeners.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hg := range m.groups {
		hg.mu.Lock()
		for _, mc := range hg.members {
			mc.cancel()
			mc.stream.Close()
		}
		hg.members = nil
		hg.mu.Unlock()
	}

	for _, cc := range m.conns {
		cc.cancel()
		cc.stream.Close()
	}
	m.conns = map[string]*clientConn{}

	for _, listener := range m.listeners {
		close(listener)
	}
	m.listeners = nil

	return nil
}

// SelfID returns the local peer ID.
func (m *Manager) SelfID() string {
	return m.selfID
}
