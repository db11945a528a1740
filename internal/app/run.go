package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"huddle/internal/av"
	"huddle/internal/call"
	"huddle/internal/config"
	"huddle/internal/p2p"
	"huddle/internal/panel"
	"huddle/internal/proto"
	"huddle/internal/session"
	"huddle/internal/settings"
	"huddle/internal/state"
	"huddle/internal/storage"
	"huddle/internal/util"
	"huddle/internal/viewer"
)

type Options struct {
	PeerDir string
	CfgPath string
	Cfg     config.Config
}

// Run starts one peer: storage, settings, the libp2p node, group
// sessions, calls, panels, and the local viewer. It blocks until ctx is
// cancelled, then announces offline and shuts everything down.
func Run(ctx context.Context, opt Options) error {
	logBuf := viewer.NewLogBuffer(800)
	log.SetOutput(logBuf)

	logBanner(opt.PeerDir, opt.CfgPath)

	cfg := opt.Cfg

	// ── Storage
	db, err := storage.Open(opt.PeerDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// ── Settings (profile + blacklist), backed by the database
	st, err := settings.NewStore(db, cfg.Profile.Name)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Config file edits while running update the display name live.
	go func() {
		if err := st.WatchConfig(ctx, opt.CfgPath); err != nil {
			log.Printf("SETTINGS: config watch unavailable: %v", err)
		}
	}()

	// ── P2P node
	presenceTTL := time.Duration(cfg.Presence.TTLSec) * time.Second
	node, err := p2p.New(ctx, p2p.Options{
		ListenPort:    cfg.P2P.ListenPort,
		KeyFile:       util.ResolvePath(opt.PeerDir, cfg.Identity.KeyFile),
		MdnsTag:       cfg.P2P.MdnsTag,
		PresenceTopic: cfg.Presence.Topic,
		ActivityTopic: cfg.Call.ActivityTopic,
		PresenceTTL:   presenceTTL,
		SelfName:      st.DisplayName,
		SelfAVOff:     func() bool { return cfg.Call.Disabled },
	})
	if err != nil {
		return err
	}
	defer node.Close()
	log.Printf("peer id: %s", node.ID())

	// ── Roster + group sessions
	rosterTable := state.NewRosterTable()
	sess := session.New(node.Host, db, rosterTable, st.DisplayName)
	defer sess.Close()
	log.Printf("SESSION: group protocol enabled: %s", proto.GroupProtoID)

	// ── Calls
	quiet := time.Duration(cfg.Call.QuietPeriodMs) * time.Millisecond
	calls := call.New(node.ID(), cfg.Call.Disabled, quiet)
	defer calls.Close()
	if cfg.Call.Disabled {
		log.Printf("CALL: disabled by config")
	}

	meter := av.NewMeter(node.ID(), func(msg proto.ActivityMsg) error {
		return node.PublishActivity(ctx, msg)
	}, 0, 0)

	// ── Panels, one per joined group
	panels := panel.NewHub(func(groupID string) *panel.Panel {
		return panel.New(groupID, rosterTable, st, sess, calls)
	})
	defer panels.CloseAll()
	for _, id := range sess.JoinedGroups() {
		panels.Open(id)
	}

	// ── Presence and activity consumers
	node.RunPresenceLoop(ctx, func(m proto.PresenceMsg) {
		switch m.Type {
		case proto.TypeOnline, proto.TypeUpdate:
			if err := db.UpsertCachedPeer(storage.CachedPeer{
				PeerID: m.PeerID,
				Name:   m.Name,
				AVOff:  m.AVOff,
				Addrs:  m.Addrs,
			}); err != nil {
				log.Printf("PEER: cache update failed for %s: %v", m.PeerID, err)
			}
		case proto.TypeOffline:
			log.Printf("PEER: %s went offline", m.PeerID)
		}
	})

	node.RunActivityLoop(ctx, func(m proto.ActivityMsg) {
		calls.HandleActivity(m)
	})

	// ── Viewer
	if cfg.Viewer.HTTPAddr != "" {
		addr, url := NormalizeLocalViewer(cfg.Viewer.HTTPAddr)
		go func() {
			if err := viewer.Start(addr, viewer.Viewer{
				Node:     node,
				DB:       db,
				Settings: st,
				Roster:   rosterTable,
				Sessions: sess,
				Calls:    calls,
				Meter:    meter,
				Panels:   panels,
				CfgPath:  opt.CfgPath,
				Logs:     logBuf,
			}); err != nil {
				log.Printf("VIEWER: stopped: %v", err)
			}
		}()
		log.Printf("viewer: %s", url)
	}

	// ── Presence heartbeat
	node.PublishPresence(ctx, proto.TypeOnline)

	go func() {
		t := time.NewTicker(time.Duration(cfg.Presence.HeartbeatSec) * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				node.PublishPresence(ctx, proto.TypeUpdate)
			}
		}
	}()

	<-ctx.Done()
	log.Println("PEER: shutting down, announcing offline")
	offCtx, cancel := context.WithTimeout(context.Background(), util.ShortTimeout)
	defer cancel()
	node.PublishPresence(offCtx, proto.TypeOffline)
	return nil
}
