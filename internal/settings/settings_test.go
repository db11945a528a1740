package settings

import (
	"context"
	"testing"
	"time"

	"huddle/internal/config"
	"huddle/internal/storage"
	"path/filepath"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db, "tester")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestBlacklistCache(t *testing.T) {
	s := newTestStore(t)

	if s.IsBlacklisted("P1") {
		t.Fatal("fresh store should have empty blacklist")
	}
	if err := s.AddToBlacklist("P1"); err != nil {
		t.Fatalf("AddToBlacklist: %v", err)
	}
	if !s.IsBlacklisted("P1") {
		t.Fatal("P1 should be cached as blacklisted")
	}

	bl := s.Blacklist()
	if _, ok := bl["P1"]; !ok {
		t.Fatalf("blacklist copy = %v", bl)
	}
	// Mutating the copy must not affect the store.
	delete(bl, "P1")
	if !s.IsBlacklisted("P1") {
		t.Fatal("store must not share its internal map")
	}

	if err := s.RemoveFromBlacklist("P1"); err != nil {
		t.Fatalf("RemoveFromBlacklist: %v", err)
	}
	if s.IsBlacklisted("P1") {
		t.Fatal("P1 should be removed")
	}
}

func TestBlacklistPersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s1, err := NewStore(db, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.AddToBlacklist("P9"); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStore(db, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if !s2.IsBlacklisted("P9") {
		t.Fatal("blacklist must survive a store reload")
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.AddToBlacklist("P1")
	s.AddToBlacklist("P1") // duplicate, no event
	s.SetDisplayName("tester") // same name, no event
	s.SetDisplayName("renamed")

	var events []Event
	for len(ch) > 0 {
		events = append(events, <-ch)
	}
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", events)
	}
	if events[0].Type != EventBlacklist || events[0].PeerID != "P1" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Type != EventProfile || events[1].Name != "renamed" {
		t.Fatalf("second event = %+v", events[1])
	}
}

func TestWatchConfigReloadsName(t *testing.T) {
	s := newTestStore(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "huddle.json")
	cfg := config.Default()
	cfg.Profile.Name = "before"
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.WatchConfig(ctx, path); err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}

	cfg.Profile.Name = "after"
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for s.DisplayName() != "after" {
		select {
		case <-deadline:
			t.Fatalf("display name = %q, want after", s.DisplayName())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
