package storage

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	if got := db.GetMeta("missing"); got != "" {
		t.Fatalf("missing key = %q, want empty", got)
	}
	if err := db.SetMeta("display_name", "Alice"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if got := db.GetMeta("display_name"); got != "Alice" {
		t.Fatalf("GetMeta = %q, want Alice", got)
	}
	if err := db.SetMeta("display_name", "Alicia"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	if got := db.GetMeta("display_name"); got != "Alicia" {
		t.Fatalf("GetMeta after overwrite = %q, want Alicia", got)
	}
}

func TestGroupsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.CreateGroup("g1", "Team", true); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	g, err := db.GetGroup("g1")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.Name != "Team" || !g.AVEnabled {
		t.Fatalf("group = %+v", g)
	}

	if err := db.SetGroupTitle("g1", "Weekly sync"); err != nil {
		t.Fatalf("SetGroupTitle: %v", err)
	}
	g, _ = db.GetGroup("g1")
	if g.Title != "Weekly sync" {
		t.Fatalf("title = %q", g.Title)
	}

	groups, err := db.ListGroups()
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	if err := db.DeleteGroup("g1"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := db.GetGroup("g1"); err == nil {
		t.Fatal("expected error for deleted group")
	}
}

func TestSubscriptions(t *testing.T) {
	db := openTestDB(t)

	if err := db.AddSubscription("host1", "g1", "Team", "member", false); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}
	// Re-adding replaces the row instead of erroring.
	if err := db.AddSubscription("host1", "g1", "Team", "admin", true); err != nil {
		t.Fatalf("AddSubscription replace: %v", err)
	}

	subs, err := db.ListSubscriptions()
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
	if subs[0].Role != "admin" || !subs[0].AVEnabled {
		t.Fatalf("subscription = %+v", subs[0])
	}

	if err := db.RemoveSubscription("host1", "g1"); err != nil {
		t.Fatalf("RemoveSubscription: %v", err)
	}
	subs, _ = db.ListSubscriptions()
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(subs))
	}
}

func TestBlacklist(t *testing.T) {
	db := openTestDB(t)

	if db.IsBlacklisted("P1") {
		t.Fatal("fresh db should have empty blacklist")
	}
	if err := db.AddToBlacklist("P1"); err != nil {
		t.Fatalf("AddToBlacklist: %v", err)
	}
	if err := db.AddToBlacklist("P1"); err != nil {
		t.Fatalf("duplicate AddToBlacklist: %v", err)
	}
	if !db.IsBlacklisted("P1") {
		t.Fatal("P1 should be blacklisted")
	}

	ids, err := db.ListBlacklist()
	if err != nil {
		t.Fatalf("ListBlacklist: %v", err)
	}
	if len(ids) != 1 || ids[0] != "P1" {
		t.Fatalf("blacklist = %v", ids)
	}

	if err := db.RemoveFromBlacklist("P1"); err != nil {
		t.Fatalf("RemoveFromBlacklist: %v", err)
	}
	if db.IsBlacklisted("P1") {
		t.Fatal("P1 should have been removed")
	}
}

func TestPeerCache(t *testing.T) {
	db := openTestDB(t)

	err := db.UpsertCachedPeer(CachedPeer{
		PeerID: "P1",
		Name:   "Alice",
		Addrs:  []string{"/ip4/10.0.0.5/tcp/4001"},
	})
	if err != nil {
		t.Fatalf("UpsertCachedPeer: %v", err)
	}

	// An update without addresses must keep the stored ones.
	if err := db.UpsertCachedPeer(CachedPeer{PeerID: "P1", Name: "Alicia", AVOff: true}); err != nil {
		t.Fatalf("UpsertCachedPeer update: %v", err)
	}

	p, ok := db.GetCachedPeer("P1")
	if !ok {
		t.Fatal("P1 missing from cache")
	}
	if p.Name != "Alicia" || !p.AVOff {
		t.Fatalf("cached peer = %+v", p)
	}
	if len(p.Addrs) != 1 || p.Addrs[0] != "/ip4/10.0.0.5/tcp/4001" {
		t.Fatalf("addrs = %v, want preserved address", p.Addrs)
	}

	if got := db.GetPeerName("P1"); got != "Alicia" {
		t.Fatalf("GetPeerName = %q", got)
	}
	if got := db.GetPeerName("unknown"); got != "" {
		t.Fatalf("GetPeerName(unknown) = %q, want empty", got)
	}

	if err := db.DeleteCachedPeer("P1"); err != nil {
		t.Fatalf("DeleteCachedPeer: %v", err)
	}
	if _, ok := db.GetCachedPeer("P1"); ok {
		t.Fatal("P1 should be gone")
	}
}
