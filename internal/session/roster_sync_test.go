package session

import (
	"testing"

	"huddle/internal/state"
)

func newTestManager() *Manager {
	return &Manager{
		roster:   state.NewRosterTable(),
		selfID:   "SELF",
		selfName: func() string { return "me" },
		groups:   map[string]*hostedGroup{},
		conns:    map[string]*clientConn{},
	}
}

func TestApplyMemberList(t *testing.T) {
	m := newTestManager()
	m.roster.Join("g1", "SELF", "me")
	m.roster.Join("g1", "P1", "Alice")
	m.roster.Join("g1", "P2", "Bob")

	// Host's authoritative list: P1 renamed, P2 gone, P3 new. SELF is not
	// in the host's list but must survive the reconcile.
	m.applyMemberList("g1", []MemberInfo{
		{PeerID: "P1", Name: "Alicia"},
		{PeerID: "P3", Name: "Carol"},
	})

	names := m.roster.Names("g1")
	want := map[string]string{"SELF": "me", "P1": "Alicia", "P3": "Carol"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for id, name := range want {
		if names[id] != name {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestApplyMemberListEmpty(t *testing.T) {
	m := newTestManager()
	m.roster.Join("g1", "SELF", "me")
	m.roster.Join("g1", "P1", "Alice")

	m.applyMemberList("g1", nil)

	names := m.roster.Names("g1")
	if len(names) != 1 || names["SELF"] != "me" {
		t.Fatalf("names = %v, want only SELF", names)
	}
}
