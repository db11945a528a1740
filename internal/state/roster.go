package state

import (
	"sync"
	"time"
)

// Member is one peer currently present in a group.
type Member struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}

type RosterEvent struct {
	Type    string            `json:"type"` // "join", "rename", "leave", "clear"
	GroupID string            `json:"group_id"`
	PeerID  string            `json:"peer_id,omitempty"`
	Member  *Member           `json:"member,omitempty"`
	Members map[string]Member `json:"members,omitempty"`
}

// RosterTable holds the live membership of every joined group. It is the
// single source of truth the panel reconciles from; all mutation paths
// (join, rename, leave, group close) funnel through it and fan out to
// subscribers.
type RosterTable struct {
	mu        sync.Mutex
	groups    map[string]map[string]Member
	listeners []chan RosterEvent
}

func NewRosterTable() *RosterTable {
	return &RosterTable{
		groups:    map[string]map[string]Member{},
		listeners: make([]chan RosterEvent, 0),
	}
}

// Join adds or re-adds a peer to a group. Re-joining an existing peer
// refreshes LastSeen but keeps the original JoinedAt.
func (t *RosterTable) Join(groupID, peerID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		members = map[string]Member{}
		t.groups[groupID] = members
	}

	now := time.Now()
	m := Member{Name: name, JoinedAt: now, LastSeen: now}
	if existing, ok := members[peerID]; ok {
		m.JoinedAt = existing.JoinedAt
	}
	members[peerID] = m
	t.notifyListeners(RosterEvent{Type: "join", GroupID: groupID, PeerID: peerID, Member: &m})
}

// Rename updates a peer's display name. Unknown peers are ignored; renames
// to the same name do not notify.
func (t *RosterTable) Rename(groupID, peerID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return
	}
	m, ok := members[peerID]
	if !ok || m.Name == name {
		return
	}
	m.Name = name
	m.LastSeen = time.Now()
	members[peerID] = m
	t.notifyListeners(RosterEvent{Type: "rename", GroupID: groupID, PeerID: peerID, Member: &m})
}

// Touch refreshes LastSeen without notifying.
func (t *RosterTable) Touch(groupID, peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return
	}
	m, ok := members[peerID]
	if !ok {
		return
	}
	m.LastSeen = time.Now()
	members[peerID] = m
}

// Leave removes a peer from a group. Removing an unknown peer is a no-op
// and does not notify.
func (t *RosterTable) Leave(groupID, peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return
	}
	if _, ok := members[peerID]; !ok {
		return
	}
	delete(members, peerID)
	if len(members) == 0 {
		delete(t.groups, groupID)
	}
	t.notifyListeners(RosterEvent{Type: "leave", GroupID: groupID, PeerID: peerID})
}

// Clear drops a group's entire roster, e.g. when the local user leaves.
func (t *RosterTable) Clear(groupID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.groups[groupID]; !ok {
		return
	}
	delete(t.groups, groupID)
	t.notifyListeners(RosterEvent{Type: "clear", GroupID: groupID})
}

// Get returns one member.
func (t *RosterTable) Get(groupID, peerID string) (Member, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.groups[groupID][peerID]
	return m, ok
}

// Names returns peerID -> display name for a group. This is the map the
// panel reconciler consumes.
func (t *RosterTable) Names(groupID string) map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return nil
	}
	names := make(map[string]string, len(members))
	for id, m := range members {
		names[id] = m.Name
	}
	return names
}

// Count returns the number of members in a group.
func (t *RosterTable) Count(groupID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.groups[groupID])
}

// Snapshot returns a copy of one group's membership.
func (t *RosterTable) Snapshot(groupID string) map[string]Member {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return nil
	}
	cp := make(map[string]Member, len(members))
	for id, m := range members {
		cp[id] = m
	}
	return cp
}

// GroupIDs lists groups with at least one member.
func (t *RosterTable) GroupIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.groups))
	for id := range t.groups {
		ids = append(ids, id)
	}
	return ids
}

// PruneStale removes members whose LastSeen predates the cutoff. Groups
// that empty out are dropped.
func (t *RosterTable) PruneStale(groupID string, cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return
	}
	for id, m := range members {
		if m.LastSeen.Before(cutoff) {
			delete(members, id)
			t.notifyListeners(RosterEvent{Type: "leave", GroupID: groupID, PeerID: id})
		}
	}
	if len(members) == 0 {
		delete(t.groups, groupID)
	}
}

func (t *RosterTable) Subscribe() chan RosterEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan RosterEvent, 16)
	t.listeners = append(t.listeners, ch)
	return ch
}

func (t *RosterTable) Unsubscribe(ch chan RosterEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, listener := range t.listeners {
		if listener == ch {
			close(listener)
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *RosterTable) notifyListeners(evt RosterEvent) {
	for _, ch := range t.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
