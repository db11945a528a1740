// Package settings keeps the mutable, user-editable pieces of runtime
// state: the peer blacklist and the local profile. It caches the blacklist
// in memory so the panel reconciler never hits SQLite on the hot path, and
// fans out change events so open panels can re-render.
package settings

import (
	"log"
	"sync"

	"huddle/internal/storage"
)

type EventType string

const (
	EventBlacklist EventType = "blacklist"
	EventProfile   EventType = "profile"
)

type Event struct {
	Type   EventType `json:"type"`
	PeerID string    `json:"peer_id,omitempty"`
	Name   string    `json:"name,omitempty"`
}

type Store struct {
	db *storage.DB

	mu        sync.Mutex
	blacklist map[string]struct{}
	name      string
	listeners []chan Event
}

// NewStore loads the persisted blacklist into memory.
func NewStore(db *storage.DB, displayName string) (*Store, error) {
	ids, err := db.ListBlacklist()
	if err != nil {
		return nil, err
	}
	bl := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		bl[id] = struct{}{}
	}
	return &Store{
		db:        db,
		blacklist: bl,
		name:      displayName,
		listeners: make([]chan Event, 0),
	}, nil
}

// Blacklist returns a copy of the current blacklist set.
func (s *Store) Blacklist() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]struct{}, len(s.blacklist))
	for id := range s.blacklist {
		cp[id] = struct{}{}
	}
	return cp
}

// IsBlacklisted reports whether a peer identity is blacklisted.
func (s *Store) IsBlacklisted(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[peerID]
	return ok
}

// AddToBlacklist persists and caches a blacklist entry. Re-adding an
// existing entry does not notify.
func (s *Store) AddToBlacklist(peerID string) error {
	s.mu.Lock()
	if _, ok := s.blacklist[peerID]; ok {
		s.mu.Unlock()
		return nil
	}
	if err := s.db.AddToBlacklist(peerID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.blacklist[peerID] = struct{}{}
	s.notifyLocked(Event{Type: EventBlacklist, PeerID: peerID})
	s.mu.Unlock()
	log.Printf("SETTINGS: blacklisted peer %s", peerID)
	return nil
}

// RemoveFromBlacklist removes a blacklist entry. Removing an unknown entry
// does not notify.
func (s *Store) RemoveFromBlacklist(peerID string) error {
	s.mu.Lock()
	if _, ok := s.blacklist[peerID]; !ok {
		s.mu.Unlock()
		return nil
	}
	if err := s.db.RemoveFromBlacklist(peerID); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.blacklist, peerID)
	s.notifyLocked(Event{Type: EventBlacklist, PeerID: peerID})
	s.mu.Unlock()
	log.Printf("SETTINGS: unblacklisted peer %s", peerID)
	return nil
}

// DisplayName returns the local profile name.
func (s *Store) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetDisplayName updates the local profile name and notifies listeners.
// Setting the same name is a no-op.
func (s *Store) SetDisplayName(name string) {
	s.mu.Lock()
	if s.name == name {
		s.mu.Unlock()
		return
	}
	s.name = name
	s.notifyLocked(Event{Type: EventProfile, Name: name})
	s.mu.Unlock()
}

func (s *Store) Subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 16)
	s.listeners = append(s.listeners, ch)
	return ch
}

func (s *Store) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, listener := range s.listeners {
		if listener == ch {
			close(listener)
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) notifyLocked(evt Event) {
	for _, ch := range s.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
