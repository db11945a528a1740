// Package speaking tracks which peers are currently transmitting audio.
//
// Audio-activity events arrive in bursts while someone talks; toggling an
// indicator per event would flicker constantly. The tracker keeps one
// deadline per peer and resets it on every event: a peer enters Speaking on
// the first event and drops back to Idle only after a full quiet period
// passes with no further events.
package speaking

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long after the last activity event a peer is
// still considered speaking.
const DefaultQuietPeriod = 500 * time.Millisecond

// OnChangeFunc is notified on true state transitions only: once when a peer
// starts speaking, once when it falls idle. Reset events while already
// speaking do not re-notify.
type OnChangeFunc func(peerID string, speaking bool)

type peerState struct {
	timer *time.Timer
	gen   uint64 // bumped on every re-arm so stale timer callbacks no-op
}

// Tracker holds per-peer speaking state. Safe for concurrent use; timer
// callbacks fire on their own goroutine and synchronize through the same
// lock, so a cancelled peer can never receive a trailing idle notification.
type Tracker struct {
	mu       sync.Mutex
	quiet    time.Duration
	onChange OnChangeFunc
	peers    map[string]*peerState
}

// New creates a tracker with the given quiet period (0 or negative means
// DefaultQuietPeriod). onChange may be nil.
func New(quiet time.Duration, onChange OnChangeFunc) *Tracker {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Tracker{
		quiet:    quiet,
		onChange: onChange,
		peers:    make(map[string]*peerState),
	}
}

// Activity records an audio-activity event for peerID. The first event
// transitions the peer to Speaking and notifies; subsequent events while
// speaking only push the expiry deadline out.
func (t *Tracker) Activity(peerID string) {
	t.mu.Lock()

	if st, ok := t.peers[peerID]; ok {
		st.timer.Stop()
		st.gen++
		gen := st.gen
		st.timer = time.AfterFunc(t.quiet, func() { t.expire(peerID, gen) })
		t.mu.Unlock()
		return
	}

	st := &peerState{gen: 1}
	gen := st.gen
	st.timer = time.AfterFunc(t.quiet, func() { t.expire(peerID, gen) })
	t.peers[peerID] = st
	notify := t.onChange
	t.mu.Unlock()

	if notify != nil {
		notify(peerID, true)
	}
}

// expire is the timer callback. The generation check discards callbacks
// that lost a race with a reset or a Forget.
func (t *Tracker) expire(peerID string, gen uint64) {
	t.mu.Lock()
	st, ok := t.peers[peerID]
	if !ok || st.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.peers, peerID)
	notify := t.onChange
	t.mu.Unlock()

	if notify != nil {
		notify(peerID, false)
	}
}

// Forget drops peerID's speaking state and cancels its pending timer
// without emitting an idle notification. Call it when the peer leaves the
// roster so no callback fires into a peer that no longer exists.
func (t *Tracker) Forget(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.peers[peerID]
	if !ok {
		return
	}
	st.timer.Stop()
	st.gen++ // invalidate an already-fired callback waiting on the lock
	delete(t.peers, peerID)
}

// ForgetAll cancels every pending timer. Used on shutdown and when the
// roster is cleared.
func (t *Tracker) ForgetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, st := range t.peers {
		st.timer.Stop()
		st.gen++
		delete(t.peers, id)
	}
}

// Speaking reports whether peerID is currently marked as speaking.
func (t *Tracker) Speaking(peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.peers[peerID]
	return ok
}

// Snapshot returns the IDs of all currently speaking peers.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.peers))
	for id := range t.peers {
		out = append(out, id)
	}
	return out
}
