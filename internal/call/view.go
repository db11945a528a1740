package call

import (
	"sort"
	"sync"
)

// View is the live-call member strip: the set of remote members currently
// audible in a group call. The local user is never shown in their own
// view.
type View struct {
	selfID string

	mu    sync.Mutex
	peers map[string]struct{}
}

func newView(selfID string) *View {
	return &View{
		selfID: selfID,
		peers:  make(map[string]struct{}),
	}
}

// AddPeer makes a peer visible in the view. Adding the local peer or an
// already visible peer is a no-op. Returns true when the view changed.
func (v *View) AddPeer(peerID string) bool {
	if peerID == v.selfID {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.peers[peerID]; ok {
		return false
	}
	v.peers[peerID] = struct{}{}
	return true
}

// RemovePeer hides a peer. Returns true when the view changed.
func (v *View) RemovePeer(peerID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.peers[peerID]; !ok {
		return false
	}
	delete(v.peers, peerID)
	return true
}

// Clear hides everyone.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.peers = make(map[string]struct{})
}

// Peers returns the visible peer IDs in stable order.
func (v *View) Peers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.peers))
	for id := range v.peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether a peer is visible.
func (v *View) Contains(peerID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.peers[peerID]
	return ok
}
