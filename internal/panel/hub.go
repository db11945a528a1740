package panel

import (
	"context"
	"sort"
	"sync"
)

// Hub owns one running panel per joined group. Panels are created through
// the factory on first Open and stopped when the group is closed.
type Hub struct {
	factory func(groupID string) *Panel

	mu     sync.Mutex
	panels map[string]*Panel
	stops  map[string]context.CancelFunc
}

// NewHub creates a hub. The factory binds a group ID to a fully wired
// panel; the hub handles Run lifecycles.
func NewHub(factory func(groupID string) *Panel) *Hub {
	return &Hub{
		factory: factory,
		panels:  make(map[string]*Panel),
		stops:   make(map[string]context.CancelFunc),
	}
}

// Open returns the panel for a group, starting it on first use.
func (h *Hub) Open(groupID string) *Panel {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.panels[groupID]; ok {
		return p
	}

	p := h.factory(groupID)
	ctx, cancel := context.WithCancel(context.Background())
	h.panels[groupID] = p
	h.stops[groupID] = cancel
	go p.Run(ctx)
	return p
}

// Get returns the panel for a group if it is open.
func (h *Hub) Get(groupID string) (*Panel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.panels[groupID]
	return p, ok
}

// CloseGroup stops and drops a group's panel. Unknown groups are a no-op.
func (h *Hub) CloseGroup(groupID string) {
	h.mu.Lock()
	cancel, ok := h.stops[groupID]
	if ok {
		delete(h.stops, groupID)
		delete(h.panels, groupID)
	}
	h.mu.Unlock()
	if ok {
		cancel()
	}
}

// Groups lists the open panel group IDs, sorted.
func (h *Hub) Groups() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.panels))
	for id := range h.panels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CloseAll stops every panel.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	stops := h.stops
	h.stops = make(map[string]context.CancelFunc)
	h.panels = make(map[string]*Panel)
	h.mu.Unlock()
	for _, cancel := range stops {
		cancel()
	}
}
