// Package call manages group call membership: joining and leaving calls,
// mute toggles, push-to-talk, and the per-call speaking indicators driven
// by incoming activity pulses.
package call

import (
	"fmt"
	"log"
	"sync"
	"time"

	"huddle/internal/proto"
	"huddle/internal/speaking"
)

// Event types emitted to listeners.
const (
	EventJoined     = "joined"
	EventLeft       = "left"
	EventSpeaking   = "speaking"
	EventInputMute  = "input_mute"
	EventOutputMute = "output_mute"
)

type Event struct {
	Type     string `json:"type"`
	Group    string `json:"group"`
	PeerID   string `json:"peer_id,omitempty"`
	Speaking bool   `json:"speaking,omitempty"`
	Muted    bool   `json:"muted,omitempty"`
}

type callState struct {
	view    *View
	tracker *speaking.Tracker

	inputMuted  bool
	outputMuted bool
	pttHeld     bool
}

// Manager owns the local peer's call state across all groups. One call
// per group; mute toggles only have an effect while in that group's call.
type Manager struct {
	selfID   string
	disabled bool
	quiet    time.Duration

	mu        sync.RWMutex
	calls     map[string]*callState
	listeners []chan Event
}

// New creates a call manager. disabled mirrors the call.disabled config
// flag: every Join fails and all toggles are no-ops. quiet is the speaking
// quiet period (0 means the tracker default).
func New(selfID string, disabled bool, quiet time.Duration) *Manager {
	return &Manager{
		selfID:    selfID,
		disabled:  disabled,
		quiet:     quiet,
		calls:     make(map[string]*callState),
		listeners: make([]chan Event, 0),
	}
}

// Join enters the call for a group. Fails when calls are disabled locally,
// when the group has no AV, or when already in the call.
func (m *Manager) Join(groupID string, avEnabled bool) error {
	if m.disabled {
		return fmt.Errorf("calls are disabled")
	}
	if !avEnabled {
		return fmt.Errorf("group %s has no audio/video", groupID)
	}

	m.mu.Lock()
	if _, ok := m.calls[groupID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("already in call for group %s", groupID)
	}
	cs := &callState{view: newView(m.selfID)}
	cs.tracker = speaking.New(m.quiet, func(peerID string, isSpeaking bool) {
		m.onSpeakingChange(groupID, peerID, isSpeaking)
	})
	m.calls[groupID] = cs
	m.mu.Unlock()

	log.Printf("CALL: joined call for group %s", groupID)
	m.notify(Event{Type: EventJoined, Group: groupID})
	return nil
}

// Leave exits the call for a group. Pending speaking timers are cancelled
// so no indicator fires after the call ends. Leaving a call you are not in
// is a no-op.
func (m *Manager) Leave(groupID string) {
	m.mu.Lock()
	cs, ok := m.calls[groupID]
	if ok {
		delete(m.calls, groupID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	cs.tracker.ForgetAll()
	cs.view.Clear()

	log.Printf("CALL: left call for group %s", groupID)
	m.notify(Event{Type: EventLeft, Group: groupID})
}

// InCall reports whether the local peer is in a group's call.
func (m *Manager) InCall(groupID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.calls[groupID]
	return ok
}

// ToggleInputMute flips the microphone mute flag. Returns the new state;
// not in a call means no change and false.
func (m *Manager) ToggleInputMute(groupID string) bool {
	m.mu.Lock()
	cs, ok := m.calls[groupID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	cs.inputMuted = !cs.inputMuted
	muted := cs.inputMuted
	m.mu.Unlock()

	m.notify(Event{Type: EventInputMute, Group: groupID, Muted: muted})
	return muted
}

// ToggleOutputMute flips the speaker mute flag. Returns the new state;
// not in a call means no change and false.
func (m *Manager) ToggleOutputMute(groupID string) bool {
	m.mu.Lock()
	cs, ok := m.calls[groupID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	cs.outputMuted = !cs.outputMuted
	muted := cs.outputMuted
	m.mu.Unlock()

	m.notify(Event{Type: EventOutputMute, Group: groupID, Muted: muted})
	return muted
}

// PushToTalk sets or clears the push-to-talk override. While held, a muted
// microphone transmits anyway. Has no effect outside a call.
func (m *Manager) PushToTalk(groupID string, held bool) {
	m.mu.Lock()
	if cs, ok := m.calls[groupID]; ok {
		cs.pttHeld = held
	}
	m.mu.Unlock()
}

// InputActive reports whether the microphone should transmit: in a call
// and either unmuted or overridden by push-to-talk.
func (m *Manager) InputActive(groupID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.calls[groupID]
	if !ok {
		return false
	}
	return !cs.inputMuted || cs.pttHeld
}

// OutputMuted reports the speaker mute flag. Not in a call reads as muted.
func (m *Manager) OutputMuted(groupID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.calls[groupID]
	if !ok {
		return true
	}
	return cs.outputMuted
}

// HandleActivity feeds one activity pulse into the speaking tracker.
// Pulses for groups we are not in a call for, and our own pulses, are
// dropped.
func (m *Manager) HandleActivity(msg proto.ActivityMsg) {
	if msg.PeerID == m.selfID {
		return
	}
	m.mu.RLock()
	cs, ok := m.calls[msg.GroupID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	cs.tracker.Activity(msg.PeerID)
}

// HandleMemberLeft cancels a departed member's speaking state without a
// trailing idle notification, and drops them from the view.
func (m *Manager) HandleMemberLeft(groupID, peerID string) {
	m.mu.RLock()
	cs, ok := m.calls[groupID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	cs.tracker.Forget(peerID)
	cs.view.RemovePeer(peerID)
}

// HandleGroupGone force-leaves the call when the group closed or went
// offline.
func (m *Manager) HandleGroupGone(groupID string) {
	if m.InCall(groupID) {
		log.Printf("CALL: group %s gone, leaving call", groupID)
		m.Leave(groupID)
	}
}

// Speaking reports whether a member is currently speaking in a group call.
func (m *Manager) Speaking(groupID, peerID string) bool {
	m.mu.RLock()
	cs, ok := m.calls[groupID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return cs.tracker.Speaking(peerID)
}

// View returns the visible call members for a group, or nil when not in
// a call.
func (m *Manager) View(groupID string) []string {
	m.mu.RLock()
	cs, ok := m.calls[groupID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return cs.view.Peers()
}

func (m *Manager) onSpeakingChange(groupID, peerID string, isSpeaking bool) {
	m.mu.RLock()
	cs, ok := m.calls[groupID]
	m.mu.RUnlock()
	if ok {
		if isSpeaking {
			cs.view.AddPeer(peerID)
		} else {
			cs.view.RemovePeer(peerID)
		}
	}
	m.notify(Event{Type: EventSpeaking, Group: groupID, PeerID: peerID, Speaking: isSpeaking})
}

// Subscribe returns a channel that receives call events.
func (m *Manager) Subscribe() chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 16)
	m.listeners = append(m.listeners, ch)
	return ch
}

// Unsubscribe removes a listener channel.
func (m *Manager) Unsubscribe(ch chan Event) {
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

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Close leaves every call and drops all listeners.
func (m *Manager) Close() {
	m.mu.Lock()
	calls := m.calls
	m.calls = make(map[string]*callState)
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	for _, cs := range calls {
		cs.tracker.ForgetAll()
	}
	for _, ch := range listeners {
		close(ch)
	}
}
