// Package panel drives one group's chat panel: the styled member list at
// the top, the speaking indicators, the user-count line, and message
// submission. It owns no state of its own — it reconciles the roster
// table, blacklist, and call state into render-ready events whenever any
// of them change.
package panel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"huddle/internal/call"
	"huddle/internal/roster"
	"huddle/internal/session"
	"huddle/internal/settings"
	"huddle/internal/state"
)

// Event types pushed to panel listeners.
const (
	EventEntries  = "entries"
	EventSpeaking = "speaking"
	EventCount    = "count"
	EventSystem   = "system"
	EventMessage  = "message"
)

type Event struct {
	Type     string         `json:"type"`
	Group    string         `json:"group"`
	ID       string         `json:"id,omitempty"`
	Entries  []roster.Entry `json:"entries,omitempty"`
	PeerID   string         `json:"peer_id,omitempty"`
	Speaking bool           `json:"speaking,omitempty"`
	Text     string         `json:"text,omitempty"`
	From     string         `json:"from,omitempty"`
	Name     string         `json:"name,omitempty"`
	Action   bool           `json:"action,omitempty"`
	TS       int64          `json:"ts,omitempty"`
}

// actionPrefix marks a message as a third-person action ("/me waves").
const actionPrefix = "/me "

// Session is the slice of the session manager the panel needs. Coupling
// through an interface keeps the panel testable without a libp2p host.
type Session interface {
	SelfID() string
	SendText(groupID, text string) (string, error)
	SendAction(groupID, text string) (string, error)
	AnnounceRename(name string)
	Subscribe() <-chan *session.Event
	Unsubscribe(ch <-chan *session.Event)
}

// Panel binds one group to its presentation state.
type Panel struct {
	groupID string
	selfID  string

	roster   *state.RosterTable
	settings *settings.Store
	sess     Session
	calls    *call.Manager

	mu        sync.Mutex
	listeners []chan Event
}

// New creates a panel for a group. Call Run to start event forwarding.
func New(groupID string, rt *state.RosterTable, st *settings.Store, sess Session, calls *call.Manager) *Panel {
	return &Panel{
		groupID:   groupID,
		selfID:    sess.SelfID(),
		roster:    rt,
		settings:  st,
		sess:      sess,
		calls:     calls,
		listeners: make([]chan Event, 0),
	}
}

// Entries reconciles the current member list into ordered, styled rows.
func (p *Panel) Entries() []roster.Entry {
	return roster.Reconcile(p.roster.Names(p.groupID), p.selfID, p.settings.Blacklist())
}

// UserCountText renders the member-count line under the roster.
func (p *Panel) UserCountText() string {
	n := p.roster.Count(p.groupID)
	if n == 1 {
		return "1 user in chat"
	}
	return fmt.Sprintf("%d users in chat", n)
}

// Send submits a chat message. A "/me " prefix turns it into an action.
// The sent message is echoed back to local listeners; when the sender is
// the only member this echo is the only place the message appears.
func (p *Panel) Send(text string) error {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil
	}

	var (
		id     string
		err    error
		action bool
	)
	if strings.HasPrefix(text, actionPrefix) {
		text = strings.TrimPrefix(text, actionPrefix)
		action = true
		id, err = p.sess.SendAction(p.groupID, text)
	} else {
		id, err = p.sess.SendText(p.groupID, text)
	}
	if err != nil {
		return err
	}

	p.emit(Event{
		Type:   EventMessage,
		Group:  p.groupID,
		ID:     id,
		From:   p.selfID,
		Name:   p.settings.DisplayName(),
		Text:   text,
		Action: action,
	})
	return nil
}

// Run forwards roster, settings, session, and call changes to panel
// listeners until ctx is cancelled.
func (p *Panel) Run(ctx context.Context) {
	rosterCh := p.roster.Subscribe()
	defer p.roster.Unsubscribe(rosterCh)
	settingsCh := p.settings.Subscribe()
	defer p.settings.Unsubscribe(settingsCh)
	sessCh := p.sess.Subscribe()
	defer p.sess.Unsubscribe(sessCh)
	callCh := p.calls.Subscribe()
	defer p.calls.Unsubscribe(callCh)

	// Initial render
	p.emitRoster()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-rosterCh:
			if !ok {
				return
			}
			if evt.GroupID != p.groupID {
				continue
			}
			if evt.Type == "leave" || evt.Type == "clear" {
				p.calls.HandleMemberLeft(p.groupID, evt.PeerID)
				// A call with only the local member left is over.
				if p.roster.Count(p.groupID) <= 1 {
					p.calls.HandleGroupGone(p.groupID)
				}
			}
			p.emitRoster()

		case evt, ok := <-settingsCh:
			if !ok {
				return
			}
			switch evt.Type {
			case settings.EventBlacklist:
				p.emitRoster()
			case settings.EventProfile:
				p.sess.AnnounceRename(evt.Name)
			}

		case evt, ok := <-sessCh:
			if !ok {
				return
			}
			p.handleSessionEvent(evt)

		case evt, ok := <-callCh:
			if !ok {
				return
			}
			if evt.Group != p.groupID {
				continue
			}
			p.handleCallEvent(evt)
		}
	}
}

func (p *Panel) handleSessionEvent(evt *session.Event) {
	if evt.Group != p.groupID {
		return
	}
	switch evt.Type {
	case session.TypeMsg, session.TypeAction:
		// Own messages are echoed by Send.
		if evt.From == p.selfID {
			return
		}
		var tp session.TextPayload
		session.DecodePayload(evt.Payload, &tp)
		name := evt.Name
		if name == "" {
			if m, ok := p.roster.Get(p.groupID, evt.From); ok {
				name = m.Name
			}
		}
		p.emit(Event{
			Type:   EventMessage,
			Group:  p.groupID,
			From:   evt.From,
			Name:   name,
			Text:   tp.Text,
			Action: evt.Type == session.TypeAction,
			TS:     evt.TS,
		})
	case session.TypeTitle:
		var tp session.TitlePayload
		session.DecodePayload(evt.Payload, &tp)
		// Untitled sync updates carry no author and produce no chat line.
		if tp.Author == "" {
			return
		}
		p.emit(Event{
			Type:  EventSystem,
			Group: p.groupID,
			Text:  fmt.Sprintf("%s set the title to %s", tp.Author, tp.Title),
			TS:    evt.TS,
		})
	case session.TypeRename:
		p.emitRoster()
	case session.TypeClose, session.TypeLeave:
		p.calls.HandleGroupGone(p.groupID)
		p.emit(Event{Type: EventSystem, Group: p.groupID, Text: "group closed"})
	}
}

func (p *Panel) handleCallEvent(evt call.Event) {
	switch evt.Type {
	case call.EventSpeaking:
		p.emit(Event{
			Type:     EventSpeaking,
			Group:    p.groupID,
			PeerID:   evt.PeerID,
			Speaking: evt.Speaking,
		})
	case call.EventJoined:
		p.emit(Event{Type: EventSystem, Group: p.groupID, Text: "joined the call"})
	case call.EventLeft:
		p.emit(Event{Type: EventSystem, Group: p.groupID, Text: "left the call"})
	}
}

func (p *Panel) emitRoster() {
	p.emit(Event{Type: EventEntries, Group: p.groupID, Entries: p.Entries()})
	p.emit(Event{Type: EventCount, Group: p.groupID, Text: p.UserCountText()})
}

// Subscribe returns a channel that receives panel events.
func (p *Panel) Subscribe() chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Event, 32)
	p.listeners = append(p.listeners, ch)
	return ch
}

// Unsubscribe removes a listener channel.
func (p *Panel) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, listener := range p.listeners {
		if listener == ch {
			close(listener)
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

func (p *Panel) emit(evt Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
