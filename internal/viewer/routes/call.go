package routes

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"huddle/internal/av"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The viewer binds to localhost; capture clients may connect without
	// an Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterCall registers the group-call API endpoints.
func RegisterCall(mux *http.ServeMux, d Deps) {
	// POST /api/call/join — enter a group's call. Fails when calls are
	// disabled locally or the group carries no audio/video.
	handlePost(mux, "/api/call/join", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		if req.GroupID == "" {
			http.Error(w, "missing group_id", http.StatusBadRequest)
			return
		}
		if err := d.Calls.Join(req.GroupID, groupAV(d, req.GroupID)); err != nil {
			http.Error(w, fmt.Sprintf("join call failed: %v", err), http.StatusConflict)
			return
		}
		writeJSON(w, map[string]string{"status": "joined", "group_id": req.GroupID})
	})

	// POST /api/call/leave
	handlePost(mux, "/api/call/leave", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		if req.GroupID == "" {
			http.Error(w, "missing group_id", http.StatusBadRequest)
			return
		}
		d.Calls.Leave(req.GroupID)
		d.Meter.Reset(req.GroupID)
		writeJSON(w, map[string]string{"status": "left"})
	})

	// POST /api/call/toggle-input — flip the microphone mute flag.
	handlePost(mux, "/api/call/toggle-input", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		writeJSON(w, map[string]bool{"muted": d.Calls.ToggleInputMute(req.GroupID)})
	})

	// POST /api/call/toggle-output — flip the speaker mute flag.
	handlePost(mux, "/api/call/toggle-output", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		writeJSON(w, map[string]bool{"muted": d.Calls.ToggleOutputMute(req.GroupID)})
	})

	// POST /api/call/ptt — set or clear the push-to-talk override.
	handlePost(mux, "/api/call/ptt", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
		Held    bool   `json:"held"`
	}) {
		d.Calls.PushToTalk(req.GroupID, req.Held)
		writeJSON(w, map[string]bool{"transmitting": d.Calls.InputActive(req.GroupID)})
	})

	// GET /api/call/view?group_id= — live call membership for a group.
	handleGet(mux, "/api/call/view", func(w http.ResponseWriter, r *http.Request) {
		groupID := r.URL.Query().Get("group_id")
		if groupID == "" {
			http.Error(w, "missing group_id", http.StatusBadRequest)
			return
		}
		members := d.Calls.View(groupID)
		if members == nil {
			members = []string{}
		}
		writeJSON(w, map[string]any{
			"in_call":      d.Calls.InCall(groupID),
			"members":      members,
			"input_active": d.Calls.InputActive(groupID),
			"output_muted": d.Calls.OutputMuted(groupID),
		})
	})

	// GET /api/call/events — SSE stream of call state changes.
	handleGet(mux, "/api/call/events", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		evtChan := d.Calls.Subscribe()
		defer d.Calls.Unsubscribe(evtChan)

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-evtChan:
				if !ok {
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
				flusher.Flush()
			}
		}
	})

	// GET /api/call/levels/{group} — WebSocket: the local capture client
	// streams audio levels while in a call. Levels that clear the voice
	// threshold become activity pulses on the mesh, rate-limited by the
	// meter. A muted microphone drops levels unless push-to-talk is held.
	mux.HandleFunc("/api/call/levels/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		groupID := strings.TrimPrefix(r.URL.Path, "/api/call/levels/")
		groupID = strings.TrimSuffix(groupID, "/")
		if groupID == "" {
			http.Error(w, "missing group id", http.StatusBadRequest)
			return
		}
		if !d.Calls.InCall(groupID) {
			http.Error(w, "not in call", http.StatusConflict)
			return
		}

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("CALL [%s]: WebSocket upgrade error: %v", groupID, err)
			return
		}
		defer conn.Close()
		log.Printf("CALL [%s]: level WebSocket connected", groupID)

		for {
			var pulse struct {
				Level uint8 `json:"level"`
				Voice bool  `json:"voice"`
			}
			if err := conn.ReadJSON(&pulse); err != nil {
				log.Printf("CALL [%s]: level WebSocket closed: %v", groupID, err)
				return
			}
			if !d.Calls.InCall(groupID) {
				return
			}
			if !d.Calls.InputActive(groupID) {
				continue
			}
			if !av.IsActive(pulse.Level, pulse.Voice, av.DefaultVoiceThreshold) {
				continue
			}
			d.Meter.Pulse(groupID, pulse.Level)
		}
	})
}
