package routes

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"huddle/internal/panel"
	"huddle/internal/roster"
)

// RegisterPanel adds the per-group chat panel endpoints.
//
//	GET  /api/panel                    — open panel group IDs
//	GET  /api/panel/{group}/entries    — styled member list + count line
//	POST /api/panel/{group}/send       — submit a chat line
//	GET  /api/panel/{group}/events     — SSE: entries, speaking, messages
//	GET  /api/panel/{group}/ws         — same stream over WebSocket
func RegisterPanel(mux *http.ServeMux, d Deps) {
	handleGet(mux, "/api/panel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"groups": d.Panels.Groups()})
	})

	mux.HandleFunc("/api/panel/", func(w http.ResponseWriter, r *http.Request) {
		// Path: /api/panel/{group}/{action}
		tail := strings.TrimPrefix(r.URL.Path, "/api/panel/")
		parts := strings.SplitN(tail, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.Error(w, "invalid path — expected /api/panel/{group}/{action}", http.StatusBadRequest)
			return
		}
		groupID, action := parts[0], parts[1]

		p, ok := d.Panels.Get(groupID)
		if !ok {
			http.Error(w, "no panel for group", http.StatusNotFound)
			return
		}

		switch action {
		case "entries":
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			entries := p.Entries()
			if entries == nil {
				entries = []roster.Entry{}
			}
			writeJSON(w, map[string]any{
				"entries": entries,
				"count":   p.UserCountText(),
			})

		case "send":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var req struct {
				Text string `json:"text"`
			}
			if decodeJSON(w, r, &req) != nil {
				return
			}
			if err := p.Send(req.Text); err != nil {
				http.Error(w, fmt.Sprintf("send failed: %v", err), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]string{"status": "sent"})

		case "events":
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			servePanelSSE(w, r, p)

		case "ws":
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			servePanelWS(w, r, groupID, p)

		default:
			http.Error(w, "unknown panel action", http.StatusNotFound)
		}
	})
}

// servePanelWS streams panel events over a WebSocket. Incoming frames are
// drained so ping/pong and close handshakes keep working.
func servePanelWS(w http.ResponseWriter, r *http.Request, groupID string, p *panel.Panel) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("PANEL [%s]: WebSocket upgrade error: %v", groupID, err)
		return
	}
	defer conn.Close()

	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

func servePanelSSE(w http.ResponseWriter, r *http.Request, p *panel.Panel) {
	sseHeaders(w)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
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
}
