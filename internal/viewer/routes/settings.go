// internal/viewer/routes/settings.go
package routes

import (
	"fmt"
	"net/http"

	"huddle/internal/settings"
)

// registerSettingsRoutes adds profile and blacklist endpoints. Settings
// changes persist through the store and fan out to open panels.
func registerSettingsRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/settings — current profile and blacklist
	handleGet(mux, "/api/settings", func(w http.ResponseWriter, r *http.Request) {
		bl := d.Settings.Blacklist()
		peers := make([]string, 0, len(bl))
		for id := range bl {
			peers = append(peers, id)
		}
		writeJSON(w, map[string]any{
			"display_name": d.Settings.DisplayName(),
			"blacklist":    peers,
			"config_path":  d.CfgPath,
		})
	})

	// POST /api/settings/name — change the display name. The rename is
	// announced to every joined group through the panels.
	handlePost(mux, "/api/settings/name", func(w http.ResponseWriter, r *http.Request, req struct {
		Name string `json:"name"`
	}) {
		if req.Name == "" {
			http.Error(w, "Missing name", http.StatusBadRequest)
			return
		}
		d.Settings.SetDisplayName(req.Name)
		writeJSON(w, map[string]string{"status": "ok", "name": req.Name})
	})

	// POST /api/settings/blacklist
	handlePost(mux, "/api/settings/blacklist", func(w http.ResponseWriter, r *http.Request, req struct {
		PeerID string `json:"peer_id"`
		Remove bool   `json:"remove"`
	}) {
		if req.PeerID == "" {
			http.Error(w, "Missing peer_id", http.StatusBadRequest)
			return
		}
		var err error
		if req.Remove {
			err = d.Settings.RemoveFromBlacklist(req.PeerID)
		} else {
			err = d.Settings.AddToBlacklist(req.PeerID)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to update blacklist: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"blacklisted": d.Settings.IsBlacklisted(req.PeerID)})
	})

	// GET /api/settings/events — SSE stream of settings changes
	handleGet(mux, "/api/settings/events", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		ch := d.Settings.Subscribe()
		defer d.Settings.Unsubscribe(ch)

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
				switch evt.Type {
				case settings.EventProfile:
					fmt.Fprintf(w, "event: profile\ndata: {\"name\":%q}\n\n", evt.Name)
				case settings.EventBlacklist:
					fmt.Fprintf(w, "event: blacklist\ndata: {\"peer_id\":%q}\n\n", evt.PeerID)
				}
				flusher.Flush()
			}
		}
	})
}
