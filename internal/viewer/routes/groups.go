package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"huddle/internal/storage"
)

// RegisterGroups adds group-session HTTP API endpoints.
func RegisterGroups(mux *http.ServeMux, d Deps) {
	// Create or list hosted groups
	mux.HandleFunc("/api/groups", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name      string `json:"name"`
				AVEnabled bool   `json:"av_enabled"`
			}
			if decodeJSON(w, r, &req) != nil {
				return
			}
			if req.Name == "" {
				http.Error(w, "Missing name", http.StatusBadRequest)
				return
			}
			id := newGroupID()
			if err := d.Sessions.CreateGroup(id, req.Name, req.AVEnabled); err != nil {
				http.Error(w, fmt.Sprintf("Failed to create group: %v", err), http.StatusInternalServerError)
				return
			}
			d.Panels.Open(id)
			writeJSON(w, map[string]any{
				"status": "created",
				"id":     id,
			})

		case http.MethodGet:
			groups, err := d.Sessions.ListHostedGroups()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to list groups: %v", err), http.StatusInternalServerError)
				return
			}
			if groups == nil {
				groups = []storage.GroupRow{}
			}

			// Enrich with live member counts
			type groupWithMembers struct {
				storage.GroupRow
				MemberCount int `json:"member_count"`
			}
			result := make([]groupWithMembers, len(groups))
			for i, g := range groups {
				result[i] = groupWithMembers{
					GroupRow:    g,
					MemberCount: d.Roster.Count(g.ID),
				}
			}

			writeJSON(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Close a hosted group
	handlePost(mux, "/api/groups/close", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		if req.GroupID == "" {
			http.Error(w, "Missing group_id", http.StatusBadRequest)
			return
		}
		if err := d.Sessions.CloseGroup(req.GroupID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to close group: %v", err), http.StatusInternalServerError)
			return
		}
		d.Panels.CloseGroup(req.GroupID)
		d.Calls.HandleGroupGone(req.GroupID)
		writeJSON(w, map[string]string{"status": "closed"})
	})

	// Set a group's title (the host persists it; clients relay to the host)
	handlePost(mux, "/api/groups/title", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
		Title   string `json:"title"`
	}) {
		if req.GroupID == "" {
			http.Error(w, "Missing group_id", http.StatusBadRequest)
			return
		}
		if err := d.Sessions.SetTitle(req.GroupID, req.Title); err != nil {
			http.Error(w, fmt.Sprintf("Failed to set title: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// List subscriptions plus currently joined groups
	handleGet(mux, "/api/groups/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		subs, err := d.Sessions.ListSubscriptions()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list subscriptions: %v", err), http.StatusInternalServerError)
			return
		}
		if subs == nil {
			subs = []storage.SubscriptionRow{}
		}
		writeJSON(w, map[string]any{
			"subscriptions": subs,
			"joined":        d.Sessions.JoinedGroups(),
		})
	})

	// Join a remote group
	handlePost(mux, "/api/groups/join", func(w http.ResponseWriter, r *http.Request, req struct {
		HostPeerID string `json:"host_peer_id"`
		GroupID    string `json:"group_id"`
	}) {
		if req.HostPeerID == "" || req.GroupID == "" {
			http.Error(w, "Missing host_peer_id or group_id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := d.Sessions.JoinRemoteGroup(ctx, req.HostPeerID, req.GroupID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to join group: %v", err), http.StatusInternalServerError)
			return
		}
		d.Panels.Open(req.GroupID)

		writeJSON(w, map[string]string{"status": "joined"})
	})

	// Invite a peer to a hosted group
	handlePost(mux, "/api/groups/invite", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
		PeerID  string `json:"peer_id"`
	}) {
		if req.GroupID == "" || req.PeerID == "" {
			http.Error(w, "Missing group_id or peer_id", http.StatusBadRequest)
			return
		}
		if !d.Sessions.IsGroupHost(req.GroupID) {
			http.Error(w, "Only the host can invite to a group", http.StatusForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := d.Sessions.InvitePeer(ctx, req.PeerID, req.GroupID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to invite peer: %v", err), http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]string{"status": "invited"})
	})

	// Remove a stale subscription
	handlePost(mux, "/api/groups/subscriptions/remove", func(w http.ResponseWriter, r *http.Request, req struct {
		HostPeerID string `json:"host_peer_id"`
		GroupID    string `json:"group_id"`
	}) {
		if req.HostPeerID == "" || req.GroupID == "" {
			http.Error(w, "Missing host_peer_id or group_id", http.StatusBadRequest)
			return
		}
		if err := d.DB.RemoveSubscription(req.HostPeerID, req.GroupID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to remove subscription: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "removed"})
	})

	// Leave a joined group
	handlePost(mux, "/api/groups/leave", func(w http.ResponseWriter, r *http.Request, req struct {
		GroupID string `json:"group_id"`
	}) {
		if req.GroupID == "" {
			http.Error(w, "Missing group_id", http.StatusBadRequest)
			return
		}
		if err := d.Sessions.LeaveGroup(req.GroupID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to leave group: %v", err), http.StatusInternalServerError)
			return
		}
		d.Panels.CloseGroup(req.GroupID)
		d.Calls.HandleGroupGone(req.GroupID)
		writeJSON(w, map[string]string{"status": "left"})
	})

	// SSE endpoint for raw session events
	handleGet(mux, "/api/groups/events", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		evtChan := d.Sessions.Subscribe()
		defer d.Sessions.Unsubscribe(evtChan)

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
					log.Printf("SESSION: Failed to marshal event: %v", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
				flusher.Flush()
			}
		}
	})
}
