// internal/viewer/routes/peer.go

package routes

import (
	"fmt"
	"net/http"

	"huddle/internal/storage"
)

// registerPeerRoutes exposes the presence-fed peer cache.
func registerPeerRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/peers — peers seen on the presence topic, most recent first
	handleGet(mux, "/api/peers", func(w http.ResponseWriter, r *http.Request) {
		peers, err := d.DB.ListCachedPeers()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list peers: %v", err), http.StatusInternalServerError)
			return
		}
		if peers == nil {
			peers = []storage.CachedPeer{}
		}

		type peerInfo struct {
			storage.CachedPeer
			Blacklisted bool `json:"blacklisted"`
		}
		result := make([]peerInfo, len(peers))
		for i, p := range peers {
			result[i] = peerInfo{
				CachedPeer:  p,
				Blacklisted: d.Settings.IsBlacklisted(p.PeerID),
			}
		}
		writeJSON(w, result)
	})

	// POST /api/peers/forget — drop a peer from the cache
	handlePost(mux, "/api/peers/forget", func(w http.ResponseWriter, r *http.Request, req struct {
		PeerID string `json:"peer_id"`
	}) {
		if req.PeerID == "" {
			http.Error(w, "Missing peer_id", http.StatusBadRequest)
			return
		}
		if err := d.DB.DeleteCachedPeer(req.PeerID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to forget peer: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "forgotten"})
	})
}
