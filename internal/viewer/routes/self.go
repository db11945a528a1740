package routes

import "net/http"

// registerSelfRoutes exposes the local peer's identity.
func registerSelfRoutes(mux *http.ServeMux, d Deps) {
	handleGet(mux, "/api/self", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"peer_id": d.Node.ID(),
			"name":    d.Settings.DisplayName(),
		})
	})
}
