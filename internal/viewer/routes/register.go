// internal/viewer/routes/register.go
package routes

import (
	"net/http"

	"huddle/internal/av"
	"huddle/internal/call"
	"huddle/internal/p2p"
	"huddle/internal/panel"
	"huddle/internal/session"
	"huddle/internal/settings"
	"huddle/internal/state"
	"huddle/internal/storage"
)

type Logs interface {
	ServeLogsJSON(w http.ResponseWriter, r *http.Request)
	ServeLogsSSE(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Node     *p2p.Node
	DB       *storage.DB
	Settings *settings.Store
	Roster   *state.RosterTable
	Sessions *session.Manager
	Calls    *call.Manager
	Meter    *av.Meter
	Panels   *panel.Hub

	CfgPath string
	Logs    Logs
}

func Register(mux *http.ServeMux, d Deps) {
	registerAPILogRoutes(mux, d)

	registerSelfRoutes(mux, d)
	registerPeerRoutes(mux, d)
	registerSettingsRoutes(mux, d)
	RegisterGroups(mux, d)
	RegisterCall(mux, d)
	RegisterPanel(mux, d)
}

// groupAV reports whether a group carries audio/video, looking at hosted
// groups first and then at stored subscriptions.
func groupAV(d Deps, groupID string) bool {
	if g, ok := d.Sessions.HostedGroupInfo(groupID); ok {
		return g.AVEnabled
	}
	subs, err := d.Sessions.ListSubscriptions()
	if err != nil {
		return false
	}
	for _, s := range subs {
		if s.GroupID == groupID {
			return s.AVEnabled
		}
	}
	return false
}
