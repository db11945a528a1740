// Package viewer serves the local HTTP API: group sessions, chat panels,
// calls, settings, peers, and log streaming. It binds to localhost; there
// is no remote surface.
package viewer

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
	"huddle/internal/viewer/routes"
)

type Viewer struct {
	Node     *p2p.Node
	DB       *storage.DB
	Settings *settings.Store
	Roster   *state.RosterTable
	Sessions *session.Manager
	Calls    *call.Manager
	Meter    *av.Meter
	Panels   *panel.Hub

	CfgPath string
	Logs    *LogBuffer
}

func Start(addr string, v Viewer) error {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Deps{
		Node:     v.Node,
		DB:       v.DB,
		Settings: v.Settings,
		Roster:   v.Roster,
		Sessions: v.Sessions,
		Calls:    v.Calls,
		Meter:    v.Meter,
		Panels:   v.Panels,
		CfgPath:  v.CfgPath,
		Logs:     v.Logs,
	})

	return http.ListenAndServe(addr, mux)
}
