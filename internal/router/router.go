// Package router maps view paths onto views and gates them on the session.
// Resolution is a pure function of the path and whether a session exists.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// View names a screen of the app.
type View string

// Views.
const (
	ViewHome       View = "home"
	ViewSearch     View = "search"
	ViewIdeas      View = "ideas"
	ViewIdea       View = "idea"
	ViewLearn      View = "learn"
	ViewCourse     View = "course"
	ViewDashboard  View = "dashboard"
	ViewProfile    View = "profile"
	ViewSettings   View = "settings"
	ViewInsights   View = "insights"
	ViewWorkspace  View = "workspace"
	ViewWorkspaces View = "workspaces"
	ViewLogin      View = "login"
	ViewNotFound   View = "not_found"
)

// Access says who may see a route.
type Access int

// Access levels.
const (
	Public Access = iota
	Protected
	GuestOnly
)

// Status is the outcome of resolving a path.
type Status string

// Statuses.
const (
	StatusRender   Status = "render"
	StatusRedirect Status = "redirect"
	StatusNotFound Status = "not_found"
)

// Paths the gate redirects to.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Route is one entry of the route table.
type Route struct {
	Pattern string
	View    View
	Access  Access
}

// Routes is the app's route table.
var Routes = []Route{
	{"/", ViewHome, Public},
	{"/search", ViewSearch, Public},
	{"/ideas", ViewIdeas, Public},
	{"/ideas/{id}", ViewIdea, Public},
	{"/learn", ViewLearn, Public},
	{"/learn/{id}", ViewCourse, Public},
	{"/dashboard", ViewDashboard, Protected},
	{"/profile", ViewProfile, Protected},
	{"/settings", ViewSettings, Protected},
	{"/insights", ViewInsights, Protected},
	{"/workspace", ViewWorkspaces, Protected},
	{"/workspace/{id}", ViewWorkspace, Protected},
	{LoginPath, ViewLogin, GuestOnly},
}

// Decision is what the view layer should do for a path.
type Decision struct {
	View     View              `json:"view"`
	Pattern  string            `json:"pattern,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Status   Status            `json:"status"`
}

var (
	table = buildTable()
	// mux is only used for pattern matching; handlers never run.
	mux = buildMux()
)

func buildTable() map[string]Route {
	m := make(map[string]Route, len(Routes))
	for _, r := range Routes {
		m[r.Pattern] = r
	}
	return m
}

func buildMux() *chi.Mux {
	r := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	for _, route := range Routes {
		r.Get(route.Pattern, noop)
	}
	return r
}

// Resolve decides what to show for path. Query strings and fragments are
// ignored and a trailing slash is tolerated.
func Resolve(path string, authenticated bool) Decision {
	path = clean(path)

	rctx := chi.NewRouteContext()
	if !mux.Match(rctx, http.MethodGet, path) {
		return Decision{View: ViewNotFound, Status: StatusNotFound}
	}
	pattern := rctx.RoutePattern()
	route, ok := table[pattern]
	if !ok {
		return Decision{View: ViewNotFound, Status: StatusNotFound}
	}

	d := Decision{View: route.View, Pattern: pattern, Status: StatusRender}
	if n := len(rctx.URLParams.Keys); n > 0 {
		d.Params = make(map[string]string, n)
		for i, k := range rctx.URLParams.Keys {
			d.Params[k] = rctx.URLParams.Values[i]
		}
	}

	switch {
	case route.Access == Protected && !authenticated:
		d.Status, d.Redirect = StatusRedirect, LoginPath
	case route.Access == GuestOnly && authenticated:
		d.Status, d.Redirect = StatusRedirect, DashboardPath
	}
	return d
}

func clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
