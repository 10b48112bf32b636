package route

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core/session"
)

// Route is one navigable view. An empty Roles set means the route is public.
type Route struct {
	Path  string
	View  string
	Roles session.RoleSet
}

// Params holds the values of the `:param` segments of a resolved path.
type Params map[string]string

// Table maps paths to views and roles to their landing route. It is immutable once built.
type Table struct {
	routes   []Route
	segments [][]string // per route; static segments lower-cased
	landings map[session.Role]string
	login    string
	home     string
}

// Config is everything NewTable needs.
type Config struct {
	Routes   []Route
	Landings map[session.Role]string
	Login    string
	Home     string
}

// NewTable validates `conf` and builds a Table from it.
func NewTable(conf Config) (*Table, error) {
	tbl := &Table{
		routes:   make([]Route, 0, len(conf.Routes)),
		landings: make(map[session.Role]string, len(conf.Landings)),
		login:    conf.Login,
		home:     conf.Home,
	}

	seen := make(map[string]bool, len(conf.Routes))
	for _, r := range conf.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, errors.Errorf("route %q: path must start with /", r.Path)
		}
		key := strings.ToLower(r.Path)
		if seen[key] {
			return nil, errors.Errorf("route %q: duplicate path", r.Path)
		}
		seen[key] = true

		roles := session.NewRoleSet(r.Roles.Roles()...) // copy
		tbl.routes = append(tbl.routes, Route{Path: r.Path, View: r.View, Roles: roles})
		tbl.segments = append(tbl.segments, pattern(r.Path))
	}

	for role, path := range conf.Landings {
		r, _, ok := tbl.Resolve(path)
		if !ok {
			return nil, errors.Errorf("landing of %s: unknown route %q", role, path)
		}
		if !r.Roles.IsPublic() && !r.Roles.Has(role) {
			return nil, errors.Errorf("landing of %s: %q does not admit the role", role, path)
		}
		tbl.landings[role] = r.Path
	}
	for _, role := range session.AllRoles {
		if _, ok := tbl.landings[role]; !ok {
			return nil, errors.Errorf("role %s has no landing route", role)
		}
	}

	for name, path := range map[string]string{"login": conf.Login, "home": conf.Home} {
		r, _, ok := tbl.Resolve(path)
		if !ok || !r.Roles.IsPublic() {
			return nil, errors.Errorf("%s route %q must be a public route of the table", name, path)
		}
	}
	return tbl, nil
}

// Resolve finds the route matching `path`, ignoring case, together with its parameters.
// Static routes win over parameterized ones.
func (tbl *Table) Resolve(path string) (Route, Params, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	parts := split(path)
	lower := split(strings.ToLower(path))

	best, bestStatic := -1, -1
	var bestParams Params
	for i, segs := range tbl.segments {
		if len(segs) != len(lower) {
			continue
		}
		params, static, ok := match(segs, lower, parts)
		if ok && static > bestStatic {
			best, bestStatic, bestParams = i, static, params
		}
	}
	if best < 0 {
		return Route{}, nil, false
	}
	return tbl.routes[best], bestParams, true
}

func match(segs, lower, parts []string) (Params, int, bool) {
	var params Params
	var static int
	for i, seg := range segs {
		if strings.HasPrefix(seg, ":") {
			if parts[i] == "" {
				return nil, 0, false
			}
			if params == nil {
				params = make(Params)
			}
			params[seg[1:]] = parts[i]
			continue
		}
		if seg != lower[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}

// pattern splits a route path, lower-casing its static segments only so parameter names keep their case.
func pattern(path string) []string {
	segs := split(path)
	for i, seg := range segs {
		if !strings.HasPrefix(seg, ":") {
			segs[i] = strings.ToLower(seg)
		}
	}
	return segs
}

func split(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// Landing returns the post-login route of `role`, or the home route when it has none.
func (tbl *Table) Landing(role session.Role) string {
	if path, ok := tbl.landings[role]; ok {
		return path
	}
	return tbl.home
}

// Routes returns a copy of every route, in declaration order.
func (tbl *Table) Routes() []Route {
	routes := make([]Route, 0, len(tbl.routes))
	for _, r := range tbl.routes {
		r.Roles = session.NewRoleSet(r.Roles.Roles()...)
		routes = append(routes, r)
	}
	return routes
}

func (tbl *Table) LoginPath() string { return tbl.login }
func (tbl *Table) HomePath() string  { return tbl.home }
