package route

import (
	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/session"
)

// CanAccess reports whether `current` may view a route requiring `required`.
// Public routes admit everybody; otherwise the role must be a member of the set.
func CanAccess(current session.Role, required session.RoleSet) bool {
	if required.IsPublic() {
		return true
	}
	return current != session.RoleNone && required.Has(current)
}

// Outcome of a guard evaluation.
type Outcome int

const (
	Unevaluated Outcome = iota
	Granted
	DeniedNoSession
	DeniedWrongRole
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case DeniedNoSession:
		return "no_session"
	case DeniedWrongRole:
		return "wrong_role"
	}
	return "unevaluated"
}

// Decision is what the guard decided for one visit of a protected route.
type Decision struct {
	Outcome  Outcome
	Path     string
	Role     session.Role
	Redirect string // empty unless denied
}

func (d Decision) Allowed() bool { return d.Outcome == Granted }

// Err returns an *core.AuthorizationError for denials, nil otherwise.
func (d Decision) Err() error {
	switch d.Outcome {
	case DeniedNoSession, DeniedWrongRole:
		return &core.AuthorizationError{Path: d.Path, Role: string(d.Role), Redirect: d.Redirect}
	}
	return nil
}

// Guard decides who may see which route of its Table.
type Guard struct {
	tbl *Table
}

func NewGuard(tbl *Table) *Guard {
	return &Guard{tbl: tbl}
}

// Check evaluates the visit of `path` by `current`. No session redirects to login, a wrong role redirects home.
func (g *Guard) Check(current session.Role, path string, required session.RoleSet) Decision {
	d := Decision{Path: path, Role: current}
	switch {
	case CanAccess(current, required):
		d.Outcome = Granted
	case current == session.RoleNone:
		d.Outcome, d.Redirect = DeniedNoSession, g.tbl.LoginPath()
	default:
		d.Outcome, d.Redirect = DeniedWrongRole, g.tbl.HomePath()
	}
	return d
}

// CheckPath resolves `path` and checks it. Unknown paths are left Unevaluated.
func (g *Guard) CheckPath(current session.Role, path string) (Decision, Route, Params) {
	r, params, ok := g.tbl.Resolve(path)
	if !ok {
		return Decision{Path: path, Role: current}, Route{}, nil
	}
	return g.Check(current, r.Path, r.Roles), r, params
}
