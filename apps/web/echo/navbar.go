package echoweb

import (
	"sync"

	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
)

type NavItem struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Method string `json:"method,omitempty"` // POST for actions, GET when empty
}

// NavBar is the navigation bar model of a tab. It follows the tab's login state.
type NavBar struct {
	routes *route.Table

	mu    sync.RWMutex
	state auth.State
	items []NavItem
}

func NewNavBar(routes *route.Table, state auth.State) *NavBar {
	nb := &NavBar{routes: routes}
	nb.Update(state)
	return nb
}

// Update rebuilds the items for `state`.
func (nb *NavBar) Update(state auth.State) {
	items := []NavItem{{Label: "Home", Path: nb.routes.HomePath()}}
	if state.LoggedIn {
		items = append(items,
			NavItem{Label: "Dashboard", Path: nb.routes.Landing(state.Role)},
			NavItem{Label: "Courses", Path: route.PathCourses},
			NavItem{Label: "Logout", Path: pathLogout, Method: "POST"},
		)
	} else {
		items = append(items,
			NavItem{Label: "Courses", Path: route.PathCourses},
			NavItem{Label: "Login", Path: nb.routes.LoginPath()},
			NavItem{Label: "Signup", Path: route.PathSignup},
		)
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.state = state
	nb.items = items
}

func (nb *NavBar) Items() []NavItem {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return append([]NavItem(nil), nb.items...)
}

func (nb *NavBar) State() auth.State {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.state
}
