package auth

import (
	"sync"

	"github.com/trezcool/stemlearn/core/session"
)

// State is the login state every view renders from.
type State struct {
	LoggedIn bool         `json:"loggedIn"`
	Role     session.Role `json:"role,omitempty"`
}

// Notifier propagates login state changes to its subscribers.
// Only the Client changes the state.
type Notifier struct {
	mu    sync.Mutex
	state State
	seq   uint64
	subs  map[int]func(State)
	next  int

	deliverMu sync.Mutex
	delivered uint64 // seq of the last state subscribers heard about
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(State))}
}

func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Subscribe registers `fn` to be called after each state change.
// Subscribers are called outside the state lock, so they may read State or unsubscribe,
// and one at a time, in the order the changes happened. A subscriber never hears a state
// older than one it was already given.
func (n *Notifier) Subscribe(fn func(State)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
		})
	}
}

// set records the state and returns the delivery to run once the caller released its own locks.
// Subscribers only hear about changes.
func (n *Notifier) set(s State) (changed bool, deliver func()) {
	if !s.LoggedIn {
		s.Role = session.RoleNone
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == s {
		return false, func() {}
	}
	n.state = s
	n.seq++
	seq := n.seq
	subs := make([]func(State), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	return true, func() {
		n.deliverMu.Lock()
		defer n.deliverMu.Unlock()
		if seq <= n.delivered {
			return // superseded by a change already delivered
		}
		n.delivered = seq
		for _, fn := range subs {
			fn(s)
		}
	}
}
