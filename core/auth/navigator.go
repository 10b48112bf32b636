package auth

import (
	"sync"

	"github.com/trezcool/stemlearn/core"
)

// Navigator is how the Client drives the user interface it serves.
type Navigator interface {
	Navigate(path string)
	Notify(n core.Notice)
	// Discard drops a navigation requested but not yet followed.
	Discard()
}

// Pending is a Navigator that keeps the last requested navigation and the queued notices
// until the front end takes them.
type Pending struct {
	mu       sync.Mutex
	redirect string
	notices  []core.Notice
}

var _ Navigator = (*Pending)(nil)

func (p *Pending) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirect = path
}

func (p *Pending) Notify(n core.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *Pending) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirect = ""
}

// TakeRedirect returns the pending navigation, if any, and forgets it.
func (p *Pending) TakeRedirect() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	path := p.redirect
	p.redirect = ""
	return path
}

// TakeNotices returns the queued notices and empties the queue.
func (p *Pending) TakeNotices() []core.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	notices := p.notices
	p.notices = nil
	return notices
}
