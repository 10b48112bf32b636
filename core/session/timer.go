package session

import (
	"sync"
	"time"
)

type stopper interface {
	Stop() bool
}

var afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) } // mockable

// Handle identifies one armed expiry.
type Handle struct {
	t    stopper
	done bool // fired or cancelled; guarded by Timer.mu
}

// Timer schedules at most one deferred expiry action at a time.
type Timer struct {
	mu      sync.Mutex
	current *Handle
}

func NewTimer() *Timer {
	return &Timer{}
}

// Arm cancels any pending expiry, then runs `onExpire` once after `d`.
func (t *Timer) Arm(d time.Duration, onExpire func()) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked(t.current)

	h := new(Handle)
	t.current = h
	h.t = afterFunc(d, func() {
		t.mu.Lock()
		if h.done || t.current != h {
			// superseded while the underlying timer was already firing
			t.mu.Unlock()
			return
		}
		h.done = true
		t.current = nil
		t.mu.Unlock()

		onExpire()
	})
	return h
}

// Cancel cancels `h`. Nil, fired and already cancelled handles are ignored.
func (t *Timer) Cancel(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked(h)
}

// CancelCurrent cancels whatever expiry is pending.
func (t *Timer) CancelCurrent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked(t.current)
}

// Active reports whether an expiry is pending.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

func (t *Timer) cancelLocked(h *Handle) {
	if h == nil || h.done {
		return
	}
	h.done = true
	if h.t != nil {
		h.t.Stop()
	}
	if t.current == h {
		t.current = nil
	}
}
