package auth

import (
	"sync/atomic"

	"github.com/trezcool/stemlearn/core"
)

// Submission refuses a second submit while one is in flight, like a disabled submit button.
type Submission struct {
	busy atomic.Bool
}

// Run runs `fn` unless another Run is in progress, in which case it fails with core.ErrSubmitInFlight.
func (s *Submission) Run(fn func() error) error {
	if !s.busy.CompareAndSwap(false, true) {
		return core.ErrSubmitInFlight
	}
	defer s.busy.Store(false)
	return fn()
}

// Busy reports whether a submission is in flight.
func (s *Submission) Busy() bool {
	return s.busy.Load()
}
