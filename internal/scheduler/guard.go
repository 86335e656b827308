package scheduler

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyRunning is returned when a guarded job is triggered while a
// previous run is still active. The trigger is dropped, not queued.
var ErrAlreadyRunning = errors.New("job already running")

// Guard is a try-lock allowing one run at a time. The zero value is ready to use.
type Guard struct {
	running atomic.Bool
}

// TryRun runs fn unless another run holds the guard, in which case it
// returns ErrAlreadyRunning without calling fn.
func (g *Guard) TryRun(fn func() error) error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer g.running.Store(false)
	return fn()
}

// Running reports whether a run currently holds the guard.
func (g *Guard) Running() bool {
	return g.running.Load()
}
