package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession indicates a session policy the loop cannot run.
	ErrInvalidSession = errors.New("sim: invalid session")

	// ErrSessionReused indicates Start on a simulator that already ran. The
	// engine's error history would leak into the new session.
	ErrSessionReused = errors.New("sim: simulator already used, build a new one per session")

	// ErrNotStarted indicates Step before Start.
	ErrNotStarted = errors.New("sim: session not started")

	// ErrNotReady indicates the PID engine returned no output.
	ErrNotReady = errors.New("sim: controller not ready")

	// ErrNoFactory indicates a batch job with nothing to build its simulator.
	ErrNoFactory = errors.New("sim: no simulator factory")

	// ErrInvalidState indicates NaN or Inf reached the vehicle state.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")
)

// SimError wraps an error with the iteration it happened on.
type SimError struct {
	Iteration int
	Time      float64
	Wrapped   error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("iteration %d (t=%.4f): %v", e.Iteration, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
