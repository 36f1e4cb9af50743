package universal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoConvergence indicates Newton iteration on the universal anomaly failed.
	ErrNoConvergence = errors.New("universal: no convergence")

	// ErrNotCartesian indicates a batch whose states are not cartesian.
	ErrNotCartesian = errors.New("universal: states must be cartesian")

	// ErrEpochCount indicates t0 is neither length 1 nor one epoch per orbit.
	ErrEpochCount = errors.New("universal: t0 must have length 1 or one epoch per orbit")

	// ErrDegenerateState indicates a state at the origin.
	ErrDegenerateState = errors.New("universal: zero heliocentric distance")
)

// ConvergenceError names the orbit and target epoch that failed.
type ConvergenceError struct {
	OrbitID    int
	Epoch      float64
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("orbit %d at MJD %.6f: %d iterations: %v", e.OrbitID, e.Epoch, e.Iterations, ErrNoConvergence)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrNoConvergence
}
