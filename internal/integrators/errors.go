package integrators

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIntegrator indicates a name missing from the registry.
	ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

	// ErrStepTooSmall indicates the adaptive controller shrank below the minimum step.
	ErrStepTooSmall = errors.New("integrators: step size below minimum")

	// ErrNonFinite indicates the integration produced NaN or Inf.
	ErrNonFinite = errors.New("integrators: non-finite state")
)

// StepError records where an integration stopped.
type StepError struct {
	T       float64
	Dt      float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step at t=%.9f (dt=%.3e): %v", e.T, e.Dt, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
