package orbit

import (
	"errors"
	"fmt"
)

// Domain errors for orbit batches.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("orbit: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a state that does not have 6 components.
	ErrDimensionMismatch = errors.New("orbit: state must have 6 components")

	// ErrEmptyBatch indicates a batch without orbits.
	ErrEmptyBatch = errors.New("orbit: empty batch")

	// ErrIDMismatch indicates a batch whose identifier and state counts differ.
	ErrIDMismatch = errors.New("orbit: identifier count does not match state count")

	// ErrDuplicateID indicates two rows sharing an identifier.
	ErrDuplicateID = errors.New("orbit: duplicate orbit identifier")

	// ErrUnknownElements indicates an unrecognized element type.
	ErrUnknownElements = errors.New("orbit: unknown element type")
)

// RowError wraps an error with the offending row.
type RowError struct {
	Row     int
	ID      int
	Wrapped error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (orbit_id=%d): %v", e.Row, e.ID, e.Wrapped)
}

func (e *RowError) Unwrap() error {
	return e.Wrapped
}
