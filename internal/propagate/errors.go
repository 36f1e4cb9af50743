package propagate

import "errors"

var (
	// ErrInvalidTimeInput indicates malformed T0 or T1 epochs.
	ErrInvalidTimeInput = errors.New("propagate: invalid time input")

	// ErrUnsupportedBackend indicates a backend selector outside the known set.
	ErrUnsupportedBackend = errors.New("propagate: backend should be one of 'internal' (THOR) or 'external' (PYOORB)")

	// ErrInvalidConfiguration indicates options the selected backend cannot run with.
	ErrInvalidConfiguration = errors.New("propagate: invalid configuration")

	// ErrInvalidOrbits indicates a malformed orbit batch.
	ErrInvalidOrbits = errors.New("propagate: invalid orbits")
)
