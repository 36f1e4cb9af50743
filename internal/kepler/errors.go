package kepler

import "errors"

var (
	// ErrInvalidElements indicates a non-physical element set.
	ErrInvalidElements = errors.New("kepler: invalid orbital elements")

	// ErrNotElliptic indicates an eccentricity outside [0, 1) where a bound orbit is required.
	ErrNotElliptic = errors.New("kepler: orbit is not elliptic")

	// ErrNoConvergence indicates Kepler's equation did not converge.
	ErrNoConvergence = errors.New("kepler: Kepler's equation did not converge")
)
