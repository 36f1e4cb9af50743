package origin

import "errors"

var (
	// ErrUnknownOrigin indicates an origin other than heliocenter or barycenter.
	ErrUnknownOrigin = errors.New("origin: unknown origin")

	// ErrEpochMismatch indicates an epoch count that is neither 1 nor the state count.
	ErrEpochMismatch = errors.New("origin: epochs must have length 1 or one per state")

	// ErrEpochOutOfRange indicates an epoch outside the planetary model's interval.
	ErrEpochOutOfRange = errors.New("origin: epoch outside 3000 BC to 3000 AD")
)
