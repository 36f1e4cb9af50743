package ephem

import "errors"

var (
	// ErrUnsupportedTimeScale indicates a time scale the engine cannot integrate in.
	ErrUnsupportedTimeScale = errors.New("ephem: unsupported time scale")

	// ErrInvalidElements indicates an element set the engine cannot convert.
	ErrInvalidElements = errors.New("ephem: invalid orbital elements")

	// ErrEpochCount indicates t0 is neither length 1 nor one epoch per orbit.
	ErrEpochCount = errors.New("ephem: t0 must have length 1 or one epoch per orbit")

	// ErrNoColumn indicates a table column lookup that failed.
	ErrNoColumn = errors.New("ephem: no such column")
)
