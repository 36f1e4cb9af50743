package timescale

import "errors"

// ErrInvalidTimeInput indicates an epoch collection that cannot be converted.
var ErrInvalidTimeInput = errors.New("timescale: invalid time input")
