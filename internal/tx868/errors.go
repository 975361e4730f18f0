package tx868

import "errors"

var (
	// ErrOutOfRange is returned when a reading does not fit the 16-bit fixed-point
	// field. The frame is left untouched.
	ErrOutOfRange = errors.New("tx868: value out of range")
	// ErrLineUnavailable is returned when the output line cannot be driven.
	ErrLineUnavailable = errors.New("tx868: output line unavailable")
	// ErrInvalidTiming is returned for timing overrides that cannot be keyed.
	ErrInvalidTiming = errors.New("tx868: invalid timing")
)
