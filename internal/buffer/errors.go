package buffer

import "errors"

var (
	// ErrInvalidSize is returned when a region or ring size does not meet
	// the page-alignment/divisibility constraints of the double-mapped
	// buffer.
	ErrInvalidSize = errors.New("invalid size")

	// ErrMapFailed is returned after exhausting the double-map retry budget.
	ErrMapFailed = errors.New("map failed")

	// ErrInvalidCount is returned when produce/consume is called with a
	// count exceeding the currently exposed slice. Callers never see a
	// partial-progress state: either the whole count applies or nothing does.
	ErrInvalidCount = errors.New("invalid count")
)
