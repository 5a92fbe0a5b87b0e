package ot

import "errors"

var (
	// ErrOpMalformed is returned when an operation is not normalized, carries
	// an unknown component, or otherwise violates the Operation Component
	// tagged-variant contract.
	ErrOpMalformed = errors.New("ot: operation malformed")

	// ErrOpOutOfBounds is returned when apply would cause its cursor to
	// exceed the snapshot length (a Retain or Delete overruns the snapshot).
	ErrOpOutOfBounds = errors.New("ot: operation out of bounds")

	// ErrBaseLengthMismatch names an operation whose base length does not
	// match the snapshot it is being applied to. Apply does not return it:
	// ApplyLenient copies an untraversed tail through, and ApplyStrict
	// reports one as ErrOpMalformed.
	ErrBaseLengthMismatch = errors.New("ot: operation base length does not match snapshot length")
)
