package mosaic

import "errors"

// Precondition failures reported by New before any tile is computed.
var (
	// ErrArityMismatch: a threshold row or the background array was
	// supplied empty and cannot be expanded to the band count.
	ErrArityMismatch = errors.New("mosaic: parameter arity mismatch")

	// ErrInsufficientLayout: no sources and the layout override lacks an
	// origin, a size or a sample model.
	ErrInsufficientLayout = errors.New("mosaic: insufficient destination layout")

	// ErrInvalidLayout: the layout override gives a size with a zero or
	// negative dimension.
	ErrInvalidLayout = errors.New("mosaic: invalid destination layout")

	// ErrIncompatibleSource: a source or alpha mask disagrees with the
	// common sample model.
	ErrIncompatibleSource = errors.New("mosaic: incompatible source")
)
