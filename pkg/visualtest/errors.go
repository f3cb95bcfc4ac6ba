package visualtest

import "errors"

var (
	ErrMissingBaseline   = errors.New("expected image does not exist")
	ErrDimensionMismatch = errors.New("image dimensions differ")
	ErrMismatchThreshold = errors.New("image did not match")
	ErrInvalidThreshold  = errors.New("threshold must be within [0, 1]")

	// ErrFatalIO marks directory or file write failures. They abort the run
	// instead of being recorded against a single comparison.
	ErrFatalIO = errors.New("fatal i/o")
)

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalIO)
}
