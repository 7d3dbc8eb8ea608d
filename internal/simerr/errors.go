// Package simerr holds the error kinds shared by the radar model, the
// simulator, the processing stages and the detection statistics.
//
// Callers distinguish kinds with errors.Is; every constructor here wraps one
// of the sentinels below so context can be added without losing the kind.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a configuration rejected before any computation
	// starts: length mismatches, non-positive rates, malformed phase codes,
	// unknown fluctuation models.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoSolution marks a root search that could not bracket or converge.
	ErrNoSolution = errors.New("no solution found")
)

// Invalid returns an error wrapping ErrInvalidConfig with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// NoSolution returns an error wrapping ErrNoSolution with a formatted reason.
func NoSolution(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNoSolution, fmt.Sprintf(format, args...))
}
