package physics

import (
	"errors"
	"fmt"
)

// Validation errors returned by the body factories.
var (
	ErrAreaTooSmall       = errors.New("area is too small")
	ErrAreaTooLarge       = errors.New("area is too large")
	ErrDensityTooSmall    = errors.New("density is too small")
	ErrDensityTooLarge    = errors.New("density is too large")
	ErrInvalidDimension   = errors.New("dimension must be positive and finite")
	ErrInvalidRestitution = errors.New("restitution must be finite")
	ErrTooFewVertices     = errors.New("polygon needs at least 3 vertices")
	ErrNotConvex          = errors.New("polygon is not convex")
	ErrInvalidLimits      = errors.New("invalid body limits")
)

// World errors.
var (
	ErrNilBody      = errors.New("body is nil")
	ErrBodyExists   = errors.New("body already added")
	ErrBodyNotFound = errors.New("body not found")
)

// ErrUnknownShape marks an internal invariant violation: a body whose shape is
// not one of the known variants reached a cache recompute. It is only ever
// carried by a panic.
var ErrUnknownShape = errors.New("unknown shape kind")

// ValidationError reports which body property broke which bound. It unwraps to
// one of the validation sentinels above.
type ValidationError struct {
	Shape ShapeKind
	Field string
	Value float64
	Limit float64
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s body: %v: %s is %g, limit is %g", e.Shape, e.Err, e.Field, e.Value, e.Limit)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invariant(format string, args ...any) {
	panic(fmt.Errorf(format, args...))
}
