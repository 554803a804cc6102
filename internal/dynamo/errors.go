package dynamo

import (
	"errors"
	"fmt"

	"github.com/san-kum/gravsim/internal/bodies"
)

// Domain errors for simulation operations.
var (
	// ErrNoBodies is returned when a store would hold no real body.
	ErrNoBodies = bodies.ErrNoBodies

	// ErrInvalidState indicates a body position or velocity became NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the run was interrupted between steps.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

func boundsError(field string, value float64, want string) error {
	return fmt.Errorf("%w: %s = %g, want %s", ErrParameterBounds, field, value, want)
}
