package fdtd

import (
	"errors"
	"fmt"

	"github.com/san-kum/fdtdsim/internal/backend"
)

// Domain errors for grid construction and registration.
var (
	// ErrConfiguration indicates a rejected grid, boundary, source or backend setting.
	ErrConfiguration = errors.New("fdtd: invalid configuration")

	// ErrOutOfBounds indicates an index range outside the grid.
	ErrOutOfBounds = errors.New("fdtd: index out of bounds")

	// ErrUnsupportedBackend indicates the requested execution target is unavailable.
	ErrUnsupportedBackend = backend.ErrUnsupported

	// ErrDiverged is only reported when divergence checking is enabled.
	ErrDiverged = errors.New("fdtd: field diverged (NaN or Inf detected)")
)

// ConfigError describes a rejected setting.
type ConfigError struct {
	Field   string
	Reason  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("fdtd: invalid %s: %s", e.Field, e.Reason)
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }
func (e *ConfigError) Unwrap() error        { return e.Wrapped }

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// BoundsError reports an index range that leaves the grid.
type BoundsError struct {
	What  string
	Start [3]int
	End   [3]int
	Shape [3]int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("fdtd: %s range %v..%v outside grid %v", e.What, e.Start, e.End, e.Shape)
}

func (e *BoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// StepError wraps an error raised while stepping, with time context.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4es): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }

// ResolveBackend maps a backend name onto an instance, classifying failures:
// unknown names are configuration errors, missing targets keep ErrUnsupportedBackend.
func ResolveBackend(name string) (backend.Backend, error) {
	be, err := backend.New(name)
	switch {
	case err == nil:
		return be, nil
	case errors.Is(err, backend.ErrUnknown):
		return nil, &ConfigError{Field: "backend", Reason: fmt.Sprintf("%q", name), Wrapped: err}
	default:
		return nil, err
	}
}
