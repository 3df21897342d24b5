package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a lookup for a name no descriptor was registered
	// under.
	ErrNotFound = errors.New("plugin not found")
	// ErrDuplicateName reports a registration collision.
	ErrDuplicateName = errors.New("plugin name already registered")
	// ErrInvalidParameter is the base of every schema validation failure;
	// match the concrete *ParameterError with errors.As to learn which
	// parameter was rejected.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParameterError describes one rejected parameter and the constraint it
// violated.
type ParameterError struct {
	Parameter string
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Parameter, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalidParam(name, format string, args ...any) error {
	return &ParameterError{Parameter: name, Reason: fmt.Sprintf(format, args...)}
}
