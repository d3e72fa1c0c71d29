package restream

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the registry and its callers. Handlers map these
// onto HTTP statuses; everything else wraps with %w.
var (
	// ErrNotFound reports a referenced Restream/Input/Output/Mixin that does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a key collision or a concurrent mutation
	// invalidated by removal.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput reports malformed user-supplied configuration.
	ErrInvalidInput = errors.New("invalid input")
)

// InvalidInputError carries the validation detail while still matching
// ErrInvalidInput via errors.Is.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

func invalidf(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}
