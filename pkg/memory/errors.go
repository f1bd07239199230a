package memory

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by operations that require an existing memory,
// relationship, or version (rollback targets, merge inputs). Plain lookups
// return nil instead.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad input before any write; no partial state is
// ever created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
