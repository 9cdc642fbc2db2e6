package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing entity (user, offer, help request).
	ErrNotFound = errors.New("not found")

	// ErrRateLimited reports that a daily action quota is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotAdmin reports an administrative action attempted by a non-admin.
	ErrNotAdmin = errors.New("not admin")
)

// ValidationError carries a user-facing description of malformed input.
// Handlers surface Msg to the user and always release the held mode.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
