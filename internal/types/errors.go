package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrUnknownTier        = errors.New("unknown tier")
	ErrAlreadyExists      = errors.New("already exists")
)

// ValidationError is returned when a caller supplies an empty or invalid
// field. It is raised before any store call is made.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UserMessage converts an error into text suitable for showing to a player.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrNetworkUnavailable):
		return "Network error. Please check your connection and try again."
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to view these rooms."
	case errors.Is(err, ErrNotFound):
		return "The requested rooms could not be found."
	default:
		return "Error loading rooms: " + err.Error()
	}
}
