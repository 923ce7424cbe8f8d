package common

import (
	"fmt"
	"net/http"
)

// APIError is the only error shape that crosses the HTTP boundary. Store
// level errors are logged in full server-side and translated into one of
// these before leaving a handler, so internal detail never leaks to clients.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}

// ErrValidation rejects malformed input before any store call is made.
func ErrValidation(format string, args ...any) APIError {
	return Errf(http.StatusBadRequest, format, args...)
}

// ErrTransient covers store timeouts and connection issues. Callers may
// retry with backoff; enqueue callers rely on idempotency keys instead of
// blind retries.
func ErrTransient(format string, args ...any) APIError {
	return Errf(http.StatusServiceUnavailable, format, args...)
}
