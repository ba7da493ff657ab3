package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an application error with HTTP status and error code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error.
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error with the same code, so copies made by
// WithInternal and friends still match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithInternal returns a copy of the error with an internal error attached.
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
		Details:    e.Details,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithDetails returns a copy of the error with details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New creates a new application error.
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrValidation       = New(http.StatusBadRequest, "validation_error", "Validation failed")
	ErrStoreUnavailable = New(http.StatusServiceUnavailable, "store_unavailable", "Graph store is unavailable, try again shortly")
	ErrStoreQuery       = New(http.StatusInternalServerError, "store_query_error", "Graph query failed")
	ErrUnauthorized     = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrForbidden        = New(http.StatusForbidden, "forbidden", "Access denied")
	ErrNotFound         = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrInternal         = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
)

// Validation builds a validation error with a custom message.
func Validation(message string) *Error {
	return ErrValidation.WithMessage(message)
}

// ToHTTP converts any error into a status code and response body. Internal causes are never exposed.
func ToHTTP(err error) (int, map[string]any) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal
	}

	body := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return appErr.HTTPStatus, map[string]any{"error": body}
}

// IsRetryable reports whether the caller should retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
