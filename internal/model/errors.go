package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes every controller distinguishes.
// Use errors.Is() to check against these.
var (
	// ErrValidation: client-detected problems, no request was sent.
	ErrValidation = errors.New("validation error")
	// ErrServerRejection: the server answered but refused the mutation
	// (stock limits, quantity clamping, sold-out variants).
	ErrServerRejection = errors.New("server rejection")
	// ErrTransport: network failure or a response that could not be parsed.
	ErrTransport = errors.New("transport error")

	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a structured error carrying the storefront-facing message.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewValidationError creates an error for input the client rejected before
// sending anything. Scoped to the originating widget, never global.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    reason,
		StatusCode: 400,
		Err:        fmt.Errorf("%w: %s", ErrValidation, field),
	}
}

// NewServerRejection creates an error for a response that carried an
// error/status field. Message is the server-provided description, shown to
// the user verbatim.
func NewServerRejection(description string, status int) *APIError {
	if description == "" {
		description = "the request was rejected"
	}
	return &APIError{
		Code:       "SERVER_REJECTION",
		Message:    description,
		StatusCode: status,
		Err:        ErrServerRejection,
	}
}

// NewTransportError creates an error for network failures and unparseable
// responses. The cause is preserved for diagnostics; the user sees only the
// generic localized error string.
func NewTransportError(err error) *APIError {
	return &APIError{
		Code:       "TRANSPORT_ERROR",
		Message:    "storefront request failed",
		StatusCode: 0,
		Err:        fmt.Errorf("%w: %v", ErrTransport, err),
	}
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewRateLimitError creates a 429 error for storefront rate limiting.
func NewRateLimitError() *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    "storefront rate limit exceeded, please retry later",
		StatusCode: 429,
		Err:        ErrRateLimited,
	}
}
