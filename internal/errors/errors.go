// Package errors defines the proxy's error taxonomy as a small set of
// predefined *APIError values, mirroring gpt-load's
// internal/errors: a single struct carrying an HTTP status, a machine
// code, and a human message, with constructors for the cases that need
// a request-specific message.
package errors

import "net/http"

// APIError is a proxy-level error with enough information to render
// both an HTTP response and a canonical SSE error frame.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Predefined errors, one per kind this proxy distinguishes.
var (
	ErrBadRequest = &APIError{
		HTTPStatus: http.StatusBadRequest,
		Code:       "bad_request",
		Message:    "invalid request parameters",
	}
	ErrUnauthorized = &APIError{
		HTTPStatus: http.StatusUnauthorized,
		Code:       "unauthorized",
		Message:    "missing or invalid api key",
	}
	ErrNoProfileMatch = &APIError{
		HTTPStatus: http.StatusNotFound,
		Code:       "no_profile_match",
		Message:    "no enabled profile matches the requested model and no default profile is configured",
	}
	ErrUpstreamError = &APIError{
		HTTPStatus: http.StatusBadGateway,
		Code:       "upstream_error",
		Message:    "upstream returned an error",
	}
	ErrUpstreamTimeout = &APIError{
		HTTPStatus: http.StatusBadGateway,
		Code:       "upstream_timeout",
		Message:    "upstream request timed out",
	}
	ErrUpstreamConnection = &APIError{
		HTTPStatus: http.StatusBadGateway,
		Code:       "upstream_connection",
		Message:    "failed to connect to upstream",
	}
	ErrConfigInvalid = &APIError{
		HTTPStatus: http.StatusUnprocessableEntity,
		Code:       "config_invalid",
		Message:    "configuration is invalid",
	}
	ErrInternal = &APIError{
		HTTPStatus: http.StatusInternalServerError,
		Code:       "internal",
		Message:    "internal server error",
	}
)

// NewAPIError returns a copy of base with message replacing its
// default text, preserving base's status and code.
func NewAPIError(base *APIError, message string) *APIError {
	return &APIError{HTTPStatus: base.HTTPStatus, Code: base.Code, Message: message}
}

// NewUpstreamError wraps a non-2xx upstream response. Unlike the other
// constructors, status is taken from the caller because the upstream's
// own status code is relayed unchanged.
func NewUpstreamError(status int, body string) *APIError {
	return &APIError{HTTPStatus: status, Code: ErrUpstreamError.Code, Message: body}
}

// NewValidationError builds a BadRequest variant carrying a
// field-specific message (e.g. from gin's request binding).
func NewValidationError(message string) *APIError {
	return NewAPIError(ErrBadRequest, message)
}

// NewConfigInvalidError builds a ConfigInvalid variant carrying a
// field-specific message.
func NewConfigInvalidError(message string) *APIError {
	return NewAPIError(ErrConfigInvalid, message)
}
