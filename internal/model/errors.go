package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")
	ErrConfig         = errors.New("configuration error")
)

// APIError represents a structured error for API responses.
// Redirect carries a follow-up URL for the storefront (login page, my-designs).
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Redirect   string `json:"redirect,omitempty"`
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

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewBadRequestError creates a 400 error for requests missing required data.
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:       "bad_request",
		Message:    message,
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewAuthRequiredError creates a 401 error telling the storefront to send the shopper to redirect.
func NewAuthRequiredError(message, redirect string) *APIError {
	return &APIError{
		Code:       "auth_required",
		Message:    message,
		Redirect:   redirect,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewUnauthorizedError creates a 401 error for auth failures.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "unauthorized",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewForbiddenError creates a 403 error for rejected credentials or signatures.
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:       "forbidden",
		Message:    reason,
		StatusCode: 403,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "upstream_error",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewConfigError creates a 503 error for missing store configuration.
// Not retryable: an operator has to fix settings first.
func NewConfigError(message string) *APIError {
	return &APIError{
		Code:       "config_error",
		Message:    message,
		StatusCode: 503,
		Err:        ErrConfig,
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "internal_error",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "rate_limited",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: 429,
		Err:        ErrRateLimited,
	}
}

// WithRedirect returns a copy of e carrying a redirect target.
func (e *APIError) WithRedirect(url string) *APIError {
	cp := *e
	cp.Redirect = url
	return &cp
}

// WithMessage returns a copy of e with a caller-facing message.
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}
