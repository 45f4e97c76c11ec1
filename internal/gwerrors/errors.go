// Package gwerrors defines the typed error kinds the gateway returns
// from its HTTP handlers and internal subsystems.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a GatewayError for HTTP status mapping and metrics.
type Kind string

const (
	BadRequest        Kind = "bad_request"
	NotFound          Kind = "not_found"
	Forbidden         Kind = "forbidden"
	RateLimited       Kind = "rate_limited"
	ServiceUnavailable Kind = "service_unavailable"
	Upstream          Kind = "upstream"
	Timeout           Kind = "timeout"
	Conflict          Kind = "conflict"
	Internal          Kind = "internal"
)

// GatewayError is the single error type carried across subsystem
// boundaries in this service.
type GatewayError struct {
	Kind       Kind
	Message    string
	Cause      error
	RetryAfter *int
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a GatewayError of the given kind.
func Is(err error, kind Kind) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// New constructs a GatewayError.
func New(kind Kind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Cause: cause}
}

// NewRateLimited constructs a RateLimited error with an optional
// retry-after hint, mirroring the provider RateLimitError shape.
func NewRateLimited(message string, retryAfterSeconds *int, cause error) *GatewayError {
	return &GatewayError{Kind: RateLimited, Message: message, Cause: cause, RetryAfter: retryAfterSeconds}
}

// HTTPStatus maps a Kind to the HTTP status code the gateway writes.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest:
		return 400
	case Forbidden:
		return 403
	case NotFound:
		return 404
	case Conflict:
		return 409
	case RateLimited:
		return 429
	case Timeout:
		return 504
	case ServiceUnavailable:
		return 503
	case Upstream:
		return 502
	case Internal:
		return 500
	default:
		return 500
	}
}
