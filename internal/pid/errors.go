package pid

// errors.go defines the error codes used by the PID service

import (
	"errors"
	"fmt"
)

// PidError represents a structured error from the pid package.
type PidError struct {
	// code is the PID service error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// upstreamStatus is the HTTP status returned by the Handle server (0 when no response was received)
	upstreamStatus int

	// wrapped is the optional underlying error
	wrapped error
}

func (e *PidError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *PidError) Code() ErrorCode     { return e.code }
func (e *PidError) UpstreamStatus() int { return e.upstreamStatus }
func (e *PidError) Unwrap() error       { return e.wrapped }

// ErrorCode classifies the errors returned by the PID service.
//
//   - 7000-7099 caller errors - the request can not be processed as supplied.
//   - 7100-7199 upstream errors - the Handle server rejected the request or could not be reached.
//   - 7200-7299 service errors - internal faults and request limits.
type ErrorCode int

const (
	// ErrCodeMalformedRequest is used when the request body can not be parsed
	ErrCodeMalformedRequest ErrorCode = 7001

	// ErrCodeInvalidRequest is used when the request is well formed but names an unknown type,
	// an invalid uuid or an invalid target url
	ErrCodeInvalidRequest ErrorCode = 7002

	// ErrCodeAuth is used when a session can not be established with the Handle server
	ErrCodeAuth ErrorCode = 7101

	// ErrCodeAuthExpired is used when the Handle server rejects the session (HTTP 401).
	// The Minter consumes it by re-authenticating once; callers only see it if the retry is bypassed.
	ErrCodeAuthExpired ErrorCode = 7102

	// ErrCodeUpstreamRejected is used when the Handle server returns an error status other than 401
	ErrCodeUpstreamRejected ErrorCode = 7103

	// ErrCodeUpstreamUnreachable is used for transport failures (connection refused, timeouts, redirect loops)
	// and for a repeated 401 after re-authentication
	ErrCodeUpstreamUnreachable ErrorCode = 7104

	// ErrCodeInternalError is used when an internal server error occurs
	ErrCodeInternalError ErrorCode = 7201

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = 7202

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 7203
)

// HasCode reports whether err is (or wraps) a PidError with the supplied code.
func HasCode(err error, code ErrorCode) bool {
	var pidErr *PidError
	if errors.As(err, &pidErr) {
		return pidErr.Code() == code
	}
	return false
}

// NewMalformedRequestError creates an error for requests that can not be parsed.
func NewMalformedRequestError(msg string) error {
	return &PidError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &PidError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// NewInvalidRequestError creates a validation error for invalid input.
// Use this for unknown object types, invalid uuids and invalid target urls.
//
// The returned error will have code ErrCodeInvalidRequest.
func NewInvalidRequestError(msg string) error {
	return &PidError{code: ErrCodeInvalidRequest, message: msg}
}

// WrapInvalidRequestError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeInvalidRequest.
func WrapInvalidRequestError(err error, msg string) error {
	return &PidError{code: ErrCodeInvalidRequest, message: msg, wrapped: err}
}

// NewAuthError creates an error for a failed login against the Handle server.
// status is the HTTP status of the login response, or 0 if no response was received.
func NewAuthError(status int, msg string) error {
	return &PidError{code: ErrCodeAuth, message: msg, upstreamStatus: status}
}

// WrapAuthError wraps a transport error raised while logging in to the Handle server.
func WrapAuthError(err error, msg string) error {
	return &PidError{code: ErrCodeAuth, message: msg, wrapped: err}
}

// NewAuthExpiredError creates an error for a request rejected with HTTP 401.
func NewAuthExpiredError(msg string) error {
	return &PidError{code: ErrCodeAuthExpired, message: msg, upstreamStatus: 401}
}

// NewUpstreamRejectedError creates an error for a Handle server error response.
// The message should include the upstream status and body.
//
// The returned error will have code ErrCodeUpstreamRejected.
func NewUpstreamRejectedError(status int, msg string) error {
	return &PidError{code: ErrCodeUpstreamRejected, message: msg, upstreamStatus: status}
}

// WrapUpstreamRejectedError wraps an error raised while reading a successful but unusable upstream response.
func WrapUpstreamRejectedError(err error, status int, msg string) error {
	return &PidError{code: ErrCodeUpstreamRejected, message: msg, upstreamStatus: status, wrapped: err}
}

// NewUpstreamUnreachableError creates an error for an upstream that can not be used.
//
// The returned error will have code ErrCodeUpstreamUnreachable.
func NewUpstreamUnreachableError(msg string) error {
	return &PidError{code: ErrCodeUpstreamUnreachable, message: msg}
}

// WrapUpstreamUnreachableError wraps a transport error as an unreachable upstream error.
//
// The returned error will have code ErrCodeUpstreamUnreachable.
func WrapUpstreamUnreachableError(err error, msg string) error {
	return &PidError{code: ErrCodeUpstreamUnreachable, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &PidError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &PidError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewRateLimitError creates a rate limit exceeded error.
func NewRateLimitError(msg string) error {
	return &PidError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
func NewRequestTooLargeError(msg string) error {
	return &PidError{code: ErrCodeRequestTooLarge, message: msg}
}
