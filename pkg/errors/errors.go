// Package errors defines the structured error type used throughout the
// Postline API wrapper.
//
// Every failure surfaced by the client carries a Code that callers can
// branch on programmatically. Retry decisions inside the client are made by
// matching on the code, never by inspecting raw transport errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code identifies a class of client failure.
type Code string

const (
	// CodeRateLimitExceeded means the client's request quota for the
	// current window is exhausted. Never retried internally; the error
	// carries the time remaining until the window resets.
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"

	// CodeNetworkError means no HTTP response was received at all.
	CodeNetworkError Code = "NETWORK_ERROR"

	// CodeRequestError means a local failure occurred before the request
	// was sent (bad URL, unencodable body, and the like).
	CodeRequestError Code = "REQUEST_ERROR"

	// CodeConfigError means the client configuration is invalid.
	CodeConfigError Code = "CONFIG_ERROR"

	// CodeProfileNotFound and CodePostNotFound are domain-level conditions
	// raised by operations after a successful-but-empty response or a
	// missing simulation catalog entry.
	CodeProfileNotFound Code = "PROFILE_NOT_FOUND"
	CodePostNotFound    Code = "POST_NOT_FOUND"

	// CodePostCreateFailed means the create call succeeded at the
	// transport level but the response envelope carried no post.
	CodePostCreateFailed Code = "POST_CREATE_FAILED"
)

// httpCodePrefix is the prefix for status-derived codes such as HTTP_500.
const httpCodePrefix = "HTTP_"

// HTTPCode builds the code for an HTTP failure with the given status,
// e.g. HTTPCode(500) == "HTTP_500".
func HTTPCode(status int) Code {
	return Code(fmt.Sprintf("%s%d", httpCodePrefix, status))
}

// IsHTTP reports whether the code was derived from a non-2xx HTTP status.
func (c Code) IsHTTP() bool {
	return strings.HasPrefix(string(c), httpCodePrefix)
}

// Retryable reports whether a failure with this code may be retried.
// Retryable kinds are transport failures and upstream 500/502/503.
func (c Code) Retryable() bool {
	switch c {
	case CodeNetworkError:
		return true
	case HTTPCode(500), HTTPCode(502), HTTPCode(503):
		return true
	default:
		return false
	}
}

// Error is the single error type returned by the client. The Code field
// classifies the failure; the remaining fields carry structured context.
type Error struct {
	// Code classifies the failure for programmatic branching.
	Code Code

	// Message is a human-readable description of what went wrong.
	Message string

	// StatusCode is the HTTP status, when a response was received.
	StatusCode int

	// RetryAfter is the wait until the rate-limit window resets.
	// Set only for CodeRateLimitExceeded.
	RetryAfter time.Duration

	// Details carries any additional payload from the API envelope.
	Details any

	// Err is the underlying error, if one exists.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}

	if e.RetryAfter > 0 {
		fmt.Fprintf(&sb, " (retry after %s)", e.RetryAfter)
	}

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

// Unwrap allows error chaining with errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error may be retried.
func (e *Error) Retryable() bool { return e.Code.Retryable() }

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with the given code around an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Code from err, or "" if err is not a client error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a domain-level not-found condition.
func IsNotFound(err error) bool {
	return strings.HasSuffix(string(CodeOf(err)), "_NOT_FOUND")
}

// IsRateLimit reports whether err is a rate-limit rejection.
func IsRateLimit(err error) bool {
	return CodeOf(err) == CodeRateLimitExceeded
}
