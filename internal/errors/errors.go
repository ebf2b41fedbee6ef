// Package errors provides the coded error type shared by the store, the
// backend adapters and the view surfaces.
//
// Usage:
//
//	// Backend adapters translate collaborator failures
//	return errors.FromBackend(resp.StatusCode, body.Code, body.Message)
//
//	// Callers branch on the code, never on message text
//	if errors.Is(err, errors.ErrNotFound) {
//	    return nil, nil // empty result
//	}
//
//	// Presentation asks for the user-facing string
//	notice := errors.UserMessage(err)
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeTransient          Code = "TRANSIENT"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeConflict           Code = "CONFLICT"
	CodeStale              Code = "STALE"
	CodeInternal           Code = "INTERNAL"
)

// Collaborator error codes with special meaning.
const (
	backendCodeNoRows      = "PGRST116"
	backendCodeInvalidText = "22P02"
	backendCodeUnique      = "23505"
	backendCodeInvalidJWT  = "PGRST301"
	backendCodeBadGrant    = "invalid_grant"
	backendCodeBadCreds    = "invalid_credentials"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStale:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "Resource not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrTransient          = &Error{Code: CodeTransient, Message: "service temporarily unavailable"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "authentication required"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "session expired"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrStale              = &Error{Code: CodeStale, Message: "result superseded by a newer session"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Transient creates an error for a failure the caller may retry.
func Transient(msg string) *Error {
	return &Error{Code: CodeTransient, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// FromBackend translates a collaborator failure into a coded error.
// The collaborator code wins over the HTTP status when both are known.
func FromBackend(status int, code, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}

	switch code {
	case backendCodeNoRows:
		return &Error{Code: CodeNotFound, Message: "Resource not found", Details: message}
	case backendCodeInvalidText:
		return &Error{Code: CodeValidation, Message: "Invalid ID format", Details: message}
	case backendCodeUnique:
		return &Error{Code: CodeConflict, Message: message}
	case backendCodeInvalidJWT:
		return &Error{Code: CodeTokenExpired, Message: message}
	case backendCodeBadGrant, backendCodeBadCreds:
		return &Error{Code: CodeInvalidCredentials, Message: message}
	}

	switch {
	case status == http.StatusNotFound:
		return &Error{Code: CodeNotFound, Message: message}
	case status == http.StatusUnauthorized:
		return &Error{Code: CodeUnauthorized, Message: message}
	case status == http.StatusForbidden:
		return &Error{Code: CodeForbidden, Message: message}
	case status == http.StatusConflict:
		return &Error{Code: CodeConflict, Message: message}
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return &Error{Code: CodeTransient, Message: message}
	case status >= http.StatusBadRequest:
		return &Error{Code: CodeValidation, Message: message}
	default:
		return &Error{Code: CodeInternal, Message: message}
	}
}

// CodeOf returns the code carried by err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTransient
	}
	return CodeInternal
}

// IsRetryable reports whether a manual retry may succeed.
func IsRetryable(err error) bool {
	return err != nil && CodeOf(err) == CodeTransient
}

// UserMessage returns the text shown to a person for err.
// Auth failures are passed through verbatim; unknown failures are masked.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "The request timed out. Please try again."
		}
		return "An unexpected error occurred"
	}

	switch e.Code {
	case CodeTransient:
		return "Connection problem. Please try again."
	case CodeInternal:
		return "An unexpected error occurred"
	case CodeStale:
		return ""
	default:
		return e.Message
	}
}
