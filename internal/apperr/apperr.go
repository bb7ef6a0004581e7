// Package apperr defines the error taxonomy every mutating operation reports
// through. Errors carry a machine code that the transport layer maps to an
// HTTP status; messages are safe to show to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	CodeInvalidArgument    Code = "invalid-argument"
	CodeUnauthenticated    Code = "unauthenticated"
	CodePermissionDenied   Code = "permission-denied"
	CodeNotFound           Code = "not-found"
	CodeAlreadyExists      Code = "already-exists"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeInternal           Code = "internal"
)

// Error is a classified business error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument marks malformed or missing input, rejected before any
// store access.
func InvalidArgument(format string, args ...interface{}) *Error {
	return newf(CodeInvalidArgument, format, args...)
}

// Unauthenticated marks a request with no usable identity.
func Unauthenticated(format string, args ...interface{}) *Error {
	return newf(CodeUnauthenticated, format, args...)
}

// PermissionDenied marks a caller that lacks the capability for the target.
func PermissionDenied(format string, args ...interface{}) *Error {
	return newf(CodePermissionDenied, format, args...)
}

// NotFound marks a missing referenced entity.
func NotFound(format string, args ...interface{}) *Error {
	return newf(CodeNotFound, format, args...)
}

// AlreadyExists marks a lost race for a slot or a duplicate natural key.
func AlreadyExists(format string, args ...interface{}) *Error {
	return newf(CodeAlreadyExists, format, args...)
}

// FailedPrecondition marks a business precondition that does not hold
// (slot occupied, insufficient stock, inactive product).
func FailedPrecondition(format string, args ...interface{}) *Error {
	return newf(CodeFailedPrecondition, format, args...)
}

// Internal wraps an unexpected store or infrastructure failure. The wrapped
// cause is logged, never surfaced to callers.
func Internal(err error, message string) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message for err. Unclassified errors get
// a generic message so no internals leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps a taxonomy code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
