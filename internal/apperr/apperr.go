// Package apperr defines the error kinds returned across the service boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindNotFound        Kind = "NotFoundError"
	KindConflict        Kind = "ConflictError"
	KindForbidden       Kind = "ForbiddenError"
	KindUnauthenticated Kind = "UnauthenticatedError"
	KindInternal        Kind = "InternalError"
)

// Error is a typed business error. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return New(KindUnauthenticated, format, args...)
}

// Internal wraps an unexpected failure. The message shown to callers stays generic.
func Internal(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: op + " failed", Err: err}
}

// KindOf reports the kind of err. Untyped errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP equivalent.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
