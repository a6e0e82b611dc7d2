// Package apperr defines the error categories surfaced to API callers and the
// normalization of backend failures into user-facing messages.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnknown      Code = "UNKNOWN"
)

// HTTPStatus maps a code to the status the API responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a category and a message that is safe to show to users. The
// cause is kept for logs only.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with a code and message that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation is shorthand for a VALIDATION_ERROR.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Unauthorized is shorthand for an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

// NotFound is shorthand for a NOT_FOUND error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// From extracts the *Error in err's chain. Anything else becomes an UNKNOWN
// error with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeUnknown, "Something went wrong. Please try again.", err)
}

// CodeOf returns the category of err, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
