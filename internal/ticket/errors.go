package ticket

import (
	"errors"
	"fmt"
	"net/http"
)

// Code names one of the closed set of wire error codes from spec.md §7.
type Code string

const (
	InvalidAuthentication Code = "InvalidAuthentication"
	PermissionDenied      Code = "PermissionDenied"
	NotFound              Code = "NotFound"
	UnsupportedFormat     Code = "UnsupportedFormat"
	InvalidInput          Code = "InvalidInput"
	InvalidRange          Code = "InvalidRange"
	InternalError         Code = "InternalError"
)

// Status returns the HTTP status code the taxonomy assigns to c.
func (c Code) Status() int {
	switch c {
	case InvalidAuthentication:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case UnsupportedFormat, InvalidInput, InvalidRange:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the resolver core's only error type: every error that escapes
// component A-H carries one of the Codes above, so the HTTP transport
// (component J) never has to guess a status code.
type Error struct {
	Code    Code
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Context, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(code Code, context string, cause error) *Error {
	return &Error{Code: code, Context: context, Cause: cause}
}

func NewInvalidAuthentication(context string, cause error) *Error {
	return newError(InvalidAuthentication, context, cause)
}

func NewPermissionDenied(context string, cause error) *Error {
	return newError(PermissionDenied, context, cause)
}

func NewNotFound(context string, cause error) *Error {
	return newError(NotFound, context, cause)
}

func NewUnsupportedFormat(context string, cause error) *Error {
	return newError(UnsupportedFormat, context, cause)
}

func NewInvalidInput(context string, cause error) *Error {
	return newError(InvalidInput, context, cause)
}

func NewInvalidRange(context string, cause error) *Error {
	return newError(InvalidRange, context, cause)
}

func NewInternalError(context string, cause error) *Error {
	return newError(InternalError, context, cause)
}

// AsError reports whether err (or something it wraps) is a *Error.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
