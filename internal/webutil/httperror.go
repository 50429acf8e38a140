package webutil

import (
	"errors"
	"net/http"
)

const (
	msgBadRequest          = "Bad Request"
	msgNotFound            = "Resource not found"
	msgInternalServer      = "Internal Server Error"
	msgUnauthorized        = "Unauthorized"
	msgForbidden           = "Forbidden"
	msgConflict            = "Conflict"
	msgUnprocessableEntity = "Validation errors"
)

// HTTPError is an error with an associated HTTP status code
// and a user-facing message.
type HTTPError struct {
	cause   error               // The underlying error, can be nil
	Code    int                 // HTTP status code
	Message string              // User-facing error message
	Fields  map[string][]string // Per-field validation messages, keyed by JSON name
}

// Error returns the Message, which is intended for the HTTP response.
func (he HTTPError) Error() string {
	return he.Message
}

// Unwrap provides compatibility for errors.Is and errors.As.
func (he HTTPError) Unwrap() error {
	return he.cause
}

// Detail returns the underlying cause when it adds information beyond the
// public message.
func (he HTTPError) Detail() string {
	if he.cause == nil || he.cause.Error() == he.Message {
		return ""
	}
	return he.cause.Error()
}

func defaultMessageIfEmpty(initialMsg, defaultVal string) string {
	if initialMsg == "" {
		return defaultVal
	}
	return initialMsg
}

// NewHTTPError creates a new HTTPError with a code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(message),
		Code:    code,
		Message: message,
	}
}

// NewHTTPErrorWrap creates a new HTTPError that wraps an existing error.
// The cause is reported to the client as the "error" detail.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		cause:   cause,
		Code:    code,
		Message: message,
	}
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, defaultMessageIfEmpty(message, msgNotFound))
}

// ErrInternalServerWrap keeps message as the public text and exposes the
// cause as the error detail.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, defaultMessageIfEmpty(message, msgInternalServer), cause)
}

func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, defaultMessageIfEmpty(message, msgUnauthorized))
}

func ErrUnauthorizedWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusUnauthorized, defaultMessageIfEmpty(message, msgUnauthorized), cause)
}

func ErrForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, defaultMessageIfEmpty(message, msgForbidden))
}

func ErrConflict(message string) *HTTPError {
	return NewHTTPError(http.StatusConflict, defaultMessageIfEmpty(message, msgConflict))
}

func ErrConflictWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusConflict, defaultMessageIfEmpty(message, msgConflict), cause)
}

// ErrValidation reports per-field failures with the given status
// (422 for most resources, 400 for roles).
func ErrValidation(code int, fields map[string][]string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(msgUnprocessableEntity),
		Code:    code,
		Message: msgUnprocessableEntity,
		Fields:  fields,
	}
}

// FieldError is a single-field 422, used when a referenced name does not
// resolve.
func FieldError(field, message string) *HTTPError {
	return ErrValidation(http.StatusUnprocessableEntity, map[string][]string{field: {message}})
}
