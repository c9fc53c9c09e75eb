package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a service failure so the HTTP layer can pick a status code
// without inspecting message text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is the failure shape every service operation returns. Message is
// always safe to show to the end user; Err carries the underlying cause for
// logs only.
type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithMeta attaches extra response fields (e.g. the prior request status on a
// duplicate purchase request).
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = map[string]interface{}{}
	}
	e.Meta[key] = value
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }

// Internal wraps an unexpected fault behind a generic user-facing message.
// The cause stays on the error for logging, never in the response body.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf returns the kind of err, defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a failure to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// JSON renders err as the uniform failure body. Unexpected errors get a
// generic message so internal detail never leaks to clients.
func JSON(c echo.Context, err error) error {
	body := echo.Map{"success": false}

	var e *Error
	if errors.As(err, &e) {
		body["message"] = e.Message
		for k, v := range e.Meta {
			body[k] = v
		}
	} else {
		body["message"] = "Something went wrong."
	}

	return c.JSON(Status(err), body)
}
