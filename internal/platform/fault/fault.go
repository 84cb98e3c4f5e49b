// Package fault defines the error taxonomy shared by all domain services:
// Conflict, NotFound and Invalid. Services wrap storage and validation
// failures into one of these classes; handlers map them onto HTTP statuses
// with a single function so the classification lives in exactly one place.
package fault

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Sentinel classes, for use with errors.Is.
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// Error is a classified domain error. Unwrap exposes the class sentinel so
// callers can test with errors.Is(err, fault.ErrConflict) etc.
type Error struct {
	class error
	msg   string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.class }

// Conflict reports a uniqueness or state collision that the caller must
// resolve; it is never auto-resolved here.
func Conflict(format string, args ...interface{}) error {
	return &Error{class: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing referenced record.
func NotFound(format string, args ...interface{}) error {
	return &Error{class: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Invalid reports a business-rule violation in the request itself.
func Invalid(format string, args ...interface{}) error {
	return &Error{class: ErrInvalid, msg: fmt.Sprintf(format, args...)}
}

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// HTTPStatus maps an error to the status code its class carries.
// Unclassified errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts a service error into an echo HTTPError using HTTPStatus.
func HTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error")
	}
	return echo.NewHTTPError(status, err.Error())
}
