// Package apperr is the error vocabulary shared by services and handlers.
//
// Services return *Error values whose Kind is one of the sentinels below.
// Handlers never look at messages to decide a status code; they ask
// errors.Is(err, apperr.ErrNotFound) and so on.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")

	// ErrUnauthenticated covers bad credentials and missing sessions.
	ErrUnauthenticated = errors.New("not authenticated")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

func Authorization(format string, args ...any) error {
	return newf(ErrAuthorization, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}

// Message returns the caller-facing text of err. Errors that are not
// *Error (infrastructure failures) yield fallback so internals never leak.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
