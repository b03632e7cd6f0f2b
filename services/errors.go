package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries a client-facing message and the sentinel that classifies it.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error { return newError(ErrInvalidInput, format, args...) }
func unauthorized(format string, args ...any) error { return newError(ErrUnauthorized, format, args...) }
func forbidden(format string, args ...any) error    { return newError(ErrForbidden, format, args...) }
func notFound(format string, args ...any) error     { return newError(ErrNotFound, format, args...) }
func conflict(format string, args ...any) error     { return newError(ErrConflict, format, args...) }
