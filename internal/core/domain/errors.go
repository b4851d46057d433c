package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories surfaced to callers.
type ErrorKind string

const (
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindInvalidArgument    ErrorKind = "invalid-argument"
	KindAlreadyExists      ErrorKind = "already-exists"
	KindPermissionDenied   ErrorKind = "permission-denied"
	KindFailedPrecondition ErrorKind = "failed-precondition"
	KindNotFound           ErrorKind = "not-found"
	KindInternal           ErrorKind = "internal"
)

// Error is the only error shape that crosses the service boundary.
// Code carries the backend error code (SQLSTATE etc.) when one is known.
type Error struct {
	Kind    ErrorKind
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ErrUnauthenticated(msg string) error    { return NewError(KindUnauthenticated, msg) }
func ErrInvalidArgument(msg string) error    { return NewError(KindInvalidArgument, msg) }
func ErrAlreadyExists(msg string) error      { return NewError(KindAlreadyExists, msg) }
func ErrPermissionDenied(msg string) error   { return NewError(KindPermissionDenied, msg) }
func ErrFailedPrecondition(msg string) error { return NewError(KindFailedPrecondition, msg) }
func ErrNotFound(msg string) error           { return NewError(KindNotFound, msg) }
func ErrInternal(msg string) error           { return NewError(KindInternal, msg) }

// AsError extracts a *Error from the chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf reports the kind of err. Anything unrecognized is internal.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRecognized is true for errors that already belong to the closed set.
func IsRecognized(err error) bool {
	_, ok := AsError(err)
	return ok
}
