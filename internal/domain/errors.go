// Package domain provides the shared error taxonomy and pagination helpers
// used by the application and handler layers.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for HTTP mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
	KindUnprocessable
)

// Error is a domain error carrying a kind and a user-presentable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewValidationError reports invalid caller input.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a concurrent-modification conflict.
func NewConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NewInvalidStateError reports an illegal state transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewForbiddenError reports an authorization failure.
func NewForbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NewUnprocessableError reports a request that is well-formed but cannot be
// acted on in the session's current state (e.g. submitting with an
// unresolved endpoint).
func NewUnprocessableError(msg string) *Error {
	return &Error{Kind: KindUnprocessable, Message: msg}
}

// KindOf returns the ErrorKind of err and whether err is a domain error.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
