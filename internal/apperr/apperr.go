// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidCode      Kind = "invalid_code"
	KindExpired          Kind = "expired"
	KindNotEnrolled      Kind = "not_enrolled"
	KindInternal         Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, apperr.ErrExpired) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons. Message is left empty so any error of the kind matches.
var (
	ErrBadRequest       = &Error{Kind: KindBadRequest}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidCode      = &Error{Kind: KindInvalidCode}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrNotEnrolled      = &Error{Kind: KindNotEnrolled}
	ErrInternal         = &Error{Kind: KindInternal}
)

func BadRequest(msg string) *Error       { return &Error{Kind: KindBadRequest, Message: msg} }
func PermissionDenied(msg string) *Error { return &Error{Kind: KindPermissionDenied, Message: msg} }
func NotFound(msg string) *Error         { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error         { return &Error{Kind: KindConflict, Message: msg} }
func InvalidCode(msg string) *Error      { return &Error{Kind: KindInvalidCode, Message: msg} }
func Expired(msg string) *Error          { return &Error{Kind: KindExpired, Message: msg} }
func NotEnrolled(msg string) *Error      { return &Error{Kind: KindNotEnrolled, Message: msg} }

// Internal wraps a store or infrastructure failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
