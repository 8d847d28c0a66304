package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so the HTTP layer can map them to status
// codes and clients get a machine-readable reason instead of a generic 500.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStateConflict Kind = "state_conflict"
	KindAuthorization Kind = "authorization"
	KindCapacity      Kind = "capacity"
)

type Error struct {
	Kind    Kind
	Reason  string // stable machine-readable token, e.g. "late_join_not_allowed"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

func StateConflict(reason, message string) *Error {
	return &Error{Kind: KindStateConflict, Reason: reason, Message: message}
}

func Authorization(reason, message string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason, Message: message}
}

func Capacity(reason, message string) *Error {
	return &Error{Kind: KindCapacity, Reason: reason, Message: message}
}

// KindOf returns the Kind of err, or "" for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// ReasonOf returns the machine-readable reason of err, or "" for plain errors.
func ReasonOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
