// Package apperr defines the error taxonomy shared by the accounting core.
//
// Every business rejection is an *Error carrying a Kind (how the caller should
// react), a Code (what went wrong) and the offending Value, so the caller can
// correct the input and resubmit. Codes are sentinel errors and work with
// errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindState      Kind = "state"
	KindConflict   Kind = "conflict"
)

// Sentinel codes.
var (
	ErrEmptyEntry          = errors.New("journal entry has no lines")
	ErrUnbalanced          = errors.New("journal entry is not balanced")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateCode       = errors.New("account code already exists")
	ErrParentNotFound      = errors.New("parent account not found")
	ErrCycleDetected       = errors.New("account hierarchy cycle")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrEntryNotFound       = errors.New("journal entry not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInvalidState        = errors.New("asset is not active")
	ErrMissingAccountLinks = errors.New("asset missing GL account links")
	ErrConcurrentUpdate    = errors.New("concurrent update detected")
)

// Error is a typed business rejection.
type Error struct {
	Kind  Kind
	Code  error
	Value string
	Msg   string
}

func (e *Error) Error() string {
	msg := e.Code.Error()
	if e.Msg != "" {
		msg = e.Msg
	}
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Kind, msg, e.Value)
}

func (e *Error) Unwrap() error { return e.Code }

// Validation returns a KindValidation error.
func Validation(code error, value string, format string, args ...any) *Error {
	return newError(KindValidation, code, value, format, args...)
}

// NotFound returns a KindNotFound error.
func NotFound(code error, value string) *Error {
	return newError(KindNotFound, code, value, "")
}

// State returns a KindState error.
func State(code error, value string, format string, args ...any) *Error {
	return newError(KindState, code, value, format, args...)
}

// Conflict returns a KindConflict error. Conflicts are safe to retry.
func Conflict(code error, value string) *Error {
	return newError(KindConflict, code, value, "")
}

func newError(kind Kind, code error, value, format string, args ...any) *Error {
	e := &Error{Kind: kind, Code: code, Value: value}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found rejection.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err is an input validation rejection.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsRetryable reports whether the operation may succeed if simply retried.
func IsRetryable(err error) bool { return errors.Is(err, ErrConcurrentUpdate) }
