package activity

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Code classifies a failed operation. Codes are stable strings and are
// surfaced verbatim to transport clients.
type Code string

const (
	CodeUnknownActivityType Code = "UnknownActivityType"
	CodeUnsupportedAction   Code = "UnsupportedAction"
	CodeSessionNotFound     Code = "SessionNotFound"
	CodeTypeMismatch        Code = "TypeMismatch"
	CodeSessionClosed       Code = "SessionClosed"
	CodeAlreadyClosed       Code = "AlreadyClosed"
	CodeForbidden           Code = "Forbidden"
	CodeInvalidInput        Code = "InvalidInput"
	CodeLimitExceeded       Code = "LimitExceeded"
	CodeStaleWrite          Code = "StaleWrite"
	CodeHostMessageNotFound Code = "HostMessageNotFound"
)

// Error is the single domain error type. Two errors are equal under
// errors.Is when their codes match, so callers compare against the
// sentinels below regardless of reason or field.
type Error struct {
	Code   Code   `json:"code"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnknownActivityType = &Error{Code: CodeUnknownActivityType, Reason: "unknown activity type"}
	ErrUnsupportedAction   = &Error{Code: CodeUnsupportedAction, Reason: "unsupported action"}
	ErrSessionNotFound     = &Error{Code: CodeSessionNotFound, Reason: "session not found"}
	ErrTypeMismatch        = &Error{Code: CodeTypeMismatch, Reason: "session type mismatch"}
	ErrSessionClosed       = &Error{Code: CodeSessionClosed, Reason: "session is closed"}
	ErrAlreadyClosed       = &Error{Code: CodeAlreadyClosed, Reason: "session is already closed"}
	ErrForbidden           = &Error{Code: CodeForbidden, Reason: "forbidden"}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput, Reason: "invalid input"}
	ErrLimitExceeded       = &Error{Code: CodeLimitExceeded, Reason: "limit exceeded"}
	ErrStaleWrite          = &Error{Code: CodeStaleWrite, Reason: "session changed since it was loaded"}
	ErrHostMessageNotFound = &Error{Code: CodeHostMessageNotFound, Reason: "host message not found"}
)

// Errorf builds a coded error with a formatted reason.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// InvalidField builds an InvalidInput error pointing at one input field.
func InvalidField(field, format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Forbidden builds a Forbidden error with a formatted reason.
func Forbidden(format string, args ...interface{}) *Error {
	return Errorf(CodeForbidden, format, args...)
}

// LimitExceeded builds a LimitExceeded error with a formatted reason.
func LimitExceeded(format string, args ...interface{}) *Error {
	return Errorf(CodeLimitExceeded, format, args...)
}

// StaleWrite reports a version conflict on save.
func StaleWrite(sessionID string, expected, stored int64) *Error {
	return Errorf(CodeStaleWrite, "session %s is at version %d, write expected %d", sessionID, stored, expected)
}

// CodeOf extracts the domain code from err, or "" when err is not a
// domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError returns the domain error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsNotFound checks if an error is a missing-key or missing-session error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrSessionNotFound)
}
