// Package errors carries coded errors across service boundaries.
// Import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies an error for callers that branch on failure kind.
// Values are stable; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeUnavailable is for transient failures where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for validation failures on input data
	ErrorCodeValidation

	// ErrorCodeParse is for malformed vendor payloads; processing of that
	// single document is aborted, the batch continues
	ErrorCodeParse

	// ErrorCodeNotFound is for missing resources and failed lookups
	ErrorCodeNotFound

	// ErrorCodeDuplicateKey is for unique constraint violations
	ErrorCodeDuplicateKey

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeEmit is for event bus emission failures; delivery is
	// best-effort and this code is logged, never escalated
	ErrorCodeEmit
)

// ErrNotFound is the shared not-found sentinel
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error pairs a machine-facing code with a developer-facing message and an
// optional wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// As returns (*Error, true) when err is one of ours anywhere in the chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Root walks to the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts the ErrorCode, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// New builds a coded error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf builds a coded error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap attaches a code and message around orig
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf is the formatted variant of Wrap
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Parsef reports a malformed vendor document
func Parsef(format string, a ...any) error { return Newf(ErrorCodeParse, format, a...) }

// Emitf reports a failed event emission
func Emitf(format string, a ...any) error { return Newf(ErrorCodeEmit, format, a...) }

// Unavailablef reports an unreachable dependency
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
