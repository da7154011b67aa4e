// Package apperr carries the error taxonomy shared by the store, the
// reservation coordinator and the CLI. Every failure the core returns is an
// *Error with a Code; the CLI maps codes to fixed user-facing messages and
// never inspects message text.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeNotFound             Code = "NOT_FOUND"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeInsufficientDoses    Code = "INSUFFICIENT_DOSES"
	CodeNoCaregiverAvailable Code = "NO_CAREGIVER_AVAILABLE"
	CodeUnauthenticated      Code = "UNAUTHENTICATED"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	// CodeConflict marks a lost race on a claim or decrement; the caller
	// should retry the whole operation, not the failed step.
	CodeConflict Code = "CONFLICT"
	CodeStorage  Code = "STORAGE"
)

type Error struct {
	code Code
	msg  string
	err  error
}

func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Code() Code { return e.code }

// CodeOf extracts the taxonomy code from anywhere in the chain. Errors that
// never went through this package count as storage faults.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.code
	}
	return CodeStorage
}

func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
