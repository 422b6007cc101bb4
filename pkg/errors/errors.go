// Package errors defines the domain error taxonomy shared by the order and
// payment subsystems, plus RFC 7807 rendering for the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure with stable retry/render semantics.
type Code string

const (
	CodeInvalidInput           Code = "invalid_input"
	CodeProductNotFound        Code = "product_not_found"
	CodeOutOfStock             Code = "out_of_stock"
	CodeInsufficientStock      Code = "insufficient_stock"
	CodeBelowMinimumOrder      Code = "below_minimum_order"
	CodeWorkflowInvalidState   Code = "workflow_invalid_state"
	CodeAlreadyTerminal        Code = "already_terminal"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeInvalidSignature       Code = "invalid_signature"
	CodeTransientFailure       Code = "transient_failure"
	CodeNotFound               Code = "not_found"
	CodeForbidden              Code = "forbidden"
	CodeInternal               Code = "internal"
)

// Error carries a taxonomy code, a user-renderable message and an optional
// wrapped cause. Messages for business rejections are precise and safe to
// show to end users; internal causes are never rendered directly.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from err, or CodeInternal when err is
// not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Retryable reports whether the failure class is safe to retry with backoff.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeTransientFailure, CodeConcurrentModification:
		return true
	}
	return false
}

// As is a passthrough to the standard library for callers that already
// import this package.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is a passthrough to the standard library.
func Is(err, target error) bool { return errors.Is(err, target) }
