// Package apperrors defines the typed failure taxonomy shared by the
// catalog store, the entity layer, and their callers. The store raises
// these errors; translating them into transport-level codes is the HTTP
// layer's job.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can react without string matching.
type Code string

const (
	// CodeValidation means the caller supplied malformed or missing input.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeNotFound means the referenced id does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict means a state-transition precondition was violated.
	CodeConflict Code = "CONFLICT"
	// CodePersistence means the underlying storage failed; not user-correctable.
	CodePersistence Code = "PERSISTENCE_ERROR"
)

// Error is a classified failure, optionally wrapping a lower-level cause.
type Error struct {
	code  Code
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the classification of this error.
func (e *Error) Code() Code {
	return e.code
}

// Validation creates a client-input failure.
func Validation(msg string) *Error {
	return &Error{code: CodeValidation, msg: msg}
}

// Validationf creates a client-input failure with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{code: CodeValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound creates a missing-resource failure.
func NotFound(msg string) *Error {
	return &Error{code: CodeNotFound, msg: msg}
}

// NotFoundf creates a missing-resource failure with a formatted message.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{code: CodeNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a state-transition failure.
func Conflict(msg string) *Error {
	return &Error{code: CodeConflict, msg: msg}
}

// Persistence wraps a storage failure. The cause is preserved for logs but
// the message is what callers see.
func Persistence(msg string, cause error) *Error {
	return &Error{code: CodePersistence, msg: msg, cause: cause}
}

// CodeOf extracts the Code from an error chain. Unclassified errors are
// reported as persistence failures since nothing else in the taxonomy fits.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodePersistence
}

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsNotFound reports whether err is classified as a missing-resource failure.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsConflict reports whether err is classified as a state-transition failure.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}
