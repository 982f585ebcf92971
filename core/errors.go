package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// PreconditionError indicates that a business precondition failed
// (modules incomplete, attempts exhausted, already passed, ...).
// No partial state change has occurred when it is returned.
type PreconditionError struct {
	Err error
}

func NewPreconditionError(err error) error {
	return &PreconditionError{Err: err}
}

func (err PreconditionError) Error() string {
	if err.Err == nil {
		return "precondition failed"
	}
	return err.Err.Error()
}

func (err PreconditionError) Unwrap() error { return err.Err }

// ForbiddenError indicates that the caller holds no active grant or the
// wrong role for the requested resource.
type ForbiddenError struct {
	Err error
}

func NewForbiddenError(err error) error {
	return &ForbiddenError{Err: err}
}

func (err ForbiddenError) Error() string {
	if err.Err == nil {
		return "permission denied"
	}
	return err.Err.Error()
}

func (err ForbiddenError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
