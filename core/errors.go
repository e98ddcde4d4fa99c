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

type (
	// NotFoundError reports a missing resource.
	NotFoundError struct{ message string }

	// ForbiddenError reports an authenticated user acting on a resource they do not own.
	ForbiddenError struct{ message string }

	// ConflictError reports a write clashing with existing state (unique violations).
	ConflictError struct{ message string }

	// AuthError reports failed authentication. Status is the HTTP status to answer with.
	AuthError struct {
		message string
		Status  int
	}
)

func NewNotFoundError(msg string) error  { return &NotFoundError{message: msg} }
func NewForbiddenError(msg string) error { return &ForbiddenError{message: msg} }
func NewConflictError(msg string) error  { return &ConflictError{message: msg} }

func NewAuthError(status int, msg string) error {
	return &AuthError{message: msg, Status: status}
}

func (e NotFoundError) Error() string  { return e.message }
func (e ForbiddenError) Error() string { return e.message }
func (e ConflictError) Error() string  { return e.message }
func (e AuthError) Error() string      { return e.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

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
