// Package failure defines the error taxonomy shared by the workflow engine.
// Callers match kinds with errors.Is against the sentinel values.
package failure

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAuthorization    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrScopeMismatch    = errors.New("club scope mismatch")
	ErrInvalidToken     = errors.New("invalid verification token")
	ErrAlreadyProcessed = errors.New("already processed")
)

var kinds = []error{
	ErrValidation, ErrAuthorization, ErrNotFound, ErrConflict,
	ErrAlreadyCheckedIn, ErrScopeMismatch, ErrInvalidToken, ErrAlreadyProcessed,
}

// Error is an engine error of a given kind with a caller-facing message.
type Error struct {
	Kind    error
	Message string
	Field   string // set for validation errors about a single input field
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind so errors.Is matches the sentinel.
func (e *Error) Unwrap() error {
	return e.Kind
}

// New creates an Error of the given kind.
// PRE: kind is one of the sentinel kinds
// POST: errors.Is(result, kind) is true
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return New(ErrValidation, format, args...)
}

// MissingField reports a required input field that was absent.
// POST: the returned error names the field in both Message and Field
func MissingField(field string) error {
	return &Error{Kind: ErrValidation, Message: field + " is required", Field: field}
}

// Unauthorized reports an actor acting outside their scope.
func Unauthorized(format string, args ...any) error {
	return New(ErrAuthorization, format, args...)
}

// NotFound reports a missing referenced entity.
func NotFound(entity string) error {
	return New(ErrNotFound, "%s not found", entity)
}

// Conflict reports a duplicate active record.
func Conflict(format string, args ...any) error {
	return New(ErrConflict, format, args...)
}

// AlreadyProcessed reports a transition attempted on a terminal record.
func AlreadyProcessed(entity string) error {
	return New(ErrAlreadyProcessed, "%s has already been processed", entity)
}

// KindOf returns the sentinel kind of err, or nil when err is not an engine error.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// FieldOf returns the offending field for validation errors, if any.
func FieldOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
