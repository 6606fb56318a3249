package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
//
// Stores never return raw driver errors: every storage failure is wrapped in
// one of the failure kinds below so callers can branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEntity  = errors.New("duplicate entity")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrValidation       = errors.New("validation error")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
