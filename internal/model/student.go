package model

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when a student record cannot be published.
var ErrInvalidInput = errors.New("invalid student data")

// Student is the "student registered" domain record carried on the bus.
// JSON keys match the publisher's request body.
type Student struct {
	StudentID   string `json:"StudentID"`
	Firstname   string `json:"Firstname"`
	Lastname    string `json:"Lastname"`
	DateOfBirth string `json:"DateOfBirth"` // yyyy-MM-dd
}

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the only constraint the publisher enforces: a non-empty
// identifier. Names and date of birth are passed through untouched.
func (s Student) Validate() error {
	var ve ValidationError
	if strings.TrimSpace(s.StudentID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "StudentID", Message: "is required"})
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// FullName returns "Firstname Lastname" with surrounding space trimmed.
func (s Student) FullName() string {
	return strings.TrimSpace(s.Firstname + " " + s.Lastname)
}
