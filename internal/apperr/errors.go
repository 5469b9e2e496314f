// Package apperr defines the error kinds shared by the planner packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrEmptySchedule = errors.New("schedule is empty")
	ErrCollaborator  = errors.New("text generation failed")
)

// ValidationError reports malformed input such as an unparseable import document.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// Validation returns a ValidationError for field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidDocument wraps a decode failure.
func InvalidDocument(err error) error {
	return &ValidationError{Reason: "invalid document", Err: err}
}

// EmptyScheduleError is returned when a calendar export has nothing to export.
type EmptyScheduleError struct{}

func (e *EmptyScheduleError) Error() string { return ErrEmptySchedule.Error() }

func (e *EmptyScheduleError) Unwrap() error { return ErrEmptySchedule }

// CollaboratorError wraps failures of the remote text generator: transport
// errors, non-2xx responses and unparseable replies.
type CollaboratorError struct {
	Op     string
	Status int
	Err    error
}

func (e *CollaboratorError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}

// Collaborator returns a CollaboratorError.
func Collaborator(op string, status int, err error) error {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return &CollaboratorError{Op: op, Status: status, Err: err}
}
