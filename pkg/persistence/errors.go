// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrStepNotFound       = errors.New("step not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrJobNotFound        = errors.New("job not found")

	// ErrEnrollmentInFlight indicates the contact already has an active or waiting
	// enrollment in the workflow.
	ErrEnrollmentInFlight = errors.New("enrollment already in flight")

	// ErrEnrollmentFinished is returned by updates to an enrollment that already reached a
	// terminal status.
	ErrEnrollmentFinished = errors.New("enrollment already finished")
)

// RecordError wraps a repository failure with the operation and record it concerned.
type RecordError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Create")
	Entity string // Record kind, e.g. "workflow" or "enrollment"
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "workflow", ID: workflowID, Err: err}
}

func NewEnrollmentError(op, enrollmentID string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "enrollment", ID: enrollmentID, Err: err}
}

func NewContactError(op, contactID string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "contact", ID: contactID, Err: err}
}

func NewJobError(op, jobID string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "job", ID: jobID, Err: err}
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

func IsEnrollmentNotFound(err error) bool {
	return errors.Is(err, ErrEnrollmentNotFound)
}

func IsEnrollmentFinished(err error) bool {
	return errors.Is(err, ErrEnrollmentFinished)
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrWorkflowNotFound, ErrEnrollmentNotFound, ErrStepNotFound, ErrContactNotFound,
		ErrTagNotFound, ErrTemplateNotFound, ErrJobNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
