// Package services holds the workflow management operations behind the API: editing,
// validation and publishing.
package services

import (
	"errors"
	"fmt"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidStatus        = errors.New("invalid workflow status")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrTriggerStepRequired  = errors.New("workflow must have at least one trigger step")
	ErrActionStepRequired   = errors.New("workflow must have at least one action step")
	ErrInvalidStep          = errors.New("invalid step")
	ErrInvalidStepConfig    = errors.New("invalid step config")
	ErrUnknownActionType    = errors.New("unknown action type")
	ErrInvalidConnection    = errors.New("invalid connection")
)

// Conflicts (409 Conflict).
var (
	ErrCannotModifyActive = errors.New("cannot modify an active workflow, pause it first")
)

// ServiceError wraps a service failure with the operation and an API error code.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports errors that map to HTTP 400.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest, ErrInvalidStatus, ErrWorkflowNil, ErrWorkflowNameRequired,
		ErrTriggerStepRequired, ErrActionStepRequired, ErrInvalidStep, ErrInvalidStepConfig,
		ErrUnknownActionType, ErrInvalidConnection,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// IsConflictError reports errors that map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyActive)
}

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
