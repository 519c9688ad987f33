package engine

import (
	"errors"
	"fmt"
)

// ErrExecutionSuperseded marks a processing record replaced by a later delivery of its step.
var ErrExecutionSuperseded = errors.New("execution superseded by a later delivery")

// StepError is returned when an action handler fails with an error rather than a logical
// failure. The scheduling layer retries on it.
type StepError struct {
	EnrollmentID string
	StepID       string
	Attempt      int
	Final        bool
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s of enrollment %s failed on attempt %d: %v", e.StepID, e.EnrollmentID, e.Attempt, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
