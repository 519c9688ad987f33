package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusProcessing ExecutionStatus = "processing"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
)

// StepExecution is the audit record of one (enrollment, step) invocation. A fresh record is
// written on every invocation.
type StepExecution struct {
	ID           string          `json:"id"`
	EnrollmentID string          `json:"enrollment_id"`
	StepID       string          `json:"step_id"`
	Status       ExecutionStatus `json:"status"`
	Result       map[string]any  `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Branch returns the branch key recorded by a condition step, if any.
func (e *StepExecution) Branch() string {
	if e.Result == nil {
		return ""
	}

	branch, _ := e.Result["branch"].(string)

	return branch
}
