package models

import "time"

// Job is a durable request to run one step of one enrollment at or after NotBefore.
type Job struct {
	ID           string     `json:"id"`
	EnrollmentID string     `json:"enrollment_id"`
	StepID       string     `json:"step_id"`
	NotBefore    time.Time  `json:"not_before"`
	Attempts     int        `json:"attempts"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Due reports whether the job may be claimed at now.
func (j *Job) Due(now time.Time) bool {
	if j.NotBefore.After(now) {
		return false
	}

	return j.LockedUntil == nil || !j.LockedUntil.After(now)
}
