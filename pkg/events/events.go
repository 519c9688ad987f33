// Package events defines the messages exchanged over the event bus between the scheduler,
// the workers and trigger dispatch.
package events

import (
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "nurture.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// StepDueEvent asks a worker to run one step of one enrollment.
	StepDueEvent EventType = "step.due"
	// TriggerFiredEvent carries a domain event to trigger dispatch.
	TriggerFiredEvent EventType = "trigger.fired"
	// EnrollmentFinishedEvent is published when an enrollment reaches a terminal status.
	EnrollmentFinishedEvent EventType = "enrollment.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type StepDue struct {
	BaseEvent

	JobID        string    `json:"job_id"`
	EnrollmentID string    `json:"enrollment_id"`
	StepID       string    `json:"step_id"`
	Delivery     int       `json:"delivery"`
	NotBefore    time.Time `json:"not_before"`
}

func (s StepDue) GetType() EventType {
	return StepDueEvent
}

// NewStepDue builds the event for a claimed job. Delivery counts how many times the job
// has been claimed, including this one.
func NewStepDue(job *models.Job) StepDue {
	return StepDue{
		BaseEvent:    NewBaseEvent(StepDueEvent, ""),
		JobID:        job.ID,
		EnrollmentID: job.EnrollmentID,
		StepID:       job.StepID,
		Delivery:     job.Attempts,
		NotBefore:    job.NotBefore,
	}
}

type TriggerFired struct {
	BaseEvent

	Trigger models.TriggerEvent `json:"trigger"`
}

func (t TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

func NewTriggerFired(trigger models.TriggerEvent) TriggerFired {
	base := NewBaseEvent(TriggerFiredEvent, "")
	if origin := trigger.OriginatingWorkflowID(); origin != "" {
		base.WorkflowID = origin
	}

	return TriggerFired{BaseEvent: base, Trigger: trigger}
}

type EnrollmentFinished struct {
	BaseEvent

	EnrollmentID string                  `json:"enrollment_id"`
	ContactID    string                  `json:"contact_id"`
	Status       models.EnrollmentStatus `json:"status"`
	ExitReason   string                  `json:"exit_reason,omitempty"`
}

func (e EnrollmentFinished) GetType() EventType {
	return EnrollmentFinishedEvent
}

func NewEnrollmentFinished(enrollment *models.Enrollment) EnrollmentFinished {
	return EnrollmentFinished{
		BaseEvent:    NewBaseEvent(EnrollmentFinishedEvent, enrollment.WorkflowID),
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
		Status:       enrollment.Status,
		ExitReason:   enrollment.ExitReason,
	}
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
