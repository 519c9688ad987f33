package models

import (
	"context"
	"fmt"
	"time"

	"github.com/qmuntal/stateless"
)

// EnrollmentStatus is the state of one contact's traversal through a workflow.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusWaiting   EnrollmentStatus = "waiting"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusFailed    EnrollmentStatus = "failed"
	EnrollmentStatusExited    EnrollmentStatus = "exited"
)

// InFlight reports whether the enrollment can still run steps.
func (s EnrollmentStatus) InFlight() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusWaiting
}

func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusFailed || s == EnrollmentStatusExited
}

// Enrollment is one contact's traversal instance through one workflow.
type Enrollment struct {
	ID            string           `json:"id"`
	WorkflowID    string           `json:"workflow_id"               validate:"required"`
	ContactID     string           `json:"contact_id"                validate:"required"`
	Status        EnrollmentStatus `json:"status"                    validate:"required,oneof=active waiting completed failed exited"`
	CurrentStepID *string          `json:"current_step_id,omitempty"`
	Context       map[string]any   `json:"context"`
	EnrolledAt    time.Time        `json:"enrolled_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	ExitReason    string           `json:"exit_reason,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type enrollmentTrigger string

const (
	triggerResume   enrollmentTrigger = "resume"
	triggerWait     enrollmentTrigger = "wait"
	triggerComplete enrollmentTrigger = "complete"
	triggerFail     enrollmentTrigger = "fail"
	triggerExit     enrollmentTrigger = "exit"
)

var triggerByTarget = map[EnrollmentStatus]enrollmentTrigger{
	EnrollmentStatusActive:    triggerResume,
	EnrollmentStatusWaiting:   triggerWait,
	EnrollmentStatusCompleted: triggerComplete,
	EnrollmentStatusFailed:    triggerFail,
	EnrollmentStatusExited:    triggerExit,
}

// EnrollmentMachine builds the lifecycle machine for an enrollment currently in state.
// Terminal states have no outgoing transitions.
func EnrollmentMachine(state EnrollmentStatus) *stateless.StateMachine {
	machine := stateless.NewStateMachine(state)

	machine.Configure(EnrollmentStatusActive).
		Ignore(triggerResume).
		Permit(triggerWait, EnrollmentStatusWaiting).
		Permit(triggerComplete, EnrollmentStatusCompleted).
		Permit(triggerFail, EnrollmentStatusFailed).
		Permit(triggerExit, EnrollmentStatusExited)

	machine.Configure(EnrollmentStatusWaiting).
		Ignore(triggerWait).
		Permit(triggerResume, EnrollmentStatusActive).
		Permit(triggerComplete, EnrollmentStatusCompleted).
		Permit(triggerFail, EnrollmentStatusFailed).
		Permit(triggerExit, EnrollmentStatusExited)

	machine.Configure(EnrollmentStatusCompleted)
	machine.Configure(EnrollmentStatusFailed)
	machine.Configure(EnrollmentStatusExited)

	return machine
}

// Transition moves the enrollment to the target status, rejecting moves out of terminal
// states. Reaching a terminal status stamps CompletedAt.
func (e *Enrollment) Transition(ctx context.Context, to EnrollmentStatus, now time.Time) error {
	trigger, ok := triggerByTarget[to]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	machine := EnrollmentMachine(e.Status)
	if err := machine.FireCtx(ctx, trigger); err != nil {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}

	e.Status = machine.MustState().(EnrollmentStatus)
	e.UpdatedAt = now

	if e.Status.Terminal() {
		completedAt := now
		e.CompletedAt = &completedAt
	}

	return nil
}

// CanTransition reports whether the move is permitted without mutating the enrollment.
func (e *Enrollment) CanTransition(to EnrollmentStatus) bool {
	trigger, ok := triggerByTarget[to]
	if !ok {
		return false
	}

	permitted, err := EnrollmentMachine(e.Status).CanFire(trigger)

	return err == nil && permitted
}
