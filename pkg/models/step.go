package models

import (
	"fmt"
)

// StepType is the closed set of node kinds the engine knows how to interpret.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeDelay     StepType = "delay"
)

// Branch labels produced by condition steps.
const (
	BranchYes = "yes"
	BranchNo  = "no"
)

func (t StepType) Valid() bool {
	switch t {
	case StepTypeTrigger, StepTypeAction, StepTypeCondition, StepTypeDelay:
		return true
	default:
		return false
	}
}

// ParseStepType converts a persisted string into a StepType.
func ParseStepType(value string) (StepType, error) {
	stepType := StepType(value)
	if !stepType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStepType, value)
	}

	return stepType, nil
}

// WorkflowStep is a node of the workflow graph. Config stays untyped at the persistence edge
// and is parsed into the typed configs below before the engine or a handler uses it.
type WorkflowStep struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Type       StepType       `json:"type"                  validate:"required,oneof=trigger action condition delay"`
	ActionType string         `json:"action_type,omitempty" validate:"required_if=Type action"`
	Name       string         `json:"name"`
	Config     map[string]any `json:"config"`
	PositionX  int            `json:"position_x"`
	PositionY  int            `json:"position_y"`
}

func (s *WorkflowStep) IsAction() bool {
	return s.Type == StepTypeAction
}
