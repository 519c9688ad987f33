// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/nurture/pkg/models"
	"github.com/google/uuid"
)

// WorkflowBuilder assembles a workflow graph step by step.
type WorkflowBuilder struct {
	workflow *models.Workflow
}

// NewWorkflow starts an active workflow on the given trigger type.
func NewWorkflow(triggerType string) *WorkflowBuilder {
	return &WorkflowBuilder{workflow: &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Status:      models.WorkflowStatusActive,
		TriggerType: triggerType,
	}}
}

// WithStatus sets the workflow status.
func (b *WorkflowBuilder) WithStatus(status models.WorkflowStatus) *WorkflowBuilder {
	b.workflow.Status = status

	return b
}

// WithTriggerConfig sets the trigger filter.
func (b *WorkflowBuilder) WithTriggerConfig(config map[string]any) *WorkflowBuilder {
	b.workflow.TriggerConfig = config

	return b
}

// Trigger adds a trigger step.
func (b *WorkflowBuilder) Trigger(id string) *WorkflowBuilder {
	return b.step(&models.WorkflowStep{ID: id, Type: models.StepTypeTrigger})
}

// Action adds an action step of the given handler type.
func (b *WorkflowBuilder) Action(id, actionType string, config map[string]any) *WorkflowBuilder {
	return b.step(&models.WorkflowStep{ID: id, Type: models.StepTypeAction, ActionType: actionType, Config: config})
}

// Condition adds a condition step comparing a contact field.
func (b *WorkflowBuilder) Condition(id, field, operator string, value any) *WorkflowBuilder {
	return b.step(&models.WorkflowStep{
		ID:     id,
		Type:   models.StepTypeCondition,
		Config: map[string]any{"field": field, "operator": operator, "value": value},
	})
}

// Delay adds a delay step.
func (b *WorkflowBuilder) Delay(id string, delay int, unit models.DelayUnit) *WorkflowBuilder {
	return b.step(&models.WorkflowStep{
		ID:     id,
		Type:   models.StepTypeDelay,
		Config: map[string]any{"delay": float64(delay), "unit": string(unit)},
	})
}

// Connect adds an unconditional edge.
func (b *WorkflowBuilder) Connect(source, target string) *WorkflowBuilder {
	return b.connect(source, target, nil)
}

// Branch adds an edge labeled with a condition branch.
func (b *WorkflowBuilder) Branch(source, branch, target string) *WorkflowBuilder {
	return b.connect(source, target, &branch)
}

// Build returns the workflow.
func (b *WorkflowBuilder) Build() *models.Workflow {
	return b.workflow
}

func (b *WorkflowBuilder) step(step *models.WorkflowStep) *WorkflowBuilder {
	step.WorkflowID = b.workflow.ID
	if step.Name == "" {
		step.Name = fmt.Sprintf("%s %s", step.Type, step.ID)
	}

	if step.Config == nil {
		step.Config = map[string]any{}
	}

	b.workflow.Steps = append(b.workflow.Steps, step)

	return b
}

func (b *WorkflowBuilder) connect(source, target string, handle *string) *WorkflowBuilder {
	b.workflow.Connections = append(b.workflow.Connections, &models.Connection{
		ID:           uuid.New().String(),
		WorkflowID:   b.workflow.ID,
		SourceStepID: source,
		TargetStepID: target,
		SourceHandle: handle,
	})

	return b
}

// CreateTestContact creates a contact with default values that can be overridden.
func CreateTestContact(overrides ...func(*models.Contact)) *models.Contact {
	contact := &models.Contact{
		ID:     uuid.New().String(),
		Name:   "Maria Silva",
		Email:  "maria@example.com",
		Phone:  "(11) 98765-4321",
		Status: "lead",
		City:   "São Paulo",
	}

	for _, override := range overrides {
		override(contact)
	}

	return contact
}
