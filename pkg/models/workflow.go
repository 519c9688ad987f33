// Package models defines the domain models of the contact workflow automation engine.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, never enrolls
	WorkflowStatusActive WorkflowStatus = "active" // Published, enrolls contacts
	WorkflowStatusPaused WorkflowStatus = "paused" // Published before, enrollment suspended
)

// Workflow is a named automation definition owning a graph of steps and connections.
type Workflow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"                     validate:"required,min=3"`
	Description   string          `json:"description"`
	Status        WorkflowStatus  `json:"status"                   validate:"required,oneof=draft active paused"`
	TriggerType   string          `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Steps         []*WorkflowStep `json:"steps"`
	Connections   []*Connection   `json:"connections"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// TriggerStep returns the first trigger-typed step, which the engine treats as the graph root.
func (w *Workflow) TriggerStep() *WorkflowStep {
	for _, step := range w.Steps {
		if step.Type == StepTypeTrigger {
			return step
		}
	}

	return nil
}

// Step finds a step by its id.
func (w *Workflow) Step(id string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// Outgoing returns the connections leaving a step in declaration order. A non-empty branch
// keeps only the edges labeled with it.
func (w *Workflow) Outgoing(stepID, branch string) []*Connection {
	connections := make([]*Connection, 0)

	for _, connection := range w.Connections {
		if connection.SourceStepID != stepID {
			continue
		}

		if branch != "" && connection.Branch() != branch {
			continue
		}

		connections = append(connections, connection)
	}

	return connections
}

// CountSteps returns how many steps of the given type the workflow holds.
func (w *Workflow) CountSteps(stepType StepType) int {
	count := 0

	for _, step := range w.Steps {
		if step.Type == stepType {
			count++
		}
	}

	return count
}

// Connection is a directed edge between two steps, optionally labeled with a branch.
type Connection struct {
	ID           string  `json:"id"`
	WorkflowID   string  `json:"workflow_id"`
	SourceStepID string  `json:"source_step_id"          validate:"required"`
	TargetStepID string  `json:"target_step_id"          validate:"required"`
	SourceHandle *string `json:"source_handle,omitempty"`
}

// Branch returns the edge label, or an empty string for unconditional edges.
func (c *Connection) Branch() string {
	if c.SourceHandle == nil {
		return ""
	}

	return *c.SourceHandle
}
