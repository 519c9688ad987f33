// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/protocol"
)

// CreateWorkflowRequest represents the request body for creating a new draft workflow.
type CreateWorkflowRequest struct {
	Name          string                 `json:"name"                     validate:"required,min=3"`
	Description   string                 `json:"description"`
	TriggerType   string                 `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any         `json:"trigger_config,omitempty"`
	Steps         []*models.WorkflowStep `json:"steps"                    validate:"dive"`
	Connections   []*models.Connection   `json:"connections"              validate:"dive"`
}

// UpdateWorkflowRequest represents the request body for updating a draft or paused workflow.
// Nil fields keep their stored value.
type UpdateWorkflowRequest struct {
	Name          *string                `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description   *string                `json:"description,omitempty"`
	TriggerType   *string                `json:"trigger_type,omitempty"   validate:"omitempty,min=1"`
	TriggerConfig map[string]any         `json:"trigger_config,omitempty"`
	Steps         []*models.WorkflowStep `json:"steps,omitempty"          validate:"omitempty,dive"`
	Connections   []*models.Connection   `json:"connections,omitempty"    validate:"omitempty,dive"`
}

type ExitEnrollmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// MergeTagRequest carries a template checked against what a trigger provides.
type MergeTagRequest struct {
	Text        string `json:"text"         validate:"required"`
	TriggerType string `json:"trigger_type"`
}

type MergeTagValidationResponse struct {
	Valid     bool                       `json:"valid"`
	Variables []string                   `json:"variables"`
	Errors    []mergetag.ValidationError `json:"errors"`
}

// ActionResponse describes one registered action type.
type ActionResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

func TransformActionResponse(factory protocol.ActionFactory) ActionResponse {
	return ActionResponse{
		ID:          factory.ID(),
		Name:        factory.Name(),
		Description: factory.Description(),
		Schema:      factory.Schema(),
	}
}
