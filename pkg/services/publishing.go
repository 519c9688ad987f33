package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

// Publishing moves workflows in and out of the active status.
type Publishing struct {
	persistence persistence.Persistence
	validator   *GraphValidator
	now         func() time.Time
}

func NewPublishing(persistence persistence.Persistence, validator *GraphValidator) *Publishing {
	return &Publishing{
		persistence: persistence,
		validator:   validator,
		now:         time.Now,
	}
}

// PublishWorkflow validates the workflow and makes it active, so new trigger events enroll
// contacts into it.
func (p *Publishing) PublishWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := p.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if err := p.validator.ValidateForPublishing(workflow); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	return p.setStatus(ctx, workflow, models.WorkflowStatusActive)
}

// PauseWorkflow stops new enrollments. Enrollments in flight keep running.
func (p *Publishing) PauseWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := p.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if !workflow.IsActive() {
		return nil, fmt.Errorf("%w: workflow is %s", ErrInvalidStatus, workflow.Status)
	}

	return p.setStatus(ctx, workflow, models.WorkflowStatusPaused)
}

func (p *Publishing) setStatus(ctx context.Context, workflow *models.Workflow, status models.WorkflowStatus) (*models.Workflow, error) {
	workflow.Status = status
	workflow.UpdatedAt = p.now().UTC()

	if err := p.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}
