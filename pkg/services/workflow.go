package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/google/uuid"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
	validator   *GraphValidator
	now         func() time.Time
}

func NewWorkflow(persistence persistence.Persistence, validator *GraphValidator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validator:   validator,
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest filters and pages workflow listings. Zero values match everything.
type ListWorkflowsRequest struct {
	Status      models.WorkflowStatus
	TriggerType string
	Limit       int
	Offset      int
}

type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int                `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 || req.Offset < 0 {
		return nil, fmt.Errorf("%w: limit must be at most 100 and offset not negative", ErrInvalidRequest)
	}

	if req.Status != "" && !validStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	all, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	filtered := slices.DeleteFunc(all, func(workflow *models.Workflow) bool {
		return (req.Status != "" && workflow.Status != req.Status) ||
			(req.TriggerType != "" && workflow.TriggerType != req.TriggerType)
	})

	slices.SortFunc(filtered, func(a, b *models.Workflow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(filtered)
	start := min(req.Offset, total)
	end := min(start+req.Limit, total)

	return &ListWorkflowsResponse{
		Workflows:   filtered[start:end],
		TotalCount:  total,
		HasNextPage: end < total,
	}, nil
}

func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create stores a new draft workflow, filling in missing ids.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := w.now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Status = models.WorkflowStatusDraft
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	assignIDs(workflow)

	if err := w.validator.ValidateStructure(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces the definition of a draft or paused workflow. Status changes go through
// Publishing.
func (w *Workflow) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.IsActive() {
		return nil, ErrCannotModifyActive
	}

	workflow.ID = existing.ID
	workflow.Status = existing.Status
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = w.now().UTC()
	assignIDs(workflow)

	if err := w.validator.ValidateStructure(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.persistence.WorkflowRepository().Delete(ctx, id)
}

func assignIDs(workflow *models.Workflow) {
	for _, step := range workflow.Steps {
		if strings.TrimSpace(step.ID) == "" {
			step.ID = uuid.New().String()
		}

		step.WorkflowID = workflow.ID
	}

	for _, connection := range workflow.Connections {
		if connection.ID == "" {
			connection.ID = uuid.New().String()
		}

		connection.WorkflowID = workflow.ID
	}
}

func validStatus(status models.WorkflowStatus) bool {
	switch status {
	case models.WorkflowStatusDraft, models.WorkflowStatusActive, models.WorkflowStatusPaused:
		return true
	default:
		return false
	}
}
