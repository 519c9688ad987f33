package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	memdb "github.com/hashicorp/go-memdb"
)

type WorkflowRepository struct {
	db *memdb.MemDB
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.Workflow, error) {
	txn := r.db.Txn(false)

	it, err := txn.Get(tableWorkflows, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return collect(it, cloneWorkflow), nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	raw, err := r.db.Txn(false).First(tableWorkflows, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if raw == nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return cloneWorkflow(raw.(*models.Workflow)), nil
}

func (r *WorkflowRepository) FindActiveByTrigger(_ context.Context, triggerType string) ([]*models.Workflow, error) {
	it, err := r.db.Txn(false).Get(tableWorkflows, "trigger", triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to find workflows by trigger: %w", err)
	}

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range collect(it, cloneWorkflow) {
		if workflow.IsActive() {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID
	}

	for _, connection := range workflow.Connections {
		connection.WorkflowID = workflow.ID
	}

	return insert(r.db, tableWorkflows, cloneWorkflow(workflow))
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	deleted, err := txn.DeleteAll(tableWorkflows, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	if deleted == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	txn.Commit()

	return nil
}
