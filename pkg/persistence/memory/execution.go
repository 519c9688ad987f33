package memory

import (
	"context"
	"fmt"

	"github.com/dukex/nurture/pkg/models"
	memdb "github.com/hashicorp/go-memdb"
)

type ExecutionRepository struct {
	db *memdb.MemDB
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.StepExecution) error {
	return insert(r.db, tableExecutions, cloneExecution(execution))
}

func (r *ExecutionRepository) ListByEnrollment(_ context.Context, enrollmentID string) ([]*models.StepExecution, error) {
	it, err := r.db.Txn(false).Get(tableExecutions, "enrollment", enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return collect(it, cloneExecution), nil
}

func (r *ExecutionRepository) CountProcessing(ctx context.Context, enrollmentID string) (int, error) {
	executions, err := r.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusProcessing {
			count++
		}
	}

	return count, nil
}
