package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/models"
)

type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.StepExecution) error {
	var (
		result []byte
		err    error
	)

	if execution.Result != nil {
		result, err = marshalJSON(execution.Result)
		if err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO step_executions (id, enrollment_id, step_id, status, result, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , result = EXCLUDED.result
		  , error = EXCLUDED.error
		  , completed_at = EXCLUDED.completed_at
	`, execution.ID, execution.EnrollmentID, execution.StepID, execution.Status, result, execution.Error,
		execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save step execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]*models.StepExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, enrollment_id, step_id, status, result, error, started_at, completed_at
		FROM step_executions
		WHERE enrollment_id = $1
		ORDER BY started_at, id
	`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.StepExecution, 0)

	for rows.Next() {
		var (
			execution   models.StepExecution
			result      []byte
			completedAt sql.NullTime
		)

		err := rows.Scan(&execution.ID, &execution.EnrollmentID, &execution.StepID, &execution.Status, &result,
			&execution.Error, &execution.StartedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step execution: %w", err)
		}

		if completedAt.Valid {
			execution.CompletedAt = &completedAt.Time
		}

		execution.Result, err = unmarshalJSON(result)
		if err != nil {
			return nil, err
		}

		executions = append(executions, &execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating step executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) CountProcessing(ctx context.Context, enrollmentID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM step_executions WHERE enrollment_id = $1 AND status = $2`,
		enrollmentID, models.ExecutionStatusProcessing,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processing executions: %w", err)
	}

	return count, nil
}
