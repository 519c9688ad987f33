package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/google/uuid"
)

const workflowColumns = `
	id
  , name
  , description
  , status
  , trigger_type
  , trigger_config
  , created_at
  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows from the database.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at DESC`)
}

func (r *WorkflowRepository) FindActiveByTrigger(ctx context.Context, triggerType string) ([]*models.Workflow, error) {
	return r.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE trigger_type = $1 AND status = $2 ORDER BY created_at`,
		triggerType, models.WorkflowStatusActive,
	)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	err = r.loadGraph(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Save upserts the workflow and replaces its steps and connections in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	triggerConfig, err := marshalJSON(workflow.TriggerConfig)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, status, trigger_type, trigger_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , status = EXCLUDED.status
		  , trigger_type = EXCLUDED.trigger_type
		  , trigger_config = EXCLUDED.trigger_config
		  , updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.Name, workflow.Description, workflow.Status, workflow.TriggerType,
		triggerConfig, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	err = saveSteps(ctx, tx, workflow)
	if err != nil {
		return err
	}

	err = saveConnections(ctx, tx, workflow)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err = r.loadGraph(ctx, workflow)
		if err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerConfig []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.TriggerType,
		&triggerConfig,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.TriggerConfig, err = unmarshalJSON(triggerConfig)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (r *WorkflowRepository) loadGraph(ctx context.Context, workflow *models.Workflow) error {
	steps, err := r.loadSteps(ctx, workflow.ID)
	if err != nil {
		return err
	}

	connections, err := r.loadConnections(ctx, workflow.ID)
	if err != nil {
		return err
	}

	workflow.Steps = steps
	workflow.Connections = connections

	return nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, type, COALESCE(action_type, ''), name, config, position_x, position_y
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY sort_order
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		var (
			step   models.WorkflowStep
			config []byte
		)

		err := rows.Scan(&step.ID, &step.WorkflowID, &step.Type, &step.ActionType, &step.Name, &config,
			&step.PositionX, &step.PositionY)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		step.Config, err = unmarshalJSON(config)
		if err != nil {
			return nil, err
		}

		steps = append(steps, &step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return steps, nil
}

func (r *WorkflowRepository) loadConnections(ctx context.Context, workflowID string) ([]*models.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, source_step_id, target_step_id, source_handle
		FROM workflow_connections
		WHERE workflow_id = $1
		ORDER BY sort_order
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow connections: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	connections := make([]*models.Connection, 0)

	for rows.Next() {
		var (
			connection models.Connection
			handle     sql.NullString
		)

		err := rows.Scan(&connection.ID, &connection.WorkflowID, &connection.SourceStepID,
			&connection.TargetStepID, &handle)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow connection: %w", err)
		}

		if handle.Valid {
			connection.SourceHandle = &handle.String
		}

		connections = append(connections, &connection)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow connections: %w", err)
	}

	return connections, nil
}

func saveSteps(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM workflow_steps WHERE workflow_id = $1`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear workflow steps: %w", err)
	}

	for position, step := range workflow.Steps {
		step.WorkflowID = workflow.ID

		config, err := marshalJSON(step.Config)
		if err != nil {
			return err
		}

		var actionType sql.NullString
		if step.ActionType != "" {
			actionType = sql.NullString{String: step.ActionType, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_steps (workflow_id, id, type, action_type, name, config, position_x, position_y, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, workflow.ID, step.ID, step.Type, actionType, step.Name, config, step.PositionX, step.PositionY, position)
		if err != nil {
			return fmt.Errorf("failed to insert workflow step %s: %w", step.ID, err)
		}
	}

	return nil
}

func saveConnections(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM workflow_connections WHERE workflow_id = $1`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear workflow connections: %w", err)
	}

	for position, connection := range workflow.Connections {
		connection.WorkflowID = workflow.ID

		if connection.ID == "" {
			connection.ID = uuid.NewString()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_connections (workflow_id, id, source_step_id, target_step_id, source_handle, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, workflow.ID, connection.ID, connection.SourceStepID, connection.TargetStepID, connection.SourceHandle, position)
		if err != nil {
			return fmt.Errorf("failed to insert workflow connection %s: %w", connection.ID, err)
		}
	}

	return nil
}
