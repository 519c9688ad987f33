// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo   *WorkflowRepository
	enrollmentRepo *EnrollmentRepository
	executionRepo  *ExecutionRepository
	jobRepo        *JobRepository
	contactRepo    *ContactRepository
	tagRepo        *TagRepository
	scoreRepo      *ScoreRepository
	templateRepo   *TemplateRepository
	userRepo       *UserRepository
}

// NewPersistence connects to the database and applies pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		workflowRepo:   NewWorkflowRepository(database, logger),
		enrollmentRepo: NewEnrollmentRepository(database, logger),
		executionRepo:  NewExecutionRepository(database, logger),
		jobRepo:        NewJobRepository(database, logger),
		contactRepo:    NewContactRepository(database, logger),
		tagRepo:        NewTagRepository(database, logger),
		scoreRepo:      NewScoreRepository(database, logger),
		templateRepo:   NewTemplateRepository(database),
		userRepo:       NewUserRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository     { return p.workflowRepo }
func (p *Persistence) EnrollmentRepository() persistence.EnrollmentRepository { return p.enrollmentRepo }
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository   { return p.executionRepo }
func (p *Persistence) JobRepository() persistence.JobRepository               { return p.jobRepo }
func (p *Persistence) ContactRepository() persistence.ContactRepository       { return p.contactRepo }
func (p *Persistence) TagRepository() persistence.TagRepository               { return p.tagRepo }
func (p *Persistence) ScoreRepository() persistence.ScoreRepository           { return p.scoreRepo }
func (p *Persistence) TemplateRepository() persistence.TemplateRepository     { return p.templateRepo }
func (p *Persistence) UserRepository() persistence.UserRepository             { return p.userRepo }

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func marshalJSON(value map[string]any) ([]byte, error) {
	if value == nil {
		value = map[string]any{}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON column: %w", err)
	}

	return data, nil
}

func unmarshalJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var value map[string]any

	err := json.Unmarshal(data, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}

	return value, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
