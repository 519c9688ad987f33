package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

const enrollmentColumns = `
	id
  , workflow_id
  , contact_id
  , status
  , current_step_id
  , context
  , enrolled_at
  , completed_at
  , exit_reason
  , updated_at
`

type EnrollmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEnrollmentRepository(db *sql.DB, logger *slog.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: logger}
}

// Create relies on the partial unique index to reject a second in-flight enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollmentContext, err := marshalJSON(enrollment.Context)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO enrollments (`+enrollmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, enrollment.ID, enrollment.WorkflowID, enrollment.ContactID, enrollment.Status, enrollment.CurrentStepID,
		enrollmentContext, enrollment.EnrolledAt, enrollment.CompletedAt, enrollment.ExitReason, enrollment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewEnrollmentError("Create", enrollment.ID, persistence.ErrEnrollmentInFlight)
		}

		return fmt.Errorf("failed to insert enrollment: %w", err)
	}

	return nil
}

func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollmentContext, err := marshalJSON(enrollment.Context)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE enrollments SET
			status = $2
		  , current_step_id = $3
		  , context = $4
		  , completed_at = $5
		  , exit_reason = $6
		  , updated_at = $7
		WHERE id = $1 AND status IN ('active', 'waiting')
	`, enrollment.ID, enrollment.Status, enrollment.CurrentStepID, enrollmentContext, enrollment.CompletedAt,
		enrollment.ExitReason, enrollment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return r.missedUpdate(ctx, enrollment.ID)
	}

	return nil
}

// missedUpdate tells a finished enrollment apart from a missing one.
func (r *EnrollmentRepository) missedUpdate(ctx context.Context, id string) error {
	var exists bool

	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM enrollments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}

	if exists {
		return persistence.NewEnrollmentError("Update", id, persistence.ErrEnrollmentFinished)
	}

	return persistence.NewEnrollmentError("Update", id, persistence.ErrEnrollmentNotFound)
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEnrollmentError("GetByID", id, persistence.ErrEnrollmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

func (r *EnrollmentRepository) FindInFlight(ctx context.Context, workflowID, contactID string) (*models.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE workflow_id = $1 AND contact_id = $2 AND status IN ('active', 'waiting')
		LIMIT 1
	`, workflowID, contactID)

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEnrollmentNotFound
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

func (r *EnrollmentRepository) List(ctx context.Context, filter persistence.EnrollmentFilter) ([]*models.Enrollment, error) {
	var (
		conditions []string
		args       []any
	)

	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}

	if filter.WorkflowID != "" {
		add("workflow_id", filter.WorkflowID)
	}

	if filter.ContactID != "" {
		add("contact_id", filter.ContactID)
	}

	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	query += ` ORDER BY enrolled_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	enrollments := make([]*models.Enrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, enrollment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	var (
		enrollment        models.Enrollment
		currentStepID     sql.NullString
		enrollmentContext []byte
		completedAt       sql.NullTime
	)

	err := row.Scan(
		&enrollment.ID,
		&enrollment.WorkflowID,
		&enrollment.ContactID,
		&enrollment.Status,
		&currentStepID,
		&enrollmentContext,
		&enrollment.EnrolledAt,
		&completedAt,
		&enrollment.ExitReason,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentStepID.Valid {
		enrollment.CurrentStepID = &currentStepID.String
	}

	if completedAt.Valid {
		enrollment.CompletedAt = &completedAt.Time
	}

	enrollment.Context, err = unmarshalJSON(enrollmentContext)
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}
