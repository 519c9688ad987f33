package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

// JobRepository keeps the step queue in the jobs table. Claims use FOR UPDATE SKIP LOCKED
// so several pollers can share the table.
type JobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewJobRepository(db *sql.DB, logger *slog.Logger) *JobRepository {
	return &JobRepository{db: db, logger: logger}
}

func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, enrollment_id, step_id, not_before, attempts, locked_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			not_before = EXCLUDED.not_before
		  , attempts = EXCLUDED.attempts
		  , locked_until = EXCLUDED.locked_until
	`, job.ID, job.EnrollmentID, job.StepID, job.NotBefore, job.Attempts, job.LockedUntil, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	return nil
}

func (r *JobRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE jobs SET
			attempts = attempts + 1
		  , locked_until = $2
		WHERE id IN (
			SELECT id FROM jobs
			WHERE not_before <= $1 AND (locked_until IS NULL OR locked_until <= $1)
			ORDER BY not_before
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, enrollment_id, step_id, not_before, attempts, locked_until, created_at
	`, now, now.Add(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	jobs := make([]*models.Job, 0)

	for rows.Next() {
		var (
			job         models.Job
			lockedUntil sql.NullTime
		)

		err := rows.Scan(&job.ID, &job.EnrollmentID, &job.StepID, &job.NotBefore, &job.Attempts, &lockedUntil,
			&job.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		if lockedUntil.Valid {
			job.LockedUntil = &lockedUntil.Time
		}

		jobs = append(jobs, &job)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].NotBefore.Before(jobs[j].NotBefore)
	})

	return jobs, nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewJobError("Delete", id, persistence.ErrJobNotFound)
	}

	return nil
}

func (r *JobRepository) CountByEnrollment(ctx context.Context, enrollmentID, exceptJobID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE enrollment_id = $1 AND id <> $2`,
		enrollmentID, exceptJobID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	return count, nil
}
