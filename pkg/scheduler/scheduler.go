// Package scheduler is the durable continuation layer: the Scheduler queues step invocations,
// the Poller hands due jobs to the event bus and the Worker runs them through the engine.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/google/uuid"
)

// Scheduler stores step invocations in a JobRepository. It never runs a step itself.
type Scheduler struct {
	jobs   persistence.JobRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduler(jobs persistence.JobRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		logger: logger.With("module", "scheduler"),
		now:    time.Now,
	}
}

func (s *Scheduler) Enqueue(ctx context.Context, enrollmentID, stepID string, notBefore time.Time) (*models.Job, error) {
	job := &models.Job{
		ID:           uuid.New().String(),
		EnrollmentID: enrollmentID,
		StepID:       stepID,
		NotBefore:    notBefore.UTC(),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue step %s: %w", stepID, err)
	}

	s.logger.DebugContext(ctx, "Step enqueued",
		"job_id", job.ID, "enrollment_id", enrollmentID, "step_id", stepID, "not_before", job.NotBefore)

	return job, nil
}

// Ack deletes a finished job. Jobs already gone are fine: acks race with lease re-delivery.
func (s *Scheduler) Ack(ctx context.Context, jobID string) error {
	if jobID == "" {
		return nil
	}

	err := s.jobs.Delete(ctx, jobID)
	if err != nil && !persistence.IsNotFound(err) {
		return fmt.Errorf("failed to ack job %s: %w", jobID, err)
	}

	return nil
}

func (s *Scheduler) Pending(ctx context.Context, enrollmentID, exceptJobID string) (int, error) {
	return s.jobs.CountByEnrollment(ctx, enrollmentID, exceptJobID)
}
