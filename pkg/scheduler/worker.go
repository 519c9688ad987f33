package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/models"
	"github.com/sethvargo/go-retry"
)

// StepProcessor is the engine surface the worker drives.
type StepProcessor interface {
	ProcessStep(ctx context.Context, req engine.StepRequest) error
	Enrollment(ctx context.Context, id string) (*models.Enrollment, error)
	FailEnrollment(ctx context.Context, enrollment *models.Enrollment, cause error) error
}

type WorkerConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}

	if c.Backoff <= 0 {
		c.Backoff = 10 * time.Second
	}

	return c
}

var ErrDeliveriesExhausted = errors.New("step delivered more times than allowed")

// Worker consumes step.due events and runs the step through the engine, retrying handler
// errors with a constant backoff. The job is acknowledged once the step is settled, whatever
// the outcome.
type Worker struct {
	id        string
	processor StepProcessor
	scheduler *Scheduler
	config    WorkerConfig
	logger    *slog.Logger
}

func NewWorker(id string, processor StepProcessor, scheduler *Scheduler, config WorkerConfig, logger *slog.Logger) *Worker {
	return &Worker{
		id:        id,
		processor: processor,
		scheduler: scheduler,
		config:    config.withDefaults(),
		logger:    logger.With("module", "worker", "worker_id", id),
	}
}

// Register installs the step.due handler. The caller subscribes the bus afterwards.
func (w *Worker) Register(bus eventbus.EventSubscriber) error {
	if err := bus.Handle(events.StepDueEvent, w.handleStepDue); err != nil {
		return fmt.Errorf("failed to register step.due handler: %w", err)
	}

	w.logger.Info("Worker registered", "max_attempts", w.config.MaxAttempts, "backoff", w.config.Backoff)

	return nil
}

func (w *Worker) handleStepDue(ctx context.Context, event any) error {
	due, ok := event.(*events.StepDue)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	return w.Run(ctx, due)
}

// Run processes one delivery of a job.
func (w *Worker) Run(ctx context.Context, due *events.StepDue) error {
	logger := w.logger.With("job_id", due.JobID, "enrollment_id", due.EnrollmentID, "step_id", due.StepID, "delivery", due.Delivery)

	if due.Delivery > w.config.MaxAttempts {
		logger.WarnContext(ctx, "Job exceeded its deliveries, failing enrollment")

		if err := w.failEnrollment(ctx, due); err != nil {
			return err
		}

		return w.scheduler.Ack(ctx, due.JobID)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(w.config.MaxAttempts-1), retry.NewConstant(w.config.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		err := w.processor.ProcessStep(ctx, engine.StepRequest{
			JobID:        due.JobID,
			EnrollmentID: due.EnrollmentID,
			StepID:       due.StepID,
			Attempt:      attempt,
			MaxAttempts:  w.config.MaxAttempts,
		})

		var stepErr *engine.StepError
		if errors.As(err, &stepErr) && !stepErr.Final {
			logger.WarnContext(ctx, "Step failed, retrying", "attempt", attempt, "error", err)

			return retry.RetryableError(err)
		}

		return err
	})
	if err != nil {
		var stepErr *engine.StepError
		if !errors.As(err, &stepErr) {
			// Store failure: leave the job leased so it is delivered again.
			logger.ErrorContext(ctx, "Step could not be processed", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Step failed on its final attempt", "attempts", attempt, "error", err)
	}

	return w.scheduler.Ack(ctx, due.JobID)
}

func (w *Worker) failEnrollment(ctx context.Context, due *events.StepDue) error {
	enrollment, err := w.processor.Enrollment(ctx, due.EnrollmentID)
	if err != nil {
		w.logger.WarnContext(ctx, "Enrollment of exhausted job not found", "enrollment_id", due.EnrollmentID, "error", err)

		return nil
	}

	if !enrollment.Status.InFlight() {
		return nil
	}

	return w.processor.FailEnrollment(ctx, enrollment, ErrDeliveriesExhausted)
}
