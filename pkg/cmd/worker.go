package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/scheduler"
	"github.com/dukex/nurture/pkg/trigger"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

// RunWorker consumes step.due and trigger.fired events until ctx is cancelled.
func RunWorker(ctx context.Context, command *cli.Command, rt *Runtime, logger *slog.Logger) error {
	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	worker := scheduler.NewWorker(workerID, rt.Engine, rt.Scheduler, scheduler.WorkerConfig{
		MaxAttempts: command.Int("max-attempts"),
		Backoff:     command.Duration("retry-backoff"),
	}, logger)

	if err := worker.Register(rt.Bus); err != nil {
		return err
	}

	if err := trigger.NewConsumer(rt.Dispatcher, logger).Register(rt.Bus); err != nil {
		return err
	}

	if err := rt.Bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to the event bus: %w", err)
	}

	logger.InfoContext(ctx, "Worker started", "worker_id", workerID)

	<-ctx.Done()

	logger.Info("Worker stopped", "worker_id", workerID)

	return nil
}

// RunPoller publishes due jobs until ctx is cancelled.
func RunPoller(ctx context.Context, command *cli.Command, rt *Runtime, logger *slog.Logger) error {
	poller := scheduler.NewPoller(rt.Jobs, rt.Bus, scheduler.PollerConfig{
		Interval:  command.Duration("poll-interval"),
		Lease:     command.Duration("job-lease"),
		BatchSize: command.Int("batch-size"),
	}, logger)

	return poller.Run(ctx)
}
