package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/models"
	"github.com/robfig/cron/v3"
)

type PollerConfig struct {
	// Interval between two claims, e.g. 5s
	Interval time.Duration
	// Lease is how long a claimed job stays hidden before it is handed out again
	Lease     time.Duration
	BatchSize int
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}

	if c.Lease <= 0 {
		c.Lease = 5 * time.Minute
	}

	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}

	return c
}

// Poller claims due jobs on a fixed cadence and publishes a step.due event for each. A job
// that is not acknowledged before its lease runs out is claimed again.
type Poller struct {
	jobs      JobClaimer
	publisher eventbus.EventPublisher
	config    PollerConfig
	logger    *slog.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// JobClaimer is the part of the job store the poller needs.
type JobClaimer interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error)
}

func NewPoller(jobs JobClaimer, publisher eventbus.EventPublisher, config PollerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		jobs:      jobs,
		publisher: publisher,
		config:    config.withDefaults(),
		logger:    logger.With("module", "poller"),
		cron:      cron.New(cron.WithSeconds()),
		now:       time.Now,
	}
}

// Poll claims one batch and publishes it. It returns how many jobs were published.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	jobs, err := p.jobs.ClaimDue(ctx, p.now().UTC(), p.config.Lease, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	published := 0

	for _, job := range jobs {
		if err := p.publisher.Publish(ctx, job.EnrollmentID, events.NewStepDue(job)); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish step.due", "job_id", job.ID, "error", err)

			continue
		}

		published++
	}

	if published > 0 {
		p.logger.DebugContext(ctx, "Published due steps", "count", published)
	}

	return published, nil
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	_, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.config.Interval), func() {
		if _, err := p.Poll(ctx); err != nil {
			p.logger.ErrorContext(ctx, "Poll failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poller: %w", err)
	}

	p.logger.InfoContext(ctx, "Poller started", "interval", p.config.Interval, "lease", p.config.Lease)
	p.cron.Start()

	<-ctx.Done()

	<-p.cron.Stop().Done()
	p.logger.Info("Poller stopped")

	return nil
}
