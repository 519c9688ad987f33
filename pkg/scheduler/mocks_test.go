package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/mocks"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPoller_ContinuesPastPublishFailures(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.MockJobRepository{}
	bus := &mocks.MockEventBus{}

	claimed := []*models.Job{
		{ID: "job-1", EnrollmentID: "en-1", StepID: "st-1", Attempts: 1},
		{ID: "job-2", EnrollmentID: "en-2", StepID: "st-1", Attempts: 1},
	}

	jobs.On("ClaimDue", mock.Anything, mock.Anything, 30*time.Second, 10).Return(claimed, nil).Once()
	bus.On("Publish", mock.Anything, "en-1", mock.Anything).Return(errors.New("broker down")).Once()
	bus.On("Publish", mock.Anything, "en-2", mock.MatchedBy(func(event events.StepDue) bool {
		return event.JobID == "job-2"
	})).Return(nil).Once()

	poller := NewPoller(jobs, bus, PollerConfig{Lease: 30 * time.Second, BatchSize: 10}, log.Discard())

	published, err := poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	jobs.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestPoller_ClaimError(t *testing.T) {
	jobs := &mocks.MockJobRepository{}
	jobs.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	poller := NewPoller(jobs, &mocks.MockEventBus{}, PollerConfig{}, log.Discard())

	_, err := poller.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestScheduler_AckIgnoresMissingJobs(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.MockJobRepository{}
	jobs.On("Delete", mock.Anything, "gone").Return(persistence.NewJobError("Delete", "gone", persistence.ErrJobNotFound))
	jobs.On("Delete", mock.Anything, "locked").Return(errors.New("lock timeout"))

	s := NewScheduler(jobs, log.Discard())

	require.NoError(t, s.Ack(ctx, "gone"))
	require.Error(t, s.Ack(ctx, "locked"))
}

func TestWorker_RegisterInstallsStepDueHandler(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.StepDueEvent, mock.Anything).Return(nil).Once()

	s := NewScheduler(&mocks.MockJobRepository{}, log.Discard())
	worker := NewWorker("w1", &processorMock{}, s, WorkerConfig{}, log.Discard())

	require.NoError(t, worker.Register(bus))
	bus.AssertExpectations(t)

	failing := &mocks.MockEventBus{}
	failing.On("Handle", events.StepDueEvent, mock.Anything).Return(errors.New("closed"))

	require.Error(t, worker.Register(failing))
}
