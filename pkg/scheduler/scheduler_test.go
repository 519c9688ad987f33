package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) (*Scheduler, *memory.Persistence) {
	t.Helper()

	store, err := memory.NewPersistence()
	require.NoError(t, err)

	return NewScheduler(store.JobRepository(), log.Discard()), store
}

func TestScheduler_EnqueuePendingAck(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t)

	first, err := s.Enqueue(ctx, "en-1", "st-1", time.Now())
	require.NoError(t, err)

	second, err := s.Enqueue(ctx, "en-1", "st-2", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, "en-2", "st-1", time.Now())
	require.NoError(t, err)

	pending, err := s.Pending(ctx, "en-1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	pending, err = s.Pending(ctx, "en-1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, s.Ack(ctx, first.ID))
	require.NoError(t, s.Ack(ctx, first.ID), "acking twice is fine")
	require.NoError(t, s.Ack(ctx, ""))

	pending, err = s.Pending(ctx, "en-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.NotEqual(t, first.ID, second.ID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)

	return nil
}

func TestPoller_PublishesDueJobsOnce(t *testing.T) {
	ctx := context.Background()
	s, store := newScheduler(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	due, err := s.Enqueue(ctx, "en-1", "st-1", now.Add(-time.Minute))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, "en-1", "st-2", now.Add(time.Hour))
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	poller := NewPoller(store.JobRepository(), publisher, PollerConfig{Lease: time.Minute}, log.Discard())
	poller.now = func() time.Time { return now }

	published, err := poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0].(events.StepDue)
	assert.Equal(t, due.ID, event.JobID)
	assert.Equal(t, "st-1", event.StepID)
	assert.Equal(t, 1, event.Delivery)

	published, err = poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, published, "leased jobs are hidden")

	poller.now = func() time.Time { return now.Add(2 * time.Minute) }

	published, err = poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, published, "unacknowledged jobs come back after the lease")
	assert.Equal(t, 2, publisher.events[1].(events.StepDue).Delivery)
}

type processorMock struct {
	mock.Mock
}

func (m *processorMock) ProcessStep(ctx context.Context, req engine.StepRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *processorMock) Enrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	args := m.Called(ctx, id)
	enrollment, _ := args.Get(0).(*models.Enrollment)

	return enrollment, args.Error(1)
}

func (m *processorMock) FailEnrollment(ctx context.Context, enrollment *models.Enrollment, cause error) error {
	return m.Called(ctx, enrollment, cause).Error(0)
}

func stepDue(t *testing.T, s *Scheduler, delivery int) *events.StepDue {
	t.Helper()

	job, err := s.Enqueue(context.Background(), "en-1", "st-1", time.Now())
	require.NoError(t, err)

	job.Attempts = delivery
	due := events.NewStepDue(job)

	return &due
}

func attempt(n int) any {
	return mock.MatchedBy(func(req engine.StepRequest) bool { return req.Attempt == n && req.MaxAttempts == 3 })
}

func TestWorker_RetriesUntilSuccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t)
	processor := &processorMock{}

	transient := &engine.StepError{EnrollmentID: "en-1", StepID: "st-1", Err: errors.New("timeout")}
	processor.On("ProcessStep", mock.Anything, attempt(1)).Return(transient).Once()
	processor.On("ProcessStep", mock.Anything, attempt(2)).Return(nil).Once()

	worker := NewWorker("w1", processor, s, WorkerConfig{MaxAttempts: 3, Backoff: time.Millisecond}, log.Discard())

	require.NoError(t, worker.Run(ctx, stepDue(t, s, 1)))
	processor.AssertExpectations(t)

	pending, err := s.Pending(ctx, "en-1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestWorker_StopsAtFinalAttempt(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t)
	processor := &processorMock{}

	for n := 1; n <= 3; n++ {
		processor.On("ProcessStep", mock.Anything, attempt(n)).
			Return(&engine.StepError{Attempt: n, Final: n == 3, Err: errors.New("boom")}).Once()
	}

	worker := NewWorker("w1", processor, s, WorkerConfig{MaxAttempts: 3, Backoff: time.Millisecond}, log.Discard())

	require.NoError(t, worker.Run(ctx, stepDue(t, s, 1)))
	processor.AssertExpectations(t)
	processor.AssertNumberOfCalls(t, "ProcessStep", 3)

	pending, err := s.Pending(ctx, "en-1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestWorker_ExhaustedDeliveryFailsEnrollment(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t)
	processor := &processorMock{}
	enrollment := &models.Enrollment{ID: "en-1", Status: models.EnrollmentStatusActive}

	processor.On("Enrollment", mock.Anything, "en-1").Return(enrollment, nil)
	processor.On("FailEnrollment", mock.Anything, enrollment, ErrDeliveriesExhausted).Return(nil)

	worker := NewWorker("w1", processor, s, WorkerConfig{MaxAttempts: 3}, log.Discard())

	require.NoError(t, worker.Run(ctx, stepDue(t, s, 4)))
	processor.AssertExpectations(t)
	processor.AssertNotCalled(t, "ProcessStep", mock.Anything, mock.Anything)
}
