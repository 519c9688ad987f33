// Package engine interprets workflow graphs: it enrolls contacts, runs one step per
// invocation and hands every continuation to the scheduler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/otelhelper"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandlerRegistry resolves action_type keys to handlers.
type HandlerRegistry interface {
	Handler(actionType string) (protocol.ActionHandler, bool)
}

// StepRequest identifies one invocation of a step. Attempt and MaxAttempts come from the
// scheduling layer; a zero MaxAttempts makes every attempt the final one.
type StepRequest struct {
	JobID        string
	EnrollmentID string
	StepID       string
	Attempt      int
	MaxAttempts  int
}

func (r StepRequest) final() bool {
	return r.MaxAttempts <= 0 || r.Attempt >= r.MaxAttempts
}

type Engine struct {
	workflows   persistence.WorkflowRepository
	enrollments persistence.EnrollmentRepository
	executions  persistence.ExecutionRepository
	contacts    persistence.ContactRepository
	handlers    HandlerRegistry
	scheduler   protocol.Scheduler
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger.With("module", "engine") }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithPublisher makes the engine announce terminal enrollments as enrollment.finished.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

func New(store persistence.Persistence, handlers HandlerRegistry, scheduler protocol.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		workflows:   store.WorkflowRepository(),
		enrollments: store.EnrollmentRepository(),
		executions:  store.ExecutionRepository(),
		contacts:    store.ContactRepository(),
		handlers:    handlers,
		scheduler:   scheduler,
		tracer:      otelhelper.Tracer("nurture/engine"),
		logger:      slog.Default().With("module", "engine"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Enroll starts the workflow for the contact. It returns nil for workflows that are not
// active and the existing enrollment when the contact is already in flight.
func (e *Engine) Enroll(ctx context.Context, workflow *models.Workflow, contact *models.Contact, data map[string]any) (*models.Enrollment, error) {
	logger := e.logger.With("workflow_id", workflow.ID, "contact_id", contact.ID)

	if !workflow.IsActive() {
		logger.InfoContext(ctx, "Skipping enrollment, workflow is not active", "status", workflow.Status)

		return nil, nil
	}

	existing, err := e.enrollments.FindInFlight(ctx, workflow.ID, contact.ID)
	if err == nil {
		logger.DebugContext(ctx, "Contact already enrolled", "enrollment_id", existing.ID)

		return existing, nil
	}

	if !persistence.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up enrollment: %w", err)
	}

	now := e.now().UTC()
	enrollment := &models.Enrollment{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		ContactID:  contact.ID,
		Status:     models.EnrollmentStatusActive,
		Context:    cloneData(data),
		EnrolledAt: now,
		UpdatedAt:  now,
	}

	// CurrentStepID stays nil until the first step completes.
	trigger := workflow.TriggerStep()

	if err := e.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, persistence.ErrEnrollmentInFlight) {
			return e.enrollments.FindInFlight(ctx, workflow.ID, contact.ID)
		}

		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	logger = logger.With("enrollment_id", enrollment.ID)
	logger.InfoContext(ctx, "Contact enrolled")

	if trigger == nil {
		logger.InfoContext(ctx, "Workflow has no trigger step")

		return enrollment, e.CompleteEnrollment(ctx, enrollment)
	}

	successors := e.NextSteps(workflow, trigger, "")
	if len(successors) == 0 {
		return enrollment, e.CompleteEnrollment(ctx, enrollment)
	}

	for _, step := range successors {
		if _, err := e.ScheduleStep(ctx, enrollment, step, 0); err != nil {
			return enrollment, err
		}
	}

	return enrollment, nil
}

// ProcessStep runs one step of one enrollment and schedules what follows it. Only handler
// errors and persistence failures are returned.
func (e *Engine) ProcessStep(ctx context.Context, req StepRequest) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.process_step",
		attribute.String(otelhelper.EnrollmentIDKey, req.EnrollmentID),
		attribute.String(otelhelper.StepIDKey, req.StepID),
		attribute.String(otelhelper.JobIDKey, req.JobID),
		attribute.Int(otelhelper.AttemptKey, req.Attempt),
	)
	defer span.End()

	logger := e.logger.With("enrollment_id", req.EnrollmentID, "step_id", req.StepID, "job_id", req.JobID)

	enrollment, err := e.enrollments.GetByID(ctx, req.EnrollmentID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.WarnContext(ctx, "Enrollment not found, dropping step")

			return nil
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	if !enrollment.Status.InFlight() {
		logger.InfoContext(ctx, "Enrollment is no longer in flight, skipping step", "status", enrollment.Status)

		return nil
	}

	workflow, err := e.workflows.GetByID(ctx, enrollment.WorkflowID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return e.FailEnrollment(ctx, enrollment, err)
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to load workflow: %w", err)
	}

	step := workflow.Step(req.StepID)
	if step == nil {
		logger.ErrorContext(ctx, "Step is not part of the workflow graph")

		return e.FailEnrollment(ctx, enrollment, persistence.ErrStepNotFound)
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		attribute.String(otelhelper.ActionTypeKey, step.ActionType),
	)

	contact, err := e.contacts.GetByID(ctx, enrollment.ContactID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return e.ExitEnrollment(ctx, enrollment, "contact not found")
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to load contact: %w", err)
	}

	execution := &models.StepExecution{
		ID:           uuid.New().String(),
		EnrollmentID: enrollment.ID,
		StepID:       step.ID,
		Status:       models.ExecutionStatusProcessing,
		StartedAt:    e.now().UTC(),
	}

	if err := e.supersedeStale(ctx, enrollment.ID, step.ID); err != nil {
		return err
	}

	if err := e.executions.Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	out, err := e.run(ctx, workflow, enrollment, step, contact)

	completedAt := e.now().UTC()
	execution.CompletedAt = &completedAt

	if err != nil {
		return e.handleStepError(ctx, req, enrollment, execution, err, span)
	}

	execution.Status = models.ExecutionStatusCompleted
	execution.Result = out.toMap()

	if err := e.executions.Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	if !out.result.Success {
		logger.WarnContext(ctx, "Step completed with a logical failure", "message", out.result.Message)
	}

	status := models.EnrollmentStatusActive
	if out.delay != nil {
		status = models.EnrollmentStatusWaiting
	}

	if err := enrollment.Transition(ctx, status, completedAt); err != nil {
		logger.WarnContext(ctx, "Cannot move enrollment", "to", status, "error", err)

		return nil
	}

	enrollment.CurrentStepID = &step.ID

	if err := e.enrollments.Update(ctx, enrollment); err != nil {
		if persistence.IsEnrollmentFinished(err) {
			logger.InfoContext(ctx, "Enrollment finished while the step ran, not continuing")

			return nil
		}

		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	return e.processNextSteps(ctx, workflow, enrollment, step, out, req.JobID)
}

// supersedeStale fails the processing records an earlier delivery of the same step left
// behind, e.g. when a worker died mid-step. The job of that delivery is still queued, so
// completion cannot slip through while a live record is marked.
func (e *Engine) supersedeStale(ctx context.Context, enrollmentID, stepID string) error {
	executions, err := e.executions.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	for _, execution := range executions {
		if execution.StepID != stepID || execution.Status != models.ExecutionStatusProcessing {
			continue
		}

		completedAt := e.now().UTC()
		execution.Status = models.ExecutionStatusFailed
		execution.Error = ErrExecutionSuperseded.Error()
		execution.CompletedAt = &completedAt

		if err := e.executions.Save(ctx, execution); err != nil {
			return fmt.Errorf("failed to supersede execution %s: %w", execution.ID, err)
		}

		e.logger.WarnContext(ctx, "Superseded stale execution",
			"enrollment_id", enrollmentID, "step_id", stepID, "execution_id", execution.ID)
	}

	return nil
}

func (e *Engine) handleStepError(ctx context.Context, req StepRequest, enrollment *models.Enrollment, execution *models.StepExecution, cause error, span trace.Span) error {
	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()

	if err := e.executions.Save(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record failed execution", "execution_id", execution.ID, "error", err)
	}

	stepErr := &StepError{
		EnrollmentID: req.EnrollmentID,
		StepID:       req.StepID,
		Attempt:      req.Attempt,
		Final:        req.final(),
		Err:          cause,
	}

	otelhelper.SetError(span, stepErr, attribute.Bool("final", stepErr.Final))

	if stepErr.Final {
		if err := e.FailEnrollment(ctx, enrollment, cause); err != nil {
			return errors.Join(stepErr, err)
		}
	}

	return stepErr
}

// NextSteps returns the targets of the step's outgoing edges in declaration order. A
// non-empty branch keeps only edges labeled with it.
func (e *Engine) NextSteps(workflow *models.Workflow, step *models.WorkflowStep, branch string) []*models.WorkflowStep {
	connections := workflow.Outgoing(step.ID, branch)
	steps := make([]*models.WorkflowStep, 0, len(connections))

	for _, connection := range connections {
		target := workflow.Step(connection.TargetStepID)
		if target == nil {
			e.logger.Warn("Connection points to a missing step",
				"workflow_id", workflow.ID, "connection_id", connection.ID, "target_step_id", connection.TargetStepID)

			continue
		}

		steps = append(steps, target)
	}

	return steps
}

// ScheduleStep asks the scheduler to run step after delay. It never runs the step inline.
func (e *Engine) ScheduleStep(ctx context.Context, enrollment *models.Enrollment, step *models.WorkflowStep, delay time.Duration) (*models.Job, error) {
	job, err := e.scheduler.Enqueue(ctx, enrollment.ID, step.ID, e.now().Add(delay))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule step %s: %w", step.ID, err)
	}

	return job, nil
}

func (e *Engine) processNextSteps(ctx context.Context, workflow *models.Workflow, enrollment *models.Enrollment, step *models.WorkflowStep, out outcome, jobID string) error {
	var (
		successors []*models.WorkflowStep
		delay      time.Duration
	)

	if out.delay != nil {
		successors = e.NextSteps(workflow, step, "")
		delay = *out.delay
	} else {
		successors = e.NextSteps(workflow, step, out.branch)
	}

	for _, next := range successors {
		if _, err := e.ScheduleStep(ctx, enrollment, next, delay); err != nil {
			return err
		}
	}

	// The running job must be gone before the completion check counts what is left.
	if err := e.scheduler.Ack(ctx, jobID); err != nil {
		e.logger.WarnContext(ctx, "Failed to ack job", "job_id", jobID, "error", err)
	}

	if len(successors) > 0 {
		return nil
	}

	return e.checkCompletion(ctx, enrollment, jobID)
}

func (e *Engine) checkCompletion(ctx context.Context, enrollment *models.Enrollment, jobID string) error {
	processing, err := e.executions.CountProcessing(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to count running executions: %w", err)
	}

	pending, err := e.scheduler.Pending(ctx, enrollment.ID, jobID)
	if err != nil {
		return fmt.Errorf("failed to count pending jobs: %w", err)
	}

	if processing > 0 || pending > 0 {
		e.logger.DebugContext(ctx, "Enrollment still has work", "enrollment_id", enrollment.ID,
			"processing", processing, "pending", pending)

		return nil
	}

	return e.CompleteEnrollment(ctx, enrollment)
}

func (e *Engine) CompleteEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return e.finish(ctx, enrollment, models.EnrollmentStatusCompleted, "")
}

func (e *Engine) ExitEnrollment(ctx context.Context, enrollment *models.Enrollment, reason string) error {
	return e.finish(ctx, enrollment, models.EnrollmentStatusExited, reason)
}

func (e *Engine) FailEnrollment(ctx context.Context, enrollment *models.Enrollment, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	return e.finish(ctx, enrollment, models.EnrollmentStatusFailed, reason)
}

// finish moves the stored enrollment into a terminal status. Enrollments that already
// reached one are left untouched.
func (e *Engine) finish(ctx context.Context, enrollment *models.Enrollment, status models.EnrollmentStatus, reason string) error {
	current, err := e.enrollments.GetByID(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	logger := e.logger.With("enrollment_id", current.ID, "workflow_id", current.WorkflowID)

	if current.Status.Terminal() {
		logger.InfoContext(ctx, "Enrollment already finished", "status", current.Status, "requested", status)
		*enrollment = *current

		return nil
	}

	if err := current.Transition(ctx, status, e.now().UTC()); err != nil {
		return err
	}

	current.ExitReason = reason

	if err := e.enrollments.Update(ctx, current); err != nil {
		if !persistence.IsEnrollmentFinished(err) {
			return fmt.Errorf("failed to finish enrollment: %w", err)
		}

		// Lost the race to another terminal transition.
		current, err = e.enrollments.GetByID(ctx, enrollment.ID)
		if err != nil {
			return fmt.Errorf("failed to load enrollment: %w", err)
		}

		logger.InfoContext(ctx, "Enrollment already finished", "status", current.Status, "requested", status)
		*enrollment = *current

		return nil
	}

	*enrollment = *current

	logger.InfoContext(ctx, "Enrollment finished", "status", status, "reason", reason)

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, current.ID, events.NewEnrollmentFinished(current)); err != nil {
			logger.WarnContext(ctx, "Failed to publish enrollment.finished", "error", err)
		}
	}

	return nil
}

// Enrollment returns one enrollment.
func (e *Engine) Enrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	return e.enrollments.GetByID(ctx, id)
}

func (e *Engine) Enrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]*models.Enrollment, error) {
	return e.enrollments.List(ctx, filter)
}

// Executions returns the audit trail of an enrollment, oldest first.
func (e *Engine) Executions(ctx context.Context, enrollmentID string) ([]*models.StepExecution, error) {
	return e.executions.ListByEnrollment(ctx, enrollmentID)
}

// Exit cancels an enrollment by id. Steps dispatched later for it become no-ops.
func (e *Engine) Exit(ctx context.Context, enrollmentID, reason string) (*models.Enrollment, error) {
	enrollment, err := e.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	if err := e.ExitEnrollment(ctx, enrollment, reason); err != nil {
		return nil, err
	}

	return enrollment, nil
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}

	return maps.Clone(data)
}
