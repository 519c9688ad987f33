package engine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/actions/email"
	"github.com/dukex/nurture/pkg/actions/score"
	"github.com/dukex/nurture/pkg/actions/tag"
	"github.com/dukex/nurture/pkg/actions/webhook"
	"github.com/dukex/nurture/pkg/actions/whatsapp"
	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/persistence/memory"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/dukex/nurture/pkg/registry"
	"github.com/dukex/nurture/pkg/scheduler"
	"github.com/dukex/nurture/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type harness struct {
	store    *memory.Persistence
	registry *registry.Registry
	engine   *engine.Engine
	clock    *clock
	email    *testutil.RecordingEmailSender
	whatsapp *testutil.RecordingWhatsAppSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := memory.NewPersistence()
	require.NoError(t, err)

	h := &harness{
		store:    store,
		registry: registry.NewRegistry(log.Discard()),
		clock:    &clock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		email:    &testutil.RecordingEmailSender{},
		whatsapp: &testutil.RecordingWhatsAppSender{},
	}

	h.registry.RegisterAction(tag.NewAddActionFactory())
	h.registry.RegisterAction(score.NewActionFactory())
	h.registry.RegisterAction(email.NewActionFactory())
	h.registry.RegisterAction(whatsapp.NewActionFactory())
	h.registry.RegisterAction(webhook.NewActionFactory())

	require.NoError(t, h.registry.Initialize(protocol.Dependencies{
		Logger:     log.Discard(),
		Contacts:   store.ContactRepository(),
		Tags:       store.TagRepository(),
		Scores:     store.ScoreRepository(),
		Templates:  store.TemplateRepository(),
		Users:      store.UserRepository(),
		MergeTags:  mergetag.NewEngine(),
		Email:      h.email,
		WhatsApp:   h.whatsapp,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}))

	h.engine = engine.New(store, h.registry, scheduler.NewScheduler(store.JobRepository(), log.Discard()),
		engine.WithLogger(log.Discard()),
		engine.WithClock(h.clock.Now),
	)

	return h
}

func (h *harness) save(t *testing.T, workflow *models.Workflow, contact *models.Contact) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, h.store.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, h.store.ContactRepository().Save(ctx, contact))
}

// drain runs every job due at the current clock until none is left.
func (h *harness) drain(t *testing.T) int {
	t.Helper()

	ctx := context.Background()
	processed := 0

	for range 50 {
		jobs, err := h.store.JobRepository().ClaimDue(ctx, h.clock.Now(), time.Minute, 10)
		require.NoError(t, err)

		if len(jobs) == 0 {
			return processed
		}

		for _, job := range jobs {
			err := h.engine.ProcessStep(ctx, engine.StepRequest{
				JobID:        job.ID,
				EnrollmentID: job.EnrollmentID,
				StepID:       job.StepID,
				Attempt:      job.Attempts,
				MaxAttempts:  3,
			})
			require.NoError(t, err)

			processed++
		}
	}

	t.Fatal("jobs kept coming")

	return processed
}

func (h *harness) enrollment(t *testing.T, id string) *models.Enrollment {
	t.Helper()

	enrollment, err := h.engine.Enrollment(context.Background(), id)
	require.NoError(t, err)

	return enrollment
}

func (h *harness) execution(t *testing.T, enrollmentID, stepID string) *models.StepExecution {
	t.Helper()

	executions, err := h.engine.Executions(context.Background(), enrollmentID)
	require.NoError(t, err)

	for _, execution := range executions {
		if execution.StepID == stepID {
			return execution
		}
	}

	t.Fatalf("no execution for step %s", stepID)

	return nil
}

func (h *harness) pending(t *testing.T, enrollmentID string) int {
	t.Helper()

	count, err := h.store.JobRepository().CountByEnrollment(context.Background(), enrollmentID, "")
	require.NoError(t, err)

	return count
}

type failingHandler struct {
	calls int
}

func (f *failingHandler) Execute(context.Context, *models.Contact, map[string]any, map[string]any) (models.ActionResult, error) {
	f.calls++

	return models.ActionResult{}, errors.New("smtp: connection reset")
}

func TestEnroll_InactiveWorkflow(t *testing.T) {
	for _, status := range []models.WorkflowStatus{models.WorkflowStatusDraft, models.WorkflowStatusPaused} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			workflow := testutil.NewWorkflow(models.TriggerTagAdded).
				Trigger("t").Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Connect("t", "a").
				WithStatus(status).Build()
			contact := testutil.CreateTestContact()
			h.save(t, workflow, contact)

			enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
			require.NoError(t, err)
			assert.Nil(t, enrollment)

			enrollments, err := h.engine.Enrollments(context.Background(), persistence.EnrollmentFilter{WorkflowID: workflow.ID})
			require.NoError(t, err)
			assert.Empty(t, enrollments)
		})
	}
}

func TestEnroll_IsIdempotentWhileInFlight(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerOrderPaid).
		Trigger("t").Delay("wait", 1, models.DelayUnitDays).Connect("t", "wait").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	first, err := h.engine.Enroll(ctx, workflow, contact, map[string]any{"order_id": "o-1"})
	require.NoError(t, err)

	second, err := h.engine.Enroll(ctx, workflow, contact, map[string]any{"order_id": "o-2"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "o-1", second.Context["order_id"])
	assert.Equal(t, 1, h.pending(t, first.ID), "re-trigger must not restart traversal")

	enrollments, err := h.engine.Enrollments(ctx, persistence.EnrollmentFilter{WorkflowID: workflow.ID, ContactID: contact.ID})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestEnroll_WithoutTriggerStepCompletes(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerContactCreated).
		Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)
	require.NotNil(t, enrollment)

	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
	assert.Equal(t, 0, h.pending(t, enrollment.ID))
}

func TestProcessStep_DelayParksEnrollment(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerContactCreated).
		Trigger("t").
		Delay("wait", 2, models.DelayUnitHours).
		Action("tag", "add_tag", map[string]any{"tag_name": "nurtured"}).
		Connect("t", "wait").Connect("wait", "tag").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	start := h.clock.Now()

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, h.drain(t))

	parked := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusWaiting, parked.Status)
	require.NotNil(t, parked.CurrentStepID)
	assert.Equal(t, "wait", *parked.CurrentStepID)

	execution := h.execution(t, enrollment.ID, "wait")
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 7200, execution.Result["delay_seconds"])
	assert.Equal(t, start.Add(7200*time.Second).Format(time.RFC3339), execution.Result["resume_at"])

	assert.Equal(t, 0, h.drain(t), "nothing runs before resume_at")

	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, h.drain(t))

	finished := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusCompleted, finished.Status)
	require.NotNil(t, finished.CompletedAt)
}

func TestProcessStep_VipScenario(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerOrderPaid).
		Trigger("t").
		Action("vip", "add_tag", map[string]any{"tag_name": "vip"}).
		Condition("big", "score", "greater_than", 100).
		Action("mail", "send_email", map[string]any{"subject": "Hi {{name}}", "body": "Welcome"}).
		Delay("day", 1, models.DelayUnitDays).
		Action("wa", "send_whatsapp", map[string]any{"message": "Oi {{contact.first_name}}"}).
		Connect("t", "vip").
		Connect("vip", "big").
		Branch("big", models.BranchYes, "mail").
		Branch("big", models.BranchNo, "day").
		Connect("day", "wa").
		Build()
	contact := testutil.CreateTestContact(func(c *models.Contact) { c.LeadScore = 50 })
	h.save(t, workflow, contact)

	ctx := context.Background()
	start := h.clock.Now()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	h.drain(t)

	vip, err := h.store.TagRepository().GetByName(ctx, "vip")
	require.NoError(t, err)

	tagged, err := h.store.TagRepository().HasContactTag(ctx, contact.ID, vip.ID)
	require.NoError(t, err)
	assert.True(t, tagged)

	assert.Equal(t, models.BranchNo, h.execution(t, enrollment.ID, "big").Branch())

	delay := h.execution(t, enrollment.ID, "day")
	assert.Equal(t, start.Add(24*time.Hour).Format(time.RFC3339), delay.Result["resume_at"])
	assert.Equal(t, 1, h.pending(t, enrollment.ID))
	assert.Empty(t, h.whatsapp.Sent)

	h.clock.Advance(24 * time.Hour)
	h.drain(t)

	require.Len(t, h.whatsapp.Sent, 1)
	assert.Equal(t, "Oi Maria", h.whatsapp.Sent[0].Message)
	assert.Empty(t, h.email.Sent)
	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
}

func TestProcessStep_WebhookFailureStillAdvances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerOrderPaid).
		Trigger("t").
		Action("hook", "webhook", map[string]any{"url": server.URL}).
		Action("tag", "add_tag", map[string]any{"tag_name": "after-hook"}).
		Connect("t", "hook").Connect("hook", "tag").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, h.drain(t))

	hook := h.execution(t, enrollment.ID, "hook")
	assert.Equal(t, models.ExecutionStatusCompleted, hook.Status)
	assert.Equal(t, false, hook.Result["success"])

	data, ok := hook.Result["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 500, data["status_code"])

	assert.Equal(t, models.ExecutionStatusCompleted, h.execution(t, enrollment.ID, "tag").Status)
	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
}

func TestProcessStep_TerminalStepCompletesEnrollment(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("a", "add_score", map[string]any{"points": 10, "reason": "welcome"}).
		Connect("t", "a").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Nil(t, enrollment.CurrentStepID, "no step has completed yet")

	h.drain(t)

	finished := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusCompleted, finished.Status)
	assert.Equal(t, h.clock.Now(), *finished.CompletedAt)
	assert.Equal(t, "a", *finished.CurrentStepID)
}

func TestProcessStep_FanOutCompletesOnce(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").
		Action("left", "add_tag", map[string]any{"tag_name": "left"}).
		Action("right", "add_tag", map[string]any{"tag_name": "right"}).
		Connect("t", "left").Connect("t", "right").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.pending(t, enrollment.ID))

	assert.Equal(t, 2, h.drain(t))
	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
}

func TestProcessStep_UnknownActionIsLogicalFailure(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").
		Action("ghost", "send_fax", nil).
		Action("tag", "add_tag", map[string]any{"tag_name": "after"}).
		Connect("t", "ghost").Connect("ghost", "tag").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	enrollment, err := h.engine.Enroll(context.Background(), workflow, contact, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, h.drain(t))

	ghost := h.execution(t, enrollment.ID, "ghost")
	assert.Equal(t, models.ExecutionStatusCompleted, ghost.Status)
	assert.Equal(t, false, ghost.Result["success"])
	assert.Contains(t, ghost.Result["message"], "send_fax")
	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
}

func TestProcessStep_HandlerErrorFailsOnFinalAttempt(t *testing.T) {
	h := newHarness(t)
	failing := &failingHandler{}
	h.registry.RegisterHandler("explode", failing)

	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("boom", "explode", nil).Connect("t", "boom").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	request := engine.StepRequest{EnrollmentID: enrollment.ID, StepID: "boom", Attempt: 1, MaxAttempts: 3}

	err = h.engine.ProcessStep(ctx, request)

	var stepErr *engine.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.False(t, stepErr.Final)
	assert.Equal(t, models.EnrollmentStatusActive, h.enrollment(t, enrollment.ID).Status)

	request.Attempt = 3
	err = h.engine.ProcessStep(ctx, request)
	require.ErrorAs(t, err, &stepErr)
	assert.True(t, stepErr.Final)

	failed := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusFailed, failed.Status)
	assert.Contains(t, failed.ExitReason, "connection reset")

	executions, err := h.engine.Executions(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, executions, 2)

	for _, execution := range executions {
		assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
		assert.Contains(t, execution.Error, "connection reset")
	}

	err = h.engine.ProcessStep(ctx, request)
	require.NoError(t, err, "terminal enrollments ignore further invocations")
	assert.Equal(t, 2, failing.calls)
}

func TestProcessStep_ExitedEnrollmentIsNoop(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Connect("t", "a").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	exited, err := h.engine.Exit(ctx, enrollment.ID, "unsubscribed")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusExited, exited.Status)
	assert.Equal(t, "unsubscribed", exited.ExitReason)

	h.drain(t)

	executions, err := h.engine.Executions(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)

	require.NoError(t, h.engine.CompleteEnrollment(ctx, enrollment))
	assert.Equal(t, models.EnrollmentStatusExited, h.enrollment(t, enrollment.ID).Status)
}

// exitingHandler exits the enrollment it runs for and then reports success.
type exitingHandler struct {
	engine *engine.Engine
}

func (x *exitingHandler) Execute(ctx context.Context, _ *models.Contact, _ map[string]any, data map[string]any) (models.ActionResult, error) {
	enrollmentID, _ := data[models.ContextEnrollmentID].(string)
	if _, err := x.engine.Exit(ctx, enrollmentID, "unsubscribed"); err != nil {
		return models.ActionResult{}, err
	}

	return models.Succeeded("unsubscribed"), nil
}

func TestProcessStep_ExitDuringStepIsKept(t *testing.T) {
	h := newHarness(t)
	h.registry.RegisterHandler("unsubscribe", &exitingHandler{engine: h.engine})

	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").
		Action("slow", "unsubscribe", nil).
		Action("tag", "add_tag", map[string]any{"tag_name": "after-exit"}).
		Connect("t", "slow").Connect("slow", "tag").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	h.drain(t)

	exited := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusExited, exited.Status)
	assert.Equal(t, "unsubscribed", exited.ExitReason)
	assert.Nil(t, exited.CompletedAt)

	executions, err := h.engine.Executions(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, "slow", executions[0].StepID)

	tags, err := h.store.TagRepository().ContactTags(ctx, contact.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestProcessStep_RedeliverySupersedesStaleExecution(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Connect("t", "a").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	// Left behind by a worker that died before finishing step a.
	stale := &models.StepExecution{
		ID:           "stale",
		EnrollmentID: enrollment.ID,
		StepID:       "a",
		Status:       models.ExecutionStatusProcessing,
		StartedAt:    h.clock.Now(),
	}
	require.NoError(t, h.store.ExecutionRepository().Save(ctx, stale))

	assert.Equal(t, 1, h.drain(t))

	assert.Equal(t, models.EnrollmentStatusCompleted, h.enrollment(t, enrollment.ID).Status)
	assert.Equal(t, 0, h.pending(t, enrollment.ID))

	executions, err := h.engine.Executions(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, executions, 2)

	for _, execution := range executions {
		if execution.ID == "stale" {
			assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
			assert.Equal(t, engine.ErrExecutionSuperseded.Error(), execution.Error)
			assert.NotNil(t, execution.CompletedAt)

			continue
		}

		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	}
}

func TestProcessStep_MissingContactExits(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Connect("t", "a").Build()
	require.NoError(t, h.store.WorkflowRepository().Save(context.Background(), workflow))

	enrollment, err := h.engine.Enroll(context.Background(), workflow, testutil.CreateTestContact(), nil)
	require.NoError(t, err)

	h.drain(t)

	exited := h.enrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusExited, exited.Status)
	assert.Equal(t, "contact not found", exited.ExitReason)
}

func TestProcessStep_StepMissingFromGraphFails(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Action("a", "add_tag", map[string]any{"tag_name": "vip"}).Connect("t", "a").Build()
	contact := testutil.CreateTestContact()
	h.save(t, workflow, contact)

	ctx := context.Background()

	enrollment, err := h.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)

	err = h.engine.ProcessStep(ctx, engine.StepRequest{EnrollmentID: enrollment.ID, StepID: "removed"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusFailed, h.enrollment(t, enrollment.ID).Status)
}

func TestNextSteps_FiltersByBranch(t *testing.T) {
	h := newHarness(t)
	workflow := testutil.NewWorkflow(models.TriggerTagAdded).
		Trigger("t").Condition("c", "status", "equals", "lead").
		Action("y1", "add_tag", nil).Action("y2", "add_tag", nil).Action("n", "add_tag", nil).
		Connect("t", "c").
		Branch("c", models.BranchYes, "y1").Branch("c", models.BranchNo, "n").Branch("c", models.BranchYes, "y2").
		Build()

	ids := func(steps []*models.WorkflowStep) []string {
		out := make([]string, 0, len(steps))
		for _, step := range steps {
			out = append(out, step.ID)
		}

		return out
	}

	condition := workflow.Step("c")
	assert.Equal(t, []string{"y1", "y2"}, ids(h.engine.NextSteps(workflow, condition, models.BranchYes)))
	assert.Equal(t, []string{"n"}, ids(h.engine.NextSteps(workflow, condition, models.BranchNo)))
	assert.Equal(t, []string{"y1", "n", "y2"}, ids(h.engine.NextSteps(workflow, condition, "")))
}
