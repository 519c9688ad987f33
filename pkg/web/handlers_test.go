package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/nurture/pkg/actions/tag"
	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence/memory"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/dukex/nurture/pkg/registry"
	"github.com/dukex/nurture/pkg/scheduler"
	"github.com/dukex/nurture/pkg/services"
	"github.com/dukex/nurture/pkg/testutil"
	"github.com/dukex/nurture/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app     *fiber.App
	store   *memory.Persistence
	engine  *engine.Engine
	emitter *testutil.RecordingEmitter
}

func setupTestApp(t *testing.T) *testAPI {
	t.Helper()

	store, err := memory.NewPersistence()
	require.NoError(t, err)

	reg := registry.NewRegistry(log.Discard())
	reg.RegisterAction(tag.NewAddActionFactory())
	require.NoError(t, reg.Initialize(testDependencies(store)))

	validate := validator.New(validator.WithRequiredStructEnabled())
	graph := services.NewGraphValidator(validate, reg)
	eng := engine.New(store, reg, scheduler.NewScheduler(store.JobRepository(), log.Discard()), engine.WithLogger(log.Discard()))
	emitter := &testutil.RecordingEmitter{}

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(store, graph),
		services.NewPublishing(store, graph),
		eng,
		emitter,
		mergetag.NewEngine(),
		validate,
		reg,
	)

	app := fiber.New()
	handlers.Routes(app)

	return &testAPI{app: app, store: store, engine: eng, emitter: emitter}
}

func testDependencies(store *memory.Persistence) protocol.Dependencies {
	return protocol.Dependencies{
		Logger:    log.Discard(),
		Contacts:  store.ContactRepository(),
		Tags:      store.TagRepository(),
		Scores:    store.ScoreRepository(),
		Templates: store.TemplateRepository(),
		Users:     store.UserRepository(),
		MergeTags: mergetag.NewEngine(),
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func createRequest() web.CreateWorkflowRequest {
	yes := models.BranchYes

	return web.CreateWorkflowRequest{
		Name:        "Welcome leads",
		TriggerType: models.TriggerContactCreated,
		Steps: []*models.WorkflowStep{
			{ID: "t", Type: models.StepTypeTrigger},
			{ID: "c", Type: models.StepTypeCondition, Config: map[string]any{"field": "status", "operator": "equals", "value": "lead"}},
			{ID: "a", Type: models.StepTypeAction, ActionType: "add_tag", Config: map[string]any{"tag_name": "lead"}},
		},
		Connections: []*models.Connection{
			{SourceStepID: "t", TargetStepID: "c"},
			{SourceStepID: "c", TargetStepID: "a", SourceHandle: &yes},
		},
	}
}

func (a *testAPI) createWorkflow(t *testing.T) *models.Workflow {
	t.Helper()

	status, body := a.do(t, http.MethodPost, "/workflows", createRequest())
	require.Equal(t, http.StatusCreated, status, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return &workflow
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "successful creation",
			requestBody:    createRequest(),
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "name too short",
			requestBody:    web.CreateWorkflowRequest{Name: "ab", TriggerType: models.TriggerTagAdded},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Name",
		},
		{
			name:           "missing trigger type",
			requestBody:    web.CreateWorkflowRequest{Name: "Welcome"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "TriggerType",
		},
		{
			name: "connection to a missing step",
			requestBody: web.CreateWorkflowRequest{
				Name:        "Broken",
				TriggerType: models.TriggerTagAdded,
				Steps:       []*models.WorkflowStep{{ID: "t", Type: models.StepTypeTrigger}},
				Connections: []*models.Connection{{SourceStepID: "t", TargetStepID: "ghost"}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid connection",
		},
		{
			name:           "invalid json",
			requestBody:    "not-an-object",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestApp(t)

			status, body := api.do(t, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			var workflow models.Workflow
			require.NoError(t, json.Unmarshal(body, &workflow))
			assert.NotEmpty(t, workflow.ID)
			assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
			assert.Len(t, workflow.Steps, 3)
		})
	}
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	api := setupTestApp(t)
	created := api.createWorkflow(t)

	status, body := api.do(t, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, "Welcome leads", workflow.Name)

	status, body = api.do(t, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "workflow not found")
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	api := setupTestApp(t)
	created := api.createWorkflow(t)

	name := "Renamed"
	status, body := api.do(t, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{Name: &name})
	require.Equal(t, http.StatusOK, status, string(body))

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Len(t, updated.Steps, 3)

	status, _ = api.do(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(t, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{Name: &name})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "pause it first")
}

func TestAPIHandlers_PublishAndPause(t *testing.T) {
	api := setupTestApp(t)
	created := api.createWorkflow(t)

	status, body := api.do(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var published models.Workflow
	require.NoError(t, json.Unmarshal(body, &published))
	assert.Equal(t, models.WorkflowStatusActive, published.Status)

	status, body = api.do(t, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"status":"paused"`)

	status, _ = api.do(t, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodPost, "/workflows/missing/publish", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_PublishRejectsWorkflowWithoutAction(t *testing.T) {
	api := setupTestApp(t)

	req := createRequest()
	req.Steps = req.Steps[:2]
	req.Connections = req.Connections[:1]

	status, body := api.do(t, http.MethodPost, "/workflows", req)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = api.do(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "action step")
}

func TestAPIHandlers_ListAndDeleteWorkflows(t *testing.T) {
	api := setupTestApp(t)
	first := api.createWorkflow(t)
	api.createWorkflow(t)

	status, body := api.do(t, http.MethodGet, "/workflows?limit=1", nil)
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Workflows   []*models.Workflow `json:"workflows"`
		TotalCount  int                `json:"total_count"`
		HasNextPage bool               `json:"has_next_page"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Workflows, 1)
	assert.Equal(t, 2, list.TotalCount)
	assert.True(t, list.HasNextPage)

	status, _ = api.do(t, http.MethodGet, "/workflows?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodGet, "/workflows?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodDelete, "/workflows/"+first.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(t, http.MethodGet, "/workflows/"+first.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_Enrollments(t *testing.T) {
	api := setupTestApp(t)
	ctx := context.Background()

	workflow := testutil.NewWorkflow(models.TriggerContactCreated).
		Trigger("t").
		Action("a", "add_tag", map[string]any{"tag_name": "new"}).
		Connect("t", "a").
		Build()
	require.NoError(t, api.store.WorkflowRepository().Save(ctx, workflow))

	contact := testutil.CreateTestContact()
	require.NoError(t, api.store.ContactRepository().Save(ctx, contact))

	enrollment, err := api.engine.Enroll(ctx, workflow, contact, nil)
	require.NoError(t, err)
	require.NotNil(t, enrollment)

	status, body := api.do(t, http.MethodGet, "/enrollments/"+enrollment.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"active"`)

	status, body = api.do(t, http.MethodGet, "/enrollments?contact_id="+contact.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), enrollment.ID)

	status, body = api.do(t, http.MethodGet, "/enrollments/"+enrollment.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"executions":[]}`, string(body))

	status, _ = api.do(t, http.MethodPost, "/enrollments/"+enrollment.ID+"/exit", web.ExitEnrollmentRequest{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(t, http.MethodPost, "/enrollments/"+enrollment.ID+"/exit", web.ExitEnrollmentRequest{Reason: "unsubscribed"})
	require.Equal(t, http.StatusOK, status, string(body))

	var exited models.Enrollment
	require.NoError(t, json.Unmarshal(body, &exited))
	assert.Equal(t, models.EnrollmentStatusExited, exited.Status)
	assert.Equal(t, "unsubscribed", exited.ExitReason)

	status, _ = api.do(t, http.MethodGet, "/enrollments/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, http.MethodGet, "/enrollments/missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_PostEvent(t *testing.T) {
	api := setupTestApp(t)

	status, body := api.do(t, http.MethodPost, "/events", models.TriggerEvent{
		TriggerType: models.TriggerOrderPaid,
		ContactID:   "contact-1",
		Context:     map[string]any{"order": map[string]any{"id": "1001"}},
	})
	require.Equal(t, http.StatusAccepted, status, string(body))

	events := api.emitter.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.TriggerOrderPaid, events[0].TriggerType)
	assert.Equal(t, "contact-1", events[0].ContactID)

	status, _ = api.do(t, http.MethodPost, "/events", models.TriggerEvent{TriggerType: models.TriggerOrderPaid})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, api.emitter.Events(), 1)
}

func TestAPIHandlers_MergeTags(t *testing.T) {
	api := setupTestApp(t)

	status, body := api.do(t, http.MethodPost, "/merge-tags/validate", web.MergeTagRequest{
		Text:        "Hi {{contact.first_name}}, your order {{order.number}}",
		TriggerType: models.TriggerTagAdded,
	})
	require.Equal(t, http.StatusOK, status)

	var validation web.MergeTagValidationResponse
	require.NoError(t, json.Unmarshal(body, &validation))
	assert.False(t, validation.Valid)
	assert.Equal(t, []string{"contact.first_name", "order.number"}, validation.Variables)
	require.Len(t, validation.Errors, 1)
	assert.Equal(t, "order.number", validation.Errors[0].Variable)

	status, body = api.do(t, http.MethodPost, "/merge-tags/preview", web.MergeTagRequest{
		Text: "Hi {{contact.first_name}}, order {{order.number}}",
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"preview":"Hi Maria, order #1001"}`, string(body))

	status, _ = api.do(t, http.MethodPost, "/merge-tags/preview", web.MergeTagRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_ActionsAndHealth(t *testing.T) {
	api := setupTestApp(t)

	status, body := api.do(t, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, status)

	var actions struct {
		Actions []web.ActionResponse `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(body, &actions))
	require.Len(t, actions.Actions, 1)
	assert.Equal(t, "add_tag", actions.Actions[0].ID)
	assert.NotEmpty(t, actions.Actions[0].Schema)

	status, body = api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}
