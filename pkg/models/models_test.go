package models

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New()

	valid := &Workflow{
		Name:        "Welcome flow",
		Status:      WorkflowStatusDraft,
		TriggerType: "contact_created",
	}
	assert.NoError(t, validate.Struct(valid))

	invalid := &Workflow{Name: "ok", Status: "archived"}
	err := validate.Struct(invalid)
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field())
	}

	assert.ElementsMatch(t, []string{"Name", "Status", "TriggerType"}, fields)
}

func TestWorkflowStep_ActionTypeRequiredForActions(t *testing.T) {
	validate := validator.New()

	assert.Error(t, validate.Struct(&WorkflowStep{Type: StepTypeAction}))
	assert.NoError(t, validate.Struct(&WorkflowStep{Type: StepTypeAction, ActionType: "add_tag"}))
	assert.NoError(t, validate.Struct(&WorkflowStep{Type: StepTypeDelay}))
}

func TestWorkflow_GraphHelpers(t *testing.T) {
	yes := BranchYes
	workflow := &Workflow{
		Steps: []*WorkflowStep{
			{ID: "action", Type: StepTypeAction},
			{ID: "trigger-1", Type: StepTypeTrigger},
			{ID: "trigger-2", Type: StepTypeTrigger},
		},
		Connections: []*Connection{
			{SourceStepID: "trigger-1", TargetStepID: "a"},
			{SourceStepID: "cond", TargetStepID: "b", SourceHandle: &yes},
			{SourceStepID: "trigger-1", TargetStepID: "c"},
		},
	}

	assert.Equal(t, "trigger-1", workflow.TriggerStep().ID)
	assert.Equal(t, 2, workflow.CountSteps(StepTypeTrigger))
	assert.Nil(t, workflow.Step("missing"))

	outgoing := workflow.Outgoing("trigger-1", "")
	require.Len(t, outgoing, 2)
	assert.Equal(t, "a", outgoing[0].TargetStepID)
	assert.Equal(t, "c", outgoing[1].TargetStepID)

	assert.Len(t, workflow.Outgoing("cond", BranchYes), 1)
	assert.Empty(t, workflow.Outgoing("cond", BranchNo))
}

func TestParseStepType(t *testing.T) {
	stepType, err := ParseStepType("delay")
	require.NoError(t, err)
	assert.Equal(t, StepTypeDelay, stepType)

	_, err = ParseStepType("loop")
	assert.ErrorIs(t, err, ErrUnknownStepType)
}

func TestEnrollment_Transition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	enrollment := &Enrollment{Status: EnrollmentStatusActive}

	require.NoError(t, enrollment.Transition(ctx, EnrollmentStatusWaiting, now))
	assert.Equal(t, EnrollmentStatusWaiting, enrollment.Status)
	assert.Nil(t, enrollment.CompletedAt)

	require.NoError(t, enrollment.Transition(ctx, EnrollmentStatusWaiting, now))
	require.NoError(t, enrollment.Transition(ctx, EnrollmentStatusActive, now))
	require.NoError(t, enrollment.Transition(ctx, EnrollmentStatusActive, now))

	require.NoError(t, enrollment.Transition(ctx, EnrollmentStatusCompleted, now))
	assert.Equal(t, EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
	assert.Equal(t, now, *enrollment.CompletedAt)
}

func TestEnrollment_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()

	for _, terminal := range []EnrollmentStatus{
		EnrollmentStatusCompleted, EnrollmentStatusFailed, EnrollmentStatusExited,
	} {
		t.Run(string(terminal), func(t *testing.T) {
			enrollment := &Enrollment{Status: terminal}

			assert.False(t, enrollment.CanTransition(EnrollmentStatusActive))

			err := enrollment.Transition(ctx, EnrollmentStatusActive, time.Now())
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, terminal, enrollment.Status)
		})
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"order": map[string]any{
			"number": "A-1",
			"items": []any{
				map[string]any{"name": "Course"},
			},
		},
		"labels": map[string]string{"tier": "gold"},
		"codes":  []string{"x", "y"},
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"order.number", "A-1", true},
		{"order.items.0.name", "Course", true},
		{"order.items[0].name", "Course", true},
		{"order.items.1.name", nil, false},
		{"labels.tier", "gold", true},
		{"codes.1", "y", true},
		{"order.missing", nil, false},
		{"order.number.deeper", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			value, found := Lookup(data, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestContact_Field(t *testing.T) {
	contact := &Contact{
		Name:         "Ana Souza",
		City:         "Recife",
		LeadScore:    42,
		CustomFields: map[string]any{"plan": "pro", "city": "shadowed"},
	}

	value, ok := contact.Field("first_name")
	require.True(t, ok)
	assert.Equal(t, "Ana", value)

	value, _ = contact.Field("city")
	assert.Equal(t, "Recife", value)

	value, _ = contact.Field("custom_fields.plan")
	assert.Equal(t, "pro", value)

	value, _ = contact.Field("plan")
	assert.Equal(t, "pro", value)

	value, _ = contact.Field("score")
	assert.Equal(t, 42, value)

	assert.True(t, contact.SetField("notes", "called"))
	assert.Equal(t, "called", contact.Notes)
	assert.False(t, contact.SetField("email", "x@example.com"))
}

func TestParseDelayConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		seconds int
	}{
		{"defaults to one hour", map[string]any{}, 3600},
		{"two hours", map[string]any{"delay": float64(2), "unit": "hours"}, 7200},
		{"numeric string", map[string]any{"delay": "3", "unit": "minutes"}, 180},
		{"days", map[string]any{"delay": 1, "unit": "days"}, 86400},
		{"weeks", map[string]any{"delay": 2, "unit": "weeks"}, 1209600},
		{"unknown unit falls back to hours", map[string]any{"delay": 1, "unit": "fortnights"}, 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.seconds, ParseDelayConfig(tt.config).Seconds())
		})
	}
}

func TestConfigStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ConfigStrings(map[string]any{"ids": []any{"a", " ", "b"}}, "ids"))
	assert.Equal(t, []string{"7"}, ConfigStrings(map[string]any{"ids": float64(7)}, "ids"))
	assert.Nil(t, ConfigStrings(map[string]any{}, "ids"))
}

func TestJob_Due(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)

	assert.True(t, (&Job{NotBefore: now}).Due(now))
	assert.False(t, (&Job{NotBefore: later}).Due(now))
	assert.False(t, (&Job{NotBefore: now, LockedUntil: &later}).Due(now))
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phone, code, expected string
	}{
		{"(11) 98765-4321", "55", "5511987654321"},
		{"5511987654321", "55", "5511987654321"},
		{"+1 415 555 0100", "55", "14155550100"},
		{"0044 20 7946 0958", "55", "442079460958"},
		{"011 98765-4321", "55", "5511987654321"},
		{"98765-4321", "", "987654321"},
		{"(55) 99123-4567", "55", "5555991234567"},
		{"60123456789", "60", "60123456789"},
		{"012-345 6789", "60", "60123456789"},
		{"6591234567", "65", "6591234567"},
		{"9123 4567", "65", "6591234567"},
		{"6512 3456", "65", "6565123456"},
		{"380501234567", "380", "380501234567"},
		{"050 123 4567", "380", "380501234567"},
		{"", "55", ""},
		{"n/a", "55", ""},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizePhone(tt.phone, tt.code))
		})
	}
}
