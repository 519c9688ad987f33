package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepDue(t *testing.T) {
	notBefore := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := NewStepDue(&models.Job{ID: "job", EnrollmentID: "en", StepID: "st", Attempts: 2, NotBefore: notBefore})

	assert.Equal(t, StepDueEvent, event.GetType())
	assert.Equal(t, StepDueEvent, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 2, event.Delivery)

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded StepDue
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, event.JobID, decoded.JobID)
	assert.Equal(t, event.StepID, decoded.StepID)
	assert.True(t, notBefore.Equal(decoded.NotBefore))
}

func TestNewTriggerFired_CarriesProvenance(t *testing.T) {
	event := NewTriggerFired(models.TriggerEvent{
		TriggerType: models.TriggerTagAdded,
		ContactID:   "c1",
		Context:     map[string]any{models.ContextOriginatingWorkflowID: "wf-1"},
	})

	assert.Equal(t, TriggerFiredEvent, event.GetType())
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, "c1", event.Trigger.ContactID)
}

func TestNewEnrollmentFinished(t *testing.T) {
	event := NewEnrollmentFinished(&models.Enrollment{
		ID: "en", WorkflowID: "wf", ContactID: "c", Status: models.EnrollmentStatusExited, ExitReason: "deleted",
	})

	assert.Equal(t, "wf", event.WorkflowID)
	assert.Equal(t, models.EnrollmentStatusExited, event.Status)
	assert.Equal(t, "deleted", event.ExitReason)
}
