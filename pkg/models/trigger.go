package models

// Trigger types a workflow can subscribe to.
const (
	TriggerContactCreated        = "contact_created"
	TriggerContactUpdated        = "contact_updated"
	TriggerFieldUpdated          = "field_updated"
	TriggerScoreChanged          = "score_changed"
	TriggerTagAdded              = "tag_added"
	TriggerTagRemoved            = "tag_removed"
	TriggerOrderCreated          = "order_created"
	TriggerOrderPaid             = "order_paid"
	TriggerOrderCancelled        = "order_cancelled"
	TriggerOrderShipped          = "order_shipped"
	TriggerOrderDelivered        = "order_delivered"
	TriggerEnrollmentCreated     = "enrollment_created"
	TriggerEnrollmentCompleted   = "enrollment_completed"
	TriggerEnrollmentCancelled   = "enrollment_cancelled"
	TriggerSubscriptionCancelled = "subscription_cancelled"
	TriggerSubscriptionPastDue   = "subscription_past_due"
	TriggerAttendanceMarked      = "attendance_marked"
	TriggerAttendancePresent     = "attendance_present"
	TriggerAttendanceAbsent      = "attendance_absent"
	TriggerAttendanceLate        = "attendance_late"
	TriggerAttendanceExcused     = "attendance_excused"
)

// HandlerProducible lists the trigger types an action handler can itself cause.
var HandlerProducible = map[string]bool{
	TriggerTagAdded:       true,
	TriggerTagRemoved:     true,
	TriggerContactUpdated: true,
	TriggerFieldUpdated:   true,
	TriggerScoreChanged:   true,
}

// Keys the engine adds to the data bag handed to action handlers.
const (
	ContextWorkflowID            = "workflow_id"
	ContextEnrollmentID          = "enrollment_id"
	ContextStepID                = "step_id"
	ContextContact               = "contact"
	ContextOriginatingWorkflowID = "originating_workflow_id"
	ContextTriggerType           = "trigger_type"
)

// TriggerEvent is a domain event that may enroll contacts into matching workflows.
type TriggerEvent struct {
	TriggerType string         `json:"trigger_type"         validate:"required"`
	ContactID   string         `json:"contact_id"           validate:"required"`
	Conditions  map[string]any `json:"conditions,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// OriginatingWorkflowID returns the provenance stamp, if the event came from a workflow.
func (e TriggerEvent) OriginatingWorkflowID() string {
	id, _ := e.Context[ContextOriginatingWorkflowID].(string)

	return id
}
