package protocol

import (
	"context"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

// Scheduler is the durable continuation seam. Enqueue records an invocation of a step
// for an enrollment at or after notBefore; it never runs the step inline.
type Scheduler interface {
	Enqueue(ctx context.Context, enrollmentID, stepID string, notBefore time.Time) (*models.Job, error)
	// Ack removes a finished job
	Ack(ctx context.Context, jobID string) error
	// Pending counts queued jobs of the enrollment other than exceptJobID
	Pending(ctx context.Context, enrollmentID, exceptJobID string) (int, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, phone, message string) error
}

// TriggerEmitter publishes domain events produced by actions, e.g. a tag attached by a
// workflow, so they reach trigger dispatch asynchronously.
type TriggerEmitter interface {
	EmitTrigger(ctx context.Context, event models.TriggerEvent) error
}

// EmitFromWorkflow stamps event with the workflow found in the handler data bag and
// publishes it. A nil emitter drops the event.
func EmitFromWorkflow(ctx context.Context, emitter TriggerEmitter, data map[string]any, event models.TriggerEvent) error {
	if emitter == nil {
		return nil
	}

	if event.Context == nil {
		event.Context = make(map[string]any)
	}

	if workflowID, _ := data[models.ContextWorkflowID].(string); workflowID != "" {
		event.Context[models.ContextOriginatingWorkflowID] = workflowID
	}

	return emitter.EmitTrigger(ctx, event)
}
