package eventbus

import (
	"context"

	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/models"
)

// TriggerEmitter publishes domain events raised by action handlers as trigger.fired
// messages, so dispatch happens in a separate unit of work.
type TriggerEmitter struct {
	publisher EventPublisher
}

func NewTriggerEmitter(publisher EventPublisher) *TriggerEmitter {
	return &TriggerEmitter{publisher: publisher}
}

func (e *TriggerEmitter) EmitTrigger(ctx context.Context, event models.TriggerEvent) error {
	return e.publisher.Publish(ctx, event.ContactID, events.NewTriggerFired(event))
}
