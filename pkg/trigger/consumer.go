package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/events"
	"github.com/dukex/nurture/pkg/persistence"
)

// Consumer dispatches trigger.fired events taken from the bus.
type Consumer struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewConsumer(dispatcher *Dispatcher, logger *slog.Logger) *Consumer {
	return &Consumer{dispatcher: dispatcher, logger: logger.With("module", "trigger_consumer")}
}

func (c *Consumer) Register(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.TriggerFiredEvent, c.handle)
}

func (c *Consumer) handle(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	_, err := c.dispatcher.Dispatch(ctx, fired.Trigger)
	if err != nil && persistence.IsNotFound(err) {
		c.logger.WarnContext(ctx, "Dropping trigger for unknown record", "trigger_type", fired.Trigger.TriggerType,
			"contact_id", fired.Trigger.ContactID, "error", err)

		return nil
	}

	return err
}
