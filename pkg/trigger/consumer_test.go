package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/nurture/pkg/channels/gochannel"
	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_DispatchesTriggerFired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, []*models.Workflow{workflow("created", models.TriggerContactCreated, nil)})

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, log.Discard())
	defer bus.Close()

	require.NoError(t, NewConsumer(f.dispatcher, log.Discard()).Register(bus))
	require.NoError(t, bus.Subscribe(ctx))

	emitter := eventbus.NewTriggerEmitter(bus)
	require.NoError(t, emitter.EmitTrigger(ctx, models.TriggerEvent{TriggerType: models.TriggerContactCreated, ContactID: f.contact.ID}))
	require.NoError(t, emitter.EmitTrigger(ctx, models.TriggerEvent{TriggerType: models.TriggerContactCreated, ContactID: "ghost"}))

	assert.Eventually(t, func() bool {
		return len(f.enroller.workflowIDs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
