package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/log"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func TestWorkerAndPoller_RunEnrollmentToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan *Runtime, 1)
	group, groupCtx := errgroup.WithContext(ctx)

	command := &cli.Command{
		Name:  "nurture-test",
		Flags: Flags(CommonFlags(), ActionFlags(), WorkerFlags(), PollerFlags()),
		Action: func(ctx context.Context, command *cli.Command) error {
			rt, err := NewRuntime(ctx, command, "nurture-test", log.Discard())
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			started <- rt

			runGroup, runCtx := errgroup.WithContext(ctx)
			runGroup.Go(func() error { return RunWorker(runCtx, command, rt, log.Discard()) })
			runGroup.Go(func() error { return RunPoller(runCtx, command, rt, log.Discard()) })

			return runGroup.Wait()
		},
	}

	group.Go(func() error {
		return command.Run(groupCtx, []string{
			"nurture-test",
			"--database-url", "memory://",
			"--event-bus", "gochannel",
			"--plugins-path", t.TempDir(),
			"--poll-interval", "1s",
		})
	})

	var rt *Runtime
	select {
	case rt = <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not start")
	}

	workflow := testutil.NewWorkflow(models.TriggerContactCreated).
		Trigger("t").
		Action("a", "add_tag", map[string]any{"tag_name": "welcome"}).
		Connect("t", "a").
		Build()
	require.NoError(t, rt.Persistence.WorkflowRepository().Save(ctx, workflow))

	contact := testutil.CreateTestContact()
	require.NoError(t, rt.Persistence.ContactRepository().Save(ctx, contact))

	// the bus subscription is set up asynchronously by the worker
	require.Eventually(t, func() bool {
		if err := rt.Emitter.EmitTrigger(ctx, models.TriggerEvent{
			TriggerType: models.TriggerContactCreated,
			ContactID:   contact.ID,
		}); err != nil {
			return false
		}

		enrollments, err := rt.Engine.Enrollments(ctx, persistence.EnrollmentFilter{WorkflowID: workflow.ID})

		return err == nil && len(enrollments) > 0
	}, 10*time.Second, 500*time.Millisecond)

	require.Eventually(t, func() bool {
		enrollments, err := rt.Engine.Enrollments(ctx, persistence.EnrollmentFilter{WorkflowID: workflow.ID})

		if err != nil || len(enrollments) == 0 {
			return false
		}

		for _, enrollment := range enrollments {
			if enrollment.Status != models.EnrollmentStatusCompleted {
				return false
			}
		}

		return true
	}, 15*time.Second, 200*time.Millisecond)

	tags, err := rt.Persistence.TagRepository().ContactTags(ctx, contact.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	cancel()
	require.NoError(t, group.Wait())
}
