package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/eventbus"
	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/otelhelper"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/dukex/nurture/pkg/registry"
	"github.com/dukex/nurture/pkg/scheduler"
	"github.com/dukex/nurture/pkg/transport/smtp"
	"github.com/dukex/nurture/pkg/transport/whatsapp"
	"github.com/dukex/nurture/pkg/trigger"
	cli "github.com/urfave/cli/v3"
)

const httpTimeout = 30 * time.Second

// Runtime is the object graph shared by the binaries: stores, bus, engine and dispatch.
type Runtime struct {
	Persistence persistence.Persistence
	Jobs        *JobStore
	Bus         eventbus.EventBus
	Emitter     *eventbus.TriggerEmitter
	MergeTags   *mergetag.Engine
	Registry    *registry.Registry
	Scheduler   *scheduler.Scheduler
	Engine      *engine.Engine
	Dispatcher  *trigger.Dispatcher

	logger  *slog.Logger
	closers []func(context.Context) error
}

// NewRuntime builds the runtime from the common and action flags of command. Everything
// opened so far is closed again when a later step fails.
func NewRuntime(ctx context.Context, command *cli.Command, serviceName string, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{logger: logger}

	if err := rt.build(ctx, command, serviceName); err != nil {
		rt.Close(ctx)

		return nil, err
	}

	return rt, nil
}

func (rt *Runtime) build(ctx context.Context, command *cli.Command, serviceName string) error {
	tracer := otelhelper.Tracer(serviceName)

	if command.Bool("tracing") {
		t, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return err
		}

		tracer = t
		rt.closers = append(rt.closers, shutdown)
	}

	store, err := NewPersistence(ctx, rt.logger, command.String("database-url"))
	if err != nil {
		return err
	}

	rt.Persistence = store
	rt.closers = append(rt.closers, store.Close)

	jobs, err := NewJobStore(ctx, rt.logger, command.String("job-store-url"), store)
	if err != nil {
		return err
	}

	rt.Jobs = jobs
	rt.closers = append(rt.closers, func(context.Context) error { return jobs.Close() })

	bus, err := NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, rt.logger)
	if err != nil {
		return err
	}

	rt.Bus = bus
	rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })

	rt.Emitter = eventbus.NewTriggerEmitter(bus)
	rt.MergeTags = mergetag.NewEngine()

	deps, err := rt.dependencies(command, store)
	if err != nil {
		return err
	}

	reg, err := NewRegistry(rt.logger, command.String("plugins-path"), deps)
	if err != nil {
		return err
	}

	rt.Registry = reg
	rt.Scheduler = scheduler.NewScheduler(jobs, rt.logger)
	rt.Engine = engine.New(store, reg, rt.Scheduler,
		engine.WithLogger(rt.logger),
		engine.WithTracer(tracer),
		engine.WithPublisher(bus),
	)
	rt.Dispatcher = trigger.NewDispatcher(store.WorkflowRepository(), store.ContactRepository(), rt.Engine, rt.logger,
		trigger.WithCascade(command.Bool("allow-trigger-cascade")),
	)

	return nil
}

func (rt *Runtime) dependencies(command *cli.Command, store persistence.Persistence) (protocol.Dependencies, error) {
	httpClient := &http.Client{Timeout: httpTimeout}

	deps := protocol.Dependencies{
		Logger:        rt.logger,
		Contacts:      store.ContactRepository(),
		Tags:          store.TagRepository(),
		Scores:        store.ScoreRepository(),
		Templates:     store.TemplateRepository(),
		Users:         store.UserRepository(),
		MergeTags:     rt.MergeTags,
		HTTPClient:    httpClient,
		Events:        rt.Emitter,
		DefaultRegion: command.String("default-country-code"),
	}

	if host := command.String("smtp-host"); host != "" {
		sender, err := smtp.NewSender(smtp.Config{
			Host:     host,
			Port:     command.Int("smtp-port"),
			Username: command.String("smtp-username"),
			Password: command.String("smtp-password"),
			From:     command.String("smtp-from"),
		}, rt.logger)
		if err != nil {
			return deps, err
		}

		deps.Email = sender
	}

	if url := command.String("whatsapp-url"); url != "" {
		client, err := whatsapp.NewClient(whatsapp.Config{
			URL:      url,
			Token:    command.String("whatsapp-token"),
			Instance: command.String("whatsapp-instance"),
		}, httpClient, rt.logger)
		if err != nil {
			return deps, err
		}

		deps.WhatsApp = client
	}

	return deps, nil
}

// Close releases everything in reverse opening order.
func (rt *Runtime) Close(ctx context.Context) {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		rt.logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
	}

	rt.closers = nil
}
