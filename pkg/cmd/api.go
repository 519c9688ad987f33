package cmd

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/nurture/pkg/services"
	"github.com/dukex/nurture/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	runtime  *Runtime
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, runtime *Runtime) *API {
	return &API{
		logger:   logger,
		runtime:  runtime,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	rt := a.runtime
	graph := services.NewGraphValidator(a.validate, rt.Registry)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(rt.Persistence, graph),
		services.NewPublishing(rt.Persistence, graph),
		rt.Engine,
		rt.Emitter,
		rt.MergeTags,
		a.validate,
		rt.Registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Nurture API")
	})

	handlers.Routes(app)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "API listening", "port", port)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return app.Shutdown()
	}
}
