package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadplatform/road/pkg/broadcast"
	"github.com/roadplatform/road/pkg/engine"
	"github.com/roadplatform/road/pkg/llm"
	"github.com/roadplatform/road/pkg/persistence"
	"github.com/roadplatform/road/pkg/runner"
	"github.com/roadplatform/road/pkg/services"
	"github.com/roadplatform/road/pkg/state"
	"github.com/roadplatform/road/pkg/stream"
	"github.com/roadplatform/road/pkg/web"
)

// API assembles every component of the road server: REST surface, execution
// engine and the realtime stream gateway.
type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *runner.Registry
	broadcaster *broadcast.Broadcaster
	tracer      trace.Tracer

	executions *services.Execution
	workflows  *services.Workflow
	handlers   *web.APIHandlers
	gateway    *stream.Gateway
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	registry *runner.Registry,
	providers *llm.Registry,
	broadcaster *broadcast.Broadcaster,
	tracer trace.Tracer,
) *API {
	states := state.NewStore()
	eng := engine.NewEngine(logger, registry, states, broadcaster, p, tracer)

	workflowService := services.NewWorkflow(p)
	executionService := services.NewExecution(p, eng, states, workflowService)
	promptService := services.NewPrompt(p)
	conversationService := services.NewConversation(p)
	playgroundService := services.NewPlayground(logger, providers, conversationService)

	return &API{
		logger:      logger,
		persistence: p,
		registry:    registry,
		broadcaster: broadcaster,
		tracer:      tracer,
		executions:  executionService,
		workflows:   workflowService,
		handlers: web.NewAPIHandlers(
			workflowService,
			executionService,
			promptService,
			conversationService,
			playgroundService,
			registry,
		),
		gateway: stream.NewGateway(logger, executionService, broadcaster),
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Road API")
	})

	a.handlers.Register(app)

	return app
}

// Start runs the REST listener and the stream listener until either fails.
func (a *API) Start(ctx context.Context, port, streamPort int) error {
	if err := a.broadcaster.Start(ctx); err != nil {
		return err
	}

	errs := make(chan error, 2)

	streamServer := &http.Server{
		Addr:              ":" + strconv.Itoa(streamPort),
		Handler:           a.gateway.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting stream gateway", "port", streamPort)
		errs <- streamServer.ListenAndServe()
	}()

	app := a.App()

	go func() {
		a.logger.Info("Starting REST API", "port", port)
		errs <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = streamServer.Shutdown(shutdownCtx)
		_ = app.ShutdownWithContext(shutdownCtx)

		return nil
	}
}
