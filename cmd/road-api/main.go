// Package main provides the road API server: REST surface, workflow
// execution engine and realtime stream gateway in one process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadplatform/road/pkg/cmd"
	"github.com/roadplatform/road/pkg/log"
	"github.com/roadplatform/road/pkg/otelhelper"
)

const (
	defaultPort       = 8080
	defaultStreamPort = 8081
)

func main() {
	command := &cli.Command{
		Name:                  "road-api",
		Usage:                 "Create, execute and observe workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "stream-port",
				Usage:   "Port to run the WebSocket stream gateway on",
				Value:   defaultStreamPort,
				Sources: cli.EnvVars("STREAM_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file:// or postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for progress events (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key for the OpenAI playground provider",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "anthropic-api-key",
				Usage:   "API key for the Anthropic playground provider",
				Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "groq-api-key",
				Usage:   "API key for the Groq playground provider",
				Sources: cli.EnvVars("GROQ_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Road API")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := cmd.NewRegistry(logger)

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	broadcaster, err := cmd.NewBroadcaster(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := broadcaster.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close broadcaster", "error", err)
		}
	}()

	var tracer trace.Tracer
	if command.Bool("tracing") {
		tracer, err = otelhelper.NewTracer(ctx, "road-api")
		if err != nil {
			return err
		}
	}

	providers := cmd.NewLLMRegistry(logger, cmd.LLMKeys{
		OpenAI:    command.String("openai-api-key"),
		Anthropic: command.String("anthropic-api-key"),
		Groq:      command.String("groq-api-key"),
	})

	api := NewAPI(logger, persistence, registry, providers, broadcaster, tracer)

	return api.Start(ctx, int(command.Int("port")), int(command.Int("stream-port")))
}
