package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/PropertyListing/cmd/server/factory"
	"github.com/PropertyListing/internal/app"
	"github.com/PropertyListing/internal/infra/gateway"
	"github.com/PropertyListing/internal/infra/tracing"
	transport "github.com/PropertyListing/internal/transport/http"
	"github.com/PropertyListing/pkg/config"
	"github.com/PropertyListing/pkg/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Supply(cfg),
		fx.Provide(
			// Infrastructure
			factory.NewPropertiesClient,
			factory.NewDetailCache,
			fx.Annotate(
				factory.NewMainKafkaProducer,
				fx.ResultTags(`name:"main_producer"`),
			),
			fx.Annotate(
				factory.NewDLQProducer,
				fx.ResultTags(`name:"dlq_producer"`),
			),
			fx.Annotate(
				factory.NewKafkaConsumer,
				fx.ParamTags(``, `name:"dlq_producer"`, ``),
			),

			// Services
			fx.Annotate(
				factory.NewSessionStore,
				fx.ParamTags(``, `name:"main_producer"`, ``),
			),
			factory.NewDetailService,
			factory.NewAnalyticsService,

			// HTTP Server
			factory.NewHandler,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func RegisterHooks(lc fx.Lifecycle, sessions *app.SessionStore, analytics *app.AnalyticsService) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go sessions.Start(ctx)
			if analytics != nil {
				analytics.Start(ctx)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			sessions.Close()
			return nil
		},
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	if !cfg.TracingEnabled {
		slog.Info("Tracing disabled")
		return nil
	}

	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, "property-listing")
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(cfg *config.Config, client *gateway.Client) error {
	ctx := context.Background()
	waiter := app.NewReadinessWaiter(
		client,
		cfg.KafkaBrokers,
		cfg.KafkaTopic,
	)
	return waiter.WaitForDependencies(ctx)
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting listing API server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
