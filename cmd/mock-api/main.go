// Command mock-api serves the reference properties API (GET /api/properties and
// GET /api/properties/{id}) from MongoDB, or from memory when MONGO_URI is unset.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/repository"
	transport "github.com/PropertyListing/internal/transport/http"
	"github.com/PropertyListing/pkg/config"
	"github.com/PropertyListing/pkg/logging"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
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
			NewCatalog,
			NewCatalogHandler,
			transport.NewCatalogServer,
		),
		fx.Invoke(
			SeedCatalog,
			StartServer,
		),
	).Run()
}

// NewCatalog connects to MongoDB when MONGO_URI is set and falls back to an in-memory catalog.
func NewCatalog(lc fx.Lifecycle, cfg *config.Config) (domain.Catalog, error) {
	if cfg.MongoURI == "" {
		slog.Info("MONGO_URI not set, serving an in-memory catalog")
		return repository.NewMemoryCatalog(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	if cfg.MongoDBName == "" || cfg.MongoColl == "" {
		return nil, errors.New("mongo database or collection name not configured")
	}
	catalog, err := repository.NewMongoCatalog(client, cfg.MongoDBName, cfg.MongoColl)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func NewCatalogHandler(catalog domain.Catalog, cfg *config.Config) *transport.CatalogHandler {
	return transport.NewCatalogHandler(catalog, cfg.ListingPageSize)
}

// SeedCatalog fills an empty catalog with SEED_COUNT generated properties.
func SeedCatalog(catalog domain.Catalog, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := repository.SeedIfEmpty(ctx, catalog, cfg.SeedCount)
	if err != nil {
		return err
	}
	total, err := catalog.Count(ctx)
	if err != nil {
		return err
	}
	slog.Info("Catalog ready", "seeded", n, "total", total)
	return nil
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting properties API", "address", server.Addr)
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
