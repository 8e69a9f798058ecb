package factory

import (
	"errors"
	"fmt"

	"github.com/PropertyListing/internal/app"
	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/gateway"
	"github.com/PropertyListing/internal/infra/queue"
	transport "github.com/PropertyListing/internal/transport/http"
	"github.com/PropertyListing/pkg/config"
)

// NewSessionStore creates the listing session store with validation.
func NewSessionStore(
	client *gateway.Client,
	events domain.EventProducer,
	cfg *config.Config,
) (*app.SessionStore, error) {
	if client == nil {
		return nil, errors.New("properties client is nil")
	}
	if events == nil {
		return nil, errors.New("event producer is nil")
	}
	if cfg.ListingPageSize < 1 || cfg.ListingPageSize > domain.MaxPageSize {
		return nil, fmt.Errorf("invalid listing page size: %d (must be 1-%d)", cfg.ListingPageSize, domain.MaxPageSize)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("invalid session TTL: %s", cfg.SessionTTL)
	}
	if cfg.SentinelThresholdPx < 0 {
		return nil, fmt.Errorf("invalid sentinel threshold: %v (must be >= 0)", cfg.SentinelThresholdPx)
	}

	return app.NewSessionStore(client, events, cfg.ListingPageSize, cfg.SentinelThresholdPx, cfg.SessionTTL), nil
}

// NewDetailService creates the property detail service. cache may be nil.
func NewDetailService(client *gateway.Client, cache domain.DetailCache) *app.DetailService {
	return app.NewDetailService(client, cache)
}

// NewAnalyticsService creates the query analytics service, or returns nil without a consumer.
func NewAnalyticsService(consumer *queue.KafkaConsumer) *app.AnalyticsService {
	if consumer == nil {
		return nil
	}
	return app.NewAnalyticsService(consumer)
}

// NewHandler creates the listing API handler.
func NewHandler(
	sessions *app.SessionStore,
	details *app.DetailService,
	analytics *app.AnalyticsService,
) *transport.Handler {
	var stats transport.StatsProvider
	if analytics != nil {
		stats = analytics
	}
	return transport.NewHandler(sessions, details, stats)
}
