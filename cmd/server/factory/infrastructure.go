// Package factory provides dependency injection constructors for infrastructure components.
package factory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/cache"
	"github.com/PropertyListing/internal/infra/gateway"
	"github.com/PropertyListing/internal/infra/queue"
	"github.com/PropertyListing/pkg/config"
	"go.uber.org/fx"
)

// NewPropertiesClient creates the gateway to the upstream properties API.
func NewPropertiesClient(cfg *config.Config) (*gateway.Client, error) {
	if cfg.PropertiesAPIURL == "" {
		return nil, errors.New("properties API URL not configured")
	}
	return gateway.NewClient(cfg.PropertiesAPIURL), nil
}

// NewDetailCache creates the Redis property detail cache, or returns nil when REDIS_ADDR is empty.
func NewDetailCache(lc fx.Lifecycle, cfg *config.Config) (domain.DetailCache, error) {
	if cfg.RedisAddr == "" {
		slog.Info("REDIS_ADDR not set, property detail cache disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return cache.NewRedisDetailCache(client, cfg.DetailCacheTTL), nil
}

// NewMainKafkaProducer creates the producer for listing query events. Without brokers
// events are dropped.
func NewMainKafkaProducer(cfg *config.Config, lc fx.Lifecycle) (domain.EventProducer, error) {
	if !cfg.EventsEnabled() {
		slog.Info("KAFKA_BROKERS not set, query events disabled")
		return queue.NopProducer{}, nil
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("kafka topic not configured")
	}
	return newProducer(lc, cfg.KafkaBrokers, cfg.KafkaTopic), nil
}

// NewDLQProducer creates a Kafka producer for the Dead Letter Queue.
func NewDLQProducer(cfg *config.Config, lc fx.Lifecycle) (domain.EventProducer, error) {
	if !cfg.EventsEnabled() {
		return queue.NopProducer{}, nil
	}
	if cfg.KafkaDLQTopic == "" {
		return nil, errors.New("kafka DLQ topic not configured")
	}
	return newProducer(lc, cfg.KafkaBrokers, cfg.KafkaDLQTopic), nil
}

func newProducer(lc fx.Lifecycle, brokers []string, topic string) *queue.KafkaProducer {
	producer := queue.NewKafkaProducer(brokers, topic)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer
}

// NewKafkaConsumer creates the query analytics consumer with DLQ support, or returns nil
// when events are disabled.
func NewKafkaConsumer(
	cfg *config.Config,
	dlqProducer domain.EventProducer,
	lc fx.Lifecycle,
) (*queue.KafkaConsumer, error) {
	if !cfg.EventsEnabled() {
		return nil, nil
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("kafka topic not configured")
	}

	consumer := queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, dlqProducer)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return consumer.Close()
		},
	})
	return consumer, nil
}
