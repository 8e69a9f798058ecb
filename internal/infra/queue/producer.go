package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes QueryEvents as JSON.
type KafkaProducer struct {
	writer messageWriter
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // Hash balancer ensures messages with same key go to same partition
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	slog.Info("Kafka Producer initialized", "brokers", brokers, "topic", topic)
	return &KafkaProducer{writer: w, topic: topic}
}

func (p *KafkaProducer) Publish(ctx context.Context, event *domain.QueryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Keyed by listing so the events of one listing stay ordered within a partition.
	msg := kafka.Message{
		Key:   []byte(event.ListingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write to kafka", "topic", p.topic, "error", err)
		metrics.QueryEventsPublished.WithLabelValues("error").Inc()
		return err
	}

	metrics.QueryEventsPublished.WithLabelValues("ok").Inc()
	slog.Debug("Published query event to Kafka", "id", event.ID, "listing_id", event.ListingID, "kind", event.Kind)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NopProducer discards events. It is used when no Kafka brokers are configured.
type NopProducer struct{}

func (NopProducer) Publish(context.Context, *domain.QueryEvent) error { return nil }

func (NopProducer) Close() error { return nil }
