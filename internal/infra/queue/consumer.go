package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaConsumer struct {
	reader      messageReader
	dlqProducer domain.EventProducer
}

func NewKafkaConsumer(brokers []string, topic string, groupID string, dlqProducer domain.EventProducer) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	slog.Info("Kafka Consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaConsumer{
		reader:      r,
		dlqProducer: dlqProducer,
	}
}

type MessageHandler func(ctx context.Context, event *domain.QueryEvent) error

// Start reads until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Start(ctx context.Context, handler MessageHandler) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped")
			} else {
				slog.Error("Error reading kafka message", "error", err)
			}
			return
		}
		c.handleMessage(ctx, m, handler)
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, m kafka.Message, handler MessageHandler) {
	var event domain.QueryEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		slog.Error("Error unmarshaling query event", "offset", m.Offset, "error", err)
		return
	}

	slog.Debug("Received query event from Kafka", "id", event.ID, "partition", m.Partition)

	if err := handler(ctx, &event); err != nil {
		slog.Error("Error handling query event", "id", event.ID, "error", err)

		// Publish to Dead Letter Queue
		if c.dlqProducer != nil {
			slog.Info("Publishing failed event to DLQ", "event_id", event.ID)
			if dlqErr := c.dlqProducer.Publish(ctx, &event); dlqErr != nil {
				slog.Error("Failed to publish to DLQ", "event_id", event.ID, "error", dlqErr)
			} else {
				metrics.DLQMessagesPublished.WithLabelValues(string(event.Kind)).Inc()
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
