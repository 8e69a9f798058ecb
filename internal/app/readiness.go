package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

// Pinger reports whether the upstream properties API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ReadinessWaiter struct {
	upstream Pinger
	brokers  []string
	topic    string
	interval time.Duration
}

// NewReadinessWaiter waits for upstream and, when brokers are given, for the Kafka topic.
func NewReadinessWaiter(upstream Pinger, brokers []string, topic string) *ReadinessWaiter {
	return &ReadinessWaiter{
		upstream: upstream,
		brokers:  brokers,
		topic:    topic,
		interval: 2 * time.Second,
	}
}

func (w *ReadinessWaiter) WaitForDependencies(ctx context.Context) error {
	if err := w.waitFor(ctx, "properties API", w.upstream.Ping); err != nil {
		return err
	}
	if len(w.brokers) == 0 {
		slog.Info("No Kafka brokers configured, skipping Kafka readiness check")
		return nil
	}
	return w.waitFor(ctx, "Kafka", w.checkKafka)
}

// waitFor polls check until it succeeds. There is no deadline; the caller's ctx decides how long to wait.
func (w *ReadinessWaiter) waitFor(ctx context.Context, name string, check func(context.Context) error) error {
	slog.Info("Waiting for " + name + "...")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := check(ctx); err != nil {
				slog.Warn(name+" not ready yet", "error", err)
				continue
			}
			slog.Info(name + " is ready")
			return nil
		}
	}
}

func (w *ReadinessWaiter) checkKafka(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: 2 * time.Second}
	for _, broker := range w.brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			return fmt.Errorf("failed to connect to broker %s: %w", broker, err)
		}
		_ = conn.Close()
	}

	conn, err := kafka.DialContext(ctx, "tcp", w.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Auto-created topics may report no partitions until the first write.
	partitions, err := conn.ReadPartitions(w.topic)
	if err != nil {
		return fmt.Errorf("failed to read partitions for topic %s: %w", w.topic, err)
	}
	if len(partitions) == 0 {
		return fmt.Errorf("topic %s has no partitions", w.topic)
	}
	return nil
}
