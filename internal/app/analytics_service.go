package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/PropertyListing/internal/infra/queue"
)

// EventConsumer delivers query events to a handler until its context is cancelled.
type EventConsumer interface {
	Start(ctx context.Context, handler queue.MessageHandler)
	Close() error
}

// QueryStats aggregates the query events seen by AnalyticsService.
type QueryStats struct {
	Events       int                           `json:"events"`
	ByKind       map[domain.QueryEventKind]int `json:"byKind"`
	SortUsage    map[string]int                `json:"sortUsage"`
	FilterUsage  map[string]int                `json:"filterUsage"`
	DistinctKeys int                           `json:"distinctKeys"`
}

// AnalyticsService consumes listing query events and aggregates how filters and sorts are used.
// Events it cannot accept are handed back to the consumer, which dead-letters them.
type AnalyticsService struct {
	consumer EventConsumer

	mu    sync.Mutex
	stats QueryStats
	keys  map[string]struct{}
}

func NewAnalyticsService(consumer EventConsumer) *AnalyticsService {
	return &AnalyticsService{
		consumer: consumer,
		stats: QueryStats{
			ByKind:      make(map[domain.QueryEventKind]int),
			SortUsage:   make(map[string]int),
			FilterUsage: make(map[string]int),
		},
		keys: make(map[string]struct{}),
	}
}

func (s *AnalyticsService) Start(ctx context.Context) {
	slog.Info("Starting query analytics service (Kafka Consumer)")
	go s.consumer.Start(ctx, s.handleEvent)
}

func (s *AnalyticsService) handleEvent(ctx context.Context, event *domain.QueryEvent) error {
	if err := validateEvent(event); err != nil {
		metrics.QueryEventsConsumed.WithLabelValues(string(event.Kind), "rejected").Inc()
		return err
	}
	metrics.QueryEventsConsumed.WithLabelValues(string(event.Kind), "ok").Inc()

	slog.Debug("Consuming query event", "event_id", event.ID, "listing_id", event.ListingID, "kind", event.Kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Events++
	s.stats.ByKind[event.Kind]++
	if !event.Query.Sort.IsZero() {
		s.stats.SortUsage[string(event.Query.Sort.By)+":"+string(event.Query.Sort.Dir)]++
	}
	f := event.Query.Filters
	for field, set := range map[string]bool{
		"name":     f.Name != nil && *f.Name != "",
		"address":  f.Address != nil && *f.Address != "",
		"minPrice": f.MinPrice != nil,
		"maxPrice": f.MaxPrice != nil,
	} {
		if set {
			s.stats.FilterUsage[field]++
		}
	}
	s.keys[event.Key] = struct{}{}
	s.stats.DistinctKeys = len(s.keys)
	return nil
}

func validateEvent(event *domain.QueryEvent) error {
	switch event.Kind {
	case domain.QueryEventCreated, domain.QueryEventFilters, domain.QueryEventFiltersReset, domain.QueryEventSort:
	default:
		return fmt.Errorf("unknown query event kind %q", event.Kind)
	}
	if event.ListingID == "" || event.Key == "" {
		return fmt.Errorf("query event %s is missing listing id or key", event.ID)
	}
	if err := event.Query.WithPage(1, max(event.PageSize, 1)).Validate(); err != nil {
		return fmt.Errorf("query event %s: %w", event.ID, err)
	}
	return nil
}

// Stats returns a copy of the aggregated counters.
func (s *AnalyticsService) Stats() QueryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := QueryStats{
		Events:       s.stats.Events,
		ByKind:       make(map[domain.QueryEventKind]int, len(s.stats.ByKind)),
		SortUsage:    make(map[string]int, len(s.stats.SortUsage)),
		FilterUsage:  make(map[string]int, len(s.stats.FilterUsage)),
		DistinctKeys: s.stats.DistinctKeys,
	}
	for k, v := range s.stats.ByKind {
		out.ByKind[k] = v
	}
	for k, v := range s.stats.SortUsage {
		out.SortUsage[k] = v
	}
	for k, v := range s.stats.FilterUsage {
		out.FilterUsage[k] = v
	}
	return out
}

func (s *AnalyticsService) Stop() error {
	return s.consumer.Close()
}
