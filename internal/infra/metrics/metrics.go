package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_pages_fetched_total",
			Help: "The total number of property page requests sent to the properties API",
		},
		[]string{"status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "property_fetch_duration_seconds",
			Help:    "Duration of properties API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	StalePagesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "property_stale_pages_discarded_total",
			Help: "Pages that arrived after their listing switched to a new query",
		},
	)

	UnexpectedPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "property_unexpected_pages_total",
			Help: "Pages whose number did not match the requested cursor",
		},
	)

	ActiveListings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_sessions_active",
			Help: "Number of listing sessions currently held in memory",
		},
	)

	QueryChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_query_changes_total",
			Help: "Logical query changes observed on listings",
		},
		[]string{"kind"},
	)

	QueryEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_query_events_published_total",
			Help: "Query events published to Kafka",
		},
		[]string{"status"},
	)

	QueryEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_analytics_events_consumed_total",
			Help: "Query events consumed by the analytics service",
		},
		[]string{"kind", "status"},
	)

	DLQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_published_total",
			Help: "Total number of messages published to DLQ",
		},
		[]string{"reason"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	DetailCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_detail_cache_total",
			Help: "Property detail cache lookups by result",
		},
		[]string{"result"},
	)
)
