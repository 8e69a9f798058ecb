package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/PropertyListing/internal/viewport"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// View is what a renderer reads from a listing.
type View struct {
	ID       string       `json:"id"`
	Query    domain.Query `json:"query"`
	QueryKey string       `json:"queryKey"`
	PageSize int          `json:"pageSize"`
	Snapshot
}

// Listing is one renderer's session: a coordinator for the query, an accumulator for the
// pages, and the query key that ties them together. The listing subscribes to its
// coordinator and resets the accumulator whenever a change moves the key.
type Listing struct {
	id          string
	pageSize    int
	coordinator *Coordinator
	acc         *Accumulator
	sentinel    *viewport.Sentinel
	events      domain.EventProducer

	// mutateMu serializes coordinator mutations with the resets they cause, so the
	// accumulator sees queries in the coordinator's order. View never takes it.
	mutateMu sync.Mutex

	mu  sync.Mutex
	key string
}

// NewListing creates a listing for q. Call Start to request the first page.
func NewListing(id string, fetcher domain.PageFetcher, events domain.EventProducer, q domain.Query, pageSize int, thresholdPx float64) *Listing {
	acc := NewAccumulator(fetcher, q, pageSize)
	l := &Listing{
		id:          id,
		pageSize:    pageSize,
		coordinator: NewCoordinator(q),
		acc:         acc,
		sentinel:    viewport.NewSentinel(acc, thresholdPx),
		events:      events,
		key:         q.Key(pageSize),
	}
	l.coordinator.Subscribe(l.onQueryChange)
	return l
}

func (l *Listing) ID() string {
	return l.id
}

// Start requests page 1 and announces the listing.
func (l *Listing) Start() {
	l.acc.LoadMore()
	q := l.coordinator.Query()
	l.publish(domain.QueryEventCreated, q, l.queryKey())
}

func (l *Listing) SetFilters(patch FilterPatch) bool {
	l.mutateMu.Lock()
	defer l.mutateMu.Unlock()
	return l.coordinator.SetFilters(patch)
}

func (l *Listing) ResetFilters() bool {
	l.mutateMu.Lock()
	defer l.mutateMu.Unlock()
	return l.coordinator.ResetFilters()
}

func (l *Listing) SetSort(key domain.SortBy, dir *domain.SortDir) (bool, error) {
	l.mutateMu.Lock()
	defer l.mutateMu.Unlock()
	return l.coordinator.SetSort(key, dir)
}

func (l *Listing) ToggleSort(key domain.SortBy) (domain.SortDir, error) {
	l.mutateMu.Lock()
	defer l.mutateMu.Unlock()
	return l.coordinator.ToggleSort(key)
}

// onQueryChange runs on the mutating goroutine with mutateMu held. l.mu only guards the
// key, so accumulator subscribers notified by Reset may read the listing.
func (l *Listing) onQueryChange(change QueryChange) {
	key := change.Query.Key(l.pageSize)

	l.mu.Lock()
	if key == l.key {
		l.mu.Unlock()
		return
	}
	l.key = key
	l.mu.Unlock()

	l.acc.Reset(change.Query)

	metrics.QueryChanges.WithLabelValues(string(change.Kind)).Inc()
	slog.Info("Listing query changed", "listing_id", l.id, "kind", change.Kind, "query_key", key[:12])
	l.publish(change.Kind, change.Query, key)
}

func (l *Listing) publish(kind domain.QueryEventKind, q domain.Query, key string) {
	if l.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	event := &domain.QueryEvent{
		ID:         uuid.NewString(),
		ListingID:  l.id,
		Kind:       kind,
		Key:        key,
		Query:      q,
		PageSize:   l.pageSize,
		OccurredAt: time.Now().UTC(),
	}
	if err := l.events.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish query event", "listing_id", l.id, "kind", kind, "error", err)
	}
}

func (l *Listing) LoadMore() bool {
	return l.acc.LoadMore()
}

func (l *Listing) Refresh() {
	l.acc.Refresh()
}

// Observe feeds one viewport measurement to the listing's sentinel.
func (l *Listing) Observe(marker *viewport.Rect, vp viewport.Rect) bool {
	return l.sentinel.Observe(marker, vp)
}

// ObserveWithin is Observe with a caller-chosen threshold.
func (l *Listing) ObserveWithin(marker *viewport.Rect, vp viewport.Rect, thresholdPx float64) bool {
	return viewport.NewSentinel(l.acc, thresholdPx).Observe(marker, vp)
}

func (l *Listing) Wait(ctx context.Context) error {
	return l.acc.Wait(ctx)
}

// Subscribe registers fn for accumulator snapshots. fn may read the listing but must not
// mutate its query.
func (l *Listing) Subscribe(fn func(Snapshot)) func() {
	return l.acc.Subscribe(fn)
}

func (l *Listing) View() View {
	l.mu.Lock()
	key := l.key
	q := l.coordinator.Query()
	snap := l.acc.Snapshot()
	l.mu.Unlock()

	return View{
		ID:       l.id,
		Query:    q,
		QueryKey: key,
		PageSize: l.pageSize,
		Snapshot: snap,
	}
}

func (l *Listing) queryKey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

func (l *Listing) Close() {
	l.acc.Close()
}
