package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LoadState is the accumulator's position in its state machine.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LoadState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "loading":
		*s = StateLoading
	case "error":
		*s = StateError
	default:
		return fmt.Errorf("unknown load state %q", text)
	}
	return nil
}

// Snapshot is a consistent copy of the accumulator state, safe to hand to renderers.
type Snapshot struct {
	Properties  []domain.Property `json:"properties"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Err         error             `json:"-"`
	HasNextPage bool              `json:"hasNextPage"`
	Total       int               `json:"total"`
	Pages       int               `json:"pages"`
	Cursor      int               `json:"cursor"`
	Generation  uint64            `json:"generation"`
	State       LoadState         `json:"state"`
	// Version increases with every transition. Observers may receive snapshots out of order
	// and should drop any with a Version lower than one already seen.
	Version uint64 `json:"version"`
}

// Accumulator collects the pages of one active query in fetch order and allows at most one
// fetch per generation in flight. Every reset starts a new generation; results of an older
// generation are discarded when they arrive.
type Accumulator struct {
	fetcher  domain.PageFetcher
	pageSize int

	mu         sync.Mutex
	query      domain.Query
	pages      []*domain.Page
	cursor     int
	hasNext    bool
	total      int
	state      LoadState
	err        error
	generation uint64
	version    uint64
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
	wg         sync.WaitGroup

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewAccumulator returns an idle accumulator for q. Nothing is fetched until LoadMore or Refresh.
func NewAccumulator(fetcher domain.PageFetcher, q domain.Query, pageSize int) *Accumulator {
	return &Accumulator{
		fetcher:  fetcher,
		pageSize: pageSize,
		query:    q.Clone(),
		cursor:   1,
		hasNext:  true,
		subs:     make(map[int]func(Snapshot)),
	}
}

// LoadMore starts fetching the page at the cursor. It is a no-op, returning false, while a fetch
// is in flight, after the last page, or once the accumulator is closed.
func (a *Accumulator) LoadMore() bool {
	a.mu.Lock()
	if a.closed || a.state == StateLoading || !a.hasNext {
		a.mu.Unlock()
		return false
	}
	a.startFetchLocked()
	snap, subs := a.snapshotLocked(), a.subscribersLocked()
	a.mu.Unlock()

	notify(subs, snap)
	return true
}

// Refresh discards every accumulated page and refetches page 1 of the current query.
func (a *Accumulator) Refresh() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.resetLocked()
	snap, subs := a.snapshotLocked(), a.subscribersLocked()
	a.mu.Unlock()

	notify(subs, snap)
}

// Reset switches to q and refetches from page 1.
func (a *Accumulator) Reset(q domain.Query) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.query = q.Clone()
	a.resetLocked()
	snap, subs := a.snapshotLocked(), a.subscribersLocked()
	a.mu.Unlock()

	notify(subs, snap)
}

func (a *Accumulator) resetLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.generation++
	a.pages = nil
	a.cursor = 1
	a.hasNext = true
	a.total = 0
	a.startFetchLocked()
}

func (a *Accumulator) startFetchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.state = StateLoading
	a.err = nil
	a.cancel = cancel
	a.done = done
	a.version++

	req := a.query.WithPage(a.cursor, a.pageSize)
	a.wg.Add(1)
	go a.fetch(ctx, cancel, a.generation, req, done)
}

func (a *Accumulator) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, req domain.PageQuery, done chan struct{}) {
	defer a.wg.Done()
	defer close(done)
	defer cancel()

	ctx, span := otel.Tracer("accumulator").Start(ctx, "LoadPage")
	span.SetAttributes(attribute.Int("page", req.Page), attribute.Int64("generation", int64(gen)))
	defer span.End()

	page, err := a.fetcher.FetchPage(ctx, req)
	if err == nil && page == nil {
		err = errors.New("fetcher returned no page")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	a.complete(gen, req.Page, page, err)
}

func (a *Accumulator) complete(gen uint64, requested int, page *domain.Page, err error) {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		metrics.StalePagesDiscarded.Inc()
		slog.Debug("Discarding stale page", "page", requested, "generation", gen)
		return
	}

	a.cancel = nil
	a.done = nil
	a.version++

	switch {
	case err != nil:
		a.state = StateError
		a.err = err
	case page.Page != requested:
		metrics.UnexpectedPages.Inc()
		a.state = StateError
		a.err = fmt.Errorf("%w: requested page %d, got %d", domain.ErrUnexpectedPage, requested, page.Page)
	case a.hasPageLocked(page.Page):
		a.state = StateIdle
	default:
		a.pages = append(a.pages, page)
		a.cursor = page.Page + 1
		a.hasNext = page.HasNextPage
		a.total = page.Total
		a.state = StateIdle
	}

	snap, subs := a.snapshotLocked(), a.subscribersLocked()
	a.mu.Unlock()

	if snap.Err != nil {
		slog.Warn("Failed to load page", "page", requested, "generation", gen, "error", snap.Err)
	}
	notify(subs, snap)
}

func (a *Accumulator) hasPageLocked(n int) bool {
	for _, p := range a.pages {
		if p.Page == n {
			return true
		}
	}
	return false
}

// Flattened returns all accumulated items in fetch order.
func (a *Accumulator) Flattened() []domain.Property {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flattenedLocked()
}

func (a *Accumulator) flattenedLocked() []domain.Property {
	n := 0
	for _, p := range a.pages {
		n += len(p.Data)
	}
	out := make([]domain.Property, 0, n)
	for _, p := range a.pages {
		out = append(out, p.Data...)
	}
	return out
}

// Query returns a copy of the active query.
func (a *Accumulator) Query() domain.Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query.Clone()
}

func (a *Accumulator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateLoading
}

func (a *Accumulator) HasNextPage() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasNext
}

func (a *Accumulator) PageSize() int {
	return a.pageSize
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Accumulator) snapshotLocked() Snapshot {
	s := Snapshot{
		Properties:  a.flattenedLocked(),
		Loading:     a.state == StateLoading,
		Err:         a.err,
		HasNextPage: a.hasNext,
		Total:       a.total,
		Pages:       len(a.pages),
		Cursor:      a.cursor,
		Generation:  a.generation,
		State:       a.state,
		Version:     a.version,
	}
	if a.err != nil {
		s.Error = a.err.Error()
	}
	return s
}

// Wait blocks until no fetch is in flight, following resets that happen while waiting.
func (a *Accumulator) Wait(ctx context.Context) error {
	for {
		a.mu.Lock()
		done := a.done
		a.mu.Unlock()

		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that caused the transition and must not block.
func (a *Accumulator) Subscribe(fn func(Snapshot)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Accumulator) subscribersLocked() []func(Snapshot) {
	if len(a.subs) == 0 {
		return nil
	}
	out := make([]func(Snapshot), 0, len(a.subs))
	for _, fn := range a.subs {
		out = append(out, fn)
	}
	return out
}

// Close cancels the in-flight fetch, waits for its goroutine to exit and turns further
// LoadMore, Refresh and Reset calls into no-ops.
func (a *Accumulator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	// Results of the cancelled fetch belong to a dead generation.
	a.generation++
	a.done = nil
	if a.state == StateLoading {
		a.state = StateIdle
	}
	a.mu.Unlock()

	a.wg.Wait()
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
