package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// stubFetcher serves a fixed number of generated properties.
type stubFetcher struct {
	mu        sync.Mutex
	total     int
	calls     []domain.PageQuery
	failPages map[int]error

	inFlight    int32
	maxInFlight int32
}

func newStubFetcher(total int) *stubFetcher {
	return &stubFetcher{total: total, failPages: make(map[int]error)}
}

func (f *stubFetcher) FetchPage(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, q)
	err, fail := f.failPages[q.Page]
	if fail {
		delete(f.failPages, q.Page)
	}
	f.mu.Unlock()

	if fail {
		return nil, err
	}
	return generatePage(q, f.total), nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *stubFetcher) lastCall() domain.PageQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func generatePage(q domain.PageQuery, total int) *domain.Page {
	start := domain.Offset(q.Page, q.PageSize)
	end := start + q.PageSize
	if end > total {
		end = total
	}
	items := []domain.Property{}
	for i := start; i < end; i++ {
		items = append(items, domain.Property{ID: fmt.Sprintf("p-%03d", i+1), Price: float64(1000 * (i + 1))})
	}
	return domain.NewPage(items, q.Page, q.PageSize, total)
}

// gatedFetcher hands every request to the test and blocks until the test replies.
// It ignores cancellation so that late completions of reset generations can be simulated.
type gatedFetcher struct {
	requests chan *pendingFetch
}

type pendingFetch struct {
	query domain.PageQuery
	reply chan fetchReply
}

type fetchReply struct {
	page *domain.Page
	err  error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{requests: make(chan *pendingFetch, 8)}
}

func (g *gatedFetcher) FetchPage(_ context.Context, q domain.PageQuery) (*domain.Page, error) {
	p := &pendingFetch{query: q, reply: make(chan fetchReply, 1)}
	g.requests <- p
	r := <-p.reply
	return r.page, r.err
}

func (g *gatedFetcher) next(t *testing.T) *pendingFetch {
	t.Helper()
	select {
	case p := <-g.requests:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (g *gatedFetcher) assertNoRequest(t *testing.T) {
	t.Helper()
	select {
	case p := <-g.requests:
		t.Fatalf("unexpected fetch of page %d", p.query.Page)
	case <-time.After(30 * time.Millisecond):
	}
}

func waitIdle(t *testing.T, a *Accumulator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Wait(ctx))
}

func TestAccumulator_LoadsUntilLastPage(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(30)
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	require.True(t, acc.LoadMore())
	waitIdle(t, acc)
	snap := acc.Snapshot()
	assert.Len(t, snap.Properties, 12)
	assert.True(t, snap.HasNextPage)
	assert.Equal(t, 30, snap.Total)
	assert.Equal(t, 2, snap.Cursor)

	require.True(t, acc.LoadMore())
	waitIdle(t, acc)
	require.True(t, acc.LoadMore())
	waitIdle(t, acc)

	snap = acc.Snapshot()
	assert.Len(t, snap.Properties, 30)
	assert.False(t, snap.HasNextPage)
	assert.Equal(t, StateIdle, snap.State)

	assert.False(t, acc.LoadMore(), "no fetch past the last page")
	waitIdle(t, acc)
	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, snap.Properties, acc.Flattened())
}

func TestAccumulator_ResetDiscardsInFlightPage(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newGatedFetcher()
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	for page := 1; page <= 2; page++ {
		require.True(t, acc.LoadMore())
		p := fetcher.next(t)
		require.Equal(t, page, p.query.Page)
		p.reply <- fetchReply{page: generatePage(p.query, 40)}
		waitIdle(t, acc)
	}
	require.Len(t, acc.Flattened(), 24)

	require.True(t, acc.LoadMore())
	stale := fetcher.next(t)
	require.Equal(t, 3, stale.query.Page)

	sorted := domain.Query{Sort: domain.Sort{By: domain.SortByPrice, Dir: domain.SortDirAsc}}
	before := acc.Snapshot().Generation
	acc.Reset(sorted)

	snap := acc.Snapshot()
	assert.Empty(t, snap.Properties)
	assert.True(t, snap.Loading)
	assert.Equal(t, before+1, snap.Generation)
	assert.Equal(t, 1, snap.Cursor)

	fresh := fetcher.next(t)
	assert.Equal(t, 1, fresh.query.Page)
	assert.Equal(t, sorted.Sort, fresh.query.Sort)

	// The old generation's page 3 arrives after the reset and must be dropped.
	stale.reply <- fetchReply{page: generatePage(stale.query, 40)}
	fresh.reply <- fetchReply{page: generatePage(fresh.query, 40)}
	waitIdle(t, acc)

	snap = acc.Snapshot()
	require.Len(t, snap.Properties, 12)
	assert.Equal(t, "p-001", snap.Properties[0].ID)
	assert.Equal(t, 1, snap.Pages)
	assert.Equal(t, 2, snap.Cursor)
}

func TestAccumulator_StalePageArrivingLastIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newGatedFetcher()
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	require.True(t, acc.LoadMore())
	stale := fetcher.next(t)

	acc.Refresh()
	fresh := fetcher.next(t)

	fresh.reply <- fetchReply{page: generatePage(fresh.query, 5)}
	waitIdle(t, acc)
	stale.reply <- fetchReply{page: generatePage(stale.query, 5)}

	// Give the stale goroutine time to complete before checking.
	time.Sleep(20 * time.Millisecond)
	snap := acc.Snapshot()
	assert.Len(t, snap.Properties, 5)
	assert.Equal(t, 1, snap.Pages)
	assert.False(t, snap.HasNextPage)
}

func TestAccumulator_ErrorKeepsPagesAndRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(30)
	fetcher.failPages[2] = errors.New("connection reset")
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)
	require.True(t, acc.LoadMore())
	waitIdle(t, acc)

	snap := acc.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "connection reset", snap.Error)
	assert.Len(t, snap.Properties, 12)
	assert.Equal(t, 2, snap.Cursor, "cursor unchanged on failure")

	require.True(t, acc.LoadMore(), "loadMore retries after an error")
	assert.Empty(t, acc.Snapshot().Error, "error is cleared when the retry starts")
	waitIdle(t, acc)

	assert.Equal(t, 2, fetcher.lastCall().Page)
	snap = acc.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Len(t, snap.Properties, 24)
}

func TestAccumulator_RefreshRecoversFromError(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(30)
	fetcher.failPages[1] = errors.New("timeout")
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)
	assert.Equal(t, StateError, acc.Snapshot().State)

	acc.Refresh()
	waitIdle(t, acc)
	snap := acc.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Len(t, snap.Properties, 12)
}

func TestAccumulator_LoadMoreWhileLoadingIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newGatedFetcher()
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	require.True(t, acc.LoadMore())
	p := fetcher.next(t)

	before := acc.Snapshot()
	assert.False(t, acc.LoadMore())
	assert.False(t, acc.LoadMore())
	fetcher.assertNoRequest(t)
	assert.Equal(t, before, acc.Snapshot(), "state unchanged by a no-op")

	p.reply <- fetchReply{page: generatePage(p.query, 30)}
	waitIdle(t, acc)
}

func TestAccumulator_ConcurrentLoadMoreSingleFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(120)
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	lengths := make([]int, 0)
	var mu sync.Mutex
	unsubscribe := acc.Subscribe(func(s Snapshot) {
		mu.Lock()
		lengths = append(lengths, len(s.Properties))
		mu.Unlock()
	})
	defer unsubscribe()

	deadline := time.Now().Add(2 * time.Second)
	for acc.Snapshot().HasNextPage && time.Now().Before(deadline) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				acc.LoadMore()
			}()
		}
		wg.Wait()
		waitIdle(t, acc)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxInFlight))
	assert.Equal(t, 10, fetcher.callCount())
	assert.Len(t, acc.Flattened(), 120)

	// Snapshots may be delivered out of order across goroutines; only the final state is checked.
	assert.NotEmpty(t, lengths)
}

func TestAccumulator_FlattenedNeverShrinksWithoutReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(50)
	acc := NewAccumulator(fetcher, domain.Query{}, 7)
	defer acc.Close()

	prev := 0
	sum := 0
	for acc.LoadMore() {
		waitIdle(t, acc)
		got := len(acc.Flattened())
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	for _, q := range fetcher.calls {
		sum += len(generatePage(q, 50).Data)
	}
	assert.Equal(t, sum, len(acc.Flattened()))
	assert.Equal(t, 50, len(acc.Flattened()))
}

func TestAccumulator_RefreshRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(25)
	acc := NewAccumulator(fetcher, domain.Query{}, 10)
	defer acc.Close()

	for acc.LoadMore() {
		waitIdle(t, acc)
	}
	first := acc.Flattened()

	acc.Refresh()
	waitIdle(t, acc)
	assert.Len(t, acc.Flattened(), 10)
	for acc.LoadMore() {
		waitIdle(t, acc)
	}

	snap := acc.Snapshot()
	assert.Equal(t, first, snap.Properties)
	assert.Equal(t, snap.Total, len(snap.Properties))
}

func TestAccumulator_EmptyResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	acc := NewAccumulator(newStubFetcher(0), domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)

	snap := acc.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.HasNextPage)
	assert.Empty(t, snap.Properties)
	assert.False(t, acc.LoadMore())
}

func TestAccumulator_UnexpectedPageIsRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := domain.PageFetcherFunc(func(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
		return domain.NewPage([]domain.Property{{ID: "x"}}, q.Page+4, q.PageSize, 100), nil
	})
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)

	snap := acc.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.ErrorIs(t, snap.Err, domain.ErrUnexpectedPage)
	assert.Empty(t, snap.Properties)
	assert.Equal(t, 1, snap.Cursor)
}

func TestAccumulator_NilPageIsAnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := domain.PageFetcherFunc(func(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
		return nil, nil
	})
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)
	assert.Equal(t, StateError, acc.Snapshot().State)
}

func TestAccumulator_ResetUsesNewQuery(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(30)
	acc := NewAccumulator(fetcher, domain.Query{}, 12)
	defer acc.Close()

	acc.LoadMore()
	waitIdle(t, acc)

	minPrice := 100000.0
	q := domain.Query{Filters: domain.Filters{MinPrice: &minPrice}}
	acc.Reset(q)
	waitIdle(t, acc)

	last := fetcher.lastCall()
	require.NotNil(t, last.Filters.MinPrice)
	assert.Equal(t, 100000.0, *last.Filters.MinPrice)
	assert.Equal(t, 1, last.Page)

	minPrice = 5
	assert.Equal(t, 100000.0, *acc.Query().Filters.MinPrice, "query is copied on reset")
}

func TestAccumulator_SubscribeAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newGatedFetcher()
	acc := NewAccumulator(fetcher, domain.Query{}, 12)

	var states []LoadState
	var mu sync.Mutex
	unsubscribe := acc.Subscribe(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	acc.LoadMore()
	p := fetcher.next(t)
	p.reply <- fetchReply{page: generatePage(p.query, 30)}
	waitIdle(t, acc)

	mu.Lock()
	assert.Equal(t, []LoadState{StateLoading, StateIdle}, states)
	mu.Unlock()

	unsubscribe()
	acc.LoadMore()
	p = fetcher.next(t)

	// Close cancels and waits for the in-flight fetch, so reply from another goroutine.
	go func() { p.reply <- fetchReply{err: context.Canceled} }()
	acc.Close()

	mu.Lock()
	assert.Len(t, states, 2, "unsubscribed observers are not notified")
	mu.Unlock()

	assert.False(t, acc.LoadMore())
	acc.Refresh()
	assert.Equal(t, 1, acc.Snapshot().Pages, "refresh after close keeps the pages")
	assert.NoError(t, acc.Wait(context.Background()))
}
