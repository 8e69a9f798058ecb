package app

import (
	"fmt"
	"sync"

	"github.com/PropertyListing/internal/domain"
)

// FilterPatch is a partial filter update. Nil fields keep their current value.
type FilterPatch struct {
	Name     *string  `json:"name,omitempty"`
	Address  *string  `json:"address,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// QueryChange describes one logical change of the coordinator's query.
type QueryChange struct {
	Kind  domain.QueryEventKind
	Query domain.Query
}

// Coordinator owns the active filters and sort of one listing. It never talks to an
// accumulator; observers derive the fetch parameters from Query or from the change events.
type Coordinator struct {
	mu      sync.Mutex
	query   domain.Query
	subs    map[int]func(QueryChange)
	nextSub int
}

func NewCoordinator(initial domain.Query) *Coordinator {
	return &Coordinator{
		query: initial.Clone(),
		subs:  make(map[int]func(QueryChange)),
	}
}

// Query returns a copy of the current query.
func (c *Coordinator) Query() domain.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

// SetFilters merges patch into the current filters and reports whether the query changed.
func (c *Coordinator) SetFilters(patch FilterPatch) bool {
	return c.mutate(domain.QueryEventFilters, func(q *domain.Query) {
		if patch.Name != nil {
			q.Filters.Name = cloneStr(patch.Name)
		}
		if patch.Address != nil {
			q.Filters.Address = cloneStr(patch.Address)
		}
		if patch.MinPrice != nil {
			q.Filters.MinPrice = cloneFloat(patch.MinPrice)
		}
		if patch.MaxPrice != nil {
			q.Filters.MaxPrice = cloneFloat(patch.MaxPrice)
		}
	})
}

// ResetFilters clears every filter. Sort is left untouched.
func (c *Coordinator) ResetFilters() bool {
	return c.mutate(domain.QueryEventFiltersReset, func(q *domain.Query) {
		q.Filters = domain.Filters{}
	})
}

// SetSort sorts by key in dir. A nil dir removes sorting on key and leaves any
// other sort alone. Price and name sorting are mutually exclusive.
func (c *Coordinator) SetSort(key domain.SortBy, dir *domain.SortDir) (bool, error) {
	if !key.Valid() {
		return false, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidQuery, key)
	}
	if dir != nil && !dir.Valid() {
		return false, fmt.Errorf("%w: unknown sort direction %q", domain.ErrInvalidQuery, *dir)
	}

	changed := c.mutate(domain.QueryEventSort, func(q *domain.Query) {
		q.Sort = applySort(q.Sort, key, dir)
	})
	return changed, nil
}

// ToggleSort advances key through unset, asc, desc and back to unset, and returns the new
// direction. Activating key clears the other sort key.
func (c *Coordinator) ToggleSort(key domain.SortBy) (domain.SortDir, error) {
	if !key.Valid() {
		return domain.SortDirNone, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidQuery, key)
	}

	var next domain.SortDir
	c.mutate(domain.QueryEventSort, func(q *domain.Query) {
		current := domain.SortDirNone
		if q.Sort.By == key {
			current = q.Sort.Dir
		}
		switch current {
		case domain.SortDirNone:
			next = domain.SortDirAsc
		case domain.SortDirAsc:
			next = domain.SortDirDesc
		default:
			next = domain.SortDirNone
		}

		var dir *domain.SortDir
		if next != domain.SortDirNone {
			dir = &next
		}
		q.Sort = applySort(q.Sort, key, dir)
	})
	return next, nil
}

func applySort(current domain.Sort, key domain.SortBy, dir *domain.SortDir) domain.Sort {
	if dir == nil {
		if current.By == key {
			return domain.Sort{}
		}
		return current
	}
	return domain.Sort{By: key, Dir: *dir}
}

// Subscribe registers fn for query changes. A mutation that leaves the query identical
// notifies nobody.
func (c *Coordinator) Subscribe(fn func(QueryChange)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) mutate(kind domain.QueryEventKind, apply func(q *domain.Query)) bool {
	c.mu.Lock()
	next := c.query.Clone()
	apply(&next)
	if next.Equal(c.query) {
		c.mu.Unlock()
		return false
	}
	c.query = next

	change := QueryChange{Kind: kind, Query: next.Clone()}
	subs := make([]func(QueryChange), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return true
}

func cloneStr(s *string) *string {
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	v := *f
	return &v
}
