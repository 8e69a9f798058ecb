package repository

import (
	"context"
	"sync"

	"github.com/PropertyListing/internal/domain"
)

// MemoryCatalog is a Catalog held in process memory. Unsorted queries keep insertion order.
type MemoryCatalog struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.Property
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{items: make(map[string]domain.Property)}
}

func (c *MemoryCatalog) Find(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	matched := make([]domain.Property, 0, len(c.order))
	for _, id := range c.order {
		p := c.items[id]
		if q.Filters.Matches(&p) {
			matched = append(matched, p)
		}
	}
	c.mu.RUnlock()

	domain.SortProperties(matched, q.Sort)

	start := domain.Offset(q.Page, q.PageSize)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	window := make([]domain.Property, end-start)
	copy(window, matched[start:end])
	return domain.NewPage(window, q.Page, q.PageSize, len(matched)), nil
}

func (c *MemoryCatalog) Get(ctx context.Context, id string) (*domain.Property, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.items[id]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return &p, nil
}

func (c *MemoryCatalog) BulkUpsert(ctx context.Context, properties []domain.Property) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range properties {
		if _, exists := c.items[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.items[p.ID] = p
	}
	return nil
}

func (c *MemoryCatalog) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), nil
}
