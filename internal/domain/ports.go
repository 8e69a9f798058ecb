package domain

import (
	"context"
	"time"
)

// PageFetcher fetches one page of properties for a query.
type PageFetcher interface {
	FetchPage(ctx context.Context, q PageQuery) (*Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, q PageQuery) (*Page, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	return f(ctx, q)
}

// DetailFetcher fetches a single property with owner and traces.
type DetailFetcher interface {
	GetProperty(ctx context.Context, id string) (*PropertyDetail, error)
}

// Catalog is the property store behind the reference properties API.
type Catalog interface {
	Find(ctx context.Context, q PageQuery) (*Page, error)
	Get(ctx context.Context, id string) (*Property, error)
	BulkUpsert(ctx context.Context, properties []Property) error
	Count(ctx context.Context) (int, error)
}

// DetailCache caches property details by ID. Get returns (nil, nil) on a miss.
type DetailCache interface {
	Get(ctx context.Context, id string) (*PropertyDetail, error)
	Set(ctx context.Context, detail *PropertyDetail) error
}

// QueryEventKind names the mutation that changed a listing query.
type QueryEventKind string

const (
	QueryEventCreated      QueryEventKind = "created"
	QueryEventFilters      QueryEventKind = "filters"
	QueryEventFiltersReset QueryEventKind = "filters_reset"
	QueryEventSort         QueryEventKind = "sort"
)

// QueryEvent is published whenever a listing switches to a new query.
type QueryEvent struct {
	ID         string         `json:"id"`
	ListingID  string         `json:"listing_id"`
	Kind       QueryEventKind `json:"kind"`
	Key        string         `json:"key"`
	Query      Query          `json:"query"`
	PageSize   int            `json:"page_size"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventProducer publishes listing query events to a queue.
type EventProducer interface {
	Publish(ctx context.Context, event *QueryEvent) error
	Close() error
}
