package mocks

import (
	"context"

	"github.com/PropertyListing/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) FetchPage(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
	args := m.Called(ctx, q)

	// Handle nil page
	var page *domain.Page
	if args.Get(0) != nil {
		page = args.Get(0).(*domain.Page)
	}
	return page, args.Error(1)
}

type MockDetailFetcher struct {
	mock.Mock
}

func (m *MockDetailFetcher) GetProperty(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	args := m.Called(ctx, id)
	var detail *domain.PropertyDetail
	if args.Get(0) != nil {
		detail = args.Get(0).(*domain.PropertyDetail)
	}
	return detail, args.Error(1)
}

type MockDetailCache struct {
	mock.Mock
}

func (m *MockDetailCache) Get(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	args := m.Called(ctx, id)
	var detail *domain.PropertyDetail
	if args.Get(0) != nil {
		detail = args.Get(0).(*domain.PropertyDetail)
	}
	return detail, args.Error(1)
}

func (m *MockDetailCache) Set(ctx context.Context, detail *domain.PropertyDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

type MockEventProducer struct {
	mock.Mock
}

func (m *MockEventProducer) Publish(ctx context.Context, event *domain.QueryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}
