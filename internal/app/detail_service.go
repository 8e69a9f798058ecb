package app

import (
	"context"
	"log/slog"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
)

// DetailService serves property details, reading through an optional cache.
// Cache failures are logged and otherwise ignored.
type DetailService struct {
	fetcher domain.DetailFetcher
	cache   domain.DetailCache
}

// NewDetailService builds the service. cache may be nil.
func NewDetailService(fetcher domain.DetailFetcher, cache domain.DetailCache) *DetailService {
	return &DetailService{fetcher: fetcher, cache: cache}
}

func (s *DetailService) Get(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			metrics.DetailCacheResults.WithLabelValues("error").Inc()
			slog.Warn("Detail cache read failed", "property_id", id, "error", err)
		case cached != nil:
			metrics.DetailCacheResults.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.DetailCacheResults.WithLabelValues("miss").Inc()
		}
	}

	detail, err := s.fetcher.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, detail); err != nil {
			slog.Warn("Detail cache write failed", "property_id", id, "error", err)
		}
	}
	return detail, nil
}
