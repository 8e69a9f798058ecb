package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/google/uuid"
)

type session struct {
	listing    *Listing
	lastAccess time.Time
}

// SessionStore keeps listings in memory and expires those left idle for longer than ttl.
type SessionStore struct {
	fetcher         domain.PageFetcher
	events          domain.EventProducer
	defaultPageSize int
	thresholdPx     float64
	ttl             time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewSessionStore(fetcher domain.PageFetcher, events domain.EventProducer, defaultPageSize int, thresholdPx float64, ttl time.Duration) *SessionStore {
	return &SessionStore{
		fetcher:         fetcher,
		events:          events,
		defaultPageSize: defaultPageSize,
		thresholdPx:     thresholdPx,
		ttl:             ttl,
		sessions:        make(map[string]*session),
		now:             time.Now,
	}
}

// Create validates q, registers a new listing and starts loading its first page.
// A pageSize of zero selects the store default.
func (s *SessionStore) Create(q domain.Query, pageSize int) (*Listing, error) {
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if err := q.WithPage(1, pageSize).Validate(); err != nil {
		return nil, err
	}

	listing := NewListing(uuid.NewString(), s.fetcher, s.events, q, pageSize, s.thresholdPx)

	s.mu.Lock()
	s.sessions[listing.ID()] = &session{listing: listing, lastAccess: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveListings.Set(float64(n))
	slog.Info("Listing created", "listing_id", listing.ID(), "page_size", pageSize, "active", n)

	listing.Start()
	return listing, nil
}

// Get returns the listing and marks it as used.
func (s *SessionStore) Get(id string) (*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	sess.lastAccess = s.now()
	return sess.listing, nil
}

// Delete closes and forgets the listing. It reports whether the listing existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.listing.Close()
	metrics.ActiveListings.Set(float64(n))
	return true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes every listing idle for longer than the TTL and returns how many were removed.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Listing
	for id, sess := range s.sessions {
		if sess.lastAccess.Before(cutoff) {
			expired = append(expired, sess.listing)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, l := range expired {
		l.Close()
	}
	if len(expired) > 0 {
		metrics.ActiveListings.Set(float64(n))
		slog.Info("Expired idle listings", "expired", len(expired), "active", n)
	}
	return len(expired)
}

// Start sweeps on a ticker until ctx is cancelled.
func (s *SessionStore) Start(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	slog.Info("Starting listing session sweeper", "ttl", s.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close closes every listing.
func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.listing.Close()
	}
	metrics.ActiveListings.Set(0)
}
