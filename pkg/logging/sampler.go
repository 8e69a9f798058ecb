package logging

import (
	"log/slog"
	"sync"
)

// ErrorSampler rate-limits repeated error logs. For each key it lets through the first
// occurrence and then every interval-th one, until the key is Reset.
type ErrorSampler struct {
	mu       sync.Mutex
	counts   map[string]int
	interval int
}

// NewErrorSampler returns a sampler that logs every interval-th repeat. Values below 1 mean 10.
func NewErrorSampler(interval int) *ErrorSampler {
	if interval < 1 {
		interval = 10
	}
	return &ErrorSampler{
		counts:   make(map[string]int),
		interval: interval,
	}
}

// ShouldLog counts one occurrence of key and reports whether it should be logged.
func (s *ErrorSampler) ShouldLog(key string) bool {
	_, ok := s.observe(key)
	return ok
}

func (s *ErrorSampler) observe(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	n := s.counts[key]
	return n, n == 1 || n%s.interval == 0
}

// Error logs msg at error level when the occurrence of key is sampled in.
// The running count is attached as "occurrences".
func (s *ErrorSampler) Error(key, msg string, args ...any) {
	n, ok := s.observe(key)
	if !ok {
		return
	}
	slog.Error(msg, append(args, "occurrences", n)...)
}

func (s *ErrorSampler) GetCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Reset forgets key, typically after the failing operation succeeds again.
func (s *ErrorSampler) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
}
