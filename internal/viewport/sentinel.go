// Package viewport decides when an infinite list should load its next page and
// positions filter dropdowns, using plain rectangles instead of a rendering toolkit.
package viewport

import (
	"context"
	"log/slog"
	"time"
)

// DefaultThresholdPx is how far below the viewport the marker may be and still trigger a load.
const DefaultThresholdPx = 100

// Rect is an element's bounding box in viewport coordinates (y grows downwards).
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShouldLoadMore reports whether the marker is within thresholdPx of entering the viewport.
// A nil marker is not mounted yet and never triggers.
func ShouldLoadMore(marker *Rect, viewport Rect, thresholdPx float64) bool {
	if marker == nil {
		return false
	}
	return marker.Top <= viewport.Bottom+thresholdPx
}

// Loader is the part of an accumulator the sentinel drives.
type Loader interface {
	Loading() bool
	HasNextPage() bool
	LoadMore() bool
}

// MeasureFunc returns the current marker and viewport rectangles. A nil marker means the
// marker cannot be measured right now.
type MeasureFunc func() (marker *Rect, viewport Rect)

type Sentinel struct {
	loader    Loader
	threshold float64
}

func NewSentinel(loader Loader, thresholdPx float64) *Sentinel {
	if thresholdPx < 0 {
		thresholdPx = DefaultThresholdPx
	}
	return &Sentinel{loader: loader, threshold: thresholdPx}
}

// Observe checks one measurement and calls LoadMore when the marker is close enough.
// It reports whether a load was started.
func (s *Sentinel) Observe(marker *Rect, viewport Rect) bool {
	// The loader ignores redundant calls anyway; skipping them here saves the lock round trip.
	if s.loader.Loading() || !s.loader.HasNextPage() {
		return false
	}
	if !ShouldLoadMore(marker, viewport, s.threshold) {
		return false
	}
	return s.loader.LoadMore()
}

// Run re-checks on every scroll or resize signal and on every poll tick until ctx is
// cancelled or signals is closed. A pollInterval of zero disables polling.
func (s *Sentinel) Run(ctx context.Context, measure MeasureFunc, signals <-chan struct{}, pollInterval time.Duration) {
	var tick <-chan time.Time
	if pollInterval > 0 {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	check := func() {
		marker, vp := measure()
		if s.Observe(marker, vp) {
			slog.Debug("Sentinel triggered load", "marker_top", marker.Top, "viewport_bottom", vp.Bottom)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			check()
		case <-tick:
			check()
		}
	}
}
