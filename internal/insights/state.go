// Package insights implements the feature pipeline: a
// directed-acyclic graph of Features evaluated in topological order over a
// shared bounded state window, driven by periodic InsightsTick events.
package insights

import (
	"sync"
	"time"

	"github.com/arkin-go/core/internal/core"
)

// FeatureID names a feature's output series in the state window.
type FeatureID string

type point struct {
	t time.Time
	v core.Decimal
}

type seriesKey struct {
	instrument core.ID
	feature    FeatureID
}

// State is the shared, bounded time-indexed series store every feature
// reads and writes through during one pipeline evaluation. Each
// (instrument, feature-id) series retains at most capacity points, oldest
// evicted first.
type State struct {
	mu       sync.RWMutex
	capacity int
	series   map[seriesKey][]point
}

// NewState creates a State retaining up to capacity points per series.
func NewState(capacity int) *State {
	if capacity <= 0 {
		capacity = 512
	}
	return &State{capacity: capacity, series: make(map[seriesKey][]point)}
}

// Write appends a new observation, evicting the oldest if the series is at
// capacity.
func (s *State) Write(instrument core.ID, feature FeatureID, eventTime time.Time, value core.Decimal) {
	key := seriesKey{instrument, feature}
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.series[key]
	series = append(series, point{t: eventTime, v: value})
	if len(series) > s.capacity {
		series = series[len(series)-s.capacity:]
	}
	s.series[key] = series
}

// Last returns the most recent value for (instrument, feature), if any.
func (s *State) Last(instrument core.ID, feature FeatureID) (core.Decimal, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[seriesKey{instrument, feature}]
	if len(series) == 0 {
		return core.Zero, time.Time{}, false
	}
	p := series[len(series)-1]
	return p.v, p.t, true
}

// Intervals returns up to the last n values, oldest first.
func (s *State) Intervals(instrument core.ID, feature FeatureID, n int) []core.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[seriesKey{instrument, feature}]
	if n > len(series) {
		n = len(series)
	}
	out := make([]core.Decimal, n)
	for i, p := range series[len(series)-n:] {
		out[i] = p.v
	}
	return out
}

// Window returns every value observed within duration d of now, oldest
// first.
func (s *State) Window(instrument core.ID, feature FeatureID, now time.Time, d time.Duration) []core.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[seriesKey{instrument, feature}]
	cutoff := now.Add(-d)
	var out []core.Decimal
	for _, p := range series {
		if !p.t.Before(cutoff) {
			out = append(out, p.v)
		}
	}
	return out
}
