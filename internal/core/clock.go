package core

import "time"

// Clock is the time capability injected into every handler through CoreCtx.
// Live mode backs it with wall-clock time; simulation mode advances it from
// the timestamps of ingested events, so both modes share the same code path.
type Clock interface {
	// Now returns the current event-time, UTC, millisecond precision.
	Now() time.Time
}

// SystemClock is the live-mode Clock, backed by time.Now().
type SystemClock struct{}

// Now returns the current wall-clock time truncated to millisecond precision.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// SimClock is the simulation-mode Clock. Advance is called by ingestors as
// they process events so that every component observes a single, globally
// consistent notion of "now" driven by event timestamps rather than the
// wall clock.
type SimClock struct {
	current time.Time
}

// NewSimClock creates a SimClock pinned at the given starting time.
func NewSimClock(start time.Time) *SimClock {
	return &SimClock{current: start.UTC().Truncate(time.Millisecond)}
}

// Now returns the simulated current time.
func (c *SimClock) Now() time.Time {
	return c.current
}

// Advance moves the simulated clock forward. Advancing backwards is a no-op
// since simulation must never observe decreasing timestamps.
func (c *SimClock) Advance(t time.Time) {
	t = t.UTC().Truncate(time.Millisecond)
	if t.After(c.current) {
		c.current = t
	}
}
