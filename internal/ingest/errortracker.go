// Package ingest implements the exchange-adapter plug-in points (spec
// §6): Ingestor (market-data streams -> core events) and Executor
// (NewVenueOrder/Cancel* -> venue -> VenueOrder* events), plus the
// simulated and historical implementations used by backtests.
package ingest

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrorCategory classifies a transport-level ingest failure for
// statistics, ported from
// original_source/arkin-ingestor/src/error_tracker.rs's ErrorCategory.
// This is a finer-grained, transport-specific taxonomy than coreerr.Category
// (which classifies for handling policy); ErrorTracker exists purely for
// observability over one adapter's connection health.
type ErrorCategory int

const (
	ErrorConnectionFailed ErrorCategory = iota
	ErrorWebSocketError
	ErrorParse
	ErrorPongSendFailed
	ErrorPingSendFailed
	ErrorSubscriptionFailed
	ErrorStaleConnection
	ErrorUnexpectedBinary
	ErrorOther
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorConnectionFailed:
		return "connection_failed"
	case ErrorWebSocketError:
		return "websocket_error"
	case ErrorParse:
		return "parse_error"
	case ErrorPongSendFailed:
		return "pong_send_failed"
	case ErrorPingSendFailed:
		return "ping_send_failed"
	case ErrorSubscriptionFailed:
		return "subscription_failed"
	case ErrorStaleConnection:
		return "stale_connection"
	case ErrorUnexpectedBinary:
		return "unexpected_binary"
	default:
		return "other"
	}
}

// ErrorStats is a point-in-time snapshot of one ErrorTracker's counters.
type ErrorStats struct {
	TotalErrors  uint64
	ByCategory   map[string]uint64
	LastCategory string
	LastMessage  string
}

// ErrorTracker accumulates per-category error counts for one ingest
// connection using lock-free atomic counters, so RecordError never takes a
// lock; the most recent message kept by RecordErrorWithMessage is guarded
// by a mutex that GetStats also takes.
type ErrorTracker struct {
	total   atomic.Uint64
	byCat   [int(ErrorOther) + 1]atomic.Uint64
	mu      sync.Mutex
	lastCat string
	lastMsg string
}

// NewErrorTracker builds an empty tracker.
func NewErrorTracker() *ErrorTracker {
	return &ErrorTracker{}
}

// RecordError increments the total and per-category counters.
func (t *ErrorTracker) RecordError(category ErrorCategory) {
	t.total.Add(1)
	t.byCat[category].Add(1)
}

// RecordErrorWithMessage records the error and remembers it as the most
// recent one for diagnostics.
func (t *ErrorTracker) RecordErrorWithMessage(category ErrorCategory, message string) {
	t.RecordError(category)
	t.mu.Lock()
	t.lastCat = category.String()
	t.lastMsg = message
	t.mu.Unlock()
}

// GetStats returns a snapshot with zero-count categories omitted.
func (t *ErrorTracker) GetStats() ErrorStats {
	byCategory := make(map[string]uint64)
	for c := ErrorConnectionFailed; c <= ErrorOther; c++ {
		if n := t.byCat[c].Load(); n > 0 {
			byCategory[c.String()] = n
		}
	}
	t.mu.Lock()
	lastCat, lastMsg := t.lastCat, t.lastMsg
	t.mu.Unlock()
	return ErrorStats{
		TotalErrors:  t.total.Load(),
		ByCategory:   byCategory,
		LastCategory: lastCat,
		LastMessage:  lastMsg,
	}
}

func (s ErrorStats) String() string {
	return fmt.Sprintf("total=%d by_category=%v last=%s/%s", s.TotalErrors, s.ByCategory, s.LastCategory, s.LastMessage)
}
