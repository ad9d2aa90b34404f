package bus

import (
	"sync"
	"time"
)

// SyncBarrier coordinates simulation time across every acking subscriber:
// the clock only advances once every registered party has acknowledged the
// current window, giving deterministic replay regardless of goroutine
// scheduling (ported from the window-barrier design in the Rust arkin
// engine's barrier.rs, which wraps a fixed-party tokio Barrier keyed by a
// window duration).
type SyncBarrier struct {
	mu             sync.Mutex
	cond           *sync.Cond
	windowDuration time.Duration
	parties        int
	arrived        int
	generation     uint64
}

// NewSyncBarrier creates a barrier for the given number of parties and
// window duration. In live trading windowDuration is typically zero
// (parties never wait on wall-clock); in simulation it paces replay.
func NewSyncBarrier(parties int, windowDuration time.Duration) *SyncBarrier {
	b := &SyncBarrier{parties: parties, windowDuration: windowDuration}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// AddParty registers one more party the barrier must wait for, used when a
// service subscribes after startup.
func (b *SyncBarrier) AddParty() {
	b.mu.Lock()
	b.parties++
	b.mu.Unlock()
}

// Wait blocks until every party has called Wait for the current generation,
// then releases all of them together and advances the generation. Returns
// true for exactly one caller per generation (the "leader"), mirroring the
// original barrier's leader-election return value so exactly one party can
// safely perform generation-scoped bookkeeping (e.g. advancing the clock).
func (b *SyncBarrier) Wait() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.arrived++
	isLeader := b.arrived == b.parties

	if isLeader {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return true
	}

	for b.generation == gen {
		b.cond.Wait()
	}
	return false
}

// WindowDuration returns the configured pacing window.
func (b *SyncBarrier) WindowDuration() time.Duration {
	return b.windowDuration
}
