// Package execution implements the three execution strategies that
// translate an ExecutionOrder intent into VenueOrder instructions (spec
// §4.4): Taker (immediate market fill), Maker (post-only resting limit),
// and WideQuoter (mid-price quoting with requote-on-deviation).
package execution

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/orders"
)

// Publisher is the narrow bus capability execution strategies need.
type Publisher interface {
	Publish(ev events.Event)
}

// Books bundles the two order books a strategy reads and writes.
type Books struct {
	Exec  *orders.ExecutionBook
	Venue *orders.VenueBook
}

// Strategy is the per-ExecutionOrder behavior selected by
// ExecutionOrder.ExecStrategy. A Router (see router.go) dispatches events
// to the right Strategy by inspecting the order's ExecStrategy field.
type Strategy interface {
	Kind() orders.ExecutionStrategyKind
	// OnNewExecutionOrder is called once when the execution order is first
	// placed; it should emit the strategy's opening VenueOrder(s).
	OnNewExecutionOrder(now time.Time, eo *orders.ExecutionOrder)
	// OnVenueOrderUpdate is called whenever a child venue order changes
	// state (fill, reject, cancel confirmation, expiry).
	OnVenueOrderUpdate(now time.Time, eo *orders.ExecutionOrder, vo *orders.VenueOrder)
	// OnTick is called on every TickUpdate for instruments the strategy has
	// live orders on; only WideQuoter acts on it.
	OnTick(now time.Time, tick core.Tick, eo *orders.ExecutionOrder)
	// OnCancelExecutionOrder is called when the caller requests the
	// execution order be cancelled.
	OnCancelExecutionOrder(now time.Time, eo *orders.ExecutionOrder)
}

// base holds the plumbing every strategy needs: access to both books, the
// event publisher, and a per-execution-order live-venue-order index guarded
// by a mutex.
type base struct {
	log   zerolog.Logger
	books Books
	pub   Publisher

	mu   sync.Mutex
	live map[core.ID]core.ID // execution order id -> live venue order id
}

func newBase(log zerolog.Logger, books Books, pub Publisher) base {
	return base{log: log, books: books, pub: pub, live: make(map[core.ID]core.ID)}
}

func (b *base) setLive(execID, venueID core.ID) {
	b.mu.Lock()
	b.live[execID] = venueID
	b.mu.Unlock()
}

func (b *base) getLive(execID core.ID) (core.ID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.live[execID]
	return id, ok
}

func (b *base) clearLive(execID core.ID) {
	b.mu.Lock()
	delete(b.live, execID)
	b.mu.Unlock()
}

func (b *base) placeVenueOrder(vo *orders.VenueOrder) {
	b.books.Venue.Insert(vo)
	b.pub.Publish(events.NewNewVenueOrderEvent(vo))
}

func (b *base) cancelVenueOrder(id core.ID, now time.Time) {
	b.pub.Publish(events.NewCancelVenueOrder(id, now))
}

func (b *base) updateExecOrder(eo *orders.ExecutionOrder) {
	b.books.Exec.Update(eo)
	b.pub.Publish(events.NewExecutionOrderUpdated(eo))
}
