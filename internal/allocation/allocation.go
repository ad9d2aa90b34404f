// Package allocation translates Signal events into ExecutionOrders (spec
// §4.8), grounded directly on
// original_source/arkin-allocation/src/allocation_optimizers/signal.rs's
// SignalAllocationOptim: capital-per-signal sizing, lot-size rounding, a
// minimum-notional floor, and last-signal-per-(strategy,instrument) change
// tracking so a repeated identical signal is a no-op.
package allocation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/ledger"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// Ledger is the subset of *ledger.Ledger the allocator reads: available
// margin capital and the strategy's current position.
type Ledger interface {
	MarginBalance(venue, asset core.ID) core.Decimal
	Position(strategy, instrument core.ID) ledger.Position
}

type signalKey struct {
	strategy   core.ID
	instrument core.ID
}

// Service is the runtime.Service wrapping the signal-allocation optimizer.
// It tracks one active Signal per (strategy, instrument), recomputes
// sizing only when a Signal's weight actually changes, and emits a Taker
// ExecutionOrder for the signed delta between desired and current
// position.
type Service struct {
	log zerolog.Logger
	led Ledger
	pub runtime.Publisher

	maxAllocation   core.Decimal // fraction of margin balance spendable across all active signals
	minTradeValue   core.Decimal // notional floor below which a trade is dropped
	referenceAsset  *core.Asset

	mu      sync.Mutex
	signals map[signalKey]*events.Signal
	ticks   map[core.ID]core.Tick // last tick per instrument, for mid-price
}

// NewService builds the allocation service. maxAllocation is a fraction of
// the venue margin balance; minTradeValue is expressed in the venue's
// margin asset.
func NewService(log zerolog.Logger, led Ledger, pub runtime.Publisher, maxAllocation, minTradeValue core.Decimal) *Service {
	return &Service{
		log:           log.With().Str("component", "allocation").Logger(),
		led:           led,
		pub:           pub,
		maxAllocation: maxAllocation,
		minTradeValue: minTradeValue,
		signals:       make(map[signalKey]*events.Signal),
		ticks:         make(map[core.ID]core.Tick),
	}
}

func (s *Service) Name() string  { return "allocation" }
func (s *Service) Priority() int { return 30 }

func (s *Service) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(events.TypeSignal, events.TypeTickUpdate)
}

func (s *Service) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (s *Service) Tasks() []func(ctx context.Context) error            { return nil }
func (s *Service) Teardown(ctx context.Context) error                  { return nil }

func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.TickUpdate:
		s.mu.Lock()
		s.ticks[e.Instrument.ID] = e.Tick
		s.mu.Unlock()
	case *events.Signal:
		s.onSignal(e)
	}
	return nil
}

func (s *Service) onSignal(sig *events.Signal) {
	key := signalKey{sig.Strategy.ID, sig.Instrument.ID}

	s.mu.Lock()
	if prev, ok := s.signals[key]; ok && prev.Strength.Equal(sig.Strength) && prev.Side == sig.Side {
		s.mu.Unlock()
		return // unchanged signal: no-op
	}
	s.signals[key] = sig
	activeCount := len(s.signals)
	tick, haveTick := s.ticks[sig.Instrument.ID]
	s.mu.Unlock()

	if !haveTick {
		s.log.Warn().Str("instrument", sig.Instrument.Symbol).Msg("no price data available for allocation")
		return
	}
	mid, ok := tick.Mid()
	if !ok {
		return
	}

	capitalPerSignal := s.capitalPerSignal(sig.Instrument, activeCount)
	if capitalPerSignal.IsZero() {
		return
	}

	order := s.buildOrder(sig, mid, capitalPerSignal)
	if order == nil {
		return
	}
	s.pub.Publish(events.NewNewExecutionOrderEvent(order))
}

// capitalPerSignal is (venue margin balance x max-allocation) / active
// signal count.
func (s *Service) capitalPerSignal(instrument *core.Instrument, activeCount int) core.Decimal {
	capital := s.led.MarginBalance(instrument.Venue.ID, instrument.MarginAsset.ID)
	if capital.IsZero() || activeCount == 0 {
		return core.Zero
	}
	return capital.Mul(s.maxAllocation).Div(core.NewDecimalFromFloat(float64(activeCount)))
}

// buildOrder computes the desired position from the signal's weight,
// diffs it against the current position, and returns a Taker
// ExecutionOrder for the signed delta, or nil if the delta rounds to zero
// or falls below the notional floor.
func (s *Service) buildOrder(sig *events.Signal, mid, capitalPerSignal core.Decimal) *orders.ExecutionOrder {
	instrument := sig.Instrument
	weight := sig.Strength
	if sig.Side == core.SideSell {
		weight = weight.Neg()
	}

	desiredQty := weight.Mul(capitalPerSignal).Div(mid)
	current := s.led.Position(sig.Strategy.ID, instrument.ID)
	diff := desiredQty.Sub(current.Quantity)

	if diff.Abs().LessThan(instrument.LotSize) {
		return nil // already optimal
	}

	side := core.SideBuy
	if diff.IsNegative() {
		side = core.SideSell
	}

	finalQty := instrument.RoundQuantity(diff.Abs())
	if finalQty.IsZero() {
		return nil
	}

	tradeValue := finalQty.Mul(mid)
	if tradeValue.LessThan(s.minTradeValue) {
		return nil
	}

	return orders.NewExecutionOrder(core.NewID(), sig.Strategy, instrument,
		orders.ExecStrategyTaker, side, core.Zero, finalQty, sig.EventTime())
}
