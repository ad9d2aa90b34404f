package execution

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/orders"
)

type cancelReason int

const (
	cancelNone cancelReason = iota
	cancelForRequote
	cancelForUser
)

type quoteState struct {
	quotePrice   core.Decimal
	awaiting     bool
	reason       cancelReason
	targetOnDone core.Decimal // price to requote at once the pending cancel confirms
}

// WideQuoter quotes symmetrically around mid-price to capture spread for
// delayed execution, requoting whenever the recomputed target price
// deviates from the live quote by more than a configured fraction (spec
// §4.4 "WideQuoter"). State is keyed by ExecutionOrder id, not instrument:
// two execution orders on the same instrument each get their own live
// venue order.
type WideQuoter struct {
	base
	spread    core.Decimal
	threshold core.Decimal

	mu    sync.Mutex
	state map[core.ID]*quoteState
}

// NewWideQuoter builds a WideQuoter with quote-spread s and requote
// threshold t, both expressed as fractions (e.g. 0.001 = 10bps).
func NewWideQuoter(log zerolog.Logger, books Books, pub Publisher, spread, threshold core.Decimal) *WideQuoter {
	return &WideQuoter{
		base:      newBase(log.With().Str("strategy", "wide-quoter").Logger(), books, pub),
		spread:    spread,
		threshold: threshold,
		state:     make(map[core.ID]*quoteState),
	}
}

func (w *WideQuoter) Kind() orders.ExecutionStrategyKind { return orders.ExecStrategyWideQuoter }

// OnNewExecutionOrder only registers state; the opening quote is placed on
// the next TickUpdate.
func (w *WideQuoter) OnNewExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	w.mu.Lock()
	w.state[eo.ID] = &quoteState{awaiting: true}
	w.mu.Unlock()
}

func (w *WideQuoter) targetPrice(eo *orders.ExecutionOrder, mid core.Decimal) core.Decimal {
	one := core.NewDecimalFromFloat(1)
	if eo.Side == core.SideBuy {
		return eo.Instrument.RoundPrice(mid.Mul(one.Sub(w.spread)))
	}
	return eo.Instrument.RoundPrice(mid.Mul(one.Add(w.spread)))
}

func (w *WideQuoter) OnTick(now time.Time, tick core.Tick, eo *orders.ExecutionOrder) {
	mid, ok := tick.Mid()
	if !ok || mid.IsZero() {
		return // tie-break: mid unavailable, skip quoting
	}

	w.mu.Lock()
	st, ok := w.state[eo.ID]
	if !ok {
		st = &quoteState{awaiting: true}
		w.state[eo.ID] = st
	}
	w.mu.Unlock()

	target := w.targetPrice(eo, mid)
	remaining := eo.RemainingQuantity()
	if eo.Instrument.RoundQuantity(remaining).IsZero() {
		return // tie-break: quantity rounds to zero under lot-size
	}

	if st.awaiting {
		vo := orders.NewVenueOrder(core.NewID(), eo.ID, eo.Instrument, eo.Strategy,
			eo.Side, orders.VenueOrderLimit, orders.TIFGTC, target, remaining, now)
		w.setLive(eo.ID, vo.ID)
		w.mu.Lock()
		st.awaiting = false
		st.quotePrice = target
		w.mu.Unlock()
		w.placeVenueOrder(vo)
		eo.Place(now)
		w.updateExecOrder(eo)
		return
	}

	if st.reason != cancelNone {
		// A requote cancel is already in flight; just remember the freshest
		// target so it's used once the cancel confirms.
		w.mu.Lock()
		st.targetOnDone = target
		w.mu.Unlock()
		return
	}

	deviation := target.Sub(st.quotePrice).Abs().Div(st.quotePrice)
	if deviation.LessThanOrEqual(w.threshold) {
		return
	}

	venueID, ok := w.getLive(eo.ID)
	if !ok {
		return
	}
	w.mu.Lock()
	st.reason = cancelForRequote
	st.targetOnDone = target
	w.mu.Unlock()
	w.cancelVenueOrder(venueID, now)
}

func (w *WideQuoter) OnVenueOrderUpdate(now time.Time, eo *orders.ExecutionOrder, vo *orders.VenueOrder) {
	if vo.HasFill() {
		eo.ApplyChildFill(now, vo.LastFillPrice, vo.LastFillQuantity, vo.LastFillCommission)
	}

	w.mu.Lock()
	st := w.state[eo.ID]
	w.mu.Unlock()

	switch vo.Status {
	case orders.VOStatusRejected:
		eo.Reject(now)
		w.clearLive(eo.ID)
		w.deleteState(eo.ID)
	case orders.VOStatusExpired, orders.VOStatusPartiallyFilledExpired:
		eo.Expire(now)
		w.clearLive(eo.ID)
		w.deleteState(eo.ID)
	case orders.VOStatusFilled:
		w.clearLive(eo.ID)
		w.deleteState(eo.ID)
	case orders.VOStatusCancelled, orders.VOStatusPartiallyFilledCancelled:
		w.clearLive(eo.ID)
		if st != nil && st.reason == cancelForRequote && eo.RemainingQuantity().IsPositive() {
			newVO := orders.NewVenueOrder(core.NewID(), eo.ID, eo.Instrument, eo.Strategy,
				eo.Side, orders.VenueOrderLimit, orders.TIFGTC, st.targetOnDone, eo.RemainingQuantity(), now)
			w.setLive(eo.ID, newVO.ID)
			w.mu.Lock()
			st.reason = cancelNone
			st.quotePrice = st.targetOnDone
			w.mu.Unlock()
			w.placeVenueOrder(newVO)
		} else {
			eo.ResolveCancel(now)
			w.deleteState(eo.ID)
		}
	}
	w.updateExecOrder(eo)
}

func (w *WideQuoter) OnCancelExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	eo.BeginCancel(now)
	w.mu.Lock()
	st := w.state[eo.ID]
	w.mu.Unlock()
	if venueID, ok := w.getLive(eo.ID); ok {
		if st != nil {
			w.mu.Lock()
			st.reason = cancelForUser
			w.mu.Unlock()
		}
		w.cancelVenueOrder(venueID, now)
	} else {
		eo.ResolveCancel(now)
		w.deleteState(eo.ID)
	}
	w.updateExecOrder(eo)
}

func (w *WideQuoter) deleteState(id core.ID) {
	w.mu.Lock()
	delete(w.state, id)
	w.mu.Unlock()
}
