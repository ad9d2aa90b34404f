package execution

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/orders"
)

// Taker emits a single market VenueOrder for the full quantity on New, and
// propagates any venue-order outcome straight to the parent execution
// order.
type Taker struct {
	base
}

// NewTaker builds a Taker strategy controller.
func NewTaker(log zerolog.Logger, books Books, pub Publisher) *Taker {
	return &Taker{base: newBase(log.With().Str("strategy", "taker").Logger(), books, pub)}
}

func (t *Taker) Kind() orders.ExecutionStrategyKind { return orders.ExecStrategyTaker }

func (t *Taker) OnNewExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	vo := orders.NewVenueOrder(core.NewID(), eo.ID, eo.Instrument, eo.Strategy,
		eo.Side, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, eo.RemainingQuantity(), now)
	t.setLive(eo.ID, vo.ID)
	t.placeVenueOrder(vo)
	eo.Place(now)
	t.updateExecOrder(eo)
}

func (t *Taker) OnVenueOrderUpdate(now time.Time, eo *orders.ExecutionOrder, vo *orders.VenueOrder) {
	if vo.HasFill() {
		eo.ApplyChildFill(now, vo.LastFillPrice, vo.LastFillQuantity, vo.LastFillCommission)
	}
	switch vo.Status {
	case orders.VOStatusRejected:
		eo.Reject(now)
		t.clearLive(eo.ID)
	case orders.VOStatusCancelled, orders.VOStatusPartiallyFilledCancelled:
		eo.ResolveCancel(now)
		t.clearLive(eo.ID)
	case orders.VOStatusExpired, orders.VOStatusPartiallyFilledExpired:
		eo.Expire(now)
		t.clearLive(eo.ID)
	case orders.VOStatusFilled:
		t.clearLive(eo.ID)
	}
	t.updateExecOrder(eo)
}

func (t *Taker) OnTick(now time.Time, tick core.Tick, eo *orders.ExecutionOrder) {}

func (t *Taker) OnCancelExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	eo.BeginCancel(now)
	if venueID, ok := t.getLive(eo.ID); ok {
		t.cancelVenueOrder(venueID, now)
	} else {
		eo.ResolveCancel(now)
	}
	t.updateExecOrder(eo)
}
