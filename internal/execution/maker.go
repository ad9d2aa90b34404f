package execution

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/orders"
)

// Maker emits a single post-only (GTX) limit VenueOrder at the execution
// order's price on New, tracks partial fills, and rejects the execution
// order if the venue rejects the post-only instruction.
type Maker struct {
	base
}

func NewMaker(log zerolog.Logger, books Books, pub Publisher) *Maker {
	return &Maker{base: newBase(log.With().Str("strategy", "maker").Logger(), books, pub)}
}

func (m *Maker) Kind() orders.ExecutionStrategyKind { return orders.ExecStrategyMaker }

func (m *Maker) OnNewExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	vo := orders.NewVenueOrder(core.NewID(), eo.ID, eo.Instrument, eo.Strategy,
		eo.Side, orders.VenueOrderLimit, orders.TIFGTX, eo.Price, eo.RemainingQuantity(), now)
	m.setLive(eo.ID, vo.ID)
	m.placeVenueOrder(vo)
	eo.Place(now)
	m.updateExecOrder(eo)
}

func (m *Maker) OnVenueOrderUpdate(now time.Time, eo *orders.ExecutionOrder, vo *orders.VenueOrder) {
	if vo.HasFill() {
		eo.ApplyChildFill(now, vo.LastFillPrice, vo.LastFillQuantity, vo.LastFillCommission)
	}
	switch vo.Status {
	case orders.VOStatusRejected:
		// GTX rejection (would-take) rejects the whole execution order.
		eo.Reject(now)
		m.clearLive(eo.ID)
	case orders.VOStatusCancelled, orders.VOStatusPartiallyFilledCancelled:
		eo.ResolveCancel(now)
		m.clearLive(eo.ID)
	case orders.VOStatusExpired, orders.VOStatusPartiallyFilledExpired:
		eo.Expire(now)
		m.clearLive(eo.ID)
	case orders.VOStatusFilled:
		m.clearLive(eo.ID)
	}
	m.updateExecOrder(eo)
}

func (m *Maker) OnTick(now time.Time, tick core.Tick, eo *orders.ExecutionOrder) {}

func (m *Maker) OnCancelExecutionOrder(now time.Time, eo *orders.ExecutionOrder) {
	eo.BeginCancel(now)
	if venueID, ok := m.getLive(eo.ID); ok {
		m.cancelVenueOrder(venueID, now)
	} else {
		eo.ResolveCancel(now)
	}
	m.updateExecOrder(eo)
}
