// Package orders implements the two-level order model: the
// VenueOrder and ExecutionOrder state machines, and the in-memory indexed
// order books that hold non-terminal orders.
package orders

import (
	"time"

	"github.com/arkin-go/core/internal/core"
)

// VenueOrderType enumerates the instruction types sent to a venue.
type VenueOrderType string

const (
	VenueOrderMarket             VenueOrderType = "market"
	VenueOrderLimit              VenueOrderType = "limit"
	VenueOrderStopLimit          VenueOrderType = "stop-limit"
	VenueOrderStopMarket         VenueOrderType = "stop-market"
	VenueOrderTakeProfit         VenueOrderType = "take-profit"
	VenueOrderTakeProfitMarket   VenueOrderType = "take-profit-market"
	VenueOrderTrailingStopMarket VenueOrderType = "trailing-stop-market"
)

// TimeInForce enumerates venue time-in-force instructions.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
	TIFGTX TimeInForce = "GTX"
	TIFGTD TimeInForce = "GTD"
)

// VenueOrderStatus is a node in the VenueOrder state graph.
type VenueOrderStatus string

const (
	VOStatusNew                      VenueOrderStatus = "New"
	VOStatusInflight                 VenueOrderStatus = "Inflight"
	VOStatusPlaced                   VenueOrderStatus = "Placed"
	VOStatusCancelling               VenueOrderStatus = "Cancelling"
	VOStatusRejected                 VenueOrderStatus = "Rejected"
	VOStatusPartiallyFilled          VenueOrderStatus = "PartiallyFilled"
	VOStatusFilled                   VenueOrderStatus = "Filled"
	VOStatusCancelled                VenueOrderStatus = "Cancelled"
	VOStatusPartiallyFilledCancelled VenueOrderStatus = "PartiallyFilledCancelled"
	VOStatusExpired                  VenueOrderStatus = "Expired"
	VOStatusPartiallyFilledExpired   VenueOrderStatus = "PartiallyFilledExpired"
)

// IsTerminal reports whether status is one of the terminal states.
func (s VenueOrderStatus) IsTerminal() bool {
	switch s {
	case VOStatusFilled, VOStatusCancelled, VOStatusPartiallyFilledCancelled,
		VOStatusExpired, VOStatusPartiallyFilledExpired, VOStatusRejected:
		return true
	default:
		return false
	}
}

// validVenueTransitions is the declared edge set of the VenueOrder status
// graph. A transition not in this set is invalid: it is
// logged and ignored, never mutates state, and never emits an event.
var validVenueTransitions = map[VenueOrderStatus]map[VenueOrderStatus]bool{
	VOStatusNew: {
		VOStatusInflight:        true,
		VOStatusPlaced:          true,
		VOStatusCancelled:       true,
		VOStatusPartiallyFilled: true,
		VOStatusFilled:          true,
	},
	VOStatusInflight: {
		VOStatusPlaced:   true,
		VOStatusRejected: true,
	},
	VOStatusPlaced: {
		VOStatusPartiallyFilled: true,
		VOStatusFilled:          true,
		VOStatusCancelling:      true,
		VOStatusExpired:         true,
	},
	VOStatusPartiallyFilled: {
		VOStatusCancelling: true,
		VOStatusFilled:     true,
		VOStatusExpired:    true,
	},
	VOStatusCancelling: {
		VOStatusCancelled:                true,
		VOStatusPartiallyFilledCancelled: true,
		VOStatusFilled:                   true,
	},
}

// VenueOrder is a single instruction sent to a venue.
type VenueOrder struct {
	ID                core.ID
	ExecutionOrderID  core.ID
	Instrument        *core.Instrument
	Strategy          *core.Strategy
	Side              core.Side
	OrderType         VenueOrderType
	TimeInForce       TimeInForce
	Price             core.Decimal
	Quantity          core.Decimal
	LastFillPrice     core.Decimal
	LastFillQuantity  core.Decimal
	LastFillCommission core.Decimal
	FilledPrice       core.Decimal // average fill price
	FilledQuantity    core.Decimal
	CommissionAsset   *core.Asset
	Commission        core.Decimal
	Status            VenueOrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewVenueOrder constructs a VenueOrder in status New with zeroed fill
// accounting, rounding price and quantity to the instrument's precision.
func NewVenueOrder(id, execOrderID core.ID, instrument *core.Instrument, strategy *core.Strategy,
	side core.Side, orderType VenueOrderType, tif TimeInForce, price, quantity core.Decimal, now time.Time) *VenueOrder {
	return &VenueOrder{
		ID:               id,
		ExecutionOrderID: execOrderID,
		Instrument:       instrument,
		Strategy:         strategy,
		Side:             side,
		OrderType:        orderType,
		TimeInForce:      tif,
		Price:            instrument.RoundPrice(price),
		Quantity:         instrument.RoundQuantity(quantity),
		Status:           VOStatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (o *VenueOrder) isValidTransition(to VenueOrderStatus) bool {
	edges, ok := validVenueTransitions[o.Status]
	if !ok {
		return false
	}
	return edges[to]
}

// transition applies a status change if and only if it is a declared edge.
// Returns whether the transition was applied; callers log on false per the
// spec's "guarded, invalid transitions ignored" rule.
func (o *VenueOrder) transition(to VenueOrderStatus, eventTime time.Time) bool {
	if !o.isValidTransition(to) {
		return false
	}
	o.Status = to
	o.UpdatedAt = eventTime
	return true
}

// SetInflight transitions New -> Inflight.
func (o *VenueOrder) SetInflight(eventTime time.Time) bool {
	return o.transition(VOStatusInflight, eventTime)
}

// Place transitions {New,Inflight} -> Placed.
func (o *VenueOrder) Place(eventTime time.Time) bool {
	return o.transition(VOStatusPlaced, eventTime)
}

// Reject transitions Inflight -> Rejected.
func (o *VenueOrder) Reject(eventTime time.Time) bool {
	return o.transition(VOStatusRejected, eventTime)
}

// Expire transitions {Placed,PartiallyFilled} -> Expired. PartiallyFilled
// expiry downgrades to PartiallyFilledExpired when there has been a fill.
func (o *VenueOrder) Expire(eventTime time.Time) bool {
	target := VOStatusExpired
	if o.HasFill() {
		target = VOStatusPartiallyFilledExpired
	}
	// PartiallyFilledExpired is not in the declared edge set verbatim
	// (spec diagram draws it off Placed/PartiallyFilled directly); treat
	// it as the same edge as Expired for transition validity.
	if target == VOStatusPartiallyFilledExpired {
		if !o.isValidTransition(VOStatusExpired) {
			return false
		}
		o.Status = target
		o.UpdatedAt = eventTime
		return true
	}
	return o.transition(target, eventTime)
}

// Cancel transitions {Placed,PartiallyFilled} -> Cancelling.
func (o *VenueOrder) Cancel(eventTime time.Time) bool {
	return o.transition(VOStatusCancelling, eventTime)
}

// NeverSent cancels a brand-new order that was never transmitted to the
// venue (New -> Cancelled).
func (o *VenueOrder) NeverSent(eventTime time.Time) bool {
	return o.transition(VOStatusCancelled, eventTime)
}

// FinalizeCancel resolves a Cancelling order to its terminal outcome once
// the venue confirms cancellation: Filled if a race filled it completely,
// PartiallyFilledCancelled if some quantity filled, Cancelled otherwise.
func (o *VenueOrder) FinalizeCancel(eventTime time.Time) bool {
	if o.Status != VOStatusCancelling {
		return false
	}
	var target VenueOrderStatus
	switch {
	case o.RemainingQuantity().IsZero():
		target = VOStatusFilled
	case o.HasFill():
		target = VOStatusPartiallyFilledCancelled
	default:
		target = VOStatusCancelled
	}
	return o.transition(target, eventTime)
}

// AddFill applies a fill: updates the running average fill price, increments
// filled quantity, accumulates commission, and transitions status to
// PartiallyFilled or Filled as appropriate.
func (o *VenueOrder) AddFill(eventTime time.Time, price, quantity, commission core.Decimal) bool {
	switch o.Status {
	case VOStatusNew, VOStatusInflight, VOStatusPlaced, VOStatusPartiallyFilled, VOStatusCancelling:
	default:
		return false
	}

	newFilled := o.FilledQuantity.Add(quantity)
	if newFilled.IsPositive() {
		o.FilledPrice = o.FilledPrice.Mul(o.FilledQuantity).Add(price.Mul(quantity)).Div(newFilled)
	}
	o.FilledQuantity = newFilled
	o.LastFillPrice = price
	o.LastFillQuantity = quantity
	o.LastFillCommission = commission
	o.Commission = o.Commission.Add(commission)
	o.UpdatedAt = eventTime

	if o.RemainingQuantity().IsZero() {
		o.transition(VOStatusFilled, eventTime)
	} else {
		o.transition(VOStatusPartiallyFilled, eventTime)
	}
	return true
}

// RemainingQuantity is quantity minus filled-quantity.
func (o *VenueOrder) RemainingQuantity() core.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// HasFill reports whether any quantity has filled.
func (o *VenueOrder) HasFill() bool {
	return o.FilledQuantity.IsPositive()
}

// IsTerminal reports whether the order has reached a terminal status.
func (o *VenueOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// IsActive reports whether the order is live on the venue (spec: "Placed").
func (o *VenueOrder) IsActive() bool {
	return o.Status == VOStatusPlaced || o.Status == VOStatusPartiallyFilled
}

// TotalValue is price * quantity * contract-size.
func (o *VenueOrder) TotalValue() core.Decimal {
	return o.Price.Mul(o.Quantity).Mul(o.Instrument.ContractSize)
}
