package orders

import (
	"time"

	"github.com/arkin-go/core/internal/core"
)

// ExecutionStrategyKind selects which execution strategy translates an
// ExecutionOrder into VenueOrders.
type ExecutionStrategyKind string

const (
	ExecStrategyTaker      ExecutionStrategyKind = "taker"
	ExecStrategyMaker      ExecutionStrategyKind = "maker"
	ExecStrategyWideQuoter ExecutionStrategyKind = "wide-quoter"
)

// ExecutionOrderStatus mirrors VenueOrderStatus but is driven by the
// aggregate outcome of child venue orders.
type ExecutionOrderStatus string

const (
	EOStatusNew                      ExecutionOrderStatus = "New"
	EOStatusPlaced                   ExecutionOrderStatus = "Placed"
	EOStatusPartiallyFilled          ExecutionOrderStatus = "PartiallyFilled"
	EOStatusFilled                   ExecutionOrderStatus = "Filled"
	EOStatusCancelling               ExecutionOrderStatus = "Cancelling"
	EOStatusCancelled                ExecutionOrderStatus = "Cancelled"
	EOStatusPartiallyFilledCancelled ExecutionOrderStatus = "PartiallyFilledCancelled"
	EOStatusRejected                 ExecutionOrderStatus = "Rejected"
	EOStatusExpired                  ExecutionOrderStatus = "Expired"
)

// IsTerminal reports whether the execution order can no longer mutate.
func (s ExecutionOrderStatus) IsTerminal() bool {
	switch s {
	case EOStatusFilled, EOStatusCancelled, EOStatusPartiallyFilledCancelled, EOStatusRejected, EOStatusExpired:
		return true
	default:
		return false
	}
}

// ExecutionOrder is the trading intent.
type ExecutionOrder struct {
	ID              core.ID
	Strategy        *core.Strategy
	Instrument      *core.Instrument
	ExecStrategy    ExecutionStrategyKind
	Side            core.Side
	Price           core.Decimal // 0 for market
	Quantity        core.Decimal
	FillPrice       core.Decimal
	FilledQuantity  core.Decimal
	Commission      core.Decimal
	Status          ExecutionOrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewExecutionOrder constructs an ExecutionOrder in status New, rounding
// price and quantity to the instrument's precision (invariant: filled
// quantity never exceeds quantity).
func NewExecutionOrder(id core.ID, strategy *core.Strategy, instrument *core.Instrument,
	execStrategy ExecutionStrategyKind, side core.Side, price, quantity core.Decimal, now time.Time) *ExecutionOrder {
	roundedPrice := price
	if !price.IsZero() {
		roundedPrice = instrument.RoundPrice(price)
	}
	return &ExecutionOrder{
		ID:           id,
		Strategy:     strategy,
		Instrument:   instrument,
		ExecStrategy: execStrategy,
		Side:         side,
		Price:        roundedPrice,
		Quantity:     instrument.RoundQuantity(quantity),
		Status:       EOStatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// RemainingQuantity is quantity minus filled-quantity.
func (e *ExecutionOrder) RemainingQuantity() core.Decimal {
	return e.Quantity.Sub(e.FilledQuantity)
}

// IsTerminal reports whether the execution order has reached a terminal
// status.
func (e *ExecutionOrder) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// ApplyChildFill folds a child VenueOrder fill into the execution order's
// aggregate fill accounting, using the same running-average formula as
// VenueOrder.AddFill, and transitions to PartiallyFilled/Filled.
func (e *ExecutionOrder) ApplyChildFill(eventTime time.Time, price, quantity, commission core.Decimal) {
	newFilled := e.FilledQuantity.Add(quantity)
	if newFilled.IsPositive() {
		e.FillPrice = e.FillPrice.Mul(e.FilledQuantity).Add(price.Mul(quantity)).Div(newFilled)
	}
	e.FilledQuantity = newFilled
	e.Commission = e.Commission.Add(commission)
	e.UpdatedAt = eventTime

	if e.FilledQuantity.GreaterThanOrEqual(e.Quantity) {
		e.Status = EOStatusFilled
	} else if e.FilledQuantity.IsPositive() {
		e.Status = EOStatusPartiallyFilled
	}
}

// Place marks the execution order as having at least one live child order.
func (e *ExecutionOrder) Place(eventTime time.Time) {
	if e.Status == EOStatusNew {
		e.Status = EOStatusPlaced
		e.UpdatedAt = eventTime
	}
}

// BeginCancel marks the execution order as cancelling; it resolves to a
// terminal status once every child venue order reaches its own terminal
// status (see ResolveCancel).
func (e *ExecutionOrder) BeginCancel(eventTime time.Time) {
	if !e.Status.IsTerminal() {
		e.Status = EOStatusCancelling
		e.UpdatedAt = eventTime
	}
}

// ResolveCancel finalizes a Cancelling execution order once all live
// children are terminal: Cancelled if none ever filled, PartiallyFilled-
// Cancelled if some fills occurred, Filled if the aggregate quantity
// matches.
func (e *ExecutionOrder) ResolveCancel(eventTime time.Time) {
	if e.Status != EOStatusCancelling {
		return
	}
	switch {
	case e.FilledQuantity.GreaterThanOrEqual(e.Quantity):
		e.Status = EOStatusFilled
	case e.FilledQuantity.IsPositive():
		e.Status = EOStatusPartiallyFilledCancelled
	default:
		e.Status = EOStatusCancelled
	}
	e.UpdatedAt = eventTime
}

// Reject marks the execution order Rejected (e.g. its sole venue order was
// rejected before any fill).
func (e *ExecutionOrder) Reject(eventTime time.Time) {
	if !e.Status.IsTerminal() {
		e.Status = EOStatusRejected
		e.UpdatedAt = eventTime
	}
}

// Expire marks the execution order Expired.
func (e *ExecutionOrder) Expire(eventTime time.Time) {
	if !e.Status.IsTerminal() {
		e.Status = EOStatusExpired
		e.UpdatedAt = eventTime
	}
}
