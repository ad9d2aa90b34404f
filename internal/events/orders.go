package events

import (
	"time"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/orders"
)

// NewExecutionOrderEvent requests that allocation/execution place a new
// ExecutionOrder.
type NewExecutionOrderEvent struct {
	base
	Order *orders.ExecutionOrder
}

func NewNewExecutionOrderEvent(o *orders.ExecutionOrder) *NewExecutionOrderEvent {
	return &NewExecutionOrderEvent{base: newBase(TypeNewExecutionOrder, o.CreatedAt, true), Order: o}
}

// ExecutionOrderUpdated is published whenever an ExecutionOrder's state
// changes.
type ExecutionOrderUpdated struct {
	base
	Order *orders.ExecutionOrder
}

func NewExecutionOrderUpdated(o *orders.ExecutionOrder) *ExecutionOrderUpdated {
	return &ExecutionOrderUpdated{base: newBase(TypeExecutionOrderUpdated, o.UpdatedAt, true), Order: o}
}

// CancelExecutionOrder requests cancellation of a still-open ExecutionOrder.
type CancelExecutionOrder struct {
	base
	ExecutionOrderID core.ID
}

func NewCancelExecutionOrder(id core.ID, eventTime time.Time) *CancelExecutionOrder {
	return &CancelExecutionOrder{base: newBase(TypeCancelExecutionOrder, eventTime, true), ExecutionOrderID: id}
}

// NewVenueOrderEvent requests that an adapter place a new VenueOrder at the
// venue.
type NewVenueOrderEvent struct {
	base
	Order *orders.VenueOrder
}

func NewNewVenueOrderEvent(o *orders.VenueOrder) *NewVenueOrderEvent {
	return &NewVenueOrderEvent{base: newBase(TypeNewVenueOrder, o.CreatedAt, true), Order: o}
}

// CancelVenueOrder requests cancellation of a single venue order.
type CancelVenueOrder struct {
	base
	VenueOrderID core.ID
}

func NewCancelVenueOrder(id core.ID, eventTime time.Time) *CancelVenueOrder {
	return &CancelVenueOrder{base: newBase(TypeCancelVenueOrder, eventTime, true), VenueOrderID: id}
}

// CancelAllVenueOrders requests cancellation of every open venue order for
// an instrument.
type CancelAllVenueOrders struct {
	base
	InstrumentID core.ID
}

func NewCancelAllVenueOrders(instrumentID core.ID, eventTime time.Time) *CancelAllVenueOrders {
	return &CancelAllVenueOrders{base: newBase(TypeCancelAllVenueOrders, eventTime, true), InstrumentID: instrumentID}
}

// VenueOrderUpdated is published whenever a VenueOrder's state changes.
type VenueOrderUpdated struct {
	base
	Order *orders.VenueOrder
}

func NewVenueOrderUpdated(o *orders.VenueOrder) *VenueOrderUpdated {
	return &VenueOrderUpdated{base: newBase(TypeVenueOrderUpdated, o.UpdatedAt, true), Order: o}
}
