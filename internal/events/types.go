// Package events defines the typed event taxonomy published on the event
// bus. Every event implements Event, carrying its EventType and
// event-time so subscribers and the simulation barrier can reason about
// ordering without inspecting payloads.
package events

import "time"

// Type identifies the kind of event flowing through the bus.
type Type string

const (
	// Market data
	TypeAggTradeUpdate Type = "agg_trade_update"
	TypeTickUpdate     Type = "tick_update"
	TypeMetricUpdate   Type = "metric_update"
	TypeBookUpdate     Type = "book_update"

	// Insights & signals
	TypeInsightsTick   Type = "insights_tick"
	TypeInsightsUpdate Type = "insights_update"
	TypeSignal         Type = "signal"

	// Execution orders
	TypeNewExecutionOrder      Type = "new_execution_order"
	TypeExecutionOrderUpdated  Type = "execution_order_updated"
	TypeCancelExecutionOrder   Type = "cancel_execution_order"

	// Venue orders
	TypeNewVenueOrder        Type = "new_venue_order"
	TypeCancelVenueOrder     Type = "cancel_venue_order"
	TypeCancelAllVenueOrders Type = "cancel_all_venue_orders"
	TypeVenueOrderUpdated    Type = "venue_order_updated"
	TypeVenueOrderInflight   Type = "venue_order_inflight"
	TypeVenueOrderPlaced     Type = "venue_order_placed"
	TypeVenueOrderRejected   Type = "venue_order_rejected"
	TypeVenueOrderFill       Type = "venue_order_fill"
	TypeVenueOrderCancelled  Type = "venue_order_cancelled"
	TypeVenueOrderExpired    Type = "venue_order_expired"

	// Accounting
	TypeInitialAccountUpdate   Type = "initial_account_update"
	TypeReconcileAccountUpdate Type = "reconcile_account_update"
	TypeFillPosted             Type = "fill_posted"
	TypeAccountingDiscrepancy  Type = "accounting_discrepancy"
	TypeVenueAccountUpdate     Type = "venue_account_update"
)

// IsMarketData reports whether t is one of the raw market-data event types,
// used by the AllExceptMarketData filter.
func (t Type) IsMarketData() bool {
	switch t {
	case TypeAggTradeUpdate, TypeTickUpdate, TypeMetricUpdate, TypeBookUpdate:
		return true
	default:
		return false
	}
}

// Event is the interface every payload published on the bus implements.
type Event interface {
	EventType() Type
	EventTime() time.Time
	// Persist reports whether the event should be sunk to the persistence
	// writer.
	Persist() bool
}

// base embeds the common event-time bookkeeping; concrete event structs
// embed it rather than repeating the same three methods everywhere.
type base struct {
	Type_      Type
	Time_      time.Time
	Persisted_ bool
}

func (b base) EventType() Type      { return b.Type_ }
func (b base) EventTime() time.Time { return b.Time_ }
func (b base) Persist() bool        { return b.Persisted_ }

func newBase(t Type, eventTime time.Time, persist bool) base {
	return base{Type_: t, Time_: eventTime, Persisted_: persist}
}
