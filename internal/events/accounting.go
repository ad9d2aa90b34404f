package events

import (
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/ledger"
	"github.com/arkin-go/core/internal/orders"
)

// InitialAccountUpdate carries a venue's full reported balance snapshot at
// startup, used to seed the ledger's projected accounts.
type InitialAccountUpdate struct {
	base
	Update ledger.AccountUpdate
}

func NewInitialAccountUpdate(u ledger.AccountUpdate) *InitialAccountUpdate {
	return &InitialAccountUpdate{base: newBase(TypeInitialAccountUpdate, u.EventTime, true), Update: u}
}

// ReconcileAccountUpdate carries a periodic venue-reported balance used to
// detect drift against the ledger's projected state.
type ReconcileAccountUpdate struct {
	base
	Update ledger.AccountUpdate
}

func NewReconcileAccountUpdate(u ledger.AccountUpdate) *ReconcileAccountUpdate {
	return &ReconcileAccountUpdate{base: newBase(TypeReconcileAccountUpdate, u.EventTime, true), Update: u}
}

// FillPosted is published once the ledger has atomically committed a
// VenueOrder fill's Trade, Commission and RealizedPnL transfers.
type FillPosted struct {
	base
	Result ledger.PostedFill
}

func NewFillPosted(r ledger.PostedFill) *FillPosted {
	return &FillPosted{base: newBase(TypeFillPosted, r.Fill.EventTime, true), Result: r}
}

// AccountingDiscrepancy is published when a reconciliation delta exceeds
// tolerance.
type AccountingDiscrepancy struct {
	base
	Discrepancy ledger.Discrepancy
}

func NewAccountingDiscrepancy(d ledger.Discrepancy) *AccountingDiscrepancy {
	return &AccountingDiscrepancy{base: newBase(TypeAccountingDiscrepancy, d.EventTime, true), Discrepancy: d}
}

// VenueOrderFillEvent is published by an execution adapter when a venue
// reports a fill against a live VenueOrder, driving both the order book
// update and the ledger trade posting.
type VenueOrderFillEvent struct {
	base
	VenueOrderID    core.ID
	ExecutionOrder  *orders.ExecutionOrder
	Fill            ledger.Fill
}

func NewVenueOrderFillEvent(venueOrderID core.ID, eo *orders.ExecutionOrder, fill ledger.Fill) *VenueOrderFillEvent {
	return &VenueOrderFillEvent{
		base:           newBase(TypeVenueOrderFill, fill.EventTime, true),
		VenueOrderID:   venueOrderID,
		ExecutionOrder: eo,
		Fill:           fill,
	}
}
