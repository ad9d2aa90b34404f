package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/core"
)

func testInstrument() *core.Instrument {
	return &core.Instrument{
		ID:           core.NewID(),
		Symbol:       "BTCUSDT",
		ContractSize: core.NewDecimalFromFloat(1),
		TickSize:     core.NewDecimalFromFloat(0.01),
		LotSize:      core.NewDecimalFromFloat(0.001),
	}
}

func TestVenueOrderAddFillTransitionsPartiallyFilledThenFilled(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(2), now)
	require.True(t, o.Place(now))

	ok := o.AddFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.NewDecimalFromFloat(0.01))
	require.True(t, ok)
	assert.Equal(t, VOStatusPartiallyFilled, o.Status)
	assert.True(t, o.HasFill())
	assert.False(t, o.IsTerminal())

	ok = o.AddFill(now, core.NewDecimalFromFloat(102), core.NewDecimalFromFloat(1), core.NewDecimalFromFloat(0.01))
	require.True(t, ok)
	assert.Equal(t, VOStatusFilled, o.Status)
	assert.True(t, o.IsTerminal())
	assert.True(t, o.FilledPrice.Equal(core.NewDecimalFromFloat(101)), "average fill price, got %s", o.FilledPrice)
	assert.True(t, o.RemainingQuantity().IsZero())
}

func TestVenueOrderInvalidTransitionIsIgnored(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), now)

	// New -> Rejected is not a declared edge; must be ignored.
	ok := o.Reject(now)
	assert.False(t, ok)
	assert.Equal(t, VOStatusNew, o.Status)
}

func TestVenueOrderExpireDowngradesToPartiallyFilledExpiredAfterFill(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(2), now)
	require.True(t, o.Place(now))
	require.True(t, o.AddFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.Zero))

	ok := o.Expire(now)
	require.True(t, ok)
	assert.Equal(t, VOStatusPartiallyFilledExpired, o.Status)
	assert.True(t, o.IsTerminal())
}

func TestVenueOrderFinalizeCancelOutcomes(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()

	t.Run("no fill cancels clean", func(t *testing.T) {
		o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
			core.SideBuy, VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), now)
		require.True(t, o.Place(now))
		require.True(t, o.Cancel(now))
		require.True(t, o.FinalizeCancel(now))
		assert.Equal(t, VOStatusCancelled, o.Status)
	})

	t.Run("partial fill cancels partially-filled-cancelled", func(t *testing.T) {
		o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
			core.SideBuy, VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(2), now)
		require.True(t, o.Place(now))
		require.True(t, o.AddFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.Zero))
		require.True(t, o.Cancel(now))
		require.True(t, o.FinalizeCancel(now))
		assert.Equal(t, VOStatusPartiallyFilledCancelled, o.Status)
	})
}

func TestExecutionOrderApplyChildFillAggregatesAcrossChildren(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	eo := NewExecutionOrder(core.NewID(), &core.Strategy{ID: core.NewID()}, inst, ExecStrategyTaker,
		core.SideBuy, core.Zero, core.NewDecimalFromFloat(2), now)
	eo.Place(now)

	eo.ApplyChildFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.NewDecimalFromFloat(0.1))
	assert.Equal(t, EOStatusPartiallyFilled, eo.Status)

	eo.ApplyChildFill(now, core.NewDecimalFromFloat(104), core.NewDecimalFromFloat(1), core.NewDecimalFromFloat(0.1))
	assert.Equal(t, EOStatusFilled, eo.Status)
	assert.True(t, eo.FillPrice.Equal(core.NewDecimalFromFloat(102)), "got %s", eo.FillPrice)
	assert.True(t, eo.RemainingQuantity().IsZero())
	assert.True(t, eo.Commission.Equal(core.NewDecimalFromFloat(0.2)))
}

func TestExecutionOrderResolveCancelOutcomes(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()

	eo := NewExecutionOrder(core.NewID(), &core.Strategy{ID: core.NewID()}, inst, ExecStrategyTaker,
		core.SideBuy, core.Zero, core.NewDecimalFromFloat(2), now)
	eo.Place(now)
	eo.ApplyChildFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.Zero)
	eo.BeginCancel(now)
	assert.Equal(t, EOStatusCancelling, eo.Status)

	eo.ResolveCancel(now)
	assert.Equal(t, EOStatusPartiallyFilledCancelled, eo.Status)
}

func TestExecutionOrderRoundsPriceAndQuantityOnConstruction(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	eo := NewExecutionOrder(core.NewID(), &core.Strategy{ID: core.NewID()}, inst, ExecStrategyMaker,
		core.SideBuy, core.NewDecimalFromFloat(100.456), core.NewDecimalFromFloat(1.23456), now)
	assert.True(t, eo.Price.Equal(core.NewDecimalFromFloat(100.46)), "got %s", eo.Price)
	assert.True(t, eo.Quantity.Equal(core.NewDecimalFromFloat(1.234)), "got %s", eo.Quantity)
}

func TestExecutionBookRemovesOnTerminal(t *testing.T) {
	var notified []*ExecutionOrder
	book := NewExecutionBook(func(o *ExecutionOrder) { notified = append(notified, o) })

	inst := testInstrument()
	now := time.Now().UTC()
	eo := NewExecutionOrder(core.NewID(), &core.Strategy{ID: core.NewID()}, inst, ExecStrategyTaker,
		core.SideBuy, core.Zero, core.NewDecimalFromFloat(1), now)
	book.Insert(eo)

	_, ok := book.Get(eo.ID)
	assert.True(t, ok)
	assert.Len(t, notified, 1)

	eo.ApplyChildFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), core.Zero)
	require.Equal(t, EOStatusFilled, eo.Status)
	book.Update(eo)

	_, ok = book.Get(eo.ID)
	assert.False(t, ok, "terminal orders must be removed from the book")
	assert.Len(t, notified, 2)
}

func TestExecutionBookNotifyHandsOutASnapshotCopy(t *testing.T) {
	var captured *ExecutionOrder
	book := NewExecutionBook(func(o *ExecutionOrder) { captured = o })

	inst := testInstrument()
	now := time.Now().UTC()
	eo := NewExecutionOrder(core.NewID(), &core.Strategy{ID: core.NewID()}, inst, ExecStrategyTaker,
		core.SideBuy, core.Zero, core.NewDecimalFromFloat(1), now)
	book.Insert(eo)

	require.NotNil(t, captured)
	assert.NotSame(t, eo, captured, "notify must hand out a copy, not the live order")

	eo.Status = EOStatusRejected
	assert.NotEqual(t, eo.Status, captured.Status, "mutating the original must not affect the captured snapshot")
}

func TestVenueBookListByExecutionOrderID(t *testing.T) {
	book := NewVenueBook(nil)
	inst := testInstrument()
	now := time.Now().UTC()
	execID := core.NewID()

	a := NewVenueOrder(core.NewID(), execID, inst, &core.Strategy{ID: core.NewID()}, core.SideBuy,
		VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(1), now)
	b := NewVenueOrder(core.NewID(), execID, inst, &core.Strategy{ID: core.NewID()}, core.SideBuy,
		VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(101), core.NewDecimalFromFloat(1), now)
	other := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()}, core.SideBuy,
		VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(102), core.NewDecimalFromFloat(1), now)
	book.Insert(a)
	book.Insert(b)
	book.Insert(other)

	children := book.ListByExecutionOrderID(execID)
	assert.Len(t, children, 2)
}

func TestVenueOrderTotalValue(t *testing.T) {
	inst := testInstrument()
	inst.ContractSize = core.NewDecimalFromFloat(10)
	now := time.Now().UTC()
	o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()}, core.SideBuy,
		VenueOrderLimit, TIFGTC, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(2), now)
	assert.True(t, o.TotalValue().Equal(core.NewDecimalFromFloat(2000)), "got %s", o.TotalValue())
}

// Maker limit qty = 10 at 100, filled 3, then cancelled: the terminal status
// must be PartiallyFilledCancelled with filled = 3, avg = 100, remaining = 7.
func TestScenarioPartialFillThenCancel(t *testing.T) {
	inst := testInstrument()
	now := time.Now().UTC()
	o := NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideSell, VenueOrderLimit, TIFGTX, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(10), now)
	require.True(t, o.Place(now))

	require.True(t, o.AddFill(now, core.NewDecimalFromFloat(100), core.NewDecimalFromFloat(3), core.Zero))
	assert.Equal(t, VOStatusPartiallyFilled, o.Status)

	require.True(t, o.Cancel(now))
	require.True(t, o.FinalizeCancel(now))

	assert.Equal(t, VOStatusPartiallyFilledCancelled, o.Status)
	assert.True(t, o.FilledQuantity.Equal(core.NewDecimalFromFloat(3)), "got %s", o.FilledQuantity)
	assert.True(t, o.FilledPrice.Equal(core.NewDecimalFromFloat(100)), "got %s", o.FilledPrice)
	assert.True(t, o.RemainingQuantity().Equal(core.NewDecimalFromFloat(7)), "got %s", o.RemainingQuantity())
}
