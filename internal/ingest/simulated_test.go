package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/orders"
)

func TestSimulatedExecutorRejectsOrderWithoutKnownMid(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.NewDecimalFromFloat(0.001))

	inst := testExecInstrument(venue)
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusRejected, vo.Status)

	require.Len(t, pub.published, 1)
	_, ok := pub.published[0].(*events.VenueOrderUpdated)
	assert.True(t, ok)
}

func TestSimulatedExecutorFillsAtLastKnownMid(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.NewDecimalFromFloat(0.01))

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, core.NewDecimalFromFloat(2), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusFilled, vo.Status)
	assert.True(t, vo.FilledPrice.Equal(core.NewDecimalFromFloat(100)))
	assert.True(t, vo.FilledQuantity.Equal(core.NewDecimalFromFloat(2)))

	// Placed, then fill update, then final updated: at least a Placed update
	// and a fill event must have been published.
	var sawFill bool
	var sawUpdate bool
	for _, ev := range pub.published {
		switch ev.(type) {
		case *events.VenueOrderFillEvent:
			sawFill = true
		case *events.VenueOrderUpdated:
			sawUpdate = true
		}
	}
	assert.True(t, sawFill, "a fill event must be published")
	assert.True(t, sawUpdate, "an update event must be published")
}

func TestSimulatedExecutorChargesCommission(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.NewDecimalFromFloat(0.01))

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, core.NewDecimalFromFloat(1), time.Now().UTC())
	require.NoError(t, exec.PlaceOrder(context.Background(), vo))

	// commission = mid * qty * rate = 100 * 1 * 0.01 = 1
	assert.True(t, vo.Commission.Equal(core.NewDecimalFromFloat(1)), "got %s", vo.Commission)
}

func TestSimulatedExecutorCancelOfUnknownOrderIsNoOp(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	require.NoError(t, exec.CancelOrder(context.Background(), core.NewID()))
	require.NoError(t, exec.CancelAllOrders(context.Background(), core.NewID()))
	assert.Empty(t, pub.published)
}

func TestSimulatedExecutorCrossingLimitFillsImmediately(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	// a buy limit at 101 crosses a mid of 100: it fills instantly, same as a
	// market order, at the mid price rather than resting.
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTC, core.NewDecimalFromFloat(101), core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusFilled, vo.Status)
	assert.True(t, vo.FilledPrice.Equal(core.NewDecimalFromFloat(100)))
}

func TestSimulatedExecutorPostOnlyCrossingLimitIsRejected(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	// a GTX (post-only) buy at 101 would cross the mid of 100: reject rather
	// than fill, since post-only orders must never take liquidity.
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTX, core.NewDecimalFromFloat(101), core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusRejected, vo.Status)
	assert.False(t, vo.HasFill())
}

func TestSimulatedExecutorNonCrossingGTCRestsThenFillsOnLaterTick(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	// a buy limit at 99 does not cross a mid of 100: it must rest, not fill
	// or get cancelled.
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTC, core.NewDecimalFromFloat(99), core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusPlaced, vo.Status)
	assert.False(t, vo.HasFill())

	// mid drifts down to 99: now it crosses and must fill.
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(99))
	assert.Equal(t, orders.VOStatusFilled, vo.Status)
	assert.True(t, vo.FilledPrice.Equal(core.NewDecimalFromFloat(99)))
}

func TestSimulatedExecutorNonCrossingIOCIsCancelledRatherThanRested(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFIOC, core.NewDecimalFromFloat(99), core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	assert.Equal(t, orders.VOStatusCancelled, vo.Status)

	// a subsequent crossing tick must not fill it: IOC never rests.
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(99))
	assert.Equal(t, orders.VOStatusCancelled, vo.Status)
}

func TestSimulatedExecutorCancelOrderRemovesRestingLimit(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	inst := testExecInstrument(venue)
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(100))

	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTC, core.NewDecimalFromFloat(99), core.NewDecimalFromFloat(1), time.Now().UTC())
	require.NoError(t, exec.PlaceOrder(context.Background(), vo))
	require.Equal(t, orders.VOStatusPlaced, vo.Status)

	require.NoError(t, exec.CancelOrder(context.Background(), vo.ID))
	assert.Equal(t, orders.VOStatusCancelled, vo.Status)

	// a crossing tick after cancellation must not revive it.
	exec.OnTick(inst.ID, core.NewDecimalFromFloat(99))
	assert.Equal(t, orders.VOStatusCancelled, vo.Status)
}

func TestSimulatedExecutorCancelAllOrdersOnlyAffectsGivenInstrument(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "sim"}
	pub := &recordingPublisher{}
	exec := NewSimulatedExecutor(zerolog.Nop(), venue, pub, core.Zero)

	instA := testExecInstrument(venue)
	instB := testExecInstrument(venue)
	exec.OnTick(instA.ID, core.NewDecimalFromFloat(100))
	exec.OnTick(instB.ID, core.NewDecimalFromFloat(100))

	voA := orders.NewVenueOrder(core.NewID(), core.NewID(), instA, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTC, core.NewDecimalFromFloat(99), core.NewDecimalFromFloat(1), time.Now().UTC())
	voB := orders.NewVenueOrder(core.NewID(), core.NewID(), instB, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderLimit, orders.TIFGTC, core.NewDecimalFromFloat(99), core.NewDecimalFromFloat(1), time.Now().UTC())
	require.NoError(t, exec.PlaceOrder(context.Background(), voA))
	require.NoError(t, exec.PlaceOrder(context.Background(), voB))

	require.NoError(t, exec.CancelAllOrders(context.Background(), instA.ID))
	assert.Equal(t, orders.VOStatusCancelled, voA.Status)
	assert.Equal(t, orders.VOStatusPlaced, voB.Status, "cancel-all for instrument A must not touch instrument B's resting order")
}
