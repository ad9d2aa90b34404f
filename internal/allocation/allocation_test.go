package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/ledger"
)

type fakeLedger struct {
	margin   core.Decimal
	position ledger.Position
}

func (f *fakeLedger) MarginBalance(venue, asset core.ID) core.Decimal { return f.margin }
func (f *fakeLedger) Position(strategy, instrument core.ID) ledger.Position {
	return f.position
}

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event)         { p.published = append(p.published, ev) }
func (p *recordingPublisher) PublishBlocking(ev events.Event) { p.published = append(p.published, ev) }

func testInstrument() *core.Instrument {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	quote := &core.Asset{ID: core.NewID(), Symbol: "USDT"}
	return &core.Instrument{
		ID: core.NewID(), Venue: venue, Symbol: "BTCUSDT",
		MarginAsset: quote, LotSize: core.NewDecimalFromFloat(0.001),
	}
}

func TestOnSignalPublishesExecutionOrderSizedFromCapital(t *testing.T) {
	led := &fakeLedger{margin: core.NewDecimalFromFloat(10000)}
	pub := &recordingPublisher{}
	svc := NewService(zerolog.Nop(), led, pub, core.NewDecimalFromFloat(0.5), core.NewDecimalFromFloat(10))

	inst := testInstrument()
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	now := time.Now().UTC()

	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, core.Tick{
		Instrument: inst, EventTime: now, BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	})))

	sig := events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), now)
	require.NoError(t, svc.HandleEvent(context.Background(), sig))

	require.Len(t, pub.published, 1)
	order, ok := pub.published[0].(*events.NewExecutionOrderEvent)
	require.True(t, ok)
	// capitalPerSignal = 10000*0.5/1 = 5000; desiredQty = 1*5000/100 = 50
	assert.True(t, order.Order.Quantity.Equal(core.NewDecimalFromFloat(50)), "got %s", order.Order.Quantity)
	assert.Equal(t, core.SideBuy, order.Order.Side)
}

func TestOnSignalIsNoOpWhenSignalUnchanged(t *testing.T) {
	led := &fakeLedger{margin: core.NewDecimalFromFloat(10000)}
	pub := &recordingPublisher{}
	svc := NewService(zerolog.Nop(), led, pub, core.NewDecimalFromFloat(0.5), core.NewDecimalFromFloat(10))

	inst := testInstrument()
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	now := time.Now().UTC()
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, core.Tick{
		Instrument: inst, EventTime: now, BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	})))

	sig := events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), now)
	require.NoError(t, svc.HandleEvent(context.Background(), sig))
	require.Len(t, pub.published, 1)

	// Identical signal again: must be a no-op.
	require.NoError(t, svc.HandleEvent(context.Background(), sig))
	assert.Len(t, pub.published, 1)
}

func TestOnSignalDropsTradeBelowMinimumNotional(t *testing.T) {
	led := &fakeLedger{margin: core.NewDecimalFromFloat(10000)}
	pub := &recordingPublisher{}
	// max-allocation tiny enough that the resulting notional falls under the floor.
	svc := NewService(zerolog.Nop(), led, pub, core.NewDecimalFromFloat(0.0001), core.NewDecimalFromFloat(1000))

	inst := testInstrument()
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	now := time.Now().UTC()
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, core.Tick{
		Instrument: inst, EventTime: now, BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	})))

	sig := events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), now)
	require.NoError(t, svc.HandleEvent(context.Background(), sig))

	assert.Empty(t, pub.published, "trade below the minimum notional floor must be dropped")
}

func TestOnSignalWithoutPriorTickIsSkipped(t *testing.T) {
	led := &fakeLedger{margin: core.NewDecimalFromFloat(10000)}
	pub := &recordingPublisher{}
	svc := NewService(zerolog.Nop(), led, pub, core.NewDecimalFromFloat(0.5), core.NewDecimalFromFloat(10))

	inst := testInstrument()
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	sig := events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, svc.HandleEvent(context.Background(), sig))
	assert.Empty(t, pub.published, "no tick data yet means no sizing can happen")
}

func TestOnSignalNetsAgainstExistingPosition(t *testing.T) {
	led := &fakeLedger{
		margin:   core.NewDecimalFromFloat(10000),
		position: ledger.Position{Quantity: core.NewDecimalFromFloat(50)},
	}
	pub := &recordingPublisher{}
	svc := NewService(zerolog.Nop(), led, pub, core.NewDecimalFromFloat(0.5), core.NewDecimalFromFloat(10))

	inst := testInstrument()
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	now := time.Now().UTC()
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, core.Tick{
		Instrument: inst, EventTime: now, BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	})))

	// Desired = +50 (same as current position) -> diff is zero, no order.
	sig := events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), now)
	require.NoError(t, svc.HandleEvent(context.Background(), sig))
	assert.Empty(t, pub.published, "position already matches desired exposure")
}
