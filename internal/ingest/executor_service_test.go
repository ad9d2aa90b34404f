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

type fakeExecutor struct {
	venue *core.Venue

	placed                  []*orders.VenueOrder
	cancelled               []core.ID
	cancelledAllInstruments []core.ID

	lastTickInstrument core.ID
	lastTickMid        core.Decimal
}

func (f *fakeExecutor) Venue() *core.Venue { return f.venue }
func (f *fakeExecutor) PlaceOrder(ctx context.Context, vo *orders.VenueOrder) error {
	f.placed = append(f.placed, vo)
	return nil
}
func (f *fakeExecutor) CancelOrder(ctx context.Context, venueOrderID core.ID) error {
	f.cancelled = append(f.cancelled, venueOrderID)
	return nil
}
func (f *fakeExecutor) CancelAllOrders(ctx context.Context, instrumentID core.ID) error {
	f.cancelledAllInstruments = append(f.cancelledAllInstruments, instrumentID)
	return nil
}

// tickAwareFakeExecutor additionally implements tickAware, the way
// SimulatedExecutor does.
type tickAwareFakeExecutor struct {
	fakeExecutor
}

func (f *tickAwareFakeExecutor) OnTick(instrument core.ID, mid core.Decimal) {
	f.lastTickInstrument = instrument
	f.lastTickMid = mid
}

func testExecInstrument(venue *core.Venue) *core.Instrument {
	return &core.Instrument{ID: core.NewID(), Venue: venue, Symbol: "BTCUSDT"}
}

func TestExecutorServicePlacesOrderForOwnVenue(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	exec := &fakeExecutor{venue: venue}
	svc := NewExecutorService(zerolog.Nop(), exec)

	inst := testExecInstrument(venue)
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, svc.HandleEvent(context.Background(), events.NewNewVenueOrderEvent(vo)))
	require.Len(t, exec.placed, 1)
	assert.Equal(t, vo.ID, exec.placed[0].ID)
}

func TestExecutorServiceIgnoresOrderForOtherVenue(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	otherVenue := &core.Venue{ID: core.NewID(), Name: "okx"}
	exec := &fakeExecutor{venue: venue}
	svc := NewExecutorService(zerolog.Nop(), exec)

	inst := testExecInstrument(otherVenue)
	vo := orders.NewVenueOrder(core.NewID(), core.NewID(), inst, &core.Strategy{ID: core.NewID()},
		core.SideBuy, orders.VenueOrderMarket, orders.TIFIOC, core.Zero, core.NewDecimalFromFloat(1), time.Now().UTC())

	require.NoError(t, svc.HandleEvent(context.Background(), events.NewNewVenueOrderEvent(vo)))
	assert.Empty(t, exec.placed, "order for a different venue must not be routed to this executor")
}

func TestExecutorServiceDispatchesCancelAndCancelAll(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	exec := &fakeExecutor{venue: venue}
	svc := NewExecutorService(zerolog.Nop(), exec)

	voID := core.NewID()
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewCancelVenueOrder(voID, time.Now())))
	require.Len(t, exec.cancelled, 1)
	assert.Equal(t, voID, exec.cancelled[0])

	instID := core.NewID()
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewCancelAllVenueOrders(instID, time.Now())))
	require.Len(t, exec.cancelledAllInstruments, 1)
	assert.Equal(t, instID, exec.cancelledAllInstruments[0])
}

func TestExecutorServiceForwardsTickToTickAwareExecutor(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	exec := &tickAwareFakeExecutor{fakeExecutor: fakeExecutor{venue: venue}}
	svc := NewExecutorService(zerolog.Nop(), exec)

	inst := testExecInstrument(venue)
	tick := core.Tick{
		Instrument: inst, EventTime: time.Now().UTC(),
		BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	}
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, tick)))

	assert.Equal(t, inst.ID, exec.lastTickInstrument)
	assert.True(t, exec.lastTickMid.Equal(core.NewDecimalFromFloat(100)))
}

func TestExecutorServiceSkipsTickForNonTickAwareExecutor(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	exec := &fakeExecutor{venue: venue}
	svc := NewExecutorService(zerolog.Nop(), exec)

	inst := testExecInstrument(venue)
	tick := core.Tick{
		Instrument: inst, EventTime: time.Now().UTC(),
		BidPrice: core.NewDecimalFromFloat(99), AskPrice: core.NewDecimalFromFloat(101),
	}
	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, tick)))
}

func TestExecutorServiceSkipsTickWithoutMid(t *testing.T) {
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	exec := &tickAwareFakeExecutor{fakeExecutor: fakeExecutor{venue: venue}}
	svc := NewExecutorService(zerolog.Nop(), exec)

	inst := testExecInstrument(venue)
	tick := core.Tick{Instrument: inst, EventTime: time.Now().UTC()} // zero bid/ask: no mid available

	require.NoError(t, svc.HandleEvent(context.Background(), events.NewTickUpdate(inst, tick)))
	assert.Equal(t, core.ID{}, exec.lastTickInstrument, "without a mid price OnTick must not be invoked")
}

func TestExecutorServiceNameIncludesVenue(t *testing.T) {
	exec := &fakeExecutor{venue: &core.Venue{ID: core.NewID(), Name: "binance"}}
	svc := NewExecutorService(zerolog.Nop(), exec)
	assert.Equal(t, "executor-binance", svc.Name())
}
