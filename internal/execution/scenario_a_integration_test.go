package execution

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/allocation"
	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/ingest"
	"github.com/arkin-go/core/internal/ledger"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// A full taker round-trip: a Signal sized by allocation.Service against a
// margin balance of 495000 and a 10% max allocation produces a Taker
// ExecutionOrder for 1.0 BTC at mid 49500, which fills instantly through
// SimulatedExecutor and is posted to the ledger. Wires the real bus,
// allocation, execution router, simulated executor, and ledger services
// together rather than calling any of them directly, so this exercises the
// same event path `cmd/arkin simulation` runs.
func TestScenarioTakerRoundTripAcrossAllocationExecutionAndLedger(t *testing.T) {
	b := bus.New(zerolog.Nop(), bus.Config{})

	venue := &core.Venue{ID: core.NewID(), Name: "binance", Kind: core.VenueCentralisedExchange}
	base := &core.Asset{ID: core.NewID(), Symbol: "BTC", Kind: core.AssetCrypto}
	quote := &core.Asset{ID: core.NewID(), Symbol: "USDT", Kind: core.AssetCrypto}
	inst := &core.Instrument{
		ID: core.NewID(), Venue: venue, Symbol: "BTCUSDT",
		BaseAsset: base, QuoteAsset: quote, MarginAsset: quote,
		ContractSize: core.NewDecimalFromFloat(1), TickSize: core.NewDecimalFromFloat(0.01),
		LotSize: core.NewDecimalFromFloat(0.001), Status: core.TradingStatusTrading,
	}
	strategy := &core.Strategy{ID: core.NewID(), Name: "taker-scenario"}

	l := ledger.New(zerolog.Nop(), core.NewDecimalFromFloat(0.01))
	venues := orders.NewVenueBook(nil)
	executed := orders.NewExecutionBook(nil)

	ledgerSvc := ledger.NewService(zerolog.Nop(), l, venues, executed)
	executor := ingest.NewSimulatedExecutor(zerolog.Nop(), venue, b, core.Zero)
	executorSvc := ingest.NewExecutorService(zerolog.Nop(), executor)
	router := NewRouter(zerolog.Nop(), Books{Exec: executed, Venue: venues}, b,
		core.NewDecimalFromFloat(0.01), core.NewDecimalFromFloat(0.002))
	allocSvc := allocation.NewService(zerolog.Nop(), l, b,
		core.NewDecimalFromFloat(0.1) /* maxAllocation */, core.NewDecimalFromFloat(10) /* minTradeValue */)

	engine := runtime.New(zerolog.Nop(), b, runtime.CoreCtx{})
	engine.Register(ledgerSvc)
	engine.Register(executorSvc)
	engine.Register(router)
	engine.Register(allocSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	now := time.Now().UTC()

	b.Publish(events.NewInitialAccountUpdate(ledger.AccountUpdate{
		EventTime: now, Venue: venue, Asset: quote, Kind: ledger.AccountMargin,
		Balance: core.NewDecimalFromFloat(495000),
	}))
	require.Eventually(t, func() bool {
		return l.MarginBalance(venue.ID, quote.ID).Equal(core.NewDecimalFromFloat(495000))
	}, time.Second, time.Millisecond, "margin balance was never seeded")

	b.Publish(events.NewTickUpdate(inst, core.Tick{
		Instrument: inst, EventTime: now,
		BidPrice: core.NewDecimalFromFloat(49000), BidQty: core.NewDecimalFromFloat(10),
		AskPrice: core.NewDecimalFromFloat(50000), AskQty: core.NewDecimalFromFloat(10),
	}))
	b.Publish(events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(1), now))

	require.Eventually(t, func() bool {
		return l.Position(strategy.ID, inst.ID).Quantity.Equal(core.NewDecimalFromFloat(1))
	}, time.Second, time.Millisecond, "position was never filled to 1.0 BTC")

	pos := l.Position(strategy.ID, inst.ID)
	assert.True(t, pos.AvgEntry.Equal(core.NewDecimalFromFloat(49500)), "got %s", pos.AvgEntry)

	var cashDebit *ledger.Transfer
	for _, tr := range l.Transfers() {
		if tr.Kind == ledger.TransferTrade && tr.Asset == quote.ID &&
			tr.DebitAccount.Owner == ledger.OwnerStrategy && tr.DebitAccount.Strategy == strategy.ID {
			tr := tr
			cashDebit = &tr
		}
	}
	require.NotNil(t, cashDebit, "expected a trade transfer debiting the strategy's quote cash")
	assert.True(t, cashDebit.Amount.Equal(core.NewDecimalFromFloat(49500)),
		"cash must be debited by qty x fill price (1.0 x 49500), got %s", cashDebit.Amount)

	// A fully filled ExecutionOrder is terminal and the book removes
	// terminal orders on Update, so its disappearance from the book is the
	// externally observable proof the router drove it to EOStatusFilled.
	require.Eventually(t, func() bool {
		for _, eo := range executed.All() {
			if eo.Strategy.ID == strategy.ID {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond, "execution order never reached a terminal (filled) state")

	cancel()
	<-done
}
