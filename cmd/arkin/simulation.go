package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arkin-go/core/internal/allocation"
	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/execution"
	"github.com/arkin-go/core/internal/ingest"
	"github.com/arkin-go/core/internal/insights"
	"github.com/arkin-go/core/internal/ledger"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/persistence"
	"github.com/arkin-go/core/internal/runtime"
	"github.com/arkin-go/core/internal/strategy"
)

// runSimulation backtests the threshold strategy end-to-end against
// recorded market data: replay -> insights -> strategy -> allocation ->
// execution router -> simulated executor -> ledger, with every
// persistable event sunk to sqlite for later analysis.
func runSimulation(args []string) error {
	fs := flag.NewFlagSet("simulation", flag.ExitOnError)
	cf := registerCommon(fs)
	in := fs.String("in", "./data/historical", "directory of <venue>.jsonl historical files")
	start := fs.String("start", "", "backtest range start, RFC3339 (required)")
	end := fs.String("end", "", "backtest range end, RFC3339 (required)")
	barDuration := fs.Duration("bar", time.Minute, "OHLCV bar duration")
	window := fs.Duration("window", time.Minute, "simulation barrier pacing window")
	watchFeature := fs.String("watch-feature", "ta.rsi[14]", "feature id the threshold strategy watches")
	threshold := fs.String("threshold", "60", "threshold strategy trigger level")
	scale := fs.String("scale", "0.02", "threshold strategy conviction scale")
	maxAllocation := fs.String("max-allocation", "0.5", "fraction of margin balance spendable across active signals")
	minTradeValue := fs.String("min-trade-value", "10", "minimum notional for a trade to be placed")
	commission := fs.String("commission", "0.001", "simulated executor commission rate")
	startingBalance := fs.String("starting-balance", "100000", "seeded starting quote-asset margin balance")
	reconcileTolerance := fs.String("reconcile-tolerance", "", "ledger reconciliation tolerance (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startTime, err := parseTimeFlag(*start)
	if err != nil {
		return fmt.Errorf("-start: %w", err)
	}
	endTime, err := parseTimeFlag(*end)
	if err != nil {
		return fmt.Errorf("-end: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := bootstrap(ctx, cf)
	if err != nil {
		return err
	}
	defer b.store.Close()

	tolRaw := *reconcileTolerance
	if tolRaw == "" {
		tolRaw = b.cfg.ReconciliationTolerance
	}
	tolerance, err := decimal.NewFromString(tolRaw)
	if err != nil {
		return fmt.Errorf("invalid reconciliation tolerance: %w", err)
	}
	threshDec, err := decimal.NewFromString(*threshold)
	if err != nil {
		return fmt.Errorf("invalid -threshold: %w", err)
	}
	scaleDec, err := decimal.NewFromString(*scale)
	if err != nil {
		return fmt.Errorf("invalid -scale: %w", err)
	}
	maxAllocDec, err := decimal.NewFromString(*maxAllocation)
	if err != nil {
		return fmt.Errorf("invalid -max-allocation: %w", err)
	}
	minTradeDec, err := decimal.NewFromString(*minTradeValue)
	if err != nil {
		return fmt.Errorf("invalid -min-trade-value: %w", err)
	}
	commissionDec, err := decimal.NewFromString(*commission)
	if err != nil {
		return fmt.Errorf("invalid -commission: %w", err)
	}
	startBalDec, err := decimal.NewFromString(*startingBalance)
	if err != nil {
		return fmt.Errorf("invalid -starting-balance: %w", err)
	}

	eventBus := bus.New(b.log, bus.Config{QueueCapacity: b.cfg.EventQueueCapacity})
	clock := core.NewSimClock(startTime)
	cc := runtime.CoreCtx{Clock: clock, Reader: b.store}
	engine := runtime.New(b.log, eventBus, cc)

	venueBook := orders.NewVenueBook(nil)
	execBook := orders.NewExecutionBook(nil)

	led := ledger.New(b.log, tolerance)
	quoteAsset := b.instruments[0].QuoteAsset
	led.Seed(ledger.AccountUpdate{
		EventTime: startTime,
		Venue:     b.venue,
		Asset:     quoteAsset,
		Kind:      ledger.AccountMargin,
		Balance:   startBalDec,
	})
	ledgerService := ledger.NewService(b.log, led, venueBook, execBook)

	source := ingest.NewFileHistoricalSource(b.log, *in)
	task := ingest.ReplayTask{Venue: b.venue, Instruments: b.instruments}
	sim := ingest.NewSimulatedIngestor(b.log, source, []ingest.ReplayTask{task}, startTime, endTime, *window, clock)

	pipeline, agg := buildDefaultPipeline(*barDuration)
	ref := pipelineRef("simulation-" + *cf.venue)
	sim.SetTickPipeline(ref)
	insightsService := insights.NewService(b.log, ref, pipeline, "", agg)

	algo := strategy.NewThresholdStrategy(*watchFeature, threshDec, scaleDec)
	strategyService := strategy.NewService(b.log, b.strategy, algo, nil)

	allocationService := allocation.NewService(b.log, led, nil, maxAllocDec, minTradeDec)

	router := execution.NewRouter(b.log, execution.Books{Exec: execBook, Venue: venueBook}, nil,
		core.NewDecimalFromFloat(0.0005), core.NewDecimalFromFloat(0.001))

	simExecutor := ingest.NewSimulatedExecutor(b.log, b.venue, nil, commissionDec)
	executorService := ingest.NewExecutorService(b.log, simExecutor)

	engine.Register(&cancelWhenDone{Service: sim, cancel: cancel})
	engine.Register(ledgerService)
	engine.Register(insightsService)
	engine.Register(strategyService)
	engine.Register(allocationService)
	engine.Register(router)
	engine.Register(executorService)
	engine.Register(persistence.NewWriterService(b.log, b.store))

	b.log.Info().Str("venue", b.venue.Name).Time("start", startTime).Time("end", endTime).Msg("starting simulation")
	return engine.Run(ctx)
}
