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

// runWideQuoter runs the wide-quoter execution strategy live against a
// WebSocket feed. No production venue order-entry adapter exists yet
// (internal/ingest's only ingest.Executor implementation is
// SimulatedExecutor), so this subcommand is paper-trading mode: live
// market data and live feature computation drive a simulated fill engine.
// A real venue adapter, once built, only needs to satisfy ingest.Executor
// to slot in here unchanged.
func runWideQuoter(args []string) error {
	fs := flag.NewFlagSet("wide-quoter", flag.ExitOnError)
	cf := registerCommon(fs)
	wsURL := fs.String("ws-url", "", "venue WebSocket URL (required)")
	barDuration := fs.Duration("bar", time.Minute, "OHLCV bar duration")
	cronSpec := fs.String("cron", "*/1 * * * *", "insights evaluation cron cadence")
	watchFeature := fs.String("watch-feature", "ta.rsi[14]", "feature id the threshold strategy watches")
	threshold := fs.String("threshold", "60", "threshold strategy trigger level")
	scale := fs.String("scale", "0.02", "threshold strategy conviction scale")
	spread := fs.String("spread", "0.0005", "wide-quoter target spread, as a fraction of mid")
	quoteThreshold := fs.String("quote-threshold", "0.001", "wide-quoter requote threshold, as a fraction of the live quote price")
	maxAllocation := fs.String("max-allocation", "0.5", "fraction of margin balance spendable across active signals")
	minTradeValue := fs.String("min-trade-value", "10", "minimum notional for a trade to be placed")
	commission := fs.String("commission", "0.001", "simulated fill commission rate")
	startingBalance := fs.String("starting-balance", "100000", "seeded starting quote-asset margin balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *wsURL == "" {
		return fmt.Errorf("-ws-url is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := bootstrap(ctx, cf)
	if err != nil {
		return err
	}
	defer b.store.Close()

	threshDec, err := decimal.NewFromString(*threshold)
	if err != nil {
		return fmt.Errorf("invalid -threshold: %w", err)
	}
	scaleDec, err := decimal.NewFromString(*scale)
	if err != nil {
		return fmt.Errorf("invalid -scale: %w", err)
	}
	spreadDec, err := decimal.NewFromString(*spread)
	if err != nil {
		return fmt.Errorf("invalid -spread: %w", err)
	}
	quoteThresholdDec, err := decimal.NewFromString(*quoteThreshold)
	if err != nil {
		return fmt.Errorf("invalid -quote-threshold: %w", err)
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
	tolerance, err := decimal.NewFromString(b.cfg.ReconciliationTolerance)
	if err != nil {
		return fmt.Errorf("invalid reconciliation tolerance: %w", err)
	}

	eventBus := bus.New(b.log, bus.Config{QueueCapacity: b.cfg.EventQueueCapacity})
	cc := runtime.CoreCtx{Clock: core.SystemClock{}, Reader: b.store}
	engine := runtime.New(b.log, eventBus, cc)

	venueBook := orders.NewVenueBook(nil)
	execBook := orders.NewExecutionBook(nil)

	led := ledger.New(b.log, tolerance)
	quoteAsset := b.instruments[0].QuoteAsset
	led.Seed(ledger.AccountUpdate{
		EventTime: time.Now(),
		Venue:     b.venue,
		Asset:     quoteAsset,
		Kind:      ledger.AccountMargin,
		Balance:   startBalDec,
	})
	ledgerService := ledger.NewService(b.log, led, venueBook, execBook)

	parser := ingest.NewGenericParser(b.instruments)
	wsIngestor := ingest.NewWebSocketIngestor(b.log, b.venue, *wsURL, parser, b.instruments)

	pipeline, agg := buildDefaultPipeline(*barDuration)
	ref := pipelineRef("wide-quoter-" + *cf.venue)
	insightsService := insights.NewService(b.log, ref, pipeline, *cronSpec, agg)

	algo := strategy.NewThresholdStrategy(*watchFeature, threshDec, scaleDec)
	strategyService := strategy.NewService(b.log, b.strategy, algo, nil)

	allocationService := allocation.NewService(b.log, led, nil, maxAllocDec, minTradeDec)

	router := execution.NewRouter(b.log, execution.Books{Exec: execBook, Venue: venueBook}, nil, spreadDec, quoteThresholdDec)

	simExecutor := ingest.NewSimulatedExecutor(b.log, b.venue, nil, commissionDec)
	executorService := ingest.NewExecutorService(b.log, simExecutor)

	engine.Register(ingest.NewIngestorService(b.log, wsIngestor))
	engine.Register(ledgerService)
	engine.Register(insightsService)
	engine.Register(strategyService)
	engine.Register(allocationService)
	engine.Register(router)
	engine.Register(executorService)
	engine.Register(persistence.NewWriterService(b.log, b.store))

	b.log.Info().Str("venue", b.venue.Name).Str("ws-url", *wsURL).Msg("starting wide-quoter")
	return engine.Run(ctx)
}
