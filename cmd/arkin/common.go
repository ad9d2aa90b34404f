// Command arkin is the single entry point for every node role: historical
// download, live ingestion, insights generation, scaler fitting,
// backtesting, and the two live-trading strategies (wide-quoter, agent).
// Each role is a subcommand; all but download share the same bootstrap:
// config, logger, sqlite store, and a fixed instrument universe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arkin-go/core/internal/config"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/persistence"
	"github.com/arkin-go/core/internal/runtime"
	"github.com/arkin-go/core/pkg/logger"
)

// archiveFlushInterval bounds how long an event can sit in a
// persistence.BatchingWriter before it is uploaded, independent of the
// archive batch size.
const archiveFlushInterval = 30 * time.Second

// commonFlags are the bootstrap flags every subcommand registers:
// instance config plus the fixed instrument universe for the run.
type commonFlags struct {
	dataDir  *string
	logLevel *string
	pretty   *bool
	venue    *string
	symbols  *string
	tickSize *string
	lotSize  *string
	strategy *string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		dataDir:  fs.String("data-dir", "", "base directory for the sqlite store (default $ARKIN_DATA_DIR or ./data)"),
		logLevel: fs.String("log-level", "", "debug|info|warn|error (default $LOG_LEVEL or info)"),
		pretty:   fs.Bool("pretty", false, "pretty-print logs to stderr instead of JSON"),
		venue:    fs.String("venue", "binance", "venue name"),
		symbols:  fs.String("symbols", "BTCUSDT:BTC:USDT", "comma-separated SYMBOL:BASE:QUOTE instrument specs"),
		tickSize: fs.String("tick-size", "0.01", "instrument price increment"),
		lotSize:  fs.String("lot-size", "0.0001", "instrument quantity increment"),
		strategy: fs.String("strategy", "default", "strategy name used for order and ledger attribution"),
	}
}

// instrumentSpec is one "SYMBOL:BASE:QUOTE" entry from -symbols.
type instrumentSpec struct {
	Symbol string
	Base   string
	Quote  string
}

func parseInstrumentSpecs(raw string) ([]instrumentSpec, error) {
	var out []instrumentSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid instrument spec %q, want SYMBOL:BASE:QUOTE", part)
		}
		out = append(out, instrumentSpec{Symbol: fields[0], Base: fields[1], Quote: fields[2]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instruments given")
	}
	return out, nil
}

// buildInstruments resolves specs into full core.Instrument reference
// entities against a fixed venue, as spot instruments margined in their own
// quote asset, with the given tick/lot size shared across the run.
func buildInstruments(venue *core.Venue, specs []instrumentSpec, tickSize, lotSize core.Decimal) []*core.Instrument {
	assets := make(map[string]*core.Asset)
	asset := func(symbol string) *core.Asset {
		if a, ok := assets[symbol]; ok {
			return a
		}
		a := &core.Asset{ID: core.NewID(), Symbol: symbol, Name: symbol, Kind: core.AssetCrypto}
		assets[symbol] = a
		return a
	}

	out := make([]*core.Instrument, 0, len(specs))
	for _, spec := range specs {
		quote := asset(spec.Quote)
		out = append(out, &core.Instrument{
			ID:                core.NewID(),
			Venue:             venue,
			Symbol:            spec.Symbol,
			VenueSymbol:       spec.Symbol,
			Kind:              core.InstrumentSpot,
			BaseAsset:         asset(spec.Base),
			QuoteAsset:        quote,
			MarginAsset:       quote,
			ContractSize:      core.NewDecimalFromFloat(1),
			TickSize:          tickSize,
			LotSize:           lotSize,
			PricePrecision:    int32(tickSize.Exponent() * -1),
			QuantityPrecision: int32(lotSize.Exponent() * -1),
			Status:            core.TradingStatusTrading,
		})
	}
	return out
}

// bootstrapped bundles what every subcommand needs once common flags are
// parsed: config, logger, store, and the run's fixed instrument universe.
type bootstrapped struct {
	cfg         *config.Config
	log         zerolog.Logger
	store       *persistence.Store
	venue       *core.Venue
	instruments []*core.Instrument
	strategy    *core.Strategy
}

// bootstrap loads config, opens the sqlite store, and seeds it with the
// run's instrument universe so every service's PersistenceReader.
// LoadInstruments call sees a consistent set regardless of subcommand.
func bootstrap(ctx context.Context, cf *commonFlags) (*bootstrapped, error) {
	cfg, err := config.Load(*cf.dataDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if *cf.logLevel != "" {
		level = *cf.logLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: *cf.pretty})
	logger.SetGlobalLogger(log)

	store, err := persistence.Open(cfg.DataDir + "/arkin.db")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	venue := &core.Venue{ID: core.NewID(), Name: *cf.venue, Kind: core.VenueCentralisedExchange}
	specs, err := parseInstrumentSpecs(*cf.symbols)
	if err != nil {
		store.Close()
		return nil, err
	}
	tickSize, err := decimal.NewFromString(*cf.tickSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid -tick-size: %w", err)
	}
	lotSize, err := decimal.NewFromString(*cf.lotSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid -lot-size: %w", err)
	}
	instruments := buildInstruments(venue, specs, tickSize, lotSize)
	for _, inst := range instruments {
		if err := store.UpsertInstrument(ctx, inst); err != nil {
			store.Close()
			return nil, fmt.Errorf("seed instrument %s: %w", inst.Symbol, err)
		}
	}

	return &bootstrapped{
		cfg:         cfg,
		log:         log,
		store:       store,
		venue:       venue,
		instruments: instruments,
		strategy:    &core.Strategy{ID: core.NewID(), Name: *cf.strategy, Description: "arkin CLI strategy"},
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// parseTimeFlag parses an RFC3339 timestamp flag. An empty value is an
// error rather than the zero time, so callers can tell "not given" from a
// valid zero time.
func parseTimeFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	return time.Parse(time.RFC3339, raw)
}

// cancelWhenDone wraps a runtime.Service so that once all of its
// background Tasks return, cancel is invoked. Used to let the engine shut
// itself down when a bounded run (e.g. a historical replay) finishes,
// rather than requiring an operator SIGINT.
type cancelWhenDone struct {
	runtime.Service
	cancel context.CancelFunc
}

func (c *cancelWhenDone) Tasks() []func(ctx context.Context) error {
	inner := c.Service.Tasks()
	if len(inner) == 0 {
		return inner
	}
	var wg sync.WaitGroup
	wg.Add(len(inner))
	out := make([]func(ctx context.Context) error, len(inner))
	for i, fn := range inner {
		fn := fn
		out[i] = func(ctx context.Context) error {
			defer wg.Done()
			return fn(ctx)
		}
	}
	go func() {
		wg.Wait()
		c.cancel()
	}()
	return out
}
