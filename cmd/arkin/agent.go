package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
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

// httpAgentClient calls an out-of-process recurrent-policy model server
// over HTTP, the same request/response envelope shape as
// features.HTTPInferenceClient's forecaster client, extended to carry the
// LSTM hidden/cell state a policy model needs across calls.
type httpAgentClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func newHTTPAgentClient(baseURL string, log zerolog.Logger) *httpAgentClient {
	return &httpAgentClient{baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Second}, log: log.With().Str("client", "agent-inference").Logger()}
}

type actRequest struct {
	Model       string    `json:"model"`
	Instrument  string    `json:"instrument"`
	Observation []float64 `json:"observation"`
	Hidden      []float64 `json:"hidden"`
	Cell        []float64 `json:"cell"`
}

type actResponse struct {
	Success bool      `json:"success"`
	Action  *int      `json:"action"`
	Hidden  []float64 `json:"hidden"`
	Cell    []float64 `json:"cell"`
	Error   *string   `json:"error"`
}

func (c *httpAgentClient) Act(ctx context.Context, model string, instrument core.ID, observation []float64, hidden, cell []float64) (int, []float64, []float64, error) {
	body, err := json.Marshal(actRequest{Model: model, Instrument: instrument.String(), Observation: observation, Hidden: hidden, Cell: cell})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("marshal act request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/act", bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build act request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("call agent endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read agent response: %w", err)
	}
	var out actResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, nil, nil, fmt.Errorf("decode agent response: %w", err)
	}
	if !out.Success || out.Action == nil {
		msg := "unknown error"
		if out.Error != nil {
			msg = *out.Error
		}
		return 0, nil, nil, fmt.Errorf("agent inference failed: %s", msg)
	}
	return *out.Action, out.Hidden, out.Cell, nil
}

// runAgent runs the recurrent-model-driven strategy live against a
// WebSocket feed, routing its discrete actions through the same
// execution/allocation/ledger stack as wide-quoter. Like wide-quoter, it
// settles against SimulatedExecutor until a venue order-entry adapter
// exists.
func runAgent(args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	cf := registerCommon(fs)
	wsURL := fs.String("ws-url", "", "venue WebSocket URL (required)")
	barDuration := fs.Duration("bar", time.Minute, "OHLCV bar duration")
	cronSpec := fs.String("cron", "*/1 * * * *", "insights evaluation cron cadence")
	modelEndpoint := fs.String("model-endpoint", "", "agent inference service URL (defaults to config ML_ENDPOINT_URL)")
	model := fs.String("model", "agent-v1", "model name passed to the inference endpoint")
	actionSpace := fs.String("action-space", "-1,-0.5,0,0.5,1", "comma-separated target position weights, by action index")
	inputs := fs.String("inputs", "ta.rsi[14],ta.adx[14],ta.cmf[20]", "comma-separated feature ids fed to the model, in order")
	layers := fs.Int("layers", 1, "LSTM layer count")
	hiddenSize := fs.Int("hidden-size", 32, "LSTM hidden state size per layer")
	maxAllocation := fs.String("max-allocation", "0.5", "fraction of margin balance spendable across active signals")
	minTradeValue := fs.String("min-trade-value", "10", "minimum notional for a trade to be placed")
	spread := fs.String("spread", "0.0005", "wide-quoter target spread, as a fraction of mid")
	quoteThreshold := fs.String("quote-threshold", "0.001", "wide-quoter requote threshold, as a fraction of the live quote price")
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

	endpoint := *modelEndpoint
	if endpoint == "" {
		endpoint = b.cfg.MLEndpointURL
	}

	actionWeights, err := parseDecimalList(*actionSpace)
	if err != nil {
		return fmt.Errorf("invalid -action-space: %w", err)
	}
	inputList := strings.Split(*inputs, ",")
	for i := range inputList {
		inputList[i] = strings.TrimSpace(inputList[i])
	}
	maxAllocDec, err := decimal.NewFromString(*maxAllocation)
	if err != nil {
		return fmt.Errorf("invalid -max-allocation: %w", err)
	}
	minTradeDec, err := decimal.NewFromString(*minTradeValue)
	if err != nil {
		return fmt.Errorf("invalid -min-trade-value: %w", err)
	}
	spreadDec, err := decimal.NewFromString(*spread)
	if err != nil {
		return fmt.Errorf("invalid -spread: %w", err)
	}
	quoteThresholdDec, err := decimal.NewFromString(*quoteThreshold)
	if err != nil {
		return fmt.Errorf("invalid -quote-threshold: %w", err)
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
	ref := pipelineRef("agent-" + *cf.venue)
	insightsService := insights.NewService(b.log, ref, pipeline, *cronSpec, agg)

	client := newHTTPAgentClient(endpoint, b.log)
	algo := strategy.NewAgentAlgorithm(client, *model, actionWeights, inputList, *layers, *hiddenSize)
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

	b.log.Info().Str("venue", b.venue.Name).Str("model", *model).Str("endpoint", endpoint).Msg("starting agent")
	return engine.Run(ctx)
}

func parseDecimalList(raw string) ([]core.Decimal, error) {
	parts := strings.Split(raw, ",")
	out := make([]core.Decimal, 0, len(parts))
	for _, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
