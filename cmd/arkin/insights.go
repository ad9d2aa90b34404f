package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/ingest"
	"github.com/arkin-go/core/internal/insights"
	"github.com/arkin-go/core/internal/persistence"
	"github.com/arkin-go/core/internal/runtime"
)

// runInsights replays recorded market data through the default feature
// pipeline and persists every produced InsightsUpdate, for a later
// "scaler" run to fit against.
func runInsights(args []string) error {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	cf := registerCommon(fs)
	in := fs.String("in", "./data/historical", "directory of <venue>.jsonl historical files")
	start := fs.String("start", "", "replay range start, RFC3339 (required)")
	end := fs.String("end", "", "replay range end, RFC3339 (required)")
	barDuration := fs.Duration("bar", time.Minute, "OHLCV bar duration")
	window := fs.Duration("window", time.Minute, "simulation barrier pacing window")
	cronSpec := fs.String("cron", "", "live-mode cron cadence; leave empty to drive ticks from the replay barrier")
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

	eventBus := bus.New(b.log, bus.Config{QueueCapacity: b.cfg.EventQueueCapacity})
	clock := core.NewSimClock(startTime)
	cc := runtime.CoreCtx{Clock: clock, Reader: b.store}
	engine := runtime.New(b.log, eventBus, cc)

	source := ingest.NewFileHistoricalSource(b.log, *in)
	task := ingest.ReplayTask{Venue: b.venue, Instruments: b.instruments}
	sim := ingest.NewSimulatedIngestor(b.log, source, []ingest.ReplayTask{task}, startTime, endTime, *window, clock)

	pipeline, agg := buildDefaultPipeline(*barDuration)
	ref := pipelineRef("insights-" + *cf.venue)
	if *cronSpec == "" {
		sim.SetTickPipeline(ref)
	}
	insightsService := insights.NewService(b.log, ref, pipeline, *cronSpec, agg)

	engine.Register(&cancelWhenDone{Service: sim, cancel: cancel})
	engine.Register(insightsService)
	engine.Register(persistence.NewWriterService(b.log, b.store))

	b.log.Info().Str("venue", b.venue.Name).Time("start", startTime).Time("end", endTime).Msg("starting insights generation")
	return engine.Run(ctx)
}
