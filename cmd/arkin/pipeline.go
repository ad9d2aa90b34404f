package main

import (
	"context"
	"time"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
	"github.com/arkin-go/core/internal/insights/features"
)

// ohlcvRoot registers one of OHLCVAggregator's raw output series as a
// zero-input Feature, purely so Pipeline.Build's dependency check accepts
// it as an input of the derived features below (the aggregator itself
// writes directly into State from trade events, outside the registered
// feature graph).
func ohlcvRoot(id insights.FeatureID) insights.Feature {
	return insights.NewRawFeature(id, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		v, _, ok := state.Last(instrument.ID, id)
		return v, ok
	})
}

// buildDefaultPipeline registers a fixed, representative feature graph
// shared by the insights/simulation/wide-quoter/agent subcommands: OHLCV
// bars, a handful of technical-analysis features over close
// price, and a log-return/rolling-volatility pair. barDuration controls
// the OHLCVAggregator's bucket width.
func buildDefaultPipeline(barDuration time.Duration) (*insights.Pipeline, *features.OHLCVAggregator) {
	p := insights.NewPipeline(4096)
	agg := features.NewOHLCVAggregator(barDuration)

	p.Register(ohlcvRoot(features.Open))
	p.Register(ohlcvRoot(features.High))
	p.Register(ohlcvRoot(features.Low))
	p.Register(ohlcvRoot(features.Close))
	p.Register(ohlcvRoot(features.Volume))

	p.Register(features.NewTimeOfDayFeature())
	p.Register(features.NewRSI(14))
	p.Register(features.NewADX(14))
	p.Register(features.NewChaikinMoneyFlow(20))
	p.Register(features.NewChaikinOscillator(3, 10))
	p.Register(features.NewSignalStrength(14))
	p.Register(features.NewLogReturn(features.Close))
	p.Register(features.NewRollingStd(features.Close, 20))
	p.Register(features.NewMovingAverage(features.Close, 20))

	return p, agg
}

// pipelineRef is the core.Pipeline reference entity attributed to every
// insights evaluation in a run.
func pipelineRef(name string) *core.Pipeline {
	return &core.Pipeline{ID: core.NewID(), Name: name}
}
