// Package features implements the concrete Feature/raw-aggregation/TA/
// normalisation/allocation building blocks referenced by internal/insights.
// Grounded on the float64-slice, nil-sentinel style of trader-go/pkg/formulas
// and trader/pkg/formulas, and on gonum.org/v1/gonum plus
// github.com/markcheno/go-talib for the actual math.
package features

import (
	"context"
	"time"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

// Raw OHLCV feature ids. An ingestion-side aggregator writes these series
// directly into the pipeline's State from trade/tick events (see
// NewOHLCVAggregator); every other feature in this package treats them as
// the graph's roots.
const (
	Open   insights.FeatureID = "ohlcv.open"
	High   insights.FeatureID = "ohlcv.high"
	Low    insights.FeatureID = "ohlcv.low"
	Close  insights.FeatureID = "ohlcv.close"
	Volume insights.FeatureID = "ohlcv.volume"
)

// OHLCVAggregator buckets AggTrade prints into fixed-duration bars and
// writes Open/High/Low/Close/Volume into the shared State when a bucket
// closes. It is not itself a insights.Feature (it has no declared inputs
// and runs off raw trades rather than a tick), so the pipeline registers
// its output series as the roots other features read from.
type OHLCVAggregator struct {
	barDuration time.Duration
	bars        map[core.ID]*bar
}

type bar struct {
	bucketStart            time.Time
	open, high, low, close  core.Decimal
	volume                  core.Decimal
	started                 bool
}

// NewOHLCVAggregator builds an aggregator bucketing trades into bars of
// barDuration (e.g. 1 minute).
func NewOHLCVAggregator(barDuration time.Duration) *OHLCVAggregator {
	return &OHLCVAggregator{barDuration: barDuration, bars: make(map[core.ID]*bar)}
}

// OnTrade folds one trade print into the instrument's current bar, closing
// and flushing the previous bar into state if the trade falls in a new
// bucket.
func (a *OHLCVAggregator) OnTrade(state *insights.State, instrument *core.Instrument, trade core.AggTrade) {
	bucket := trade.EventTime.Truncate(a.barDuration)
	b, ok := a.bars[instrument.ID]
	if !ok {
		b = &bar{}
		a.bars[instrument.ID] = b
	}
	if b.started && !bucket.Equal(b.bucketStart) {
		a.flush(state, instrument, b)
		*b = bar{}
	}
	if !b.started {
		b.bucketStart = bucket
		b.open = trade.Price
		b.high = trade.Price
		b.low = trade.Price
		b.started = true
	}
	if trade.Price.GreaterThan(b.high) {
		b.high = trade.Price
	}
	if trade.Price.LessThan(b.low) {
		b.low = trade.Price
	}
	b.close = trade.Price
	b.volume = b.volume.Add(trade.Quantity)
}

func (a *OHLCVAggregator) flush(state *insights.State, instrument *core.Instrument, b *bar) {
	closeTime := b.bucketStart.Add(a.barDuration)
	state.Write(instrument.ID, Open, closeTime, b.open)
	state.Write(instrument.ID, High, closeTime, b.high)
	state.Write(instrument.ID, Low, closeTime, b.low)
	state.Write(instrument.ID, Close, closeTime, b.close)
	state.Write(instrument.ID, Volume, closeTime, b.volume)
}

// TimeOfDay is a cyclical-encoded feature of the hour-of-day, normalised to
// [0, 1) rather than sin/cos encoded so downstream normalisation
// (features.RobustScaler / QuantileTransformer) can treat it like any other
// scalar feature.
const TimeOfDay insights.FeatureID = "raw.time_of_day"

// NewTimeOfDayFeature builds the time-of-day raw feature.
func NewTimeOfDayFeature() insights.Feature {
	return insights.NewRawFeature(TimeOfDay, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		secondsSinceMidnight := eventTime.Hour()*3600 + eventTime.Minute()*60 + eventTime.Second()
		return core.NewDecimalFromFloat(float64(secondsSinceMidnight) / 86400.0), true
	})
}
