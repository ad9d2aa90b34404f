package events

import (
	"time"

	"github.com/arkin-go/core/internal/core"
)

// AggTradeUpdate carries a newly received aggregated trade.
type AggTradeUpdate struct {
	base
	Instrument *core.Instrument
	Trade      core.AggTrade
}

// NewAggTradeUpdate builds an AggTradeUpdate event. Market data is never
// persisted.
func NewAggTradeUpdate(instrument *core.Instrument, trade core.AggTrade) *AggTradeUpdate {
	return &AggTradeUpdate{base: newBase(TypeAggTradeUpdate, trade.EventTime, false), Instrument: instrument, Trade: trade}
}

// TickUpdate carries a best-bid/ask snapshot.
type TickUpdate struct {
	base
	Instrument *core.Instrument
	Tick       core.Tick
}

func NewTickUpdate(instrument *core.Instrument, tick core.Tick) *TickUpdate {
	return &TickUpdate{base: newBase(TypeTickUpdate, tick.EventTime, false), Instrument: instrument, Tick: tick}
}

// MetricUpdate carries a single venue-reported metric (funding rate, open
// interest, index price, ...).
type MetricUpdate struct {
	base
	Instrument *core.Instrument
	Metric     core.MetricUpdate
}

func NewMetricUpdate(instrument *core.Instrument, m core.MetricUpdate) *MetricUpdate {
	return &MetricUpdate{base: newBase(TypeMetricUpdate, m.EventTime, false), Instrument: instrument, Metric: m}
}

// BookUpdateEvent carries an order-book depth update.
type BookUpdateEvent struct {
	base
	Instrument *core.Instrument
	Book       core.BookUpdate
}

func NewBookUpdateEvent(instrument *core.Instrument, b core.BookUpdate) *BookUpdateEvent {
	return &BookUpdateEvent{base: newBase(TypeBookUpdate, b.EventTime, false), Instrument: instrument, Book: b}
}

// InsightsTick drives a pipeline evaluation at a fixed cadence.
type InsightsTick struct {
	base
	Pipeline *core.Pipeline
}

func NewInsightsTick(pipeline *core.Pipeline, eventTime time.Time) *InsightsTick {
	return &InsightsTick{base: newBase(TypeInsightsTick, eventTime, false), Pipeline: pipeline}
}

// InsightsUpdate carries one computed feature value for an instrument.
type InsightsUpdate struct {
	base
	Instrument *core.Instrument
	FeatureID  string
	Value      core.Decimal
}

func NewInsightsUpdate(instrument *core.Instrument, featureID string, value core.Decimal, eventTime time.Time) *InsightsUpdate {
	return &InsightsUpdate{base: newBase(TypeInsightsUpdate, eventTime, true), Instrument: instrument, FeatureID: featureID, Value: value}
}

// Signal is a strategy's directional exposure recommendation, consumed by
// allocation.
type Signal struct {
	base
	Strategy   *core.Strategy
	Instrument *core.Instrument
	Side       core.Side
	Strength   core.Decimal // conviction magnitude in [0, 1]; direction is carried by Side
}

func NewSignal(strategy *core.Strategy, instrument *core.Instrument, side core.Side, strength core.Decimal, eventTime time.Time) *Signal {
	return &Signal{base: newBase(TypeSignal, eventTime, true), Strategy: strategy, Instrument: instrument, Side: side, Strength: strength}
}
