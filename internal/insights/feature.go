package insights

import (
	"context"
	"time"

	"github.com/arkin-go/core/internal/core"
)

// Feature computes one derived series from the shared State. Inputs names
// the feature-ids this feature reads; Pipeline uses it to build the
// evaluation order.
type Feature interface {
	ID() FeatureID
	Inputs() []FeatureID
	// Calculate reads State.Intervals/Window for its Inputs, writes its own
	// result back into State under ID(), and returns it for publication.
	// Returning ok=false means no value could be produced yet (e.g. not
	// enough warm-up history) and nothing is published.
	Calculate(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (value core.Decimal, ok bool)
}

// rawFeature wraps a value-producing func with no graph dependencies.
type rawFeature struct {
	id FeatureID
	fn func(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool)
}

func (r *rawFeature) ID() FeatureID          { return r.id }
func (r *rawFeature) Inputs() []FeatureID    { return nil }
func (r *rawFeature) Calculate(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
	v, ok := r.fn(ctx, state, instrument, eventTime)
	if ok {
		state.Write(instrument.ID, r.id, eventTime, v)
	}
	return v, ok
}

// NewRawFeature builds a Feature with no declared inputs from a plain
// calculation function. Useful for features that read market-data state
// written outside the pipeline (e.g. an OHLCV aggregator fed by trade
// events).
func NewRawFeature(id FeatureID, fn func(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool)) Feature {
	return &rawFeature{id: id, fn: fn}
}

// derivedFeature is a Feature whose Calculate reads one or more named
// input series via State.Intervals/Last and never touches raw market data
// directly.
type derivedFeature struct {
	id     FeatureID
	inputs []FeatureID
	fn     func(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool)
}

func (d *derivedFeature) ID() FeatureID       { return d.id }
func (d *derivedFeature) Inputs() []FeatureID { return d.inputs }
func (d *derivedFeature) Calculate(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
	v, ok := d.fn(ctx, state, instrument, eventTime)
	if ok {
		state.Write(instrument.ID, d.id, eventTime, v)
	}
	return v, ok
}

// NewDerivedFeature builds a Feature that reads from one or more upstream
// feature-ids already present in State.
func NewDerivedFeature(id FeatureID, inputs []FeatureID, fn func(ctx context.Context, state *State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool)) Feature {
	return &derivedFeature{id: id, inputs: inputs, fn: fn}
}
