package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arkin-go/core/internal/coreerr"
	"github.com/arkin-go/core/internal/core"
)

// Update is one computed feature value ready for publication as an
// events.InsightsUpdate.
type Update struct {
	Instrument *core.Instrument
	FeatureID  FeatureID
	Value      core.Decimal
	EventTime  time.Time
}

// Pipeline evaluates a registered set of Features, in an order satisfying
// every declared Inputs() dependency, against a shared State on each
// InsightsTick.
//
// The dependency order is computed once, at Build, via Kahn's algorithm:
// this catches cyclic feature graphs at construction time rather than
// deadlocking or silently under-evaluating at runtime.
type Pipeline struct {
	state    *State
	features map[FeatureID]Feature
	order    []FeatureID
}

// NewPipeline creates an empty pipeline backed by a State retaining up to
// stateCapacity points per (instrument, feature) series.
func NewPipeline(stateCapacity int) *Pipeline {
	return &Pipeline{
		state:    NewState(stateCapacity),
		features: make(map[FeatureID]Feature),
	}
}

// Register adds a feature to the pipeline. Call Build after registering
// all features and before the first Evaluate.
func (p *Pipeline) Register(f Feature) {
	p.features[f.ID()] = f
}

// State exposes the shared series store, e.g. so market-data ingestion
// code can seed raw series the pipeline's raw features read from.
func (p *Pipeline) State() *State { return p.state }

// Build computes the topological evaluation order via Kahn's algorithm.
// Returns a coreerr Configuration error if the feature graph has a cycle or
// references an unregistered input.
func (p *Pipeline) Build() error {
	inDegree := make(map[FeatureID]int, len(p.features))
	dependents := make(map[FeatureID][]FeatureID, len(p.features))
	for id := range p.features {
		inDegree[id] = 0
	}
	for id, f := range p.features {
		for _, in := range f.Inputs() {
			if _, ok := p.features[in]; !ok {
				return coreerr.New(coreerr.CategoryConfiguration, "Pipeline.Build",
					fmt.Errorf("feature %q depends on unregistered feature %q", id, in))
			}
			dependents[in] = append(dependents[in], id)
			inDegree[id]++
		}
	}

	var ready []FeatureID
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]FeatureID, 0, len(p.features))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(p.features) {
		return coreerr.New(coreerr.CategoryConfiguration, "Pipeline.Build",
			fmt.Errorf("feature graph has a cycle: only %d/%d features are orderable", len(order), len(p.features)))
	}
	p.order = order
	return nil
}

// Evaluate runs every feature, in dependency order, for each instrument,
// at eventTime. A feature returning ok=false (insufficient warm-up
// history) is simply skipped for that instrument this tick.
func (p *Pipeline) Evaluate(ctx context.Context, instruments []*core.Instrument, eventTime time.Time) []Update {
	var updates []Update
	for _, instrument := range instruments {
		for _, id := range p.order {
			f := p.features[id]
			if v, ok := f.Calculate(ctx, p.state, instrument, eventTime); ok {
				updates = append(updates, Update{Instrument: instrument, FeatureID: id, Value: v, EventTime: eventTime})
			}
		}
	}
	return updates
}
