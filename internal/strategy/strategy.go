// Package strategy implements the trading-strategy layer:
// components that consume InsightsUpdate events and emit at most one
// Signal per (strategy, instrument) per tick. Signals are idempotent to
// re-emit — internal/allocation is responsible for deduplicating
// unchanged signals, not the strategy itself.
package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// Algorithm is one trading strategy's decision function: given the latest
// insight update for an instrument, decide whether to emit a signal.
// Implementations should be side-effect free aside from the returned
// signal; Service handles publication.
type Algorithm interface {
	// OnInsightsUpdate is called once per InsightsUpdate. ok is false when
	// the feature isn't one this algorithm cares about, or there isn't yet
	// enough information to produce a signal.
	OnInsightsUpdate(ctx context.Context, instrument *core.Instrument, featureID string, value core.Decimal, eventTime time.Time) (side core.Side, strength core.Decimal, ok bool)
}

// ThresholdStrategy is a minimal Algorithm: it watches one feature and
// emits a buy/sell signal proportional to how far the feature's value is
// beyond a symmetric threshold band, clamped to [-1, 1].
type ThresholdStrategy struct {
	watchFeature string
	threshold    core.Decimal
	scale        core.Decimal
}

// NewThresholdStrategy builds a strategy that reacts to watchFeature
// crossing +/-threshold, scaling the excess by scale to produce a
// conviction in [-1, 1].
func NewThresholdStrategy(watchFeature string, threshold, scale core.Decimal) *ThresholdStrategy {
	return &ThresholdStrategy{watchFeature: watchFeature, threshold: threshold, scale: scale}
}

func (t *ThresholdStrategy) OnInsightsUpdate(ctx context.Context, instrument *core.Instrument, featureID string, value core.Decimal, eventTime time.Time) (core.Side, core.Decimal, bool) {
	if featureID != t.watchFeature {
		return "", core.Zero, false
	}
	if value.Abs().LessThanOrEqual(t.threshold) {
		return "", core.Zero, false
	}
	excess := value.Abs().Sub(t.threshold).Mul(t.scale)
	strength := excess
	if strength.GreaterThan(core.NewDecimalFromFloat(1)) {
		strength = core.NewDecimalFromFloat(1)
	}
	side := core.SideBuy
	if value.IsNegative() {
		side = core.SideSell
	}
	return side, strength, true
}

// Service is the runtime.Service wrapping one Algorithm: it subscribes to
// InsightsUpdate, calls the algorithm, and publishes a Signal when the
// algorithm fires.
type Service struct {
	log       zerolog.Logger
	strategy  *core.Strategy
	algorithm Algorithm
	pub       runtime.Publisher

	mu   sync.Mutex
	last map[core.ID]core.Decimal // last emitted strength per instrument; nothing in this package reads it
}

// NewService wraps algorithm as a runtime.Service attributed to strategy.
func NewService(log zerolog.Logger, strategyRef *core.Strategy, algorithm Algorithm, pub runtime.Publisher) *Service {
	return &Service{
		log:       log.With().Str("component", "strategy").Str("strategy", strategyRef.Name).Logger(),
		strategy:  strategyRef,
		algorithm: algorithm,
		pub:       pub,
		last:      make(map[core.ID]core.Decimal),
	}
}

func (s *Service) Name() string  { return "strategy-" + s.strategy.Name }
func (s *Service) Priority() int { return 26 }

func (s *Service) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(events.TypeInsightsUpdate)
}

func (s *Service) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (s *Service) Tasks() []func(ctx context.Context) error            { return nil }
func (s *Service) Teardown(ctx context.Context) error                  { return nil }

func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	e, ok := ev.(*events.InsightsUpdate)
	if !ok {
		return nil
	}
	side, strength, fired := s.algorithm.OnInsightsUpdate(ctx, e.Instrument, e.FeatureID, e.Value, e.EventTime())
	if !fired {
		return nil
	}
	s.mu.Lock()
	s.last[e.Instrument.ID] = strength
	s.mu.Unlock()
	s.pub.Publish(events.NewSignal(s.strategy, e.Instrument, side, strength, e.EventTime()))
	return nil
}
