package insights

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// TradeSink feeds raw trade prints into the pipeline's state (e.g. an
// OHLCVAggregator). Kept as an interface so Service doesn't import the
// features subpackage and create a cycle.
type TradeSink interface {
	OnTrade(state *State, instrument *core.Instrument, trade core.AggTrade)
}

// Service is the runtime.Service wrapping a Pipeline: it feeds raw market
// data into the pipeline's state as it arrives, evaluates every
// registered feature on each InsightsTick, and publishes one
// InsightsUpdate event per produced value.
//
// In live mode the tick cadence is driven by a github.com/robfig/cron/v3
// schedule; in simulation the SyncBarrier and an externally published
// InsightsTick event drive it instead, so Service itself never decides
// whether it's live or simulated.
type Service struct {
	log      zerolog.Logger
	pipeline *core.Pipeline
	p        *Pipeline
	sinks    []TradeSink

	cronSpec string
	cronJob  *cron.Cron

	instruments []*core.Instrument
	reader      runtime.PersistenceReader
	pub         runtime.Publisher
}

// NewService builds the insights service. cronSpec is a standard 5-field
// cron expression for the live-mode tick cadence (e.g. "*/1 * * * *" for
// every minute); pass "" to rely solely on externally published
// InsightsTick events (e.g. in simulation).
func NewService(log zerolog.Logger, pipelineRef *core.Pipeline, p *Pipeline, cronSpec string, sinks ...TradeSink) *Service {
	return &Service{
		log:      log.With().Str("component", "insights").Logger(),
		pipeline: pipelineRef,
		p:        p,
		sinks:    sinks,
		cronSpec: cronSpec,
	}
}

func (s *Service) Name() string  { return "insights" }
func (s *Service) Priority() int { return 25 }

func (s *Service) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(events.TypeAggTradeUpdate, events.TypeInsightsTick)
}

func (s *Service) Setup(ctx context.Context, cc runtime.CoreCtx) error {
	s.reader = cc.Reader
	s.pub = cc.Publisher
	if err := s.p.Build(); err != nil {
		return err
	}
	if s.reader != nil {
		instruments, err := s.reader.LoadInstruments(ctx)
		if err != nil {
			return err
		}
		s.instruments = instruments
	}
	return nil
}

func (s *Service) Tasks() []func(ctx context.Context) error {
	if s.cronSpec == "" {
		return nil
	}
	return []func(ctx context.Context) error{s.runCronTicker}
}

func (s *Service) runCronTicker(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.cronSpec)
	if err != nil {
		return err
	}
	next := sched.Next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-timer.C:
			s.evaluate(now)
			next = sched.Next(now)
			timer.Reset(time.Until(next))
		}
	}
}

func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.AggTradeUpdate:
		for _, sink := range s.sinks {
			sink.OnTrade(s.p.State(), e.Instrument, e.Trade)
		}
	case *events.InsightsTick:
		s.evaluate(e.EventTime())
	}
	return nil
}

func (s *Service) evaluate(now time.Time) {
	updates := s.p.Evaluate(context.Background(), s.instruments, now)
	for _, u := range updates {
		s.pub.Publish(events.NewInsightsUpdate(u.Instrument, string(u.FeatureID), u.Value, u.EventTime))
	}
}

func (s *Service) Teardown(ctx context.Context) error { return nil }
