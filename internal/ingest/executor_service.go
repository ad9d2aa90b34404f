package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// tickAware is implemented by executors that need the latest mid price to
// fill against (SimulatedExecutor); live adapters fill at the venue's own
// book and don't need it.
type tickAware interface {
	OnTick(instrument core.ID, mid core.Decimal)
}

// ExecutorService bridges the execution layer's venue-order events to one
// venue's Executor: it is the only service that acts on NewVenueOrderEvent,
// CancelVenueOrder and CancelAllVenueOrders, and the only caller of
// Executor.PlaceOrder/CancelOrder/CancelAllOrders. Fill/reject/update
// events are published by the Executor itself, not by this service.
type ExecutorService struct {
	log      zerolog.Logger
	executor Executor
}

// NewExecutorService wraps executor as a runtime.Service scoped to its
// venue: NewVenueOrderEvents for other venues' instruments are ignored.
// CancelVenueOrder, CancelAllVenueOrders and TickUpdate events are passed
// to the executor whatever their venue.
func NewExecutorService(log zerolog.Logger, executor Executor) *ExecutorService {
	return &ExecutorService{
		log:      log.With().Str("component", "executor-service").Str("venue", executor.Venue().Name).Logger(),
		executor: executor,
	}
}

func (s *ExecutorService) Name() string  { return "executor-" + s.executor.Venue().Name }
func (s *ExecutorService) Priority() int { return 15 }

func (s *ExecutorService) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(
		events.TypeNewVenueOrder,
		events.TypeCancelVenueOrder,
		events.TypeCancelAllVenueOrders,
		events.TypeTickUpdate,
	)
}

func (s *ExecutorService) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (s *ExecutorService) Tasks() []func(ctx context.Context) error           { return nil }
func (s *ExecutorService) Teardown(ctx context.Context) error                 { return nil }

func (s *ExecutorService) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.NewVenueOrderEvent:
		if e.Order.Instrument.Venue.ID != s.executor.Venue().ID {
			return nil
		}
		return s.executor.PlaceOrder(ctx, e.Order)
	case *events.CancelVenueOrder:
		return s.executor.CancelOrder(ctx, e.VenueOrderID)
	case *events.CancelAllVenueOrders:
		return s.executor.CancelAllOrders(ctx, e.InstrumentID)
	case *events.TickUpdate:
		if aware, ok := s.executor.(tickAware); ok {
			if mid, ok := e.Tick.Mid(); ok {
				aware.OnTick(e.Instrument.ID, mid)
			}
		}
	}
	return nil
}
