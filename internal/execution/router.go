package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// Router is the runtime.Service that wires NewExecutionOrder,
// CancelExecutionOrder, VenueOrder*, and TickUpdate events to the correct
// Strategy by inspecting each ExecutionOrder's ExecStrategy field.
type Router struct {
	log       zerolog.Logger
	books     Books
	pub       runtime.Publisher
	strategies map[orders.ExecutionStrategyKind]Strategy
}

// NewRouter wires the three built-in strategies. spread/threshold
// parameterize WideQuoter.
func NewRouter(log zerolog.Logger, books Books, pub runtime.Publisher, wideQuoterSpread, wideQuoterThreshold core.Decimal) *Router {
	log = log.With().Str("component", "execution_router").Logger()
	return &Router{
		log:   log,
		books: books,
		pub:   pub,
		strategies: map[orders.ExecutionStrategyKind]Strategy{
			orders.ExecStrategyTaker:      NewTaker(log, books, pub),
			orders.ExecStrategyMaker:      NewMaker(log, books, pub),
			orders.ExecStrategyWideQuoter: NewWideQuoter(log, books, pub, wideQuoterSpread, wideQuoterThreshold),
		},
	}
}

func (r *Router) Name() string             { return "execution-router" }
func (r *Router) Priority() int            { return 20 }
func (r *Router) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(
		events.TypeNewExecutionOrder,
		events.TypeCancelExecutionOrder,
		events.TypeVenueOrderUpdated,
		events.TypeTickUpdate,
	)
}

func (r *Router) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (r *Router) Tasks() []func(ctx context.Context) error              { return nil }
func (r *Router) Teardown(ctx context.Context) error                    { return nil }

func (r *Router) HandleEvent(ctx context.Context, ev events.Event) error {
	now := ev.EventTime()
	switch e := ev.(type) {
	case *events.NewExecutionOrderEvent:
		r.books.Exec.Insert(e.Order)
		r.strategyFor(e.Order).OnNewExecutionOrder(now, e.Order)
	case *events.CancelExecutionOrder:
		if eo, ok := r.books.Exec.Get(e.ExecutionOrderID); ok {
			r.strategyFor(eo).OnCancelExecutionOrder(now, eo)
		}
	case *events.VenueOrderUpdated:
		r.handleVenueOrderUpdated(now, e.Order)
	case *events.TickUpdate:
		r.handleTick(now, e)
	}
	return nil
}

func (r *Router) handleVenueOrderUpdated(now time.Time, vo *orders.VenueOrder) {
	eo, ok := r.books.Exec.Get(vo.ExecutionOrderID)
	if !ok {
		return
	}
	r.strategyFor(eo).OnVenueOrderUpdate(now, eo, vo)
}

func (r *Router) handleTick(now time.Time, e *events.TickUpdate) {
	for _, eo := range r.books.Exec.ListByInstrument(e.Instrument.ID) {
		r.strategyFor(eo).OnTick(now, e.Tick, eo)
	}
}

func (r *Router) strategyFor(eo *orders.ExecutionOrder) Strategy {
	return r.strategies[eo.ExecStrategy]
}
