package ledger

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// Service wraps a Ledger as a runtime.Service: it posts every venue-order
// fill it observes, applies reconciliation updates, and republishes the
// ledger's outcomes (FillPosted, AccountingDiscrepancy) onto the bus.
// Priority 0 so it starts before any strategy that reads positions or
// balances, and tears down last.
type Service struct {
	log      zerolog.Logger
	ledger   *Ledger
	venues   *orders.VenueBook
	executed *orders.ExecutionBook

	pub runtime.Publisher
}

// NewService builds a ledger service. venues/executed are the shared order
// books the engine already maintains; Service only reads them, to attach
// the originating ExecutionOrder to a VenueOrderFillEvent that arrives
// without one (the simulated executor publishes fills with a nil
// ExecutionOrder). Posting itself uses only the event's Fill.
func NewService(log zerolog.Logger, l *Ledger, venues *orders.VenueBook, executed *orders.ExecutionBook) *Service {
	return &Service{
		log:      log.With().Str("component", "ledger-service").Logger(),
		ledger:   l,
		venues:   venues,
		executed: executed,
	}
}

func (s *Service) Name() string  { return "ledger" }
func (s *Service) Priority() int { return 0 }

func (s *Service) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes(
		events.TypeVenueOrderFill,
		events.TypeInitialAccountUpdate,
		events.TypeReconcileAccountUpdate,
	)
}

func (s *Service) Setup(ctx context.Context, cc runtime.CoreCtx) error {
	s.pub = cc.Publisher
	return nil
}

func (s *Service) Teardown(ctx context.Context) error { return nil }

// Tasks drains the ledger's Discrepancies channel for the lifetime of the
// run, translating each into an AccountingDiscrepancy event.
func (s *Service) Tasks() []func(ctx context.Context) error {
	return []func(ctx context.Context) error{s.drainDiscrepancies}
}

func (s *Service) drainDiscrepancies(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-s.ledger.Discrepancies():
			if !ok {
				return nil
			}
			s.log.Warn().Str("venue", d.Venue.Name).Str("asset", d.Asset.Symbol).
				Str("delta", d.Delta.String()).Msg("accounting discrepancy, venue halted")
			s.pub.Publish(events.NewAccountingDiscrepancy(d))
		}
	}
}

func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.VenueOrderFillEvent:
		s.handleFill(e)
	case *events.InitialAccountUpdate:
		s.ledger.Seed(e.Update)
	case *events.ReconcileAccountUpdate:
		s.ledger.Reconcile(e.Update)
	}
	return nil
}

// handleFill posts e.Fill to the ledger and republishes the outcome as
// FillPosted. If e.ExecutionOrder is nil (the simulated executor doesn't
// carry one on the event), it is looked up from the venue and execution
// books by the fill's VenueOrderID and set on e. FillPosted itself carries
// only the ledger's PostedFill.
func (s *Service) handleFill(e *events.VenueOrderFillEvent) {
	if e.ExecutionOrder == nil && s.venues != nil && s.executed != nil {
		if vo, ok := s.venues.Get(e.VenueOrderID); ok {
			if eo, ok := s.executed.Get(vo.ExecutionOrderID); ok {
				e.ExecutionOrder = eo
			}
		}
	}
	result := s.ledger.PostFill(e.Fill)
	s.pub.Publish(events.NewFillPosted(result))
}
