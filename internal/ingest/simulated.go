package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/ledger"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// HistoricalSource streams previously recorded events for one venue's
// instruments over [start, end), ordered by event time. Persistence
// backends implement this directly from their archive; it is deliberately
// narrower than runtime.PersistenceReader (which is cursor- rather than
// range-oriented) since replay needs a bounded historical window, not "all
// events since X".
type HistoricalSource interface {
	Stream(ctx context.Context, venue *core.Venue, instruments []*core.Instrument, start, end time.Time) (<-chan events.Event, error)
}

// ReplayTask is one (venue, instrument set) the SimulatedIngestor reads
// from HistoricalSource and publishes as if it were arriving live.
type ReplayTask struct {
	Venue       *core.Venue
	Instruments []*core.Instrument
}

// SimulatedIngestor replays recorded market data for a fixed set of
// ReplayTasks between start and end, pacing publication through a
// bus.SyncBarrier so every subscriber observes a consistent, globally
// ordered notion of simulated time (ported from
// original_source/arkin-sim-ingestor/src/lib.rs's replay_task/SimIngestor).
//
// The Rust original's SyncBarrier exposes a three-method confirm/release
// protocol (ingestor_confirm_and_wait / pubsub_confirm_and_wait /
// release_ingestors) so a separate publisher loop can pace ingestors
// independently. Our bus.SyncBarrier only has AddParty/Wait: every
// ReplayTask is itself a party, and the task whose Wait() call happens to
// close out the generation (Wait returns true) is the one that advances
// the shared SimClock, so no separate release step is needed.
type SimulatedIngestor struct {
	log     zerolog.Logger
	source  HistoricalSource
	tasks   []ReplayTask
	start   time.Time
	end     time.Time
	window  time.Duration
	barrier *bus.SyncBarrier
	clock   *core.SimClock
	pub     runtime.Publisher

	tickPipeline *core.Pipeline
}

// SetTickPipeline makes the replay loop publish an InsightsTick event
// under the given pipeline every time the barrier closes a generation and
// the clock advances, so insights.Service has a simulation-mode cadence to
// evaluate against without a wall-clock cron schedule (which would run at
// real-time speed against simulated history). Call before Tasks() starts.
func (s *SimulatedIngestor) SetTickPipeline(p *core.Pipeline) { s.tickPipeline = p }

// NewSimulatedIngestor builds a replay driver. window is the barrier pacing
// interval (e.g. one minute of simulated time per batch); clock is the
// shared SimClock that every other service reads "now" from.
func NewSimulatedIngestor(log zerolog.Logger, source HistoricalSource, tasks []ReplayTask, start, end time.Time, window time.Duration, clock *core.SimClock) *SimulatedIngestor {
	return &SimulatedIngestor{
		log:     log.With().Str("component", "ingest-sim").Logger(),
		source:  source,
		tasks:   tasks,
		start:   start,
		end:     end,
		window:  window,
		barrier: bus.NewSyncBarrier(len(tasks), window),
		clock:   clock,
	}
}

func (s *SimulatedIngestor) Name() string  { return "ingest-sim" }
func (s *SimulatedIngestor) Priority() int { return 5 }

func (s *SimulatedIngestor) EventFilter() bus.EventFilter {
	return bus.FilterEventTypes() // publishes only, never consumes
}

func (s *SimulatedIngestor) Setup(ctx context.Context, cc runtime.CoreCtx) error {
	s.SetPublisher(cc.Publisher)
	return nil
}
func (s *SimulatedIngestor) Teardown(ctx context.Context) error                 { return nil }
func (s *SimulatedIngestor) HandleEvent(ctx context.Context, ev events.Event) error {
	return nil
}

// Tasks returns one background goroutine per ReplayTask, all coordinated
// through the shared barrier.
func (s *SimulatedIngestor) Tasks() []func(ctx context.Context) error {
	pub := s.publisherFor
	fns := make([]func(ctx context.Context) error, len(s.tasks))
	for i, t := range s.tasks {
		task := t
		fns[i] = func(ctx context.Context) error {
			return s.replay(ctx, task, pub)
		}
	}
	return fns
}

// publisherFor returns the publisher set by SetPublisher. Replay reads s.pub
// through this method at publish time rather than capturing it when Tasks()
// builds the task closures, so it uses whatever SetPublisher last set.
func (s *SimulatedIngestor) publisherFor() runtime.Publisher { return s.pub }

// SetPublisher wires the bus publisher used by replay tasks; called from
// Setup once CoreCtx is available.
func (s *SimulatedIngestor) SetPublisher(pub runtime.Publisher) { s.pub = pub }

func (s *SimulatedIngestor) replay(ctx context.Context, task ReplayTask, pubFn func() runtime.Publisher) error {
	stream, err := s.source.Stream(ctx, task.Venue, task.Instruments, s.start, s.end)
	if err != nil {
		return err
	}

	nextBarrier := s.start.Add(s.window)
	var batch []events.Event

	flush := func() {
		pub := pubFn()
		if pub == nil || len(batch) == 0 {
			batch = batch[:0]
			return
		}
		for _, ev := range batch {
			pub.Publish(ev)
		}
		s.log.Debug().Int("count", len(batch)).Str("venue", task.Venue.Name).Msg("published replay batch")
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case ev, ok := <-stream:
			if !ok {
				flush()
				return nil
			}
			if !nextBarrier.After(ev.EventTime()) {
				flush()
				if s.barrier.Wait() {
					s.clock.Advance(nextBarrier)
					if s.tickPipeline != nil {
						if pub := pubFn(); pub != nil {
							pub.Publish(events.NewInsightsTick(s.tickPipeline, nextBarrier))
						}
					}
				}
				nextBarrier = nextBarrier.Add(s.window)
			}
			batch = append(batch, ev)
		}
	}
}

// SimulatedExecutor fills venue orders against the last known mid price
// instead of routing to a real venue, for backtesting (ported from the
// immediate-fill semantics implied by arkin-sim-ingestor's replay model —
// the original repo has no literal "sim executor" file, so this follows
// the same "act instantly, no network round trip" shape the sim ingestor
// uses for market data). Market orders and limit orders that already cross
// the mid fill instantly; non-crossing GTC/GTD limits rest until a later
// tick crosses them; GTX (post-only) limits that would cross are rejected
// instead of filled; IOC/FOK limits that don't cross immediately are
// cancelled rather than left resting.
type SimulatedExecutor struct {
	log        zerolog.Logger
	venue      *core.Venue
	pub        runtime.Publisher
	commission core.Decimal

	mu      sync.Mutex
	ticks   map[core.ID]core.Decimal      // instrument id -> last mid
	resting map[core.ID]*orders.VenueOrder // venue order id -> resting limit order
}

// NewSimulatedExecutor builds a fill-at-mid executor for venue, charging
// commissionRate (a fraction of notional) on every fill.
func NewSimulatedExecutor(log zerolog.Logger, venue *core.Venue, pub runtime.Publisher, commissionRate core.Decimal) *SimulatedExecutor {
	return &SimulatedExecutor{
		log:        log.With().Str("component", "ingest-sim-executor").Logger(),
		venue:      venue,
		pub:        pub,
		commission: commissionRate,
		ticks:      make(map[core.ID]core.Decimal),
		resting:    make(map[core.ID]*orders.VenueOrder),
	}
}

func (e *SimulatedExecutor) Venue() *core.Venue { return e.venue }

// OnTick updates the last-known mid price an order against instrument will
// fill at, then fills any resting limit order on that instrument the new
// mid now crosses. Wire this to every TickUpdate for instruments this
// executor trades.
func (e *SimulatedExecutor) OnTick(instrument core.ID, mid core.Decimal) {
	e.mu.Lock()
	e.ticks[instrument] = mid
	var crossed []*orders.VenueOrder
	for id, vo := range e.resting {
		if vo.Instrument.ID == instrument && crosses(vo, mid) {
			crossed = append(crossed, vo)
			delete(e.resting, id)
		}
	}
	e.mu.Unlock()

	for _, vo := range crossed {
		e.fill(vo, vo.UpdatedAt, mid)
	}
}

func (e *SimulatedExecutor) mid(instrument core.ID) (core.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.ticks[instrument]
	return m, ok
}

// crosses reports whether mid is marketable against vo's limit price: a buy
// crosses when mid is at or below its limit (mid <= limit), a sell when mid
// is at or above its limit (mid >= limit).
func crosses(vo *orders.VenueOrder, mid core.Decimal) bool {
	if vo.Side == core.SideBuy {
		return mid.LessThanOrEqual(vo.Price)
	}
	return mid.GreaterThanOrEqual(vo.Price)
}

// PlaceOrder routes vo by OrderType/TimeInForce:
//   - VenueOrderMarket always fills in full at the last known mid.
//   - A limit order that already crosses the mid fills in full, same as a
//     market order, except TIFGTX (post-only) rejects instead.
//   - A non-crossing limit under TIFGTC/TIFGTD rests until a later tick
//     crosses it.
//   - A non-crossing limit under TIFIOC/TIFFOK is cancelled rather than
//     left resting.
//
// If no mid price has been observed yet for the instrument, the order is
// rejected outright: there is no reference price to fill or evaluate
// crossing against.
func (e *SimulatedExecutor) PlaceOrder(ctx context.Context, vo *orders.VenueOrder) error {
	now := vo.UpdatedAt
	vo.SetInflight(now)
	mid, ok := e.mid(vo.Instrument.ID)
	if !ok {
		vo.Reject(now)
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
		return nil
	}

	if vo.OrderType == orders.VenueOrderMarket || crosses(vo, mid) {
		if vo.OrderType != orders.VenueOrderMarket && vo.TimeInForce == orders.TIFGTX {
			vo.Reject(now)
			e.pub.Publish(events.NewVenueOrderUpdated(vo))
			return nil
		}
		vo.Place(now)
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
		e.fill(vo, now, mid)
		return nil
	}

	switch vo.TimeInForce {
	case orders.TIFIOC, orders.TIFFOK:
		vo.Place(now)
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
		vo.Cancel(now)
		vo.FinalizeCancel(now)
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
	default: // TIFGTC, TIFGTX, TIFGTD: rest until a tick crosses it
		vo.Place(now)
		e.mu.Lock()
		e.resting[vo.ID] = vo
		e.mu.Unlock()
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
	}
	return nil
}

// fill applies a single full fill to vo at price, posts the ledger Fill,
// and publishes the resulting events. vo must already be Placed.
func (e *SimulatedExecutor) fill(vo *orders.VenueOrder, now time.Time, price core.Decimal) {
	commission := price.Mul(vo.Quantity).Mul(e.commission)
	vo.AddFill(now, price, vo.Quantity, commission)
	fill := ledger.Fill{
		EventTime:       now,
		Strategy:        vo.Strategy,
		Instrument:      vo.Instrument,
		Venue:           e.venue,
		Side:            vo.Side,
		Quantity:        vo.Quantity,
		Price:           price,
		Commission:      commission,
		CommissionAsset: vo.Instrument.QuoteAsset,
	}
	// ExecutionOrder is left nil: the ledger service looks it up from the
	// venue and execution books by vo.ID when it handles the fill.
	e.pub.Publish(events.NewVenueOrderFillEvent(vo.ID, nil, fill))
	e.pub.Publish(events.NewVenueOrderUpdated(vo))
}

// CancelOrder finalizes a resting order as Cancelled. Orders that already
// filled in PlaceOrder or OnTick are no longer resting, so this is a no-op
// for them.
func (e *SimulatedExecutor) CancelOrder(ctx context.Context, venueOrderID core.ID) error {
	e.mu.Lock()
	vo, ok := e.resting[venueOrderID]
	if ok {
		delete(e.resting, venueOrderID)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	vo.Cancel(now)
	vo.FinalizeCancel(now)
	e.pub.Publish(events.NewVenueOrderUpdated(vo))
	return nil
}

// CancelAllOrders cancels every resting order on instrumentID.
func (e *SimulatedExecutor) CancelAllOrders(ctx context.Context, instrumentID core.ID) error {
	e.mu.Lock()
	var toCancel []*orders.VenueOrder
	for id, vo := range e.resting {
		if vo.Instrument.ID == instrumentID {
			toCancel = append(toCancel, vo)
			delete(e.resting, id)
		}
	}
	e.mu.Unlock()

	now := time.Now().UTC()
	for _, vo := range toCancel {
		vo.Cancel(now)
		vo.FinalizeCancel(now)
		e.pub.Publish(events.NewVenueOrderUpdated(vo))
	}
	return nil
}
