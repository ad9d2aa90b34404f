// Package runtime wires the services that make up one running instance
// (live or simulated) together: it owns the priority-tiered startup and
// shutdown sequence, and injects each service with the capabilities it
// needs through ServiceCtx and CoreCtx rather than ambient singletons.
package runtime

import (
	"context"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
)

// PersistenceReader exposes historical reference and event data to
// services that need to warm up state on startup.
type PersistenceReader interface {
	LoadInstruments(ctx context.Context) ([]*core.Instrument, error)
	LoadEventsSince(ctx context.Context, since core.ID) ([]events.Event, error)
}

// Publisher is the subset of *bus.Bus that services need to emit events;
// narrowing the dependency keeps service code testable against a fake.
type Publisher interface {
	Publish(ev events.Event)
	PublishBlocking(ev events.Event)
}

// CoreCtx bundles the capabilities shared by every service in a run: the
// clock (wall or simulated), the bus publisher, a persistence reader, and
// the simulation barrier. Services never reach for a global; everything
// they can do to the outside world flows through this struct.
type CoreCtx struct {
	Clock     core.Clock
	Publisher Publisher
	Reader    PersistenceReader
	Barrier   *bus.SyncBarrier
}

// ServiceCtx is the per-service handle for cooperative cancellation and
// event delivery. Engine constructs one per registered service.
type ServiceCtx struct {
	Name    string
	Sub     *bus.Subscriber
	Cancel  context.CancelFunc
}

// Service is the unit the Engine manages. Implementations are typically
// small: most of the actual business logic lives in internal/execution,
// internal/insights, internal/allocation etc., each wrapped in a thin
// Service adapter.
type Service interface {
	// Name identifies the service in logs and the startup/shutdown order.
	Name() string
	// Priority controls startup order (ascending) and shutdown order
	// (descending): lower numbers start first and stop last, so a service
	// other services depend on (e.g. the ledger) gets priority 0 while a
	// strategy consuming its output gets a higher number.
	Priority() int
	// EventFilter selects which events are delivered to this service's
	// subscriber queue.
	EventFilter() bus.EventFilter
	// Setup runs once before any event is delivered; it may use core to
	// warm up state from the persistence reader.
	Setup(ctx context.Context, core CoreCtx) error
	// Tasks returns background goroutines the Engine should run alongside
	// event handling (e.g. a venue websocket reader). May return nil.
	Tasks() []func(ctx context.Context) error
	// HandleEvent processes one delivered event. Errors are logged by the
	// Engine and categorized via coreerr; they never stop the engine.
	HandleEvent(ctx context.Context, ev events.Event) error
	// Teardown runs once after the service's context is cancelled and its
	// tasks have returned.
	Teardown(ctx context.Context) error
}
