// Package bus implements the event bus and simulation time-barrier that
// every service in the runtime communicates through: typed
// publish/subscribe with per-subscriber bounded queues, filterable
// subscriptions, and an optional acking handshake for replay-deterministic
// simulation.
package bus

import "github.com/arkin-go/core/internal/events"

// EventFilter decides whether a given event is delivered to a subscriber.
// Subscribers pick one of the constructors below rather than implementing
// the interface directly.
type EventFilter interface {
	Accepts(ev events.Event) bool
}

type filterFunc func(events.Event) bool

func (f filterFunc) Accepts(ev events.Event) bool { return f(ev) }

// FilterAll accepts every event.
func FilterAll() EventFilter {
	return filterFunc(func(events.Event) bool { return true })
}

// FilterAllExceptMarketData accepts everything but the four raw
// market-data event types, used by services that only care about derived
// state.
func FilterAllExceptMarketData() EventFilter {
	return filterFunc(func(ev events.Event) bool { return !ev.EventType().IsMarketData() })
}

// FilterPersistable accepts only events whose Persist() is true, used by
// the persistence writer subscriber.
func FilterPersistable() EventFilter {
	return filterFunc(func(ev events.Event) bool { return ev.Persist() })
}

// FilterEventTypes accepts only the listed event types.
func FilterEventTypes(types ...events.Type) EventFilter {
	set := make(map[events.Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return filterFunc(func(ev events.Event) bool { return set[ev.EventType()] })
}

// FilterNone accepts nothing; used for a subscriber driven purely by the
// sync barrier rather than by events.
func FilterNone() EventFilter {
	return filterFunc(func(events.Event) bool { return false })
}
