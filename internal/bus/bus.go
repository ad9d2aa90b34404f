package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/events"
)

// Subscriber receives events matching its EventFilter on a bounded queue.
// Ack, if non-nil, is signalled once the subscriber has finished handling
// an event so the simulation barrier can advance deterministically (spec
// §4.1 "acking subscribers"); nil means the subscriber is fire-and-forget.
type Subscriber struct {
	Name   string
	Filter EventFilter
	queue  chan events.Event
	ack    chan struct{}
}

// Events returns the channel subscribers read from.
func (s *Subscriber) Events() <-chan events.Event { return s.queue }

// Ack signals that the subscriber has finished processing the most recently
// received event. Only meaningful for acking subscribers.
func (s *Subscriber) Ack() {
	if s.ack != nil {
		s.ack <- struct{}{}
	}
}

// Bus is the publish/subscribe hub every service communicates through.
// Publish blocks the caller once a subscriber's queue is full rather than
// dropping the event: backpressure is a cooperative suspension point, not
// a loss of data.
type Bus struct {
	log zerolog.Logger

	mu          sync.RWMutex
	subscribers []*Subscriber

	queueCapacity int
}

// Config controls queue sizing and backpressure.
type Config struct {
	QueueCapacity int // per-subscriber channel capacity, spec default 1024
}

// New creates an empty Bus.
func New(log zerolog.Logger, cfg Config) *Bus {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	return &Bus{
		log:           log.With().Str("component", "event_bus").Logger(),
		queueCapacity: cfg.QueueCapacity,
	}
}

// Subscribe registers a new subscriber with the given filter. acking
// selects whether the subscriber must call Ack() after each event before
// the sync barrier can proceed.
func (b *Bus) Subscribe(name string, filter EventFilter, acking bool) *Subscriber {
	sub := &Subscriber{
		Name:   name,
		Filter: filter,
		queue:  make(chan events.Event, b.queueCapacity),
	}
	if acking {
		sub.ack = make(chan struct{})
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber; its queue is left to be garbage
// collected once drained.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber whose filter accepts it, blocking
// on any subscriber whose queue is currently full until space frees up.
func (b *Bus) Publish(ev events.Event) {
	b.mu.RLock()
	subs := make([]*Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.Filter.Accepts(ev) {
			sub.queue <- ev
		}
	}
}

// PublishBlocking is Publish; kept as a distinct name for callers and the
// runtime.Publisher interface that want to be explicit about the
// guaranteed-delivery requirement at the call site.
func (b *Bus) PublishBlocking(ev events.Event) {
	b.Publish(ev)
}

// AckingSubscribers returns the subset of current subscribers that require
// an Ack handshake, used by the SyncBarrier to know who to wait for.
func (b *Bus) AckingSubscribers() []*Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Subscriber
	for _, s := range b.subscribers {
		if s.ack != nil {
			out = append(out, s)
		}
	}
	return out
}
