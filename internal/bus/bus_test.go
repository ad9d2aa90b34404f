package bus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
)

func tradeEvent() *events.AggTradeUpdate {
	inst := &core.Instrument{ID: core.NewID(), Symbol: "BTCUSDT"}
	return events.NewAggTradeUpdate(inst, core.AggTrade{Instrument: inst, EventTime: time.Now().UTC()})
}

func signalEvent() *events.Signal {
	strategy := &core.Strategy{ID: core.NewID(), Name: "test"}
	inst := &core.Instrument{ID: core.NewID(), Symbol: "BTCUSDT"}
	return events.NewSignal(strategy, inst, core.SideBuy, core.NewDecimalFromFloat(0.5), time.Now().UTC())
}

func TestPublishDeliversOnlyToMatchingSubscribers(t *testing.T) {
	b := New(zerolog.Nop(), Config{})
	all := b.Subscribe("all", FilterAll(), false)
	persistable := b.Subscribe("persistable", FilterPersistable(), false)
	none := b.Subscribe("none", FilterNone(), false)

	b.Publish(tradeEvent())

	select {
	case <-all.Events():
	default:
		t.Fatal("FilterAll subscriber should have received the trade event")
	}
	select {
	case <-persistable.Events():
		t.Fatal("FilterPersistable subscriber should not receive a non-persistable event")
	default:
	}
	select {
	case <-none.Events():
		t.Fatal("FilterNone subscriber should never receive anything")
	default:
	}
}

func TestFilterPersistableAcceptsOnlyPersistedEvents(t *testing.T) {
	b := New(zerolog.Nop(), Config{})
	sub := b.Subscribe("persistable", FilterPersistable(), false)

	b.Publish(tradeEvent())
	b.Publish(signalEvent())

	select {
	case ev := <-sub.Events():
		_, ok := ev.(*events.Signal)
		assert.True(t, ok, "expected the persisted Signal event, got %T", ev)
	default:
		t.Fatal("expected the persistable Signal event to be delivered")
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected second event delivered: %T", ev)
	default:
	}
}

func TestFilterEventTypesAcceptsOnlyListedTypes(t *testing.T) {
	filter := FilterEventTypes(events.TypeSignal)
	assert.True(t, filter.Accepts(signalEvent()))
	assert.False(t, filter.Accepts(tradeEvent()))
}

func TestFilterAllExceptMarketDataDropsMarketData(t *testing.T) {
	filter := FilterAllExceptMarketData()
	assert.False(t, filter.Accepts(tradeEvent()))
	assert.True(t, filter.Accepts(signalEvent()))
}

func TestPublishBlocksWhenQueueFull(t *testing.T) {
	b := New(zerolog.Nop(), Config{QueueCapacity: 1})
	sub := b.Subscribe("slow", FilterAll(), false)

	b.Publish(tradeEvent()) // fills the one slot

	done := make(chan struct{})
	go func() {
		b.Publish(tradeEvent()) // must block until the slot is drained
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Publish returned before the full queue was drained")
	case <-time.After(20 * time.Millisecond):
	}

	<-sub.Events() // drain one slot

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish did not unblock once queue space freed up")
	}
}

func TestPublishBlockingIsEquivalentToPublish(t *testing.T) {
	b := New(zerolog.Nop(), Config{QueueCapacity: 1})
	sub := b.Subscribe("all", FilterAll(), false)

	b.PublishBlocking(tradeEvent())

	select {
	case <-sub.Events():
	default:
		t.Fatal("PublishBlocking should deliver the same as Publish")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(zerolog.Nop(), Config{})
	sub := b.Subscribe("temp", FilterAll(), false)
	b.Unsubscribe(sub)

	b.Publish(tradeEvent())

	select {
	case <-sub.Events():
		t.Fatal("unsubscribed subscriber should not receive further events")
	default:
	}
}

func TestAckingSubscribersReturnsOnlyAckers(t *testing.T) {
	b := New(zerolog.Nop(), Config{})
	b.Subscribe("plain", FilterAll(), false)
	acker := b.Subscribe("acker", FilterAll(), true)

	ackers := b.AckingSubscribers()
	require.Len(t, ackers, 1)
	assert.Equal(t, acker, ackers[0])
}

func TestSyncBarrierReleasesAllPartiesAndElectsOneLeader(t *testing.T) {
	const parties = 3
	barrier := NewSyncBarrier(parties, 0)

	leaderCount := make(chan bool, parties)
	for i := 0; i < parties; i++ {
		go func() { leaderCount <- barrier.Wait() }()
	}

	leaders := 0
	for i := 0; i < parties; i++ {
		if <-leaderCount {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders, "exactly one caller per generation must be elected leader")
}

func TestSyncBarrierAddPartyIncreasesRequiredArrivals(t *testing.T) {
	barrier := NewSyncBarrier(1, 0)
	barrier.AddParty()

	done := make(chan bool, 1)
	go func() { done <- barrier.Wait() }()

	select {
	case <-done:
		t.Fatal("barrier should still be waiting on the second party")
	case <-time.After(20 * time.Millisecond):
	}

	leader := barrier.Wait()
	assert.True(t, leader, "second arrival completes the party count and becomes leader")
	assert.False(t, <-done, "first arrival was not the leader")
}
