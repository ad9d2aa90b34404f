package orders

import (
	"sync"

	"github.com/arkin-go/core/internal/core"
)

// ExecutionBook is the in-memory indexed set of non-terminal execution
// orders, keyed by id; ListByInstrument scans the whole set.
// Every mutation is serialised by the book's single RWMutex.
type ExecutionBook struct {
	mu       sync.RWMutex
	byID     map[core.ID]*ExecutionOrder
	onUpdate func(*ExecutionOrder)
}

// NewExecutionBook creates an empty book. onUpdate, if non-nil, is invoked
// after every mutation so the caller can publish an ExecutionOrderUpdated
// event.
func NewExecutionBook(onUpdate func(*ExecutionOrder)) *ExecutionBook {
	return &ExecutionBook{
		byID:     make(map[core.ID]*ExecutionOrder),
		onUpdate: onUpdate,
	}
}

// Insert adds a new non-terminal order to the book.
func (b *ExecutionBook) Insert(o *ExecutionOrder) {
	b.mu.Lock()
	b.byID[o.ID] = o
	b.mu.Unlock()
	b.notify(o)
}

// Update re-indexes an order after a status change and removes it from the
// book if it has become terminal (spec "remove-on-terminal").
func (b *ExecutionBook) Update(o *ExecutionOrder) {
	b.mu.Lock()
	if o.IsTerminal() {
		delete(b.byID, o.ID)
	} else {
		b.byID[o.ID] = o
	}
	b.mu.Unlock()
	b.notify(o)
}

func (b *ExecutionBook) notify(o *ExecutionOrder) {
	if b.onUpdate != nil {
		// Subscribers must treat order entities as immutable snapshots
		//; hand out a copy.
		snap := *o
		b.onUpdate(&snap)
	}
}

// Get returns the order by id, if it is still non-terminal in the book.
func (b *ExecutionBook) Get(id core.ID) (*ExecutionOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[id]
	return o, ok
}

// ListByInstrument returns all non-terminal orders for an instrument.
func (b *ExecutionBook) ListByInstrument(instrumentID core.ID) []*ExecutionOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*ExecutionOrder
	for _, o := range b.byID {
		if o.Instrument.ID == instrumentID {
			out = append(out, o)
		}
	}
	return out
}

// All returns every non-terminal order currently in the book.
func (b *ExecutionBook) All() []*ExecutionOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*ExecutionOrder, 0, len(b.byID))
	for _, o := range b.byID {
		out = append(out, o)
	}
	return out
}

// VenueBook is the in-memory indexed set of non-terminal venue orders,
// additionally indexed by parent execution-order id.
type VenueBook struct {
	mu       sync.RWMutex
	byID     map[core.ID]*VenueOrder
	byExecID map[core.ID][]core.ID
	onUpdate func(*VenueOrder)
}

// NewVenueBook creates an empty book.
func NewVenueBook(onUpdate func(*VenueOrder)) *VenueBook {
	return &VenueBook{
		byID:     make(map[core.ID]*VenueOrder),
		byExecID: make(map[core.ID][]core.ID),
		onUpdate: onUpdate,
	}
}

// Insert adds a new non-terminal venue order to the book.
func (b *VenueBook) Insert(o *VenueOrder) {
	b.mu.Lock()
	b.byID[o.ID] = o
	b.byExecID[o.ExecutionOrderID] = append(b.byExecID[o.ExecutionOrderID], o.ID)
	b.mu.Unlock()
	b.notify(o)
}

// Update re-indexes an order after a mutation, removing it from the book if
// it has become terminal.
func (b *VenueBook) Update(o *VenueOrder) {
	b.mu.Lock()
	if o.IsTerminal() {
		delete(b.byID, o.ID)
	} else {
		b.byID[o.ID] = o
	}
	b.mu.Unlock()
	b.notify(o)
}

func (b *VenueBook) notify(o *VenueOrder) {
	if b.onUpdate != nil {
		snap := *o
		b.onUpdate(&snap)
	}
}

// Get returns the venue order by id, if still non-terminal.
func (b *VenueBook) Get(id core.ID) (*VenueOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[id]
	return o, ok
}

// ListByExecutionOrderID returns all non-terminal venue orders for a parent
// execution order.
func (b *VenueBook) ListByExecutionOrderID(execID core.ID) []*VenueOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := b.byExecID[execID]
	out := make([]*VenueOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := b.byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// ListByInstrument returns all non-terminal venue orders for an instrument.
func (b *VenueBook) ListByInstrument(instrumentID core.ID) []*VenueOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*VenueOrder
	for _, o := range b.byID {
		if o.Instrument.ID == instrumentID {
			out = append(out, o)
		}
	}
	return out
}

// All returns every non-terminal venue order currently in the book.
func (b *VenueBook) All() []*VenueOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*VenueOrder, 0, len(b.byID))
	for _, o := range b.byID {
		out = append(out, o)
	}
	return out
}
