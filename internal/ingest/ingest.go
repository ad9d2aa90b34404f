package ingest

import (
	"context"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/orders"
	"github.com/arkin-go/core/internal/runtime"
)

// Ingestor opens a venue's market-data stream and publishes AggTradeUpdate,
// TickUpdate, MetricUpdate and BookUpdateEvent events mapped to instruments
// resolved through the persistence reader. Run blocks until ctx is
// cancelled or the stream ends for good (implementations should retry
// transient disconnects internally rather than returning on the first
// error).
type Ingestor interface {
	Venue() *core.Venue
	Run(ctx context.Context, pub runtime.Publisher) error
}

// Executor consumes venue-order requests for one venue and reports the
// outcome back as events: a VenueOrderUpdated each time the venue order
// reaches a new state (placed or rejected, then filled, cancelled or
// expired), and a VenueOrderFillEvent for each fill.
type Executor interface {
	Venue() *core.Venue
	PlaceOrder(ctx context.Context, vo *orders.VenueOrder) error
	CancelOrder(ctx context.Context, venueOrderID core.ID) error
	CancelAllOrders(ctx context.Context, instrumentID core.ID) error
}

// Retry/back-off parameters for an outbound venue RPC that fails
// transiently: up to MaxRetries attempts, waiting BaseBackoffMillis*attempt
// between each, bounded by RequestTimeoutMS per attempt. No adapter in this
// package reads them; WebSocketIngestor reconnects with its own backoff.
const (
	MaxRetries        = 3
	BaseBackoffMillis = 100
	RequestTimeoutMS  = 5000
)
