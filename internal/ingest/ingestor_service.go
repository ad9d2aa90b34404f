package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// IngestorService wraps an Ingestor (WebSocketIngestor, SimulatedIngestor
// via a different path) as a runtime.Service so the engine can manage its
// lifecycle uniformly with every other service: it never consumes events,
// only publishes, and Run is its sole background Task.
type IngestorService struct {
	log      zerolog.Logger
	ingestor Ingestor
	pub      runtime.Publisher
}

// NewIngestorService wraps ingestor as a runtime.Service.
func NewIngestorService(log zerolog.Logger, ingestor Ingestor) *IngestorService {
	return &IngestorService{
		log:      log.With().Str("component", "ingestor-service").Str("venue", ingestor.Venue().Name).Logger(),
		ingestor: ingestor,
	}
}

func (s *IngestorService) Name() string  { return "ingestor-" + s.ingestor.Venue().Name }
func (s *IngestorService) Priority() int { return 5 }

func (s *IngestorService) EventFilter() bus.EventFilter { return bus.FilterEventTypes() }

func (s *IngestorService) Setup(ctx context.Context, cc runtime.CoreCtx) error {
	s.pub = cc.Publisher
	return nil
}
func (s *IngestorService) Teardown(ctx context.Context) error                    { return nil }
func (s *IngestorService) HandleEvent(ctx context.Context, ev events.Event) error { return nil }

func (s *IngestorService) Tasks() []func(ctx context.Context) error {
	return []func(ctx context.Context) error{
		func(ctx context.Context) error { return s.ingestor.Run(ctx, s.pub) },
	}
}
