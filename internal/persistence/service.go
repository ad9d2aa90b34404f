package persistence

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// WriterService is the runtime.Service that sinks every Persist()-marked
// event to a Store's append-only audit log, one WriteEvent call per event
// delivered. It never publishes anything back onto the bus.
type WriterService struct {
	log   zerolog.Logger
	store *Store
}

// NewWriterService wraps store as a runtime.Service.
func NewWriterService(log zerolog.Logger, store *Store) *WriterService {
	return &WriterService{log: log.With().Str("component", "persistence-writer").Logger(), store: store}
}

func (s *WriterService) Name() string  { return "persistence-writer" }
func (s *WriterService) Priority() int { return 1 }

func (s *WriterService) EventFilter() bus.EventFilter { return bus.FilterPersistable() }

func (s *WriterService) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (s *WriterService) Tasks() []func(ctx context.Context) error           { return nil }
func (s *WriterService) Teardown(ctx context.Context) error                 { return nil }

func (s *WriterService) HandleEvent(ctx context.Context, ev events.Event) error {
	if err := s.store.WriteEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", string(ev.EventType())).Msg("write event failed")
		return err
	}
	return nil
}

// ArchiveService sinks every Persist()-marked event to a BatchingWriter on
// top of cold S3 storage, alongside (not instead of) WriterService's
// sqlite audit log: sqlite answers LoadEventsSince for a running node's own
// replay needs, while the archive is for retention beyond that node's
// lifetime.
type ArchiveService struct {
	log    zerolog.Logger
	writer *BatchingWriter
}

// NewArchiveService wraps writer as a runtime.Service.
func NewArchiveService(log zerolog.Logger, writer *BatchingWriter) *ArchiveService {
	return &ArchiveService{log: log.With().Str("component", "persistence-archive").Logger(), writer: writer}
}

func (s *ArchiveService) Name() string  { return "persistence-archive" }
func (s *ArchiveService) Priority() int { return 2 }

func (s *ArchiveService) EventFilter() bus.EventFilter { return bus.FilterPersistable() }

func (s *ArchiveService) Setup(ctx context.Context, cc runtime.CoreCtx) error { return nil }
func (s *ArchiveService) Tasks() []func(ctx context.Context) error           { return nil }

// Teardown closes the BatchingWriter so its flush loop drains the final
// partial batch before the process exits.
func (s *ArchiveService) Teardown(ctx context.Context) error {
	s.writer.Close()
	return nil
}

func (s *ArchiveService) HandleEvent(ctx context.Context, ev events.Event) error {
	s.writer.Write(ev)
	return nil
}
