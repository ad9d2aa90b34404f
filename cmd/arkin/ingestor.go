package main

import (
	"flag"
	"fmt"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/ingest"
	"github.com/arkin-go/core/internal/persistence"
	"github.com/arkin-go/core/internal/runtime"
)

// runIngestor runs a live, venue-agnostic market-data ingestor: it dials
// -ws-url, parses frames with GenericParser, publishes AggTradeUpdate/
// TickUpdate events, and persists every Persist()-marked event to the
// sqlite store (and, if -archive-bucket is set, to S3 as well).
func runIngestor(args []string) error {
	fs := flag.NewFlagSet("ingestor", flag.ExitOnError)
	cf := registerCommon(fs)
	wsURL := fs.String("ws-url", "", "WebSocket endpoint to ingest from (required)")
	archiveBucket := fs.String("archive-bucket", "", "S3 bucket for cold-storage archival; empty disables it")
	archivePrefix := fs.String("archive-prefix", "arkin", "S3 key prefix for archived events")
	archiveFormat := fs.String("archive-format", "json", "archive batch encoding: json|msgpack")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *wsURL == "" {
		return fmt.Errorf("-ws-url is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := bootstrap(ctx, cf)
	if err != nil {
		return err
	}
	defer b.store.Close()

	eventBus := bus.New(b.log, bus.Config{QueueCapacity: b.cfg.EventQueueCapacity})
	cc := runtime.CoreCtx{Clock: core.SystemClock{}, Reader: b.store}
	engine := runtime.New(b.log, eventBus, cc)

	parser := ingest.NewGenericParser(b.instruments)
	wsIngestor := ingest.NewWebSocketIngestor(b.log, b.venue, *wsURL, parser, b.instruments)
	engine.Register(ingest.NewIngestorService(b.log, wsIngestor))
	engine.Register(persistence.NewWriterService(b.log, b.store))

	if *archiveBucket != "" {
		format := persistence.ArchiveFormatJSON
		if *archiveFormat == "msgpack" {
			format = persistence.ArchiveFormatMsgpack
		}
		archive, err := persistence.NewArchive(ctx, *archiveBucket, *archivePrefix, format)
		if err != nil {
			return fmt.Errorf("build archive: %w", err)
		}
		writer := persistence.NewBatchingWriter(archive, 500, archiveFlushInterval)
		engine.Register(persistence.NewArchiveService(b.log, writer))
	}

	b.log.Info().Str("venue", b.venue.Name).Str("ws_url", *wsURL).Msg("starting live ingestor")
	return engine.Run(ctx)
}
