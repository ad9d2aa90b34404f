package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
)

// FileHistoricalSource implements HistoricalSource by replaying one
// newline-delimited "<timestamp>: <json>" file per venue (the same line
// format TardisLine/scanLines already parse for the tardis datasets
// download path), decoding each line's JSON with GenericParser. It is the
// SimulatedIngestor-facing counterpart to TardisClient: where TardisClient
// downloads a venue's raw, vendor-specific wire format for cold storage,
// FileHistoricalSource replays data already normalised to GenericParser's
// wireFrame shape.
type FileHistoricalSource struct {
	log zerolog.Logger
	dir string
}

// NewFileHistoricalSource builds a source reading "<dir>/<venue-name>.jsonl".
func NewFileHistoricalSource(log zerolog.Logger, dir string) *FileHistoricalSource {
	return &FileHistoricalSource{log: log.With().Str("component", "ingest-file-source").Logger(), dir: dir}
}

// Stream reads the venue's file, filters lines to [start, end), parses
// each against instruments, and sends the result on a buffered channel
// closed once every line has been delivered or ctx is cancelled.
func (s *FileHistoricalSource) Stream(ctx context.Context, venue *core.Venue, instruments []*core.Instrument, start, end time.Time) (<-chan events.Event, error) {
	path := filepath.Join(s.dir, venue.Name+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open historical file %s: %w", path, err)
	}

	lines, err := scanLines(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("ingest: scan historical file %s: %w", path, err)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Timestamp.Before(lines[j].Timestamp) })

	parser := NewGenericParser(instruments)
	out := make(chan events.Event, 256)
	go func() {
		defer close(out)
		for _, line := range lines {
			if line.Timestamp.Before(start) || !line.Timestamp.Before(end) {
				continue
			}
			evs, err := parser.Parse([]byte(line.JSON))
			if err != nil {
				s.log.Warn().Err(err).Str("venue", venue.Name).Msg("skipping malformed historical line")
				continue
			}
			for _, ev := range evs {
				select {
				case <-ctx.Done():
					return
				case out <- ev:
				}
			}
		}
	}()
	return out, nil
}
