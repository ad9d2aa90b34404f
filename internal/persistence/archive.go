package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arkin-go/core/internal/events"
)

// ArchiveFormat selects the wire encoding Archive.Flush writes batches in.
type ArchiveFormat int

const (
	// ArchiveFormatJSON writes one JSON object per line (human-readable,
	// greppable in S3 directly).
	ArchiveFormatJSON ArchiveFormat = iota
	// ArchiveFormatMsgpack writes a single msgpack array of the batch
	// (denser on disk, cheaper to re-ingest at volume).
	ArchiveFormatMsgpack
)

// Archive sinks a batch of events to an S3 bucket, one object per flush,
// for cold storage beyond the sqlite store's retention window. This
// follows the SDK's own documented config.LoadDefaultConfig +
// manager.Uploader idiom.
type Archive struct {
	bucket   string
	prefix   string
	format   ArchiveFormat
	uploader *manager.Uploader
}

// NewArchive builds an Archive against bucket using the default AWS
// credential chain (environment, shared config, IMDS).
func NewArchive(ctx context.Context, bucket, prefix string, format ArchiveFormat) (*Archive, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("persistence: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Archive{
		bucket:   bucket,
		prefix:   prefix,
		format:   format,
		uploader: manager.NewUploader(client),
	}, nil
}

// Flush uploads batch as one object keyed by the earliest event's time, so
// objects sort lexicographically by period.
func (a *Archive) Flush(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	var ext string
	switch a.format {
	case ArchiveFormatMsgpack:
		raw := make([]json.RawMessage, len(batch))
		for i, ev := range batch {
			encoded, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("persistence: encode archive event: %w", err)
			}
			raw[i] = encoded
		}
		if err := msgpack.NewEncoder(&buf).Encode(raw); err != nil {
			return fmt.Errorf("persistence: msgpack-encode archive batch: %w", err)
		}
		ext = "msgpack"
	default:
		enc := json.NewEncoder(&buf)
		for _, ev := range batch {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("persistence: encode archive event: %w", err)
			}
		}
		ext = "ndjson"
	}

	key := fmt.Sprintf("%s/%s.%s", a.prefix, batch[0].EventTime().UTC().Format("2006/01/02/15-04-05.000"), ext)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("persistence: upload archive batch: %w", err)
	}
	return nil
}

// BatchingWriter accumulates events and flushes to Archive every interval
// or once size events have accumulated, whichever comes first.
type BatchingWriter struct {
	archive  *Archive
	size     int
	interval time.Duration

	buf chan events.Event
}

// NewBatchingWriter starts a background flush loop; call Close to drain
// and stop it.
func NewBatchingWriter(archive *Archive, size int, interval time.Duration) *BatchingWriter {
	w := &BatchingWriter{archive: archive, size: size, interval: interval, buf: make(chan events.Event, size*2)}
	go w.run()
	return w
}

// Write enqueues ev for archival; it does not block on the network.
func (w *BatchingWriter) Write(ev events.Event) {
	w.buf <- ev
}

// Close stops accepting new events and waits for the channel to drain.
func (w *BatchingWriter) Close() {
	close(w.buf)
}

func (w *BatchingWriter) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	batch := make([]events.Event, 0, w.size)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.archive.Flush(context.Background(), batch); err != nil {
			// Best-effort: archival failures never block the hot path: the
			// sqlite store remains the source of truth.
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-w.buf:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= w.size {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
