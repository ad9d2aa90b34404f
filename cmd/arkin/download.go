package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkin-go/core/internal/ingest"
)

// runDownload fetches one tardis.dev channel for a date range and writes
// the raw "<timestamp>: <json>" lines to <out>/<venue>-<channel>.raw.jsonl,
// exactly the vendor wire format TardisClient reads back. This is cold
// storage of the untranslated venue protocol; it is deliberately not fed
// through GenericParser/the event bus, since decoding real exchange wire
// formats is out of scope here (see internal/ingest/jsonparser.go).
func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	exchange := fs.String("exchange", "binance", "tardis.dev exchange slug (binance, binance-futures, binance-delivery, okex-spot, okex-swap)")
	channel := fs.String("channel", "trade", "tardis.dev channel (trade, aggTrade, depth, ticker)")
	symbols := fs.String("symbols", "BTCUSDT", "comma-separated raw venue symbols")
	start := fs.String("start", "", "range start, RFC3339 (required)")
	end := fs.String("end", "", "range end, RFC3339 (required)")
	out := fs.String("out", "./data/downloads", "output directory for the raw jsonl file")
	tardisURL := fs.String("tardis-url", "https://api.tardis.dev/v1", "tardis-machine or tardis.dev datasets base URL")
	tardisSecret := fs.String("tardis-secret", os.Getenv("TARDIS_API_SECRET"), "tardis.dev API secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startTime, err := parseTimeFlag(*start)
	if err != nil {
		return fmt.Errorf("-start: %w", err)
	}
	endTime, err := parseTimeFlag(*end)
	if err != nil {
		return fmt.Errorf("-end: %w", err)
	}

	req := ingest.TardisRequest{
		Exchange:    ingest.TardisExchange(*exchange),
		Channel:     ingest.TardisChannel(*channel),
		Instruments: strings.Split(*symbols, ","),
		Start:       startTime,
		End:         endTime,
	}

	client := ingest.NewTardisClient(*tardisURL, *tardisSecret)
	lines, err := client.Download(context.Background(), req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(*out, fmt.Sprintf("%s-%s.raw.jsonl", *exchange, *channel))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(f, "%s: %s\n", line.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999Z"), line.JSON); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
	}

	fmt.Printf("wrote %d lines to %s\n", len(lines), path)
	return nil
}
