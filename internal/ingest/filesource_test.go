package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
)

func writeVenueFile(t *testing.T, dir, venueName string, lines []string) {
	t.Helper()
	path := filepath.Join(dir, venueName+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
}

func TestFileHistoricalSourceStreamsLinesInWindowOrdered(t *testing.T) {
	dir := t.TempDir()
	venue := &core.Venue{ID: core.NewID(), Name: "binance"}
	inst := &core.Instrument{ID: core.NewID(), Venue: venue, Symbol: "BTCUSDT"}

	writeVenueFile(t, dir, venue.Name, []string{
		`2024-01-01T00:02:00.000000000Z: {"type":"trade","symbol":"BTCUSDT","event_time":"2024-01-01T00:02:00Z","price":"102","quantity":"1"}`,
		`2024-01-01T00:01:00.000000000Z: {"type":"trade","symbol":"BTCUSDT","event_time":"2024-01-01T00:01:00Z","price":"101","quantity":"1"}`,
		`2024-01-01T00:05:00.000000000Z: {"type":"trade","symbol":"BTCUSDT","event_time":"2024-01-01T00:05:00Z","price":"105","quantity":"1"}`,
	})

	src := NewFileHistoricalSource(zerolog.Nop(), dir)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC)

	stream, err := src.Stream(context.Background(), venue, []*core.Instrument{inst}, start, end)
	require.NoError(t, err)

	var got []*events.AggTradeUpdate
	for ev := range stream {
		trade, ok := ev.(*events.AggTradeUpdate)
		require.True(t, ok)
		got = append(got, trade)
	}

	require.Len(t, got, 2, "only lines inside [start, end) must be streamed")
	assert.True(t, got[0].Trade.Price.Equal(core.NewDecimalFromFloat(101)), "lines must be delivered in timestamp order")
	assert.True(t, got[1].Trade.Price.Equal(core.NewDecimalFromFloat(102)))
}

func TestFileHistoricalSourceSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	venue := &core.Venue{ID: core.NewID(), Name: "okx"}
	inst := &core.Instrument{ID: core.NewID(), Venue: venue, Symbol: "BTCUSDT"}

	writeVenueFile(t, dir, venue.Name, []string{
		`2024-01-01T00:00:00.000000000Z: not-json-at-all`,
		`2024-01-01T00:00:01.000000000Z: {"type":"trade","symbol":"BTCUSDT","event_time":"2024-01-01T00:00:01Z","price":"100","quantity":"1"}`,
	})

	src := NewFileHistoricalSource(zerolog.Nop(), dir)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)

	stream, err := src.Stream(context.Background(), venue, []*core.Instrument{inst}, start, end)
	require.NoError(t, err)

	var got []events.Event
	for ev := range stream {
		got = append(got, ev)
	}
	require.Len(t, got, 1, "the malformed line must be skipped, not abort the stream")
}

func TestFileHistoricalSourceErrorsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	venue := &core.Venue{ID: core.NewID(), Name: "missing-venue"}

	src := NewFileHistoricalSource(zerolog.Nop(), dir)
	_, err := src.Stream(context.Background(), venue, nil, time.Now(), time.Now())
	assert.Error(t, err)
}
