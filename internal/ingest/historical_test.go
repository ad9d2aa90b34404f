package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelStrMapsBinanceChannels(t *testing.T) {
	s, err := channelStr(TardisBinanceSwaps, TardisChannelAggTrade)
	require.NoError(t, err)
	assert.Equal(t, "aggTrade", s)
}

func TestChannelStrMapsOkxChannels(t *testing.T) {
	s, err := channelStr(TardisOkxSwap, TardisChannelBook)
	require.NoError(t, err)
	assert.Equal(t, "books", s)
}

func TestChannelStrUnsupportedCombinationErrors(t *testing.T) {
	_, err := channelStr(TardisOkxSwap, TardisChannelAggTrade)
	assert.Error(t, err)
}

func TestMinuteRangeEnumeratesBoundaries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC)

	minutes := minuteRange(start, end)
	require.Len(t, minutes, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), minutes[0])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC), minutes[2])
}

func TestMinuteRangeEmptyWhenStartAfterEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, minuteRange(start, end))
}

func TestParseLineSplitsTimestampAndJSON(t *testing.T) {
	line := "2024-01-01T00:00:00.123456789Z: {\"type\":\"trade\"}"
	parsed, err := parseLine(line)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"trade"}`, parsed.JSON)
	assert.Equal(t, 2024, parsed.Timestamp.Year())
}

func TestParseLineErrorsWithoutSeparator(t *testing.T) {
	_, err := parseLine("no-space-here")
	assert.Error(t, err)
}

func TestParseLineErrorsOnInvalidTimestamp(t *testing.T) {
	_, err := parseLine("not-a-timestamp: {}")
	assert.Error(t, err)
}

func TestScanLinesSkipsBlankAndMalformedLines(t *testing.T) {
	body := strings.Join([]string{
		"2024-01-01T00:00:00.000000000Z: {\"a\":1}",
		"",
		"garbage-line-no-colon-space",
		"2024-01-01T00:00:01.000000000Z: {\"a\":2}",
	}, "\n")

	lines, err := scanLines(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, `{"a":1}`, lines[0].JSON)
	assert.Equal(t, `{"a":2}`, lines[1].JSON)
}
