package ingest

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arkin-go/core/internal/coreerr"
)

// TardisExchange identifies a tardis.dev datasets exchange slug, ported
// from original_source/src/services/tardis/service.rs's TardisExchange.
type TardisExchange string

const (
	TardisBinanceSpot    TardisExchange = "binance"
	TardisBinanceSwaps   TardisExchange = "binance-futures"
	TardisBinanceFutures TardisExchange = "binance-delivery"
	TardisOkxSwap        TardisExchange = "okex-swap"
	TardisOkxSpot        TardisExchange = "okex-spot"
)

// TardisChannel identifies a tardis.dev incremental-data channel.
type TardisChannel string

const (
	TardisChannelTrade    TardisChannel = "trade"
	TardisChannelAggTrade TardisChannel = "aggTrade"
	TardisChannelBook     TardisChannel = "depth"
	TardisChannelTick     TardisChannel = "ticker"
)

// channelStr maps an (exchange, channel) pair to the wire channel name
// tardis.dev expects, mirroring TardisExchange::channel_str's per-exchange
// match arms (only the Binance/OKX arms the pack's spec needs are carried
// forward; others return an error the same way the Rust bail!() did).
func channelStr(exchange TardisExchange, channel TardisChannel) (string, error) {
	switch exchange {
	case TardisBinanceSwaps, TardisBinanceSpot, TardisBinanceFutures:
		switch channel {
		case TardisChannelBook:
			return "depth", nil
		case TardisChannelTrade:
			return "trade", nil
		case TardisChannelAggTrade:
			return "aggTrade", nil
		case TardisChannelTick:
			return "ticker", nil
		}
	case TardisOkxSwap, TardisOkxSpot:
		switch channel {
		case TardisChannelBook:
			return "books", nil
		case TardisChannelTrade:
			return "trades-all", nil
		case TardisChannelTick:
			return "tickers", nil
		}
	}
	return "", coreerr.New(coreerr.CategoryConfiguration, "channelStr", fmt.Errorf("channel %s not supported for exchange %s", channel, exchange))
}

// TardisRequest describes one historical download: an exchange/channel for
// a set of instrument symbols over [Start, End).
type TardisRequest struct {
	Exchange    TardisExchange
	Channel     TardisChannel
	Instruments []string
	Start       time.Time
	End         time.Time
}

// TardisLine is one parsed record from a tardis datasets response: the
// recorded timestamp plus its raw JSON payload, left unparsed so callers
// can unmarshal into whatever wire type the channel produces.
type TardisLine struct {
	Timestamp time.Time
	JSON      string
}

// TardisClient downloads tardis.dev historical market-data datasets
// minute-by-minute, grounded on
// original_source/src/services/tardis/service.rs's TardisService, using a
// plain net/http client (see trader-go/internal/modules/optimization/
// pypfopt_client.go) rather than the original's bespoke reqwest wrapper.
type TardisClient struct {
	baseURL   string
	apiSecret string
	client    *http.Client
}

// NewTardisClient builds a client against baseURL (the tardis-machine or
// tardis.dev datasets endpoint) authenticated with apiSecret.
func NewTardisClient(baseURL, apiSecret string) *TardisClient {
	return &TardisClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// minuteRange enumerates every minute boundary in [start, end), ported from
// utils::datetime_range_minute.
func minuteRange(start, end time.Time) []time.Time {
	var out []time.Time
	for t := start.Truncate(time.Minute); t.Before(end); t = t.Add(time.Minute) {
		out = append(out, t)
	}
	return out
}

// Download fetches req one minute-slice at a time and returns every parsed
// line across the whole range, in chronological order. Each slice failure
// is returned immediately; callers wanting partial results on error should
// narrow req's range and retry.
func (c *TardisClient) Download(ctx context.Context, req TardisRequest) ([]TardisLine, error) {
	channel, err := channelStr(req.Exchange, req.Channel)
	if err != nil {
		return nil, err
	}
	var all []TardisLine
	for _, minute := range minuteRange(req.Start, req.End) {
		lines, err := c.downloadMinute(ctx, req, channel, minute)
		if err != nil {
			return nil, coreerr.New(coreerr.CategoryTransient, "TardisClient.Download", err)
		}
		all = append(all, lines...)
	}
	return all, nil
}

func (c *TardisClient) downloadMinute(ctx context.Context, req TardisRequest, channel string, minute time.Time) ([]TardisLine, error) {
	offset := minute.Hour()*60 + minute.Minute()
	q := url.Values{}
	q.Set("exchange", string(req.Exchange))
	q.Set("channel", channel)
	q.Set("date", minute.Format("2006-01-02"))
	q.Set("offset", strconv.Itoa(offset))
	for _, inst := range req.Instruments {
		q.Add("symbols", inst)
	}
	u := c.baseURL + "/replay?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.apiSecret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiSecret)
	}
	httpReq.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tardis: unexpected status %d for %s", resp.StatusCode, u)
	}

	body := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return scanLines(gz)
	}
	return scanLines(body)
}

// scanLines reads one tardis datasets response body, parsing each
// non-blank line into a TardisLine (ported from download_stream's
// line-by-line BufReader loop).
func scanLines(r io.Reader) ([]TardisLine, error) {
	var out []TardisLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parsed, err := parseLine(line)
		if err != nil {
			continue // malformed line: skip rather than abort the whole slice
		}
		out = append(out, parsed)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseLine splits "<timestamp>: <json>" into its parts, ported from
// service.rs's parse_line.
func parseLine(line string) (TardisLine, error) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return TardisLine{}, fmt.Errorf("malformed tardis line: %q", line)
	}
	tsPart := strings.TrimSuffix(strings.TrimSpace(line[:idx]), ":")
	jsonPart := strings.TrimSpace(line[idx+1:])
	ts, err := time.Parse("2006-01-02T15:04:05.999999999Z", tsPart)
	if err != nil {
		return TardisLine{}, fmt.Errorf("invalid timestamp %q: %w", tsPart, err)
	}
	return TardisLine{Timestamp: ts.UTC(), JSON: jsonPart}, nil
}
