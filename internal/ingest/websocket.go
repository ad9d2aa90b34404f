package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
	"github.com/arkin-go/core/internal/runtime"
)

// Reconnection constants for WebSocketIngestor, ported from
// tradernet/websocket_client.go's baseReconnectDelay/maxReconnectDelay/
// maxReconnectAttempts.
const (
	wsDialTimeout        = 30 * time.Second
	wsWriteWait          = 10 * time.Second
	wsBaseReconnectDelay = 5 * time.Second
	wsMaxReconnectDelay  = 5 * time.Minute
)

// MessageParser turns one raw WebSocket frame into zero or more bus
// events. Implementations are venue-protocol-specific; WebSocketIngestor
// itself is protocol-agnostic transport plumbing.
type MessageParser interface {
	Parse(raw []byte) ([]events.Event, error)
	// SubscribeMessages returns the frames to send immediately after
	// connecting (e.g. a channel-subscription request).
	SubscribeMessages(instruments []*core.Instrument) ([][]byte, error)
}

// WebSocketIngestor is a venue-agnostic live market-data Ingestor: it
// dials a WebSocket endpoint, sends the parser's subscription frames,
// reads frames in a loop handing each to MessageParser, and reconnects
// with exponential backoff on any read error (ported from
// tradernet/websocket_client.go's MarketStatusWebSocket, generalized from
// one hardcoded venue protocol to the pluggable MessageParser interface).
type WebSocketIngestor struct {
	log         zerolog.Logger
	venue       *core.Venue
	url         string
	parser      MessageParser
	instruments []*core.Instrument
	errors      *ErrorTracker

	mu       sync.RWMutex
	conn     *websocket.Conn
	stopped  bool
	stopChan chan struct{}
}

// NewWebSocketIngestor builds a live ingestor for venue, dialing url and
// subscribing to instruments via parser.
func NewWebSocketIngestor(log zerolog.Logger, venue *core.Venue, url string, parser MessageParser, instruments []*core.Instrument) *WebSocketIngestor {
	return &WebSocketIngestor{
		log:         log.With().Str("component", "ingest-ws").Str("venue", venue.Name).Logger(),
		venue:       venue,
		url:         url,
		parser:      parser,
		instruments: instruments,
		errors:      NewErrorTracker(),
		stopChan:    make(chan struct{}),
	}
}

func (w *WebSocketIngestor) Venue() *core.Venue { return w.venue }

// Errors exposes the connection's accumulated error statistics, for a
// status/health endpoint to surface.
func (w *WebSocketIngestor) Errors() ErrorStats { return w.errors.GetStats() }

// Run dials, subscribes, and reads until ctx is cancelled, reconnecting
// with exponential backoff on any disconnect. It only returns when ctx is
// done or Stop is called.
func (w *WebSocketIngestor) Run(ctx context.Context, pub runtime.Publisher) error {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopChan:
			return nil
		default:
		}

		if err := w.connect(ctx); err != nil {
			attempt++
			w.errors.RecordErrorWithMessage(ErrorConnectionFailed, err.Error())
			delay := backoff(attempt)
			w.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("connect failed, retrying")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			case <-w.stopChan:
				return nil
			}
		}

		attempt = 0
		w.readLoop(ctx, pub) // returns when the connection drops
	}
}

// Stop requests the read loop exit and the underlying connection close.
func (w *WebSocketIngestor) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopChan)
	}
	conn := w.conn
	w.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "stopping")
	}
}

func (w *WebSocketIngestor) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, wsDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	msgs, err := w.parser.SubscribeMessages(w.instruments)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe build failed")
		return fmt.Errorf("build subscribe messages: %w", err)
	}
	writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteWait)
	defer writeCancel()
	for _, m := range msgs {
		if err := conn.Write(writeCtx, websocket.MessageText, m); err != nil {
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			w.errors.RecordErrorWithMessage(ErrorSubscriptionFailed, err.Error())
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.log.Info().Str("url", w.url).Msg("connected")
	return nil
}

func (w *WebSocketIngestor) readLoop(ctx context.Context, pub runtime.Publisher) {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}

		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				w.log.Info().Msg("connection closed normally")
			} else if ctx.Err() == nil {
				w.errors.RecordErrorWithMessage(ErrorWebSocketError, err.Error())
				w.log.Warn().Err(err).Msg("read error, reconnecting")
			}
			return
		}
		if msgType == websocket.MessageBinary {
			w.errors.RecordError(ErrorUnexpectedBinary)
			continue
		}

		evs, err := w.parser.Parse(data)
		if err != nil {
			w.errors.RecordErrorWithMessage(ErrorParse, err.Error())
			continue
		}
		for _, ev := range evs {
			pub.Publish(ev)
		}
	}
}

// backoff is baseReconnectDelay*2^(attempt-1), capped at
// wsMaxReconnectDelay (tradernet/websocket_client.go's calculateBackoff).
func backoff(attempt int) time.Duration {
	d := float64(wsBaseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(wsMaxReconnectDelay) {
		d = float64(wsMaxReconnectDelay)
	}
	return time.Duration(d)
}
