package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/events"
)

// wireFrame is the venue-agnostic market-data frame GenericParser expects:
// one JSON object per trade or top-of-book tick, keyed by instrument
// symbol. Real venues speak their own wire protocols (binance diff-depth
// frames, okx push messages, ...); translating those is deliberately out
// of scope here (an exchange-protocol adapter is the Ingestor/
// MessageParser interface's job, not this package's), so GenericParser
// instead gives the adapter interface a concrete, venue-agnostic
// implementation usable against any source already normalised into this
// shape, including WebSocketIngestor during development and
// FileHistoricalSource for replay.
type wireFrame struct {
	Type      string    `json:"type"` // "trade" | "tick"
	Symbol    string    `json:"symbol"`
	EventTime time.Time `json:"event_time"`

	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Side     string `json:"side,omitempty"`

	BidPrice string `json:"bid_price,omitempty"`
	BidQty   string `json:"bid_qty,omitempty"`
	AskPrice string `json:"ask_price,omitempty"`
	AskQty   string `json:"ask_qty,omitempty"`
}

// GenericParser implements MessageParser against wireFrame JSON, resolving
// each frame's Symbol against a fixed instrument set given at
// construction.
type GenericParser struct {
	bySymbol map[string]*core.Instrument
}

// NewGenericParser builds a parser resolving frames against instruments.
func NewGenericParser(instruments []*core.Instrument) *GenericParser {
	p := &GenericParser{bySymbol: make(map[string]*core.Instrument, len(instruments))}
	for _, inst := range instruments {
		p.bySymbol[inst.Symbol] = inst
	}
	return p
}

// Parse decodes one wireFrame and maps it to an AggTradeUpdate or
// TickUpdate. Frames for unknown symbols are dropped rather than erroring,
// since a shared feed may carry symbols this parser wasn't configured for.
func (p *GenericParser) Parse(raw []byte) ([]events.Event, error) {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("ingest: decode wire frame: %w", err)
	}
	inst, ok := p.bySymbol[f.Symbol]
	if !ok {
		return nil, nil
	}

	switch f.Type {
	case "trade":
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("ingest: trade price: %w", err)
		}
		qty, err := decimal.NewFromString(f.Quantity)
		if err != nil {
			return nil, fmt.Errorf("ingest: trade quantity: %w", err)
		}
		side := core.SideBuy
		if f.Side == string(core.SideSell) {
			side = core.SideSell
		}
		trade := core.AggTrade{Instrument: inst, EventTime: f.EventTime.UTC(), Price: price, Quantity: qty, Side: side}
		return []events.Event{events.NewAggTradeUpdate(inst, trade)}, nil

	case "tick":
		bidPrice, err := decimal.NewFromString(f.BidPrice)
		if err != nil {
			return nil, fmt.Errorf("ingest: tick bid price: %w", err)
		}
		bidQty, err := decimal.NewFromString(f.BidQty)
		if err != nil {
			return nil, fmt.Errorf("ingest: tick bid qty: %w", err)
		}
		askPrice, err := decimal.NewFromString(f.AskPrice)
		if err != nil {
			return nil, fmt.Errorf("ingest: tick ask price: %w", err)
		}
		askQty, err := decimal.NewFromString(f.AskQty)
		if err != nil {
			return nil, fmt.Errorf("ingest: tick ask qty: %w", err)
		}
		tick := core.Tick{Instrument: inst, EventTime: f.EventTime.UTC(), BidPrice: bidPrice, BidQty: bidQty, AskPrice: askPrice, AskQty: askQty}
		return []events.Event{events.NewTickUpdate(inst, tick)}, nil

	default:
		return nil, nil
	}
}

// SubscribeMessages returns one generic subscription frame per instrument;
// a real venue's WebSocket endpoint would ignore or reject these, but
// GenericParser is meant for a normalising proxy or a replay source ahead
// of WebSocketIngestor, not a direct venue connection.
func (p *GenericParser) SubscribeMessages(instruments []*core.Instrument) ([][]byte, error) {
	out := make([][]byte, 0, len(instruments))
	for _, inst := range instruments {
		msg, err := json.Marshal(map[string]string{"action": "subscribe", "symbol": inst.Symbol})
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
