package core

import "time"

// AggTrade is an aggregate trade event from an exchange, representing one or
// more matched trades at the same price.
type AggTrade struct {
	Instrument *Instrument
	EventTime  time.Time
	Price      Decimal
	Quantity   Decimal
	Side       Side
}

// Trade is a single matched trade (as opposed to an aggregate).
type Trade struct {
	Instrument *Instrument
	EventTime  time.Time
	Price      Decimal
	Quantity   Decimal
	Side       Side
}

// Tick is a top-of-book snapshot (best bid/ask price and size) at an event
// time.
type Tick struct {
	Instrument *Instrument
	EventTime  time.Time
	BidPrice   Decimal
	BidQty     Decimal
	AskPrice   Decimal
	AskQty     Decimal
}

// Mid returns (bid-price + ask-price) / 2, or a zero Decimal and false if
// either side is unavailable.
func (t *Tick) Mid() (Decimal, bool) {
	if t.BidPrice.IsZero() || t.AskPrice.IsZero() {
		return Zero, false
	}
	return t.BidPrice.Add(t.AskPrice).Div(decimalTwo), true
}

var decimalTwo = NewDecimalFromFloat(2)

// MetricKind enumerates the derived-market metric types.
type MetricKind string

const (
	MetricFundingRate   MetricKind = "funding-rate"
	MetricMarkPrice     MetricKind = "mark-price"
	MetricOpenInterest  MetricKind = "open-interest"
	MetricLongShortRatio MetricKind = "long-short-ratio"
)

// MetricUpdate carries a single derived-market metric (funding rate, mark
// price, open interest, long/short ratio).
type MetricUpdate struct {
	Instrument *Instrument
	EventTime  time.Time
	Kind       MetricKind
	Value      Decimal
}

// BookLevel is one price/quantity level of a book snapshot or delta.
type BookLevel struct {
	Price    Decimal
	Quantity Decimal
}

// BookUpdate is a full or incremental order book update.
type BookUpdate struct {
	Instrument *Instrument
	EventTime  time.Time
	Bids       []BookLevel
	Asks       []BookLevel
}
