package core

import "time"

// AssetKind classifies an Asset.
type AssetKind string

const (
	AssetCrypto AssetKind = "crypto"
	AssetFiat   AssetKind = "fiat"
	AssetStable AssetKind = "stable"
)

// Asset is a reference entity created during bootstrap and read-only
// thereafter.
type Asset struct {
	ID     ID
	Symbol string
	Name   string
	Kind   AssetKind
}

// VenueKind classifies a Venue.
type VenueKind string

const (
	VenueCentralisedExchange VenueKind = "centralised-exchange"
	VenueOverTheCounter      VenueKind = "over-the-counter"
	VenueSimulated           VenueKind = "simulated"
)

// Venue is a reference entity for a trading venue.
type Venue struct {
	ID   ID
	Name string
	Kind VenueKind
}

// InstrumentKind classifies the contract type of an Instrument.
type InstrumentKind string

const (
	InstrumentSpot             InstrumentKind = "spot"
	InstrumentPerpetual        InstrumentKind = "perpetual"
	InstrumentFuture           InstrumentKind = "future"
	InstrumentOption           InstrumentKind = "option"
	InstrumentInversePerpetual InstrumentKind = "inverse-perpetual"
)

// OptionType distinguishes call and put options.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// TradingStatus reflects whether an instrument currently accepts orders.
// Retained from the original arkin source (arkin/src/models/instrument.rs);
// fill/replay invariants are only checkable against an instrument that can
// answer "am I tradeable right now".
type TradingStatus string

const (
	TradingStatusTrading   TradingStatus = "trading"
	TradingStatusHalted    TradingStatus = "halted"
	TradingStatusDelisted  TradingStatus = "delisted"
)

// Instrument is a reference entity describing a tradeable contract on a
// venue.
type Instrument struct {
	ID            ID
	Venue         *Venue
	Symbol        string
	VenueSymbol   string
	Kind          InstrumentKind
	BaseAsset     *Asset
	QuoteAsset    *Asset
	MarginAsset   *Asset
	ContractSize  Decimal
	PricePrecision    int32
	QuantityPrecision int32
	TickSize      Decimal
	LotSize       Decimal
	Maturity      *time.Time
	Strike        *Decimal
	OptionType    *OptionType
	Status        TradingStatus
}

// RoundPrice rounds a price to this instrument's tick-size.
func (i *Instrument) RoundPrice(p Decimal) Decimal {
	return RoundToStepNearest(p, i.TickSize)
}

// RoundQuantity rounds a quantity down to this instrument's lot-size.
func (i *Instrument) RoundQuantity(q Decimal) Decimal {
	return RoundToStep(q, i.LotSize)
}

// IsTradeable reports whether new orders may currently be placed.
func (i *Instrument) IsTradeable() bool {
	return i.Status == TradingStatusTrading
}

// Strategy is a symbolic name used as an account partition and for order
// attribution.
type Strategy struct {
	ID          ID
	Name        string
	Description string
}

// Pipeline is a named insight configuration used for a run.
type Pipeline struct {
	ID   ID
	Name string
}

// Side is the direction of an order or signal exposure.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Sign returns +1 for Buy and -1 for Sell, used for signed position math.
func (s Side) Sign() int {
	if s == SideBuy {
		return 1
	}
	return -1
}
