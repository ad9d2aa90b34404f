package ledger

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
)

// Fill describes a single VenueOrder fill to be posted.
type Fill struct {
	EventTime       time.Time
	Strategy        *core.Strategy
	Instrument      *core.Instrument
	Venue           *core.Venue
	Side            core.Side
	Quantity        core.Decimal
	Price           core.Decimal
	Commission      core.Decimal
	CommissionAsset *core.Asset
}

// AccountUpdate carries an exchange-reported balance for reconciliation.
type AccountUpdate struct {
	EventTime time.Time
	Venue     *core.Venue
	Asset     *core.Asset
	Kind      AccountKind
	Balance   core.Decimal
}

// Discrepancy describes a reconciliation mismatch beyond tolerance.
type Discrepancy struct {
	EventTime time.Time
	Venue     *core.Venue
	Asset     *core.Asset
	Projected core.Decimal
	Reported  core.Decimal
	Delta     core.Decimal
}

// PostedFill is the outcome of PostFill, used by callers to publish a
// FillPosted event once the ledger effects have committed atomically.
type PostedFill struct {
	Fill         Fill
	Transfers    []Transfer
	Position     Position
	RealizedPnL  core.Decimal
}

// Ledger is the double-entry accounting engine. All mutation goes through
// post, with l.mu held for the whole of each mutating call (PostFill,
// Reconcile, Seed); queries take the read lock and so wait for any mutation
// in progress.
type Ledger struct {
	log zerolog.Logger

	mu           sync.RWMutex
	accounts     map[AccountKey]*Account
	positions    map[positionKey]*Position
	transfers    []Transfer
	halted       map[haltKey]bool
	tolerance    core.Decimal

	discrepancies chan Discrepancy
}

type positionKey struct {
	strategy   core.ID
	instrument core.ID
}

type haltKey struct {
	venue core.ID
	asset core.ID
}

// New creates a Ledger with the given reconciliation tolerance.
func New(log zerolog.Logger, tolerance core.Decimal) *Ledger {
	return &Ledger{
		log:           log.With().Str("component", "ledger").Logger(),
		accounts:      make(map[AccountKey]*Account),
		positions:     make(map[positionKey]*Position),
		halted:        make(map[haltKey]bool),
		tolerance:     tolerance,
		discrepancies: make(chan Discrepancy, 16),
	}
}

// Discrepancies exposes the channel of accounting discrepancies so the
// service wrapper can translate them into AccountingDiscrepancy events.
func (l *Ledger) Discrepancies() <-chan Discrepancy {
	return l.discrepancies
}

func (l *Ledger) account(key AccountKey) *Account {
	if a, ok := l.accounts[key]; ok {
		return a
	}
	a := &Account{ID: core.NewID(), Key: key, Balance: core.Zero}
	l.accounts[key] = a
	return a
}

// post records one debit/credit Transfer and updates both account balances.
// Caller must hold l.mu.
func (l *Ledger) post(eventTime time.Time, debit, credit AccountKey, asset core.ID, amount core.Decimal, kind TransferKind) Transfer {
	t := Transfer{
		ID:            core.NewID(),
		EventTime:     eventTime,
		DebitAccount:  debit,
		CreditAccount: credit,
		Asset:         asset,
		Amount:        amount,
		Kind:          kind,
	}
	l.transfers = append(l.transfers, t)
	l.account(debit).Balance = l.account(debit).Balance.Sub(amount)
	l.account(credit).Balance = l.account(credit).Balance.Add(amount)
	return t
}

// PostFill posts the Trade and Commission transfers for a venue-order fill
// and updates the strategy's Position, realizing PnL on opposing trades and
// posting a RealizedPnL transfer to the equity account. The whole operation
// is atomic with respect to queries: it holds l.mu for its entire duration.
func (l *Ledger) PostFill(f Fill) PostedFill {
	l.mu.Lock()
	defer l.mu.Unlock()

	venueID := f.Venue.ID
	strategyID := core.NilID
	if f.Strategy != nil {
		strategyID = f.Strategy.ID
	}
	base := f.Instrument.BaseAsset
	quote := f.Instrument.QuoteAsset
	sign := f.Side.Sign()
	signedBaseQty := f.Quantity.Mul(core.NewDecimalFromFloat(float64(sign)))
	notional := f.Price.Mul(f.Quantity)

	strategyBase := AccountKey{Owner: OwnerStrategy, Strategy: strategyID, Venue: venueID, Asset: base.ID, Kind: AccountSpot}
	venueBase := AccountKey{Owner: OwnerVenue, Venue: venueID, Asset: base.ID, Kind: AccountSpot}
	strategyQuote := AccountKey{Owner: OwnerStrategy, Strategy: strategyID, Venue: venueID, Asset: quote.ID, Kind: AccountSpot}
	venueQuote := AccountKey{Owner: OwnerVenue, Venue: venueID, Asset: quote.ID, Kind: AccountSpot}

	var transfers []Transfer
	if sign > 0 {
		// Buy: strategy receives base, pays quote.
		transfers = append(transfers, l.post(f.EventTime, venueBase, strategyBase, base.ID, f.Quantity, TransferTrade))
		transfers = append(transfers, l.post(f.EventTime, strategyQuote, venueQuote, quote.ID, notional, TransferTrade))
	} else {
		// Sell: strategy gives up base, receives quote.
		transfers = append(transfers, l.post(f.EventTime, strategyBase, venueBase, base.ID, f.Quantity, TransferTrade))
		transfers = append(transfers, l.post(f.EventTime, venueQuote, strategyQuote, quote.ID, notional, TransferTrade))
	}

	if f.Commission.IsPositive() && f.CommissionAsset != nil {
		strategyComm := AccountKey{Owner: OwnerStrategy, Strategy: strategyID, Venue: venueID, Asset: f.CommissionAsset.ID, Kind: AccountSpot}
		venueComm := AccountKey{Owner: OwnerVenue, Venue: venueID, Asset: f.CommissionAsset.ID, Kind: AccountSpot}
		transfers = append(transfers, l.post(f.EventTime, strategyComm, venueComm, f.CommissionAsset.ID, f.Commission, TransferCommission))
	}

	pkey := positionKey{strategy: strategyID, instrument: f.Instrument.ID}
	pos, ok := l.positions[pkey]
	if !ok {
		pos = &Position{Strategy: strategyID, Instrument: f.Instrument}
		l.positions[pkey] = pos
	}
	realized := pos.applyTrade(signedBaseQty, f.Price)
	if realized.IsPositive() || realized.IsNegative() {
		equity := AccountKey{Owner: OwnerStrategy, Strategy: strategyID, Venue: venueID, Asset: quote.ID, Kind: AccountEquity}
		strategyQuoteAcc := strategyQuote
		if realized.IsPositive() {
			transfers = append(transfers, l.post(f.EventTime, equity, strategyQuoteAcc, quote.ID, realized, TransferRealizedPnL))
		} else {
			transfers = append(transfers, l.post(f.EventTime, strategyQuoteAcc, equity, quote.ID, realized.Neg(), TransferRealizedPnL))
		}
	}

	return PostedFill{Fill: f, Transfers: transfers, Position: *pos, RealizedPnL: realized}
}

// Reconcile applies an exchange-reported balance. If the delta versus the
// ledger's projected state is within tolerance, no transfer is posted
//. If it exceeds tolerance, a Discrepancy is emitted
// and trading is halted for (venue, asset) until cleared; the
// internal projection is never silently overwritten.
func (l *Ledger) Reconcile(u AccountUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := AccountKey{Owner: OwnerVenue, Venue: u.Venue.ID, Asset: u.Asset.ID, Kind: u.Kind}
	projected := l.account(key).Balance
	delta := u.Balance.Sub(projected)

	if delta.Abs().LessThanOrEqual(l.tolerance) {
		return
	}

	// Beyond tolerance: halt trading for this (venue, asset) and surface a
	// discrepancy instead of silently correcting, regardless of delta sign.
	l.halted[haltKey{u.Venue.ID, u.Asset.ID}] = true
	disc := Discrepancy{
		EventTime: u.EventTime,
		Venue:     u.Venue,
		Asset:     u.Asset,
		Projected: projected,
		Reported:  u.Balance,
		Delta:     delta,
	}
	select {
	case l.discrepancies <- disc:
	default:
		l.log.Warn().Msg("discrepancy channel full, dropping event (still halted)")
	}
}

// Seed sets a (venue, asset) account's starting balance unconditionally,
// crediting it from equity with no delta/tolerance check and no halt: it
// is for establishing a fresh ledger's opening balances (InitialAccountUpdate),
// as opposed to Reconcile's job of catching drift in an already-running
// ledger (ReconcileAccountUpdate). Calling Reconcile instead for a brand
// new account would halt trading immediately, since the full balance
// always exceeds tolerance against a zero starting projection.
func (l *Ledger) Seed(u AccountUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := AccountKey{Owner: OwnerVenue, Venue: u.Venue.ID, Asset: u.Asset.ID, Kind: u.Kind}
	projected := l.account(key).Balance
	delta := u.Balance.Sub(projected)
	if delta.IsZero() {
		return
	}
	if delta.IsPositive() {
		l.post(u.EventTime, AccountKey{Owner: OwnerVenue, Venue: u.Venue.ID, Asset: u.Asset.ID, Kind: AccountEquity},
			key, u.Asset.ID, delta, TransferRebalance)
		return
	}
	l.post(u.EventTime, key, AccountKey{Owner: OwnerVenue, Venue: u.Venue.ID, Asset: u.Asset.ID, Kind: AccountEquity},
		u.Asset.ID, delta.Neg(), TransferRebalance)
}

// IsHalted reports whether trading is currently halted for (venue, asset)
// pending human intervention.
func (l *Ledger) IsHalted(venue, asset core.ID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.halted[haltKey{venue, asset}]
}

// ClearHalt lifts a trading halt once a human has reconciled the
// discrepancy out of band.
func (l *Ledger) ClearHalt(venue, asset core.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.halted, haltKey{venue, asset})
}

// AssetBalance returns the venue's spot balance of an asset.
func (l *Ledger) AssetBalance(venue, asset core.ID) core.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.account(AccountKey{Owner: OwnerVenue, Venue: venue, Asset: asset, Kind: AccountSpot}).Balance
}

// MarginBalance returns the venue's margin balance of an asset.
func (l *Ledger) MarginBalance(venue, asset core.ID) core.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.account(AccountKey{Owner: OwnerVenue, Venue: venue, Asset: asset, Kind: AccountMargin}).Balance
}

// UpdateTickMid records the latest mid-price for every open position on an
// instrument, feeding UnrealizedPnL queries.
func (l *Ledger) UpdateTickMid(instrument core.ID, mid core.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, pos := range l.positions {
		if key.instrument == instrument {
			pos.UpdateMid(mid)
		}
	}
}

// Position returns the current position for (strategy, instrument), or the
// zero Position if none exists.
func (l *Ledger) Position(strategy, instrument core.ID) Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.positions[positionKey{strategy, instrument}]; ok {
		return *p
	}
	return Position{Strategy: strategy}
}

// PositionNotional returns the absolute notional value of a position.
func (l *Ledger) PositionNotional(strategy, instrument core.ID) core.Decimal {
	p := l.Position(strategy, instrument)
	return p.Notional()
}

// AllPositions returns every currently tracked position.
func (l *Ledger) AllPositions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// RealizedPnL returns the realized PnL of a position.
func (l *Ledger) RealizedPnL(strategy, instrument core.ID) core.Decimal {
	return l.Position(strategy, instrument).RealizedPnL
}

// UnrealizedPnL returns the unrealized PnL of a position.
func (l *Ledger) UnrealizedPnL(strategy, instrument core.ID) core.Decimal {
	return l.Position(strategy, instrument).UnrealizedPnL()
}

// TotalPnL returns realized plus unrealized PnL for a position.
func (l *Ledger) TotalPnL(strategy, instrument core.ID) core.Decimal {
	p := l.Position(strategy, instrument)
	return p.RealizedPnL.Add(p.UnrealizedPnL())
}

// Transfers returns a copy of the full append-only transfer log, used by
// tests asserting the debit=credit invariant.
func (l *Ledger) Transfers() []Transfer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}
