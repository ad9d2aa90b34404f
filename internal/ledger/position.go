package ledger

import "github.com/arkin-go/core/internal/core"

// Position is a derived view: for a (strategy, instrument) pair, the signed
// net quantity, average entry price, and realized/unrealized PnL.
type Position struct {
	Strategy     core.ID
	Instrument   *core.Instrument
	Quantity     core.Decimal // signed: positive = long, negative = short
	AvgEntry     core.Decimal
	RealizedPnL  core.Decimal
	lastMid      core.Decimal
	haveLastMid  bool
}

// applyTrade folds a fill into the position using weighted-average entry on
// same-side additions, and realizes PnL on opposing trades.
//
// signedQty is positive for buys, negative for sells, i.e. side.Sign() *
// quantity. PostFill passes side.Sign() * quantity for every instrument
// kind, inverse perpetuals included.
func (p *Position) applyTrade(signedQty, price core.Decimal) (realized core.Decimal) {
	realized = core.Zero
	switch {
	case p.Quantity.IsZero() || sameSign(p.Quantity, signedQty):
		// Same-side addition (or opening a flat position): weighted-average
		// entry price.
		newQty := p.Quantity.Add(signedQty)
		if newQty.IsZero() {
			p.AvgEntry = core.Zero
		} else {
			totalCost := p.AvgEntry.Mul(p.Quantity).Add(price.Mul(signedQty))
			p.AvgEntry = totalCost.Div(newQty)
		}
		p.Quantity = newQty
	default:
		// Opposing trade: realizes PnL on the closed portion, possibly
		// flipping side if the fill overshoots the existing position.
		closingQty := signedQty.Abs()
		if closingQty.GreaterThan(p.Quantity.Abs()) {
			closingQty = p.Quantity.Abs()
		}
		// PnL sign: long position closed by a sell realizes (price - entry) * qty;
		// short position closed by a buy realizes (entry - price) * qty.
		if p.Quantity.IsPositive() {
			realized = price.Sub(p.AvgEntry).Mul(closingQty)
		} else {
			realized = p.AvgEntry.Sub(price).Mul(closingQty)
		}
		p.RealizedPnL = p.RealizedPnL.Add(realized)

		newQty := p.Quantity.Add(signedQty)
		p.Quantity = newQty
		if newQty.IsZero() {
			p.AvgEntry = core.Zero
		} else if !sameSign(p.Quantity.Sub(signedQty), newQty) {
			// Position flipped sides: the remainder opens at the fill price.
			p.AvgEntry = price
		}
	}
	return realized
}

// UnrealizedPnL uses the most recent Tick mid-price for the position's
// instrument.
func (p *Position) UnrealizedPnL() core.Decimal {
	if !p.haveLastMid || p.Quantity.IsZero() {
		return core.Zero
	}
	return p.lastMid.Sub(p.AvgEntry).Mul(p.Quantity)
}

// UpdateMid records the latest observed mid-price for unrealized PnL.
func (p *Position) UpdateMid(mid core.Decimal) {
	p.lastMid = mid
	p.haveLastMid = true
}

// Notional is the position's absolute notional value at the last observed
// mid-price.
func (p *Position) Notional() core.Decimal {
	if !p.haveLastMid {
		return core.Zero
	}
	return p.Quantity.Abs().Mul(p.lastMid)
}

func sameSign(a, b core.Decimal) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return a.IsPositive() == b.IsPositive()
}
