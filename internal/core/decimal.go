// Package core provides the fixed-precision numeric type, identifiers,
// clock abstraction, and reference entity types shared across the runtime.
package core

import "github.com/shopspring/decimal"

// Decimal is the fixed-precision numeric type used for every price,
// quantity, notional, and commission in the runtime. Floating point is
// reserved for feature math and ML-inference code paths (internal/insights)
// and must never leak into order or ledger fields.
type Decimal = decimal.Decimal

// Zero is the additive identity, exported so callers don't need to import
// shopspring/decimal directly just to build a zero value.
var Zero = decimal.Zero

// NewDecimalFromFloat builds a Decimal from a float64. Only feature math and
// ingestion boundaries (where venues hand us floats over the wire) should
// call this; accounting code should carry Decimal end to end.
func NewDecimalFromFloat(f float64) Decimal {
	return decimal.NewFromFloat(f)
}

// RoundToStep rounds v down (toward negative infinity) to a multiple of step
// (e.g. tick-size or lot-size), the truncation semantics used throughout
// order sizing.
func RoundToStep(v, step Decimal) Decimal {
	if step.IsZero() {
		return v
	}
	quotient := v.Div(step).Floor()
	return quotient.Mul(step)
}

// RoundToStepNearest rounds v to the nearest multiple of step, used for
// price rounding where floor-only truncation would bias quotes.
func RoundToStepNearest(v, step Decimal) Decimal {
	if step.IsZero() {
		return v
	}
	quotient := v.DivRound(step, 0)
	return quotient.Mul(step)
}
