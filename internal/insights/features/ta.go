package features

import (
	"context"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

func isNaN(f float64) bool { return f != f }

func lastValid(series []float64) (float64, bool) {
	if len(series) == 0 || isNaN(series[len(series)-1]) {
		return 0, false
	}
	return series[len(series)-1], true
}

// RSIID returns the feature id for the RSI of Close over length samples.
func RSIID(length int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("ta.rsi[%d]", length))
}

// NewRSI builds a Relative Strength Index feature over Close, using
// go-talib the same way trader-go/pkg/formulas/rsi.go does (including the
// length+1 warm-up guard and last-value-or-nil pattern).
func NewRSI(length int) insights.Feature {
	id := RSIID(length)
	return insights.NewDerivedFeature(id, []insights.FeatureID{Close}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		closes := state.Intervals(instrument.ID, Close, length+1)
		if len(closes) < length+1 {
			return core.Zero, false
		}
		v, ok := lastValid(talib.Rsi(toFloats(closes), length))
		if !ok {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(v), true
	})
}

// ADXID returns the feature id for the Average Directional Index over
// length samples.
func ADXID(length int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("ta.adx[%d]", length))
}

// NewADX builds an ADX feature over High/Low/Close, measuring trend
// strength irrespective of direction.
func NewADX(length int) insights.Feature {
	id := ADXID(length)
	inputs := []insights.FeatureID{High, Low, Close}
	warmup := length*2 + 1
	return insights.NewDerivedFeature(id, inputs, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		highs := state.Intervals(instrument.ID, High, warmup)
		lows := state.Intervals(instrument.ID, Low, warmup)
		closes := state.Intervals(instrument.ID, Close, warmup)
		if len(highs) < warmup || len(lows) < warmup || len(closes) < warmup {
			return core.Zero, false
		}
		v, ok := lastValid(talib.Adx(toFloats(highs), toFloats(lows), toFloats(closes), length))
		if !ok {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(v), true
	})
}

// CMFID returns the feature id for the Chaikin Money Flow over length
// samples.
func CMFID(length int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("ta.cmf[%d]", length))
}

// NewChaikinMoneyFlow builds a Chaikin Money Flow feature: sum of
// money-flow-volume over length bars divided by sum of volume, a
// volume-weighted measure of accumulation/distribution pressure. go-talib
// has no direct CMF primitive, so this is composed from ADOSC-adjacent raw
// series the same way BollingerPosition is composed from BBands
// (trader/pkg/formulas/bollinger.go): read the raw OHLCV series and fold
// them directly rather than reach for a library that doesn't expose it.
func NewChaikinMoneyFlow(length int) insights.Feature {
	id := CMFID(length)
	inputs := []insights.FeatureID{High, Low, Close, Volume}
	return insights.NewDerivedFeature(id, inputs, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		highs := toFloats(state.Intervals(instrument.ID, High, length))
		lows := toFloats(state.Intervals(instrument.ID, Low, length))
		closes := toFloats(state.Intervals(instrument.ID, Close, length))
		vols := toFloats(state.Intervals(instrument.ID, Volume, length))
		if len(highs) < length || len(lows) < length || len(closes) < length || len(vols) < length {
			return core.Zero, false
		}
		var mfvSum, volSum float64
		for i := range highs {
			rng := highs[i] - lows[i]
			if rng == 0 {
				continue
			}
			mfMultiplier := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
			mfvSum += mfMultiplier * vols[i]
			volSum += vols[i]
		}
		if volSum == 0 {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(mfvSum / volSum), true
	})
}

// ChaikinOscillatorID returns the feature id for the Chaikin Oscillator
// (fast EMA - slow EMA of the Accumulation/Distribution line).
func ChaikinOscillatorID(fast, slow int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("ta.chaikin_osc[%d,%d]", fast, slow))
}

// NewChaikinOscillator builds the Chaikin Oscillator using go-talib's AD
// and Ema primitives over the accumulation/distribution line, mirroring how
// talib.Ema is layered on top of a derived series in trader/pkg/formulas/ema.go.
func NewChaikinOscillator(fast, slow int) insights.Feature {
	id := ChaikinOscillatorID(fast, slow)
	inputs := []insights.FeatureID{High, Low, Close, Volume}
	warmup := slow + fast
	return insights.NewDerivedFeature(id, inputs, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		highs := toFloats(state.Intervals(instrument.ID, High, warmup))
		lows := toFloats(state.Intervals(instrument.ID, Low, warmup))
		closes := toFloats(state.Intervals(instrument.ID, Close, warmup))
		vols := toFloats(state.Intervals(instrument.ID, Volume, warmup))
		if len(highs) < warmup || len(lows) < warmup || len(closes) < warmup || len(vols) < warmup {
			return core.Zero, false
		}
		ad := talib.Ad(highs, lows, closes, vols)
		fastEMA := talib.Ema(ad, fast)
		slowEMA := talib.Ema(ad, slow)
		fv, ok1 := lastValid(fastEMA)
		sv, ok2 := lastValid(slowEMA)
		if !ok1 || !ok2 {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(fv - sv), true
	})
}

// SignalStrengthID returns the feature id for a composite signal-strength
// score in [-1, 1] derived from RSI distance from neutral.
func SignalStrengthID(rsiLength int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("ta.signal_strength[%d]", rsiLength))
}

// NewSignalStrength folds an RSI reading into a [-1, 1] conviction score:
// 0 at RSI 50 (neutral), +1 at RSI 100 (maximally overbought -> short
// conviction is the strategy's call, this feature only reports magnitude
// and direction of the extremity), -1 at RSI 0.
func NewSignalStrength(rsiLength int) insights.Feature {
	rsiID := RSIID(rsiLength)
	id := SignalStrengthID(rsiLength)
	return insights.NewDerivedFeature(id, []insights.FeatureID{rsiID}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		rsi, _, ok := state.Last(instrument.ID, rsiID)
		if !ok {
			return core.Zero, false
		}
		rsiFloat, _ := rsi.Float64()
		strength := (rsiFloat - 50.0) / 50.0
		if strength > 1 {
			strength = 1
		}
		if strength < -1 {
			strength = -1
		}
		return core.NewDecimalFromFloat(strength), true
	})
}
