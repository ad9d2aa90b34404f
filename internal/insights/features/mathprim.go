package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

func toFloats(ds []core.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i], _ = d.Float64()
	}
	return out
}

// LogReturnID returns the feature id for the log-return of input over one
// step.
func LogReturnID(input insights.FeatureID) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("math.log_return[%s]", input))
}

// NewLogReturn builds a feature computing ln(x_t / x_{t-1}) off the last
// two values of input.
func NewLogReturn(input insights.FeatureID) insights.Feature {
	id := LogReturnID(input)
	return insights.NewDerivedFeature(id, []insights.FeatureID{input}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		vals := state.Intervals(instrument.ID, input, 2)
		if len(vals) < 2 {
			return core.Zero, false
		}
		prev, _ := vals[0].Float64()
		cur, _ := vals[1].Float64()
		if prev <= 0 || cur <= 0 {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(math.Log(cur / prev)), true
	})
}

// RollingStdID returns the feature id for the rolling standard deviation of
// input over window samples.
func RollingStdID(input insights.FeatureID, window int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("math.rolling_std[%s,%d]", input, window))
}

// NewRollingStd builds a feature computing the sample standard deviation
// of the last window values of input.
func NewRollingStd(input insights.FeatureID, window int) insights.Feature {
	id := RollingStdID(input, window)
	return insights.NewDerivedFeature(id, []insights.FeatureID{input}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		vals := state.Intervals(instrument.ID, input, window)
		if len(vals) < window {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(stat.StdDev(toFloats(vals), nil)), true
	})
}

// RollingSumID returns the feature id for the rolling sum of input over
// window samples.
func RollingSumID(input insights.FeatureID, window int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("math.rolling_sum[%s,%d]", input, window))
}

// NewRollingSum builds a feature computing the sum of the last window
// values of input.
func NewRollingSum(input insights.FeatureID, window int) insights.Feature {
	id := RollingSumID(input, window)
	return insights.NewDerivedFeature(id, []insights.FeatureID{input}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		vals := state.Intervals(instrument.ID, input, window)
		if len(vals) < window {
			return core.Zero, false
		}
		sum := 0.0
		for _, f := range toFloats(vals) {
			sum += f
		}
		return core.NewDecimalFromFloat(sum), true
	})
}

// MovingAverageID returns the feature id for the simple moving average of
// input over window samples.
func MovingAverageID(input insights.FeatureID, window int) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("math.sma[%s,%d]", input, window))
}

// NewMovingAverage builds a feature computing the simple moving average of
// the last window values of input (gonum/stat.Mean, mirroring
// trader-go/pkg/formulas/stats.go's Mean).
func NewMovingAverage(input insights.FeatureID, window int) insights.Feature {
	id := MovingAverageID(input, window)
	return insights.NewDerivedFeature(id, []insights.FeatureID{input}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		vals := state.Intervals(instrument.ID, input, window)
		if len(vals) < window {
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(stat.Mean(toFloats(vals), nil)), true
	})
}
