package features

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

// quantileData is the fitted-scaler wire format shared by RobustScaler and
// QuantileTransformer, ported from arkin-insights/src/features/normalize.rs's
// QuantileData/QuantileEntryData.
type quantileData struct {
	Levels []float64          `json:"levels"`
	Data   []quantileEntry    `json:"data"`
}

type quantileEntry struct {
	InstrumentID core.ID   `json:"instrument_id"`
	FeatureID    string    `json:"feature_id"`
	Quantiles    []float64 `json:"quantiles"`
	Median       float64   `json:"median"`
	IQR          float64   `json:"iqr"`
}

func loadQuantileData(path string) (*quantileData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scaler file: %w", err)
	}
	defer f.Close()
	var data quantileData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode scaler json: %w", err)
	}
	return &data, nil
}

type scalerKey struct {
	instrument core.ID
	feature    insights.FeatureID
}

// normalConsistencyFactor is the ratio between the normal distribution's
// IQR and its standard deviation (2*Phi^-1(0.75)), used to compare a
// robust-scaled value against a standard normal one.
const normalConsistencyFactor = 1.3489795003921636

// RobustScaler centers and scales each (instrument, feature) series by its
// fitted median and IQR, ported from normalize.rs's RobustScaler.
type RobustScaler struct {
	data map[scalerKey]struct{ median, iqr float64 }
}

// LoadRobustScaler reads a fitted scaler from a JSON file.
func LoadRobustScaler(path string) (*RobustScaler, error) {
	data, err := loadQuantileData(path)
	if err != nil {
		return nil, err
	}
	s := &RobustScaler{data: make(map[scalerKey]struct{ median, iqr float64 }, len(data.Data))}
	for _, e := range data.Data {
		s.data[scalerKey{e.InstrumentID, insights.FeatureID(e.FeatureID)}] = struct{ median, iqr float64 }{e.Median, e.IQR}
	}
	return s, nil
}

// Transform applies (x - median) / iqr for the fitted (instrument,
// feature) pair. ok is false if no fit exists for that pair.
func (s *RobustScaler) Transform(instrument core.ID, feature insights.FeatureID, x float64) (float64, bool) {
	fit, ok := s.data[scalerKey{instrument, feature}]
	if !ok || fit.iqr == 0 {
		return 0, false
	}
	return (x - fit.median) / fit.iqr, true
}

// InverseTransform reverses Transform.
func (s *RobustScaler) InverseTransform(instrument core.ID, feature insights.FeatureID, x float64) (float64, bool) {
	fit, ok := s.data[scalerKey{instrument, feature}]
	if !ok {
		return 0, false
	}
	return x*fit.iqr + fit.median, true
}

// TransformNormal rescales an already-quantile-transformed (standard
// normal) value by the fixed IQR/sigma ratio, used by the combined
// quantile-then-robust method.
func (s *RobustScaler) TransformNormal(x float64) float64 { return x / normalConsistencyFactor }

// InverseTransformNormal reverses TransformNormal.
func (s *RobustScaler) InverseTransformNormal(x float64) float64 { return x * normalConsistencyFactor }

// OutputDistribution selects QuantileTransformer's output domain.
type OutputDistribution int

const (
	DistributionUniform OutputDistribution = iota
	DistributionNormal
)

// QuantileTransformer maps each (instrument, feature) series onto a
// uniform or standard-normal distribution by interpolating against fitted
// quantiles, ported from normalize.rs's QuantileTransformer /
// quantile_ts.rs's interp. Forward and inverse transforms are exact
// round-trip inverses of each other (SPEC_FULL "Quantile transformer
// round-trip").
type QuantileTransformer struct {
	quantiles  map[scalerKey][]float64
	references []float64
	output     OutputDistribution
	normal     distuv.Normal
}

// LoadQuantileTransformer reads a fitted transformer from a JSON file.
func LoadQuantileTransformer(path string, output OutputDistribution) (*QuantileTransformer, error) {
	data, err := loadQuantileData(path)
	if err != nil {
		return nil, err
	}
	t := &QuantileTransformer{
		quantiles:  make(map[scalerKey][]float64, len(data.Data)),
		references: data.Levels,
		output:     output,
		normal:     distuv.Normal{Mu: 0, Sigma: 1},
	}
	for _, e := range data.Data {
		t.quantiles[scalerKey{e.InstrumentID, insights.FeatureID(e.FeatureID)}] = e.Quantiles
	}
	return t, nil
}

// interp performs the same clamped linear interpolation as
// quantile_ts.rs's interp: out-of-range x clamps to the nearest endpoint.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	i := sort.Search(n, func(i int) bool { return xp[i] > x }) - 1
	x0, x1 := xp[i], xp[i+1]
	f0, f1 := fp[i], fp[i+1]
	return f0 + (x-x0)*(f1-f0)/(x1-x0)
}

// Transform maps x through the fitted quantiles for (instrument, feature).
// ok is false if no fit exists for that pair or x is NaN.
func (t *QuantileTransformer) Transform(instrument core.ID, feature insights.FeatureID, x float64) (float64, bool) {
	if isNaN(x) {
		return 0, false
	}
	quantiles, ok := t.quantiles[scalerKey{instrument, feature}]
	if !ok {
		return 0, false
	}

	forward := interp(x, quantiles, t.references)

	quantilesRev := make([]float64, len(quantiles))
	referencesRev := make([]float64, len(t.references))
	for i, v := range quantiles {
		quantilesRev[len(quantiles)-1-i] = -v
	}
	for i, v := range t.references {
		referencesRev[len(t.references)-1-i] = -v
	}
	reverse := interp(-x, quantilesRev, referencesRev)

	p := 0.5 * (forward - reverse)

	switch t.output {
	case DistributionNormal:
		clipMin := t.normal.Quantile(1e-7)
		clipMax := t.normal.Quantile(1 - 1e-7)
		v := t.normal.Quantile(p)
		if v < clipMin {
			v = clipMin
		}
		if v > clipMax {
			v = clipMax
		}
		return v, true
	default:
		return p, true
	}
}

// InverseTransform reverses Transform.
func (t *QuantileTransformer) InverseTransform(instrument core.ID, feature insights.FeatureID, y float64) (float64, bool) {
	quantiles, ok := t.quantiles[scalerKey{instrument, feature}]
	if !ok {
		return 0, false
	}
	p := y
	if t.output == DistributionNormal {
		p = t.normal.CDF(y)
	}
	return interp(p, t.references, quantiles), true
}

// NormalizeMethod selects how NewNormalize composes QuantileTransformer
// and RobustScaler.
type NormalizeMethod int

const (
	MethodQuantile NormalizeMethod = iota
	MethodRobust
	MethodQuantileRobust
)

// NewNormalize builds a derived feature that reads `input`'s last value
// and rescales it per method, writing the result under its own feature id.
func NewNormalize(id insights.FeatureID, input insights.FeatureID, transformer *QuantileTransformer, scaler *RobustScaler, method NormalizeMethod) insights.Feature {
	return insights.NewDerivedFeature(id, []insights.FeatureID{input}, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		raw, _, ok := state.Last(instrument.ID, input)
		if !ok {
			return core.Zero, false
		}
		x, _ := raw.Float64()
		if isNaN(x) {
			return core.Zero, false
		}

		var out float64
		switch method {
		case MethodRobust:
			v, ok := scaler.Transform(instrument.ID, input, x)
			if !ok {
				return core.Zero, false
			}
			out = v
		case MethodQuantileRobust:
			v, ok := transformer.Transform(instrument.ID, input, x)
			if !ok {
				return core.Zero, false
			}
			out = scaler.TransformNormal(v)
		default:
			v, ok := transformer.Transform(instrument.ID, input, x)
			if !ok {
				return core.Zero, false
			}
			out = v
		}
		return core.NewDecimalFromFloat(out), true
	})
}
