package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

// The fitted quantiles/reference levels are chosen point-symmetric about the
// origin (quantiles) and about 0.5 (references) so Transform's forward/reverse
// symmetrization collapses to the plain interpolation and InverseTransform
// exactly undoes it.
func symmetricTransformer(output OutputDistribution) (*QuantileTransformer, core.ID, insights.FeatureID) {
	instrument := core.NewID()
	feature := insights.FeatureID("mid_return")
	t := &QuantileTransformer{
		quantiles:  map[scalerKey][]float64{{instrument, feature}: {-1.0, 0.0, 1.0}},
		references: []float64{0.0, 0.5, 1.0},
		output:     output,
	}
	return t, instrument, feature
}

// Scenario F: forward then inverse transform must round-trip within 1e-6.
func TestScenarioQuantileTransformRoundTrip(t *testing.T) {
	transformer, instrument, feature := symmetricTransformer(DistributionUniform)

	for _, x := range []float64{-0.9, -0.3, 0, 0.3, 0.7} {
		p, ok := transformer.Transform(instrument, feature, x)
		assert.True(t, ok)

		back, ok := transformer.InverseTransform(instrument, feature, p)
		assert.True(t, ok)
		assert.InDelta(t, x, back, 1e-6, "round-trip mismatch for x=%v", x)
	}
}

func TestQuantileTransformerUnknownPairReturnsNotOK(t *testing.T) {
	transformer, _, feature := symmetricTransformer(DistributionUniform)

	_, ok := transformer.Transform(core.NewID(), feature, 0.1)
	assert.False(t, ok)

	_, ok = transformer.InverseTransform(core.NewID(), feature, 0.1)
	assert.False(t, ok)
}

func TestQuantileTransformerNaNInputRejected(t *testing.T) {
	transformer, instrument, feature := symmetricTransformer(DistributionUniform)

	_, ok := transformer.Transform(instrument, feature, math.NaN())
	assert.False(t, ok)
}

func TestQuantileTransformerClampsOutOfRangeInput(t *testing.T) {
	transformer, instrument, feature := symmetricTransformer(DistributionUniform)

	p, ok := transformer.Transform(instrument, feature, 5.0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, p)

	p, ok = transformer.Transform(instrument, feature, -5.0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, p)
}
