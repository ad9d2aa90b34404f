package features

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arkin-go/core/internal/core"
)

// MeanVarianceOptimizer computes Markowitz mean-variance optimal weights
// across a fixed instrument universe: w = Sigma^-1 * mu / riskAversion,
// then rescaled so the sum of absolute weights is at most 1. This is an
// alternative to the single-signal capital-per-signal sizing in
// internal/allocation (grounded on
// original_source/arkin-allocation/src/allocation_optimizers/signal.rs);
// a portfolio-level strategy can use it instead when it wants to size
// several correlated instruments jointly rather than signal-by-signal.
//
// Covariance estimation uses gonum/stat.CovarianceMatrix and the solve uses
// gonum/mat's Cholesky decomposition (trader-go/pkg/formulas/stats.go
// already depends on gonum/stat for Mean/StdDev/Covariance) extended to its
// matrix counterpart for the portfolio case that a single-series formula
// can't express.
type MeanVarianceOptimizer struct {
	riskAversion float64
}

// NewMeanVarianceOptimizer builds an optimizer with the given risk
// aversion coefficient (higher = more conservative sizing).
func NewMeanVarianceOptimizer(riskAversion float64) *MeanVarianceOptimizer {
	if riskAversion <= 0 {
		riskAversion = 1
	}
	return &MeanVarianceOptimizer{riskAversion: riskAversion}
}

// Optimize takes, for each instrument in a fixed order, a history of
// periodic returns (equal length across instruments) and an expected
// return estimate, and returns portfolio weights in the same order. ok is
// false if the covariance matrix is singular (e.g. too little history, or
// perfectly collinear return series).
func (m *MeanVarianceOptimizer) Optimize(returnHistories [][]float64, expectedReturns []core.Decimal) ([]core.Decimal, bool) {
	n := len(returnHistories)
	if n == 0 || n != len(expectedReturns) {
		return nil, false
	}

	periods := len(returnHistories[0])
	data := mat.NewDense(periods, n, nil)
	for j, series := range returnHistories {
		if len(series) != periods {
			return nil, false
		}
		for i, v := range series {
			data.Set(i, j, v)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	mu := make([]float64, n)
	for i, d := range expectedReturns {
		mu[i], _ = d.Float64()
	}
	muVec := mat.NewVecDense(n, mu)

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		return nil, false
	}
	var raw mat.VecDense
	if err := chol.SolveVecTo(&raw, muVec); err != nil {
		return nil, false
	}

	weights := make([]float64, n)
	sumAbs := 0.0
	for i := 0; i < n; i++ {
		w := raw.AtVec(i) / m.riskAversion
		weights[i] = w
		sumAbs += abs(w)
	}
	if sumAbs > 1 {
		for i := range weights {
			weights[i] /= sumAbs
		}
	}

	out := make([]core.Decimal, n)
	for i, w := range weights {
		out[i] = core.NewDecimalFromFloat(w)
	}
	return out, true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
