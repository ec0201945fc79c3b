package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/shahhaard47/latenteq/domain/core"
)

// Scenario is the generative truth for one study: a latent-variable model
// with fixed loadings, free factor means and covariance, and per-variable
// residual noise. The same scenario drives the simulator and seeds both
// fitters, so every estimate in a report can be read against the value that
// actually generated the data.
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Default run parameters, overridable per request.
	N    int   `json:"n" yaml:"n"`
	Seed int64 `json:"seed" yaml:"seed"`

	// Observed variable names, one per wave (y1..yK).
	Columns []string `json:"columns" yaml:"columns"`

	// Latent structure. Loadings is K rows (one per observed variable) by
	// q columns (one per factor) and is fixed, not estimated.
	FactorNames []string    `json:"factor_names" yaml:"factor_names"`
	Loadings    [][]float64 `json:"loadings" yaml:"loadings"`
	FactorMeans []float64   `json:"factor_means" yaml:"factor_means"`
	FactorCov   [][]float64 `json:"factor_cov" yaml:"factor_cov"`

	// Residual standard deviation per observed variable (heteroscedastic).
	ResidualSD []float64 `json:"residual_sd" yaml:"residual_sd"`
}

// Waves returns K, the number of observed variables per unit.
func (s *Scenario) Waves() int {
	return len(s.Columns)
}

// Factors returns q, the number of latent variables.
func (s *Scenario) Factors() int {
	return len(s.FactorNames)
}

// Validate checks every dimension and the positive definiteness of the
// latent covariance. Violations are configuration errors raised before any
// sampling or fitting happens.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return core.NewValidationError("name", "scenario needs a name")
	}
	if s.N < 2 {
		return fmt.Errorf("%w: need at least 2 units, got %d", core.ErrInsufficientData, s.N)
	}

	k := s.Waves()
	q := s.Factors()
	if k == 0 {
		return core.NewValidationError("columns", "scenario needs at least one observed variable")
	}
	if q == 0 {
		return core.NewValidationError("factor_names", "scenario needs at least one factor")
	}

	if len(s.Loadings) != k {
		return core.NewDimensionError("loading matrix rows", k, len(s.Loadings))
	}
	for i, row := range s.Loadings {
		if len(row) != q {
			return core.NewDimensionError(fmt.Sprintf("loading row %d", i), q, len(row))
		}
	}
	if !fullColumnRank(s.Loadings, k, q) {
		return core.NewValidationError("loadings", "matrix must have full column rank")
	}

	if len(s.FactorMeans) != q {
		return core.NewDimensionError("factor means", q, len(s.FactorMeans))
	}
	if len(s.FactorCov) != q {
		return core.NewDimensionError("factor covariance rows", q, len(s.FactorCov))
	}
	for i, row := range s.FactorCov {
		if len(row) != q {
			return core.NewDimensionError(fmt.Sprintf("factor covariance row %d", i), q, len(row))
		}
	}
	for i := 0; i < q; i++ {
		for j := i + 1; j < q; j++ {
			if s.FactorCov[i][j] != s.FactorCov[j][i] {
				return fmt.Errorf("%w: factor covariance asymmetric at (%d,%d)",
					core.ErrNotPositiveDefinite, i, j)
			}
		}
	}

	if len(s.ResidualSD) != k {
		return core.NewDimensionError("residual sds", k, len(s.ResidualSD))
	}
	for i, sd := range s.ResidualSD {
		if sd < 0 {
			return fmt.Errorf("%w: residual sd for %s is %v", core.ErrNegativeVariance, s.Columns[i], sd)
		}
	}

	if !isPositiveDefinite(s.FactorCov) {
		return fmt.Errorf("%w: factor covariance", core.ErrNotPositiveDefinite)
	}

	return nil
}

// isPositiveDefinite reports whether a symmetric matrix admits a Cholesky
// factorization.
func isPositiveDefinite(m [][]float64) bool {
	q := len(m)
	sym := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			sym.SetSym(i, j, m[i][j])
		}
	}
	var chol mat.Cholesky
	return chol.Factorize(sym)
}

// TheoreticalMean returns the generative mean of column k: the k-th loading
// row times the factor means.
func (s *Scenario) TheoreticalMean(k int) float64 {
	var mean float64
	for j := 0; j < s.Factors(); j++ {
		mean += s.Loadings[k][j] * s.FactorMeans[j]
	}
	return mean
}

// TheoreticalVariance returns the generative variance of column k:
// lambda_k' Psi lambda_k plus the residual variance.
func (s *Scenario) TheoreticalVariance(k int) float64 {
	q := s.Factors()
	variance := s.ResidualSD[k] * s.ResidualSD[k]
	for a := 0; a < q; a++ {
		for b := 0; b < q; b++ {
			variance += s.Loadings[k][a] * s.FactorCov[a][b] * s.Loadings[k][b]
		}
	}
	return variance
}

// LatentSpec derives the latent-variable model specification that mirrors
// this scenario: same columns, same fixed loadings.
func (s *Scenario) LatentSpec() LatentSpec {
	return LatentSpec{
		Columns:     s.Columns,
		FactorNames: s.FactorNames,
		Loadings:    s.Loadings,
	}
}

// MixedSpec derives the mixed-model specification that mirrors this
// scenario. The fixed-effect and random-effect designs are both the loading
// matrix, which is exactly the constraint that makes the two fits agree.
func (s *Scenario) MixedSpec() MixedSpec {
	return MixedSpec{
		Columns:      s.Columns,
		EffectNames:  s.FactorNames,
		FixedDesign:  s.Loadings,
		RandomDesign: s.Loadings,
	}
}

// TrueParams lists the generative parameter values under the shared naming
// convention, for side-by-side display against the fitted estimates.
func (s *Scenario) TrueParams() (map[ParamKey]float64, []ParamKey) {
	params := make(map[ParamKey]float64)
	var order []ParamKey

	set := func(key ParamKey, value float64) {
		params[key] = value
		order = append(order, key)
	}

	for j, name := range s.FactorNames {
		set(MeanKey(name), s.FactorMeans[j])
	}
	for j, name := range s.FactorNames {
		set(VarKey(name), s.FactorCov[j][j])
	}
	for a := 0; a < s.Factors(); a++ {
		for b := a + 1; b < s.Factors(); b++ {
			set(CovKey(s.FactorNames[a], s.FactorNames[b]), s.FactorCov[a][b])
		}
	}
	for k, col := range s.Columns {
		set(ResidKey(col), s.ResidualSD[k]*s.ResidualSD[k])
	}

	return params, order
}
