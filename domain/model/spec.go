package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/shahhaard47/latenteq/domain/core"
)

// LatentSpec specifies the constrained latent-variable model fitted to the
// wide table: observed variables load on the factors through a fixed loading
// matrix, factor means and covariance are free, and each observed variable
// keeps its own residual variance.
type LatentSpec struct {
	Columns     []string
	FactorNames []string
	Loadings    [][]float64 // K x q, fixed
}

// Waves returns K, the number of observed variables.
func (s *LatentSpec) Waves() int { return len(s.Columns) }

// Factors returns q, the number of latent variables.
func (s *LatentSpec) Factors() int { return len(s.FactorNames) }

// Validate checks the specification dimensions.
func (s *LatentSpec) Validate() error {
	return validateDesign("loading", s.Columns, s.FactorNames, s.Loadings)
}

// MixedSpec specifies the mixed model fitted to the long table: fixed
// effects and random effects share per-wave design matrices, and the
// residual variance is heterogeneous across waves unless pooled.
type MixedSpec struct {
	Columns      []string
	EffectNames  []string
	FixedDesign  [][]float64 // K x q, row k is the design for wave k
	RandomDesign [][]float64 // K x q

	// PooledResidual collapses the per-wave residual variances to one.
	PooledResidual bool
	// REML switches the criterion from maximum likelihood to restricted
	// maximum likelihood. The latent fit has no REML counterpart, so the
	// side-by-side equivalence holds under ML only.
	REML bool
}

// Waves returns K, the number of observations per unit.
func (s *MixedSpec) Waves() int { return len(s.Columns) }

// Effects returns q, the number of random effects per unit.
func (s *MixedSpec) Effects() int { return len(s.EffectNames) }

// ResidualGroups returns the number of distinct residual variances.
func (s *MixedSpec) ResidualGroups() int {
	if s.PooledResidual {
		return 1
	}
	return s.Waves()
}

// Validate checks the specification dimensions.
func (s *MixedSpec) Validate() error {
	if err := validateDesign("fixed design", s.Columns, s.EffectNames, s.FixedDesign); err != nil {
		return err
	}
	return validateDesign("random design", s.Columns, s.EffectNames, s.RandomDesign)
}

func validateDesign(what string, columns, names []string, design [][]float64) error {
	k := len(columns)
	q := len(names)
	if k == 0 {
		return core.NewValidationError("columns", "specification needs at least one observed variable")
	}
	if q == 0 {
		return core.NewValidationError("names", "specification needs at least one factor")
	}
	if len(design) != k {
		return core.NewDimensionError(what+" rows", k, len(design))
	}
	for i, row := range design {
		if len(row) != q {
			return core.NewDimensionError(fmt.Sprintf("%s row %d", what, i), q, len(row))
		}
	}
	if !fullColumnRank(design, k, q) {
		return core.NewValidationError(what, "matrix must have full column rank")
	}
	return nil
}

// fullColumnRank reports whether the K x q design matrix has rank q, the
// identifiability requirement shared by both fitters.
func fullColumnRank(design [][]float64, k, q int) bool {
	if q > k {
		return false
	}
	gram := mat.NewSymDense(q, nil)
	for a := 0; a < q; a++ {
		for b := a; b < q; b++ {
			var sum float64
			for i := 0; i < k; i++ {
				sum += design[i][a] * design[i][b]
			}
			gram.SetSym(a, b, sum)
		}
	}
	var chol mat.Cholesky
	return chol.Factorize(gram)
}
