package mvn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/shahhaard47/latenteq/domain/core"
)

// ProjectionStart derives moment-based starting values for a fixed k x q
// design: half of each observed variance is provisionally assigned to the
// residuals, the remainder is projected through the design pseudo-inverse
// for the factor covariance start, and the sample means are projected for
// the location start. Residual starts are floored at five percent of the
// observed variance.
//
// The returned covariance is symmetrized but not guaranteed positive
// definite; callers fall back to a diagonal start when packing fails.
func ProjectionStart(design *mat.Dense, mean []float64, cov *mat.SymDense) (*mat.SymDense, []float64, []float64, error) {
	k, q := design.Dims()

	var dtd mat.Dense
	dtd.Mul(design.T(), design)
	var dtdInv mat.Dense
	if err := dtdInv.Inverse(&dtd); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: design matrix is rank deficient", core.ErrDimensionMismatch)
	}
	var proj mat.Dense // q x k pseudo-inverse (D'D)^-1 D'
	proj.Mul(&dtdInv, design.T())

	adjusted := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			v := cov.At(i, j)
			if i == j {
				v -= cov.At(i, i) / 2
			}
			adjusted.Set(i, j, v)
		}
	}

	var pa mat.Dense
	pa.Mul(&proj, adjusted)
	var raw mat.Dense
	raw.Mul(&pa, proj.T())

	psi := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			psi.SetSym(i, j, (raw.At(i, j)+raw.At(j, i))/2)
		}
	}

	resid := make([]float64, k)
	for i := 0; i < k; i++ {
		latent := 0.0
		for a := 0; a < q; a++ {
			for b := 0; b < q; b++ {
				latent += design.At(i, a) * psi.At(a, b) * design.At(i, b)
			}
		}
		r := cov.At(i, i) - latent
		if floor := 0.05 * cov.At(i, i); r < floor {
			r = floor
		}
		resid[i] = r
	}

	loc := make([]float64, q)
	for j := 0; j < q; j++ {
		for i := 0; i < k; i++ {
			loc[j] += proj.At(j, i) * mean[i]
		}
	}

	return psi, resid, loc, nil
}

// DiagonalStart is the fallback covariance start: an identity scaled to
// half the average observed variance.
func DiagonalStart(q int, cov *mat.SymDense) *mat.SymDense {
	k := cov.SymmetricDim()
	scale := 0.0
	for i := 0; i < k; i++ {
		scale += cov.At(i, i)
	}
	scale /= float64(2 * k)

	diag := mat.NewSymDense(q, nil)
	for j := 0; j < q; j++ {
		diag.SetSym(j, j, scale)
	}
	return diag
}
