// Package mvn holds the multivariate normal moment machinery shared by the
// latent-variable and mixed-model fitters: maximum-likelihood sample
// moments, positive definite solves, and the log-Cholesky parameterization
// that keeps covariance matrices positive definite during optimization.
package mvn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/shahhaard47/latenteq/domain/core"
)

// Moments computes the sample mean vector and the maximum-likelihood
// covariance (divide by n, not n-1) of a rows x k data matrix. Both fit
// functions are derived under the ML divisor, so the n-1 convention the
// descriptive profile uses never leaks in here.
func Moments(data [][]float64) ([]float64, *mat.SymDense, error) {
	n := len(data)
	if n < 2 {
		return nil, nil, core.ErrInsufficientData
	}
	k := len(data[0])

	flat := make([]float64, 0, n*k)
	for i, row := range data {
		if len(row) != k {
			return nil, nil, core.NewDimensionError(fmt.Sprintf("data row %d", i), k, len(row))
		}
		flat = append(flat, row...)
	}
	x := mat.NewDense(n, k, flat)

	mean := make([]float64, k)
	for j := 0; j < k; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	var sample mat.SymDense
	stat.CovarianceMatrix(&sample, x, nil)
	cov := mat.NewSymDense(k, nil)
	cov.ScaleSym(float64(n-1)/float64(n), &sample)

	return mean, cov, nil
}

// SPD wraps the Cholesky factorization of a symmetric positive definite
// matrix and exposes the pieces a Gaussian likelihood needs.
type SPD struct {
	chol mat.Cholesky
	dim  int
}

// NewSPD factors a symmetric matrix, failing if it is not positive definite.
func NewSPD(s mat.Symmetric) (*SPD, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return nil, core.ErrNotPositiveDefinite
	}
	return &SPD{chol: chol, dim: s.SymmetricDim()}, nil
}

// Dim returns the matrix dimension.
func (s *SPD) Dim() int { return s.dim }

// LogDet returns the log determinant.
func (s *SPD) LogDet() float64 {
	return s.chol.LogDet()
}

// SolveVec returns Sigma^-1 v.
func (s *SPD) SolveVec(v []float64) ([]float64, error) {
	var solved mat.VecDense
	if err := s.chol.SolveVecTo(&solved, mat.NewVecDense(len(v), v)); err != nil {
		return nil, fmt.Errorf("spd solve: %w", err)
	}
	out := make([]float64, s.dim)
	for i := range out {
		out[i] = solved.AtVec(i)
	}
	return out, nil
}

// Quad returns the quadratic form v' Sigma^-1 v.
func (s *SPD) Quad(v []float64) (float64, error) {
	solved, err := s.SolveVec(v)
	if err != nil {
		return 0, err
	}
	var quad float64
	for i, vi := range v {
		quad += vi * solved[i]
	}
	return quad, nil
}

// Solve returns Sigma^-1 B.
func (s *SPD) Solve(b mat.Matrix) (*mat.Dense, error) {
	var solved mat.Dense
	if err := s.chol.SolveTo(&solved, b); err != nil {
		return nil, fmt.Errorf("spd solve: %w", err)
	}
	return &solved, nil
}

// TraceSolve returns tr(Sigma^-1 A).
func (s *SPD) TraceSolve(a mat.Matrix) (float64, error) {
	solved, err := s.Solve(a)
	if err != nil {
		return 0, err
	}
	return mat.Trace(solved), nil
}

// LogCholLen returns the length of the unconstrained parameter vector for a
// q x q covariance matrix.
func LogCholLen(q int) int {
	return q * (q + 1) / 2
}

// PackLogChol maps a positive definite matrix to its unconstrained
// log-Cholesky vector: the lower triangle of the Cholesky factor, row by
// row, with the diagonal on the log scale.
func PackLogChol(psi mat.Symmetric) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(psi); !ok {
		return nil, core.ErrNotPositiveDefinite
	}

	q := psi.SymmetricDim()
	var l mat.TriDense
	chol.LTo(&l)

	theta := make([]float64, 0, LogCholLen(q))
	for i := 0; i < q; i++ {
		for j := 0; j <= i; j++ {
			if i == j {
				theta = append(theta, math.Log(l.At(i, j)))
			} else {
				theta = append(theta, l.At(i, j))
			}
		}
	}
	return theta, nil
}

// UnpackLogChol inverts PackLogChol: any real vector of length q(q+1)/2
// maps to a positive definite q x q matrix.
func UnpackLogChol(theta []float64, q int) *mat.SymDense {
	l := make([][]float64, q)
	idx := 0
	for i := 0; i < q; i++ {
		l[i] = make([]float64, q)
		for j := 0; j <= i; j++ {
			if i == j {
				l[i][j] = math.Exp(theta[idx])
			} else {
				l[i][j] = theta[idx]
			}
			idx++
		}
	}

	psi := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			var sum float64
			for k := 0; k <= min(i, j); k++ {
				sum += l[i][k] * l[j][k]
			}
			psi.SetSym(i, j, sum)
		}
	}
	return psi
}
