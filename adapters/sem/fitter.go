// Package sem fits the constrained latent-variable model to wide data by
// maximum likelihood. The model is the classic structural form with fixed
// loadings: implied covariance Lambda Psi Lambda' + Theta and implied means
// Lambda nu. The numerical search itself is delegated to gonum/optimize;
// this package owns the fit function, the parameterization that keeps every
// candidate covariance positive definite, and estimate extraction.
package sem

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/table"
	"github.com/shahhaard47/latenteq/internal/mvn"
	"github.com/shahhaard47/latenteq/ports"
)

const engineName = "gonum/optimize nelder-mead"

// Fitter implements ports.LatentFitterPort.
type Fitter struct{}

var _ ports.LatentFitterPort = (*Fitter)(nil)

// NewFitter creates a latent-variable fitter.
func NewFitter() *Fitter {
	return &Fitter{}
}

// fitData is everything the objective needs, computed once per fit.
type fitData struct {
	rows    [][]float64
	mean    []float64
	cov     *mat.SymDense
	logDetS float64
	lambda  *mat.Dense
	n, k, q int
}

// FitWide estimates factor means, factor covariance and per-variable
// residual variances from the wide table, loadings held fixed.
func (f *Fitter) FitWide(ctx context.Context, w *table.Wide, spec model.LatentSpec) (*model.FittedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("latent fit: %w", err)
	}
	if w.Cols() != spec.Waves() {
		return nil, core.NewDimensionError("wide table columns", spec.Waves(), w.Cols())
	}

	data, err := prepare(w, spec)
	if err != nil {
		return nil, fmt.Errorf("latent fit: %w", err)
	}

	start, err := startValues(data)
	if err != nil {
		return nil, fmt.Errorf("latent fit: %w", err)
	}

	problem := optimize.Problem{Func: objective(data)}
	result, err := optimize.Minimize(problem, start, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, core.NewConvergenceError(model.MethodLatent, err)
	}
	if serr := result.Status.Err(); serr != nil {
		return nil, core.NewConvergenceError(model.MethodLatent, serr)
	}

	return extract(data, spec, result)
}

// prepare computes the sample moments the fit function is built from.
func prepare(w *table.Wide, spec model.LatentSpec) (*fitData, error) {
	mean, cov, err := mvn.Moments(w.Data)
	if err != nil {
		return nil, err
	}

	sample, err := mvn.NewSPD(cov)
	if err != nil {
		return nil, fmt.Errorf("sample covariance: %w", err)
	}

	k := spec.Waves()
	q := spec.Factors()
	flat := make([]float64, 0, k*q)
	for _, row := range spec.Loadings {
		flat = append(flat, row...)
	}

	return &fitData{
		rows:    w.Data,
		mean:    mean,
		cov:     cov,
		logDetS: sample.LogDet(),
		lambda:  mat.NewDense(k, q, flat),
		n:       w.Rows(),
		k:       k,
		q:       q,
	}, nil
}

// Parameter vector layout: log-Cholesky of Psi, then log residual sds,
// then factor means.
func splitTheta(theta []float64, q, k int) (psiPart, sdPart, nuPart []float64) {
	cq := mvn.LogCholLen(q)
	return theta[:cq], theta[cq : cq+k], theta[cq+k:]
}

func thetaLen(q, k int) int {
	return mvn.LogCholLen(q) + k + q
}

// implied builds Sigma(theta) = Lambda Psi Lambda' + Theta and
// mu(theta) = Lambda nu.
func implied(data *fitData, theta []float64) (*mat.SymDense, []float64) {
	psiPart, sdPart, nuPart := splitTheta(theta, data.q, data.k)
	psi := mvn.UnpackLogChol(psiPart, data.q)

	var lp mat.Dense
	lp.Mul(data.lambda, psi)
	var llt mat.Dense
	llt.Mul(&lp, data.lambda.T())

	sigma := mat.NewSymDense(data.k, nil)
	for i := 0; i < data.k; i++ {
		for j := i; j < data.k; j++ {
			v := llt.At(i, j)
			if i == j {
				sd := math.Exp(sdPart[i])
				v += sd * sd
			}
			sigma.SetSym(i, j, v)
		}
	}

	mu := make([]float64, data.k)
	for i := 0; i < data.k; i++ {
		for j := 0; j < data.q; j++ {
			mu[i] += data.lambda.At(i, j) * nuPart[j]
		}
	}

	return sigma, mu
}

// objective returns the ML discrepancy function
//
//	F = log|Sigma| + tr(S Sigma^-1) + (xbar-mu)' Sigma^-1 (xbar-mu) - log|S| - K
//
// which is zero at the saturated model, so n*F is the model chi-square.
func objective(data *fitData) func([]float64) float64 {
	return func(theta []float64) float64 {
		sigma, mu := implied(data, theta)
		spd, err := mvn.NewSPD(sigma)
		if err != nil {
			return math.Inf(1)
		}

		trace, err := spd.TraceSolve(data.cov)
		if err != nil {
			return math.Inf(1)
		}

		diff := make([]float64, data.k)
		for i := range diff {
			diff[i] = data.mean[i] - mu[i]
		}
		quad, err := spd.Quad(diff)
		if err != nil {
			return math.Inf(1)
		}

		return spd.LogDet() + trace + quad - data.logDetS - float64(data.k)
	}
}

// startValues derives starting parameters from the sample moments via the
// shared projection heuristic, packed into the unconstrained layout.
func startValues(data *fitData) ([]float64, error) {
	psi0, resid0, nu0, err := mvn.ProjectionStart(data.lambda, data.mean, data.cov)
	if err != nil {
		return nil, err
	}

	psiPart, err := mvn.PackLogChol(psi0)
	if err != nil {
		if psiPart, err = mvn.PackLogChol(mvn.DiagonalStart(data.q, data.cov)); err != nil {
			return nil, err
		}
	}

	theta := make([]float64, 0, thetaLen(data.q, data.k))
	theta = append(theta, psiPart...)
	for _, r := range resid0 {
		theta = append(theta, 0.5*math.Log(r))
	}
	theta = append(theta, nu0...)

	return theta, nil
}

// extract turns the optimizer's solution into named estimates, fit
// statistics and regression-method factor scores.
func extract(data *fitData, spec model.LatentSpec, result *optimize.Result) (*model.FittedResult, error) {
	fitted := model.NewFittedResult(model.MethodLatent, engineName)
	fitted.FactorNames = spec.FactorNames
	fitted.NObs = data.n
	fitted.Converged = true
	fitted.FuncEvals = result.Stats.FuncEvaluations

	psiPart, sdPart, nuPart := splitTheta(result.X, data.q, data.k)
	psi := mvn.UnpackLogChol(psiPart, data.q)

	for j, name := range spec.FactorNames {
		fitted.SetParam(model.MeanKey(name), nuPart[j])
	}
	for j, name := range spec.FactorNames {
		fitted.SetParam(model.VarKey(name), psi.At(j, j))
	}
	for a := 0; a < data.q; a++ {
		for b := a + 1; b < data.q; b++ {
			fitted.SetParam(model.CovKey(spec.FactorNames[a], spec.FactorNames[b]), psi.At(a, b))
		}
	}
	for i, col := range spec.Columns {
		sd := math.Exp(sdPart[i])
		fitted.SetParam(model.ResidKey(col), sd*sd)
	}

	// Log-likelihood at the optimum, from the discrepancy value.
	n := float64(data.n)
	fml := result.F
	fitted.LogLik = -0.5 * n * (float64(data.k)*math.Log(2*math.Pi) + fml + data.logDetS + float64(data.k))
	fitted.Deviance = -2 * fitted.LogLik

	chi := n * fml
	if chi < 0 {
		chi = 0
	}
	df := data.k*(data.k+3)/2 - fitted.NParams
	fitStats := &model.FitStatistics{ChiSquare: chi, DF: df}
	if df > 0 {
		fitStats.PValue = distuv.ChiSquared{K: float64(df)}.Survival(chi)
	} else {
		fitStats.PValue = 1
	}
	fitted.Fit = fitStats

	scores, err := factorScores(data, result.X)
	if err != nil {
		return nil, fmt.Errorf("latent fit: %w", err)
	}
	fitted.Scores = scores

	return fitted, nil
}

// factorScores computes regression-method scores
//
//	E[eta | x] = nu + Psi Lambda' Sigma^-1 (x - mu)
//
// which is exactly the empirical Bayes prediction the mixed fit produces as
// fixed effect plus BLUP.
func factorScores(data *fitData, theta []float64) ([][]float64, error) {
	sigma, mu := implied(data, theta)
	spd, err := mvn.NewSPD(sigma)
	if err != nil {
		return nil, err
	}

	psiPart, _, nuPart := splitTheta(theta, data.q, data.k)
	psi := mvn.UnpackLogChol(psiPart, data.q)

	// weight = Sigma^-1 Lambda Psi, computed once: k x q.
	var lp mat.Dense
	lp.Mul(data.lambda, psi)
	weight, err := spd.Solve(&lp)
	if err != nil {
		return nil, err
	}

	scores := make([][]float64, data.n)
	diff := make([]float64, data.k)
	for i, row := range data.rows {
		for k := range diff {
			diff[k] = row[k] - mu[k]
		}
		score := make([]float64, data.q)
		for j := 0; j < data.q; j++ {
			score[j] = nuPart[j]
			for k := 0; k < data.k; k++ {
				score[j] += weight.At(k, j) * diff[k]
			}
		}
		scores[i] = score
	}

	return scores, nil
}
