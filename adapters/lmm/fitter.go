// Package lmm fits a linear mixed model to long-format panel data by
// maximum likelihood (or REML). The random effects enter through per-wave
// design rows, the residual variance is heterogeneous across waves, and the
// fixed effects are profiled out by generalized least squares at every
// candidate, leaving gonum/optimize a search over variance parameters only.
//
// For a balanced panel the marginal covariance Z Psi Z' + Theta has exactly
// the structure of the latent model's Lambda Psi Lambda' + Theta, which is
// why the two fits land on the same numbers.
package lmm

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/table"
	"github.com/shahhaard47/latenteq/internal/mvn"
	"github.com/shahhaard47/latenteq/ports"
)

const engineName = "gonum/optimize nelder-mead"

// Fitter implements ports.MixedFitterPort.
type Fitter struct{}

var _ ports.MixedFitterPort = (*Fitter)(nil)

// NewFitter creates a mixed-model fitter.
func NewFitter() *Fitter {
	return &Fitter{}
}

// fitData is everything the profiled objective needs, computed once.
type fitData struct {
	vectors [][]float64
	mean    []float64
	cov     *mat.SymDense
	x       *mat.Dense // fixed design, k x q
	z       *mat.Dense // random design, k x q
	n, k, q int
	groups  int // residual variance groups: k, or 1 when pooled
	reml    bool
}

// FitLong estimates fixed effects, random-effect covariance and residual
// variances from the long table. The panel must be balanced; convergence
// failures from the optimizer abort the fit.
func (f *Fitter) FitLong(ctx context.Context, l *table.Long, spec model.MixedSpec) (*model.FittedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}
	if !slices.Equal(l.Columns, spec.Columns) {
		return nil, core.NewDimensionError("long table waves", spec.Waves(), l.Waves())
	}

	_, vectors, err := l.ResponseVectors()
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}

	data, err := prepare(vectors, spec)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}

	start, err := startValues(data)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}

	problem := optimize.Problem{Func: objective(data)}
	result, err := optimize.Minimize(problem, start, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, core.NewConvergenceError(model.MethodMixed, err)
	}
	if serr := result.Status.Err(); serr != nil {
		return nil, core.NewConvergenceError(model.MethodMixed, serr)
	}

	return extract(data, spec, result)
}

func prepare(vectors [][]float64, spec model.MixedSpec) (*fitData, error) {
	mean, cov, err := mvn.Moments(vectors)
	if err != nil {
		return nil, err
	}

	k := spec.Waves()
	q := spec.Effects()
	flatten := func(rows [][]float64) *mat.Dense {
		flat := make([]float64, 0, k*q)
		for _, row := range rows {
			flat = append(flat, row...)
		}
		return mat.NewDense(k, q, flat)
	}

	return &fitData{
		vectors: vectors,
		mean:    mean,
		cov:     cov,
		x:       flatten(spec.FixedDesign),
		z:       flatten(spec.RandomDesign),
		n:       len(vectors),
		k:       k,
		q:       q,
		groups:  spec.ResidualGroups(),
		reml:    spec.REML,
	}, nil
}

// Parameter vector layout: log-Cholesky of Psi, then log residual sds (one
// per group). Fixed effects are profiled, not searched.
func splitTheta(theta []float64, q int) (psiPart, sdPart []float64) {
	cq := mvn.LogCholLen(q)
	return theta[:cq], theta[cq:]
}

// marginal builds V(theta) = Z Psi Z' + Theta.
func marginal(data *fitData, theta []float64) *mat.SymDense {
	psiPart, sdPart := splitTheta(theta, data.q)
	psi := mvn.UnpackLogChol(psiPart, data.q)

	var zp mat.Dense
	zp.Mul(data.z, psi)
	var zpz mat.Dense
	zpz.Mul(&zp, data.z.T())

	v := mat.NewSymDense(data.k, nil)
	for i := 0; i < data.k; i++ {
		for j := i; j < data.k; j++ {
			value := zpz.At(i, j)
			if i == j {
				group := i
				if data.groups == 1 {
					group = 0
				}
				sd := math.Exp(sdPart[group])
				value += sd * sd
			}
			v.SetSym(i, j, value)
		}
	}
	return v
}

// gls profiles the fixed effects at a given V: beta = (X'V^-1X)^-1 X'V^-1
// xbar. Returns beta, the mean residual, and X'V^-1X for the REML term.
func gls(data *fitData, spd *mvn.SPD) ([]float64, []float64, *mat.Dense, error) {
	vinvX, err := spd.Solve(data.x)
	if err != nil {
		return nil, nil, nil, err
	}

	var xtvx mat.Dense
	xtvx.Mul(data.x.T(), vinvX)

	vinvMean, err := spd.SolveVec(data.mean)
	if err != nil {
		return nil, nil, nil, err
	}
	rhs := make([]float64, data.q)
	for j := 0; j < data.q; j++ {
		for i := 0; i < data.k; i++ {
			rhs[j] += data.x.At(i, j) * vinvMean[i]
		}
	}

	var betaVec mat.VecDense
	if err := betaVec.SolveVec(&xtvx, mat.NewVecDense(data.q, rhs)); err != nil {
		return nil, nil, nil, fmt.Errorf("gls solve: %w", err)
	}

	beta := make([]float64, data.q)
	resid := make([]float64, data.k)
	for j := range beta {
		beta[j] = betaVec.AtVec(j)
	}
	for i := 0; i < data.k; i++ {
		resid[i] = data.mean[i]
		for j := 0; j < data.q; j++ {
			resid[i] -= data.x.At(i, j) * beta[j]
		}
	}

	return beta, resid, &xtvx, nil
}

// objective returns the profiled deviance per unit,
//
//	g = log|V| + tr(S V^-1) + rbar' V^-1 rbar
//
// plus log|n X'V^-1X|/n under REML. Minimizing n*g + constants minimizes
// the full -2 log likelihood.
func objective(data *fitData) func([]float64) float64 {
	return func(theta []float64) float64 {
		v := marginal(data, theta)
		spd, err := mvn.NewSPD(v)
		if err != nil {
			return math.Inf(1)
		}

		trace, err := spd.TraceSolve(data.cov)
		if err != nil {
			return math.Inf(1)
		}

		_, resid, xtvx, err := gls(data, spd)
		if err != nil {
			return math.Inf(1)
		}
		quad, err := spd.Quad(resid)
		if err != nil {
			return math.Inf(1)
		}

		g := spd.LogDet() + trace + quad
		if data.reml {
			det := mat.Det(xtvx)
			if det <= 0 {
				return math.Inf(1)
			}
			g += (float64(data.q)*math.Log(float64(data.n)) + math.Log(det)) / float64(data.n)
		}
		return g
	}
}

// startValues reuses the projection heuristic on the per-unit moments.
func startValues(data *fitData) ([]float64, error) {
	psi0, resid0, _, err := mvn.ProjectionStart(data.z, data.mean, data.cov)
	if err != nil {
		return nil, err
	}

	psiPart, err := mvn.PackLogChol(psi0)
	if err != nil {
		if psiPart, err = mvn.PackLogChol(mvn.DiagonalStart(data.q, data.cov)); err != nil {
			return nil, err
		}
	}

	theta := make([]float64, 0, mvn.LogCholLen(data.q)+data.groups)
	theta = append(theta, psiPart...)
	if data.groups == 1 {
		pooled := 0.0
		for _, r := range resid0 {
			pooled += r
		}
		theta = append(theta, 0.5*math.Log(pooled/float64(len(resid0))))
	} else {
		for _, r := range resid0 {
			theta = append(theta, 0.5*math.Log(r))
		}
	}

	return theta, nil
}

// extract turns the optimizer's solution into named estimates and per-unit
// predictions (fixed effect plus BLUP).
func extract(data *fitData, spec model.MixedSpec, result *optimize.Result) (*model.FittedResult, error) {
	fitted := model.NewFittedResult(model.MethodMixed, engineName)
	fitted.FactorNames = spec.EffectNames
	fitted.NObs = data.n
	fitted.Converged = true
	fitted.FuncEvals = result.Stats.FuncEvaluations

	v := marginal(data, result.X)
	spd, err := mvn.NewSPD(v)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: fitted covariance: %w", err)
	}
	beta, resid, _, err := gls(data, spd)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}

	psiPart, sdPart := splitTheta(result.X, data.q)
	psi := mvn.UnpackLogChol(psiPart, data.q)

	for j, name := range spec.EffectNames {
		fitted.SetParam(model.MeanKey(name), beta[j])
	}
	for j, name := range spec.EffectNames {
		fitted.SetParam(model.VarKey(name), psi.At(j, j))
	}
	for a := 0; a < data.q; a++ {
		for b := a + 1; b < data.q; b++ {
			fitted.SetParam(model.CovKey(spec.EffectNames[a], spec.EffectNames[b]), psi.At(a, b))
		}
	}
	if data.groups == 1 {
		sd := math.Exp(sdPart[0])
		fitted.SetParam(model.ResidKey("pooled"), sd*sd)
	} else {
		for i, col := range spec.Columns {
			sd := math.Exp(sdPart[i])
			fitted.SetParam(model.ResidKey(col), sd*sd)
		}
	}

	// ML log-likelihood at the fitted parameters. Under REML the search
	// criterion differs but the reported likelihood stays ML so the two
	// methods remain comparable.
	trace, err := spd.TraceSolve(data.cov)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}
	quad, err := spd.Quad(resid)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}
	g := spd.LogDet() + trace + quad
	n := float64(data.n)
	fitted.LogLik = -0.5 * n * (float64(data.k)*math.Log(2*math.Pi) + g)
	fitted.Deviance = -2 * fitted.LogLik

	scores, err := blupScores(data, spd, psi, beta)
	if err != nil {
		return nil, fmt.Errorf("mixed fit: %w", err)
	}
	fitted.Scores = scores

	return fitted, nil
}

// blupScores computes per-unit predictions
//
//	u_i = Psi Z' V^-1 (y_i - X beta),  score_i = beta + u_i
//
// the mixed-model twin of the latent fit's regression factor scores.
func blupScores(data *fitData, spd *mvn.SPD, psi *mat.SymDense, beta []float64) ([][]float64, error) {
	var zp mat.Dense
	zp.Mul(data.z, psi)
	weight, err := spd.Solve(&zp) // V^-1 Z Psi, k x q
	if err != nil {
		return nil, err
	}

	xbeta := make([]float64, data.k)
	for i := 0; i < data.k; i++ {
		for j := 0; j < data.q; j++ {
			xbeta[i] += data.x.At(i, j) * beta[j]
		}
	}

	scores := make([][]float64, data.n)
	diff := make([]float64, data.k)
	for i, y := range data.vectors {
		for k := range diff {
			diff[k] = y[k] - xbeta[k]
		}
		score := make([]float64, data.q)
		for j := 0; j < data.q; j++ {
			score[j] = beta[j]
			for k := 0; k < data.k; k++ {
				score[j] += weight.At(k, j) * diff[k]
			}
		}
		scores[i] = score
	}

	return scores, nil
}
