package model

import (
	"fmt"

	"github.com/shahhaard47/latenteq/domain/core"
)

// Fitting methods
const (
	MethodLatent = "latent"
	MethodMixed  = "mixed"
)

// ParamKey names one estimated parameter. Both fitters publish their
// estimates under the same keys so the comparator can align them without
// knowing which engine produced what:
//
//	mean(intercept)          factor mean / fixed effect
//	var(intercept)           factor variance / random-effect variance
//	cov(intercept,slope)     factor covariance / random-effect covariance
//	resid(y1)                residual variance of observed variable y1
type ParamKey string

// MeanKey names a factor mean or fixed effect.
func MeanKey(factor string) ParamKey { return ParamKey("mean(" + factor + ")") }

// VarKey names a factor or random-effect variance.
func VarKey(factor string) ParamKey { return ParamKey("var(" + factor + ")") }

// CovKey names a factor or random-effect covariance.
func CovKey(a, b string) ParamKey { return ParamKey("cov(" + a + "," + b + ")") }

// ResidKey names a per-variable residual variance.
func ResidKey(column string) ParamKey { return ParamKey("resid(" + column + ")") }

// FitStatistics carries the overall model test of the latent fit.
type FitStatistics struct {
	ChiSquare float64 `json:"chi_square"`
	DF        int     `json:"df"`
	PValue    float64 `json:"p_value"`
}

// FittedResult is what either fitter hands back: named point estimates, the
// log-likelihood of the fitted model, and per-unit latent predictions
// (factor scores for the latent fit, fixed effect plus BLUP for the mixed
// fit). Params and ParamOrder always cover the same keys.
type FittedResult struct {
	Method      string               `json:"method"`
	Engine      string               `json:"engine"`
	Params      map[ParamKey]float64 `json:"params"`
	ParamOrder  []ParamKey           `json:"param_order"`
	FactorNames []string             `json:"factor_names"`
	Scores      [][]float64          `json:"scores"` // n x q
	LogLik      float64              `json:"log_lik"`
	Deviance    float64              `json:"deviance"`
	NObs        int                  `json:"n_obs"`
	NParams     int                  `json:"n_params"`
	Converged   bool                 `json:"converged"`
	FuncEvals   int                  `json:"func_evals"`
	Fit         *FitStatistics       `json:"fit,omitempty"`
}

// NewFittedResult creates an empty result for a method and engine.
func NewFittedResult(method, engine string) *FittedResult {
	return &FittedResult{
		Method: method,
		Engine: engine,
		Params: make(map[ParamKey]float64),
	}
}

// SetParam records an estimate, keeping the display order stable.
func (r *FittedResult) SetParam(key ParamKey, value float64) {
	if _, exists := r.Params[key]; !exists {
		r.ParamOrder = append(r.ParamOrder, key)
	}
	r.Params[key] = value
	r.NParams = len(r.Params)
}

// Param looks up an estimate by key. A missing key is a lookup error, never
// a silent zero.
func (r *FittedResult) Param(key ParamKey) (float64, error) {
	value, ok := r.Params[key]
	if !ok {
		return 0, core.NewComponentError(string(key), fmt.Sprintf("%s fit", r.Method))
	}
	return value, nil
}

// FactorScores returns the predictions for one factor across all units.
func (r *FittedResult) FactorScores(factor string) ([]float64, error) {
	for j, name := range r.FactorNames {
		if name == factor {
			scores := make([]float64, len(r.Scores))
			for i, row := range r.Scores {
				scores[i] = row[j]
			}
			return scores, nil
		}
	}
	return nil, core.NewComponentError("scores:"+factor, fmt.Sprintf("%s fit", r.Method))
}
