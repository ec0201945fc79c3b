// Package compare aligns the two fits of one study against the generative
// truth and issues the equivalence verdict. Alignment is strict: a component
// present in one fit and missing from the other aborts the comparison with
// the offending key, partial tables are never produced.
package compare

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
)

// Config tunes the equivalence verdict.
type Config struct {
	// ScoreThreshold is the minimum per-factor correlation between latent
	// factor scores and mixed-model predictions for the two fits to count
	// as equivalent.
	ScoreThreshold float64
}

// DefaultConfig returns the standard verdict threshold.
func DefaultConfig() Config {
	return Config{ScoreThreshold: 0.99}
}

// Comparator builds side-by-side comparisons of a latent fit and a mixed
// fit of the same data.
type Comparator struct {
	cfg Config
}

// New creates a comparator.
func New(cfg Config) *Comparator {
	return &Comparator{cfg: cfg}
}

// Threshold returns the configured equivalence threshold.
func (c *Comparator) Threshold() float64 {
	return c.cfg.ScoreThreshold
}

// Compare aligns the two fitted results against the scenario's generative
// parameters, measures per-factor score agreement and returns the verdict.
func (c *Comparator) Compare(scenario model.Scenario, latent, mixed *model.FittedResult) (*study.Comparison, error) {
	truth, order := scenario.TrueParams()

	components, err := alignComponents(truth, order, latent, mixed)
	if err != nil {
		return nil, err
	}
	scores, err := scoreAgreement(latent, mixed)
	if err != nil {
		return nil, err
	}

	comparison := &study.Comparison{
		Components:  components,
		Scores:      scores,
		LogLikDelta: latent.LogLik - mixed.LogLik,
		Threshold:   c.cfg.ScoreThreshold,
	}
	comparison.Equivalent = comparison.MinCorrelation() > c.cfg.ScoreThreshold
	return comparison, nil
}

// alignComponents builds the component table in generative order. Every key
// must resolve in both fits, and every key either fit carries must resolve
// in the other.
func alignComponents(truth map[model.ParamKey]float64, order []model.ParamKey, latent, mixed *model.FittedResult) ([]study.ComponentRow, error) {
	for _, key := range latent.ParamOrder {
		if _, err := mixed.Param(key); err != nil {
			return nil, fmt.Errorf("component alignment: %w", err)
		}
	}
	for _, key := range mixed.ParamOrder {
		if _, err := latent.Param(key); err != nil {
			return nil, fmt.Errorf("component alignment: %w", err)
		}
	}

	rows := make([]study.ComponentRow, 0, len(order))
	for _, key := range order {
		lv, err := latent.Param(key)
		if err != nil {
			return nil, fmt.Errorf("component alignment: %w", err)
		}
		mv, err := mixed.Param(key)
		if err != nil {
			return nil, fmt.Errorf("component alignment: %w", err)
		}
		rows = append(rows, study.ComponentRow{
			Component: key,
			Truth:     truth[key],
			Latent:    lv,
			Mixed:     mv,
			AbsDiff:   math.Abs(lv - mv),
		})
	}
	return rows, nil
}

// scoreAgreement correlates latent factor scores with mixed-model
// predictions, factor by factor.
func scoreAgreement(latent, mixed *model.FittedResult) ([]study.ScoreAgreement, error) {
	agreements := make([]study.ScoreAgreement, 0, len(latent.FactorNames))
	for _, factor := range latent.FactorNames {
		ls, err := latent.FactorScores(factor)
		if err != nil {
			return nil, fmt.Errorf("score agreement: %w", err)
		}
		ms, err := mixed.FactorScores(factor)
		if err != nil {
			return nil, fmt.Errorf("score agreement: %w", err)
		}
		if len(ls) != len(ms) {
			return nil, core.NewDimensionError(fmt.Sprintf("scores for %s", factor), len(ls), len(ms))
		}

		r, err := stats.Pearson(ls, ms)
		if err != nil {
			return nil, fmt.Errorf("score correlation for %s: %w", factor, err)
		}
		lower, upper := fisherInterval(r, len(ls))

		var absSum float64
		for i := range ls {
			absSum += math.Abs(ls[i] - ms[i])
		}

		agreements = append(agreements, study.ScoreAgreement{
			Factor:      factor,
			Correlation: r,
			CILower:     lower,
			CIUpper:     upper,
			MeanAbsDiff: absSum / float64(len(ls)),
			N:           len(ls),
		})
	}
	return agreements, nil
}

// fisherInterval returns the 95% confidence interval for a correlation via
// the Fisher z transform. Degenerate at |r| = 1, where the interval
// collapses to the point.
func fisherInterval(r float64, n int) (lower, upper float64) {
	if n < 4 {
		return -1, 1
	}
	z := math.Atanh(math.Max(-1, math.Min(1, r)))
	se := 1 / math.Sqrt(float64(n-3))
	return math.Tanh(z - 1.959964*se), math.Tanh(z + 1.959964*se)
}
