package study

import (
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/table"
)

// ComponentRow is one line of the side-by-side variance component table:
// the generative truth next to what each fit recovered.
type ComponentRow struct {
	Component model.ParamKey `json:"component"`
	Truth     float64        `json:"truth"`
	Latent    float64        `json:"latent"`
	Mixed     float64        `json:"mixed"`
	AbsDiff   float64        `json:"abs_diff"` // |latent - mixed|
}

// ScoreAgreement summarizes per-unit prediction agreement for one factor:
// factor scores from the latent fit against fixed effect plus BLUP from the
// mixed fit.
type ScoreAgreement struct {
	Factor      string  `json:"factor"`
	Correlation float64 `json:"correlation"`
	CILower     float64 `json:"ci_lower"` // Fisher z 95% interval
	CIUpper     float64 `json:"ci_upper"`
	MeanAbsDiff float64 `json:"mean_abs_diff"`
	N           int     `json:"n"`
}

// Comparison is the comparator's output: aligned components, score
// agreement per factor, and the equivalence verdict.
type Comparison struct {
	Components  []ComponentRow   `json:"components"`
	Scores      []ScoreAgreement `json:"scores"`
	LogLikDelta float64          `json:"log_lik_delta"` // latent minus mixed
	Threshold   float64          `json:"threshold"`
	Equivalent  bool             `json:"equivalent"`
}

// MinCorrelation returns the weakest factor-score agreement.
func (c *Comparison) MinCorrelation() float64 {
	if len(c.Scores) == 0 {
		return 0
	}
	min := c.Scores[0].Correlation
	for _, s := range c.Scores[1:] {
		if s.Correlation < min {
			min = s.Correlation
		}
	}
	return min
}

// Result is everything one study produces: the manifest, the scenario that
// generated the data, the data profile, both fits and their comparison.
type Result struct {
	Manifest   *Manifest             `json:"manifest"`
	Scenario   model.Scenario        `json:"scenario"`
	Profile    []table.ColumnProfile `json:"profile"`
	Latent     *model.FittedResult   `json:"latent"`
	Mixed      *model.FittedResult   `json:"mixed"`
	Comparison *Comparison           `json:"comparison"`
}

// Equivalent reports the study's headline verdict.
func (r *Result) Equivalent() bool {
	return r.Comparison != nil && r.Comparison.Equivalent
}
