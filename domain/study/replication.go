package study

import (
	"github.com/montanaflynn/stats"
)

// ReplicateOutcome records one replication inside a replication study.
type ReplicateOutcome struct {
	Replicate   int     `json:"replicate"`
	Seed        int64   `json:"seed"`
	Correlation float64 `json:"correlation"` // weakest factor agreement
	Equivalent  bool    `json:"equivalent"`
	Err         string  `json:"error,omitempty"`
}

// ReplicationSummary aggregates a batch of independent replications of the
// same scenario under derived seeds.
type ReplicationSummary struct {
	Scenario     string             `json:"scenario"`
	BaseSeed     int64              `json:"base_seed"`
	N            int                `json:"n"`
	Replications int                `json:"replications"`
	Threshold    float64            `json:"threshold"`
	Outcomes     []ReplicateOutcome `json:"outcomes"`

	MinCorrelation    float64 `json:"min_correlation"`
	MeanCorrelation   float64 `json:"mean_correlation"`
	MedianCorrelation float64 `json:"median_correlation"`
	Failures          int     `json:"failures"`
	AllEquivalent     bool    `json:"all_equivalent"`
}

// Summarize fills the aggregate fields from the recorded outcomes.
func (r *ReplicationSummary) Summarize() {
	r.Replications = len(r.Outcomes)
	r.Failures = 0
	r.AllEquivalent = r.Replications > 0

	var correlations []float64
	for _, o := range r.Outcomes {
		if o.Err != "" {
			r.Failures++
			r.AllEquivalent = false
			continue
		}
		correlations = append(correlations, o.Correlation)
		if !o.Equivalent {
			r.AllEquivalent = false
		}
	}
	if len(correlations) == 0 {
		return
	}

	r.MinCorrelation, _ = stats.Min(correlations)
	r.MeanCorrelation, _ = stats.Mean(correlations)
	r.MedianCorrelation, _ = stats.Median(correlations)
}
