package table

import (
	"github.com/montanaflynn/stats"
)

// ColumnProfile summarizes one column of a wide table. Variance here is the
// sample variance (n-1 divisor); the fitters use the maximum-likelihood
// divisor n internally, which the report calls out.
type ColumnProfile struct {
	Column   string  `json:"column"`
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	SD       float64 `json:"sd"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
}

// ProfileWide computes descriptive statistics for every column.
func ProfileWide(w *Wide) ([]ColumnProfile, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	profiles := make([]ColumnProfile, 0, w.Cols())
	for _, name := range w.Columns {
		data, err := w.Column(name)
		if err != nil {
			return nil, err
		}

		mean, _ := stats.Mean(data)
		sd, _ := stats.StandardDeviationSample(data)
		variance, _ := stats.SampleVariance(data)
		min, _ := stats.Min(data)
		max, _ := stats.Max(data)
		median, _ := stats.Median(data)

		profiles = append(profiles, ColumnProfile{
			Column:   name,
			N:        len(data),
			Mean:     mean,
			SD:       sd,
			Variance: variance,
			Min:      min,
			Max:      max,
			Median:   median,
		})
	}

	return profiles, nil
}
