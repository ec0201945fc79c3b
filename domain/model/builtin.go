package model

import "math"

// Built-in scenario names.
const (
	ScenarioRandomIntercept = "random-intercept"
	ScenarioInterceptSlope  = "intercept-slope"
)

// RandomInterceptScenario is the single-factor canonical scenario: three
// waves loading 1 on one intercept factor with latent sd 2 and mean 0.3,
// residual sds 1, sqrt(2), sqrt(3). The implied column variances are 5, 6
// and 7, which makes the simulator's output easy to eyeball.
func RandomInterceptScenario() Scenario {
	return Scenario{
		Name: ScenarioRandomIntercept,
		Description: "One latent intercept measured by three waves with " +
			"heteroscedastic residuals. Fitting a random-intercept mixed model " +
			"to the stacked data recovers the same variance components as the " +
			"constrained latent-variable fit.",
		N:           1000,
		Seed:        42,
		Columns:     []string{"y1", "y2", "y3"},
		FactorNames: []string{"intercept"},
		Loadings:    [][]float64{{1}, {1}, {1}},
		FactorMeans: []float64{0.3},
		FactorCov:   [][]float64{{4}},
		ResidualSD:  []float64{1, math.Sqrt2, math.Sqrt(3)},
	}
}

// InterceptSlopeScenario is the two-factor canonical scenario: four waves
// measuring a latent intercept and a latent linear slope with time scores
// 0..3. The slope factor's loadings double as the growth design, so the
// mixed-model twin is a random-intercept random-slope growth model.
func InterceptSlopeScenario() Scenario {
	return Scenario{
		Name: ScenarioInterceptSlope,
		Description: "Latent growth: intercept plus slope over four waves. " +
			"The random-slope mixed model and the constrained latent-variable " +
			"fit estimate the same six variance-covariance components.",
		N:           1000,
		Seed:        42,
		Columns:     []string{"y1", "y2", "y3", "y4"},
		FactorNames: []string{"intercept", "slope"},
		Loadings: [][]float64{
			{1, 0},
			{1, 1},
			{1, 2},
			{1, 3},
		},
		FactorMeans: []float64{0.3, 0.5},
		FactorCov: [][]float64{
			{4, 0.4},
			{0.4, 1},
		},
		ResidualSD: []float64{1, 1.2, 1.4, 1.6},
	}
}

// BuiltinScenarios lists the scenarios that ship with the tool.
func BuiltinScenarios() []Scenario {
	return []Scenario{
		RandomInterceptScenario(),
		InterceptSlopeScenario(),
	}
}

// BuiltinScenario looks up a shipped scenario by name.
func BuiltinScenario(name string) (Scenario, bool) {
	for _, s := range BuiltinScenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
