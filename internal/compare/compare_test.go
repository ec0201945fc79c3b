package compare

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
)

// fitAtTruth builds a synthetic result holding the scenario's generative
// parameters exactly, scores to be filled in by the caller.
func fitAtTruth(scenario model.Scenario, method string) *model.FittedResult {
	truth, order := scenario.TrueParams()
	r := model.NewFittedResult(method, "test")
	for _, key := range order {
		r.SetParam(key, truth[key])
	}
	r.FactorNames = scenario.FactorNames
	return r
}

func column(values ...float64) [][]float64 {
	scores := make([][]float64, len(values))
	for i, v := range values {
		scores[i] = []float64{v}
	}
	return scores
}

func TestCompareBuildsAlignedTable(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	latent := fitAtTruth(scenario, model.MethodLatent)
	mixed := fitAtTruth(scenario, model.MethodMixed)

	latent.SetParam(model.VarKey("intercept"), 3.90)
	mixed.SetParam(model.VarKey("intercept"), 4.05)
	latent.LogLik = -100.25
	mixed.LogLik = -100.30

	latent.Scores = column(0.1, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5)
	mixed.Scores = column(0.101, 0.499, 1.001, 1.499, 2.001, 2.499, 3.001, 3.499)

	comparison, err := New(DefaultConfig()).Compare(scenario, latent, mixed)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	wantOrder := []model.ParamKey{
		model.MeanKey("intercept"),
		model.VarKey("intercept"),
		model.ResidKey("y1"),
		model.ResidKey("y2"),
		model.ResidKey("y3"),
	}
	if len(comparison.Components) != len(wantOrder) {
		t.Fatalf("component rows = %d, want %d", len(comparison.Components), len(wantOrder))
	}
	for i, row := range comparison.Components {
		if row.Component != wantOrder[i] {
			t.Errorf("row %d: component %s, want %s", i, row.Component, wantOrder[i])
		}
	}

	varRow := comparison.Components[1]
	if varRow.Truth != 4.0 {
		t.Errorf("truth var = %.2f, want 4.00", varRow.Truth)
	}
	if math.Abs(varRow.AbsDiff-0.15) > 1e-12 {
		t.Errorf("abs diff = %.6f, want 0.15", varRow.AbsDiff)
	}

	if math.Abs(comparison.LogLikDelta-0.05) > 1e-12 {
		t.Errorf("log-lik delta = %.6f, want 0.05", comparison.LogLikDelta)
	}

	if len(comparison.Scores) != 1 {
		t.Fatalf("score agreements = %d, want 1", len(comparison.Scores))
	}
	agreement := comparison.Scores[0]
	if agreement.Factor != "intercept" || agreement.N != 8 {
		t.Errorf("agreement = %+v, want intercept over 8 units", agreement)
	}
	if agreement.Correlation < 0.999 {
		t.Errorf("correlation = %.6f, want > 0.999", agreement.Correlation)
	}
	if agreement.CILower >= agreement.Correlation || agreement.CIUpper < agreement.Correlation {
		t.Errorf("CI [%.4f, %.4f] does not bracket r = %.4f",
			agreement.CILower, agreement.CIUpper, agreement.Correlation)
	}
	if agreement.MeanAbsDiff > 0.002 {
		t.Errorf("mean abs diff = %.6f, want ~0.001", agreement.MeanAbsDiff)
	}
	if !comparison.Equivalent {
		t.Error("near-identical scores should pass the default threshold")
	}
}

func TestCompareMissingComponentIsLookupError(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	latent := fitAtTruth(scenario, model.MethodLatent)
	latent.Scores = column(1, 2, 3)

	// A pooled mixed fit publishes one shared residual, so the per-wave
	// keys the latent fit carries cannot resolve.
	mixed := model.NewFittedResult(model.MethodMixed, "test")
	mixed.SetParam(model.MeanKey("intercept"), 0.3)
	mixed.SetParam(model.VarKey("intercept"), 4.0)
	mixed.SetParam(model.ResidKey("pooled"), 2.0)
	mixed.FactorNames = scenario.FactorNames
	mixed.Scores = column(1, 2, 3)

	comparison, err := New(DefaultConfig()).Compare(scenario, latent, mixed)
	if comparison != nil {
		t.Fatal("misaligned fits must not produce a partial comparison")
	}
	if !errors.Is(err, core.ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "resid(y1)") {
		t.Errorf("error should name the missing key, got %q", err)
	}
}

func TestCompareExtraComponentIsLookupError(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	latent := fitAtTruth(scenario, model.MethodLatent)
	latent.Scores = column(1, 2, 3)

	mixed := fitAtTruth(scenario, model.MethodMixed)
	mixed.SetParam(model.ResidKey("pooled"), 2.0)
	mixed.Scores = column(1, 2, 3)

	_, err := New(DefaultConfig()).Compare(scenario, latent, mixed)
	if !errors.Is(err, core.ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "resid(pooled)") {
		t.Errorf("error should name the extra key, got %q", err)
	}
}

func TestCompareScoreLengthMismatch(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	latent := fitAtTruth(scenario, model.MethodLatent)
	latent.Scores = column(1, 2, 3, 4)
	mixed := fitAtTruth(scenario, model.MethodMixed)
	mixed.Scores = column(1, 2, 3)

	if _, err := New(DefaultConfig()).Compare(scenario, latent, mixed); !errors.Is(err, core.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCompareVerdictThreshold(t *testing.T) {
	scenario := model.RandomInterceptScenario()

	// Pearson of (1,2,3,4) against (1,2,3,3) is 0.9439.
	latentScores := column(1, 2, 3, 4)
	mixedScores := column(1, 2, 3, 3)

	t.Run("default threshold rejects", func(t *testing.T) {
		latent := fitAtTruth(scenario, model.MethodLatent)
		latent.Scores = latentScores
		mixed := fitAtTruth(scenario, model.MethodMixed)
		mixed.Scores = mixedScores

		comparison, err := New(DefaultConfig()).Compare(scenario, latent, mixed)
		if err != nil {
			t.Fatalf("compare: %v", err)
		}
		if math.Abs(comparison.Scores[0].Correlation-0.9439) > 0.001 {
			t.Errorf("correlation = %.4f, want 0.9439", comparison.Scores[0].Correlation)
		}
		if comparison.Equivalent {
			t.Error("r = 0.94 must fail the 0.99 threshold")
		}
		if comparison.Threshold != 0.99 {
			t.Errorf("threshold = %.2f, want 0.99", comparison.Threshold)
		}
	})

	t.Run("relaxed threshold accepts", func(t *testing.T) {
		latent := fitAtTruth(scenario, model.MethodLatent)
		latent.Scores = latentScores
		mixed := fitAtTruth(scenario, model.MethodMixed)
		mixed.Scores = mixedScores

		comparison, err := New(Config{ScoreThreshold: 0.9}).Compare(scenario, latent, mixed)
		if err != nil {
			t.Fatalf("compare: %v", err)
		}
		if !comparison.Equivalent {
			t.Error("r = 0.94 should pass a 0.9 threshold")
		}
	})
}

func TestCompareWeakestFactorDecides(t *testing.T) {
	scenario := model.InterceptSlopeScenario()
	latent := fitAtTruth(scenario, model.MethodLatent)
	mixed := fitAtTruth(scenario, model.MethodMixed)

	// Intercept scores agree exactly, slope scores only loosely.
	latent.Scores = [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	mixed.Scores = [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 3}}

	comparison, err := New(DefaultConfig()).Compare(scenario, latent, mixed)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(comparison.Scores) != 2 {
		t.Fatalf("score agreements = %d, want 2", len(comparison.Scores))
	}
	if min := comparison.MinCorrelation(); math.Abs(min-0.9439) > 0.001 {
		t.Errorf("min correlation = %.4f, want the slope's 0.9439", min)
	}
	if comparison.Equivalent {
		t.Error("one weak factor must sink the verdict")
	}
}

func TestFisherIntervalDegenerate(t *testing.T) {
	lower, upper := fisherInterval(1, 100)
	if math.IsNaN(lower) || math.IsNaN(upper) {
		t.Fatalf("interval at r=1 is NaN: [%v, %v]", lower, upper)
	}
	if lower < 0.999 || upper != 1 {
		t.Errorf("interval at r=1 = [%.4f, %.4f], want collapsed at 1", lower, upper)
	}

	lower, upper = fisherInterval(0.5, 3)
	if lower != -1 || upper != 1 {
		t.Errorf("interval with n<4 = [%.4f, %.4f], want the full range", lower, upper)
	}
}
