package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shahhaard47/latenteq/adapters/lmm"
	"github.com/shahhaard47/latenteq/adapters/sem"
	"github.com/shahhaard47/latenteq/adapters/sim"
	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
	"github.com/shahhaard47/latenteq/internal/compare"
	"github.com/shahhaard47/latenteq/ports"
)

// Mock implementations for testing

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveStudy(ctx context.Context, result *study.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockArchive) ListStudies(ctx context.Context, limit int) ([]ports.StudySummary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ports.StudySummary), args.Error(1)
}

func (m *MockArchive) GetStudy(ctx context.Context, id core.StudyID) (*study.Result, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*study.Result), args.Error(1)
}

func (m *MockArchive) Close() error {
	args := m.Called()
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, opts ...StudyOption) *StudyService {
	t.Helper()
	base := []StudyOption{
		WithLogger(discardLogger()),
		WithVersion(core.CodeVersion("test")),
	}
	return NewStudyService(
		sim.NewSimulator(),
		sem.NewFitter(),
		lmm.NewFitter(),
		compare.New(compare.DefaultConfig()),
		append(base, opts...)...,
	)
}

func TestGoldStandard_StudyPipelineEquivalence(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	result, err := newTestService(t).Run(context.Background(), StudyRequest{Scenario: scenario})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !result.Latent.Converged || !result.Mixed.Converged {
		t.Fatalf("expected both fits to converge: latent=%v mixed=%v",
			result.Latent.Converged, result.Mixed.Converged)
	}
	if got := result.Comparison.MinCorrelation(); got <= 0.99 {
		t.Errorf("weakest score correlation = %.6f, want > 0.99", got)
	}
	if !result.Equivalent() {
		t.Error("canonical scenario should produce an equivalent verdict")
	}

	m := result.Manifest
	if m.Scenario != scenario.Name {
		t.Errorf("manifest scenario = %q, want %q", m.Scenario, scenario.Name)
	}
	if m.N != 1000 || m.Seed != 42 || m.Waves != 3 {
		t.Errorf("manifest n/seed/waves = %d/%d/%d, want 1000/42/3", m.N, m.Seed, m.Waves)
	}
	if m.DataHash == "" || m.Fingerprint == "" {
		t.Error("manifest missing data hash or fingerprint")
	}
	if m.RuntimeMS < 0 {
		t.Errorf("manifest runtime = %d ms", m.RuntimeMS)
	}

	if len(result.Profile) != 3 {
		t.Fatalf("profile has %d columns, want 3", len(result.Profile))
	}
	for k, p := range result.Profile {
		want := scenario.TheoreticalVariance(k)
		if math.Abs(p.Variance-want) > 0.7 {
			t.Errorf("column %s variance = %.3f, want about %.1f", p.Column, p.Variance, want)
		}
	}

	if len(result.Comparison.Components) != 5 {
		t.Errorf("comparison has %d components, want 5", len(result.Comparison.Components))
	}
	if result.Latent.Fit == nil {
		t.Fatal("latent fit is missing its model test")
	}
	if result.Latent.Fit.DF != 4 {
		t.Errorf("latent model test df = %d, want 4", result.Latent.Fit.DF)
	}
}

func TestGoldStandard_GrowthPipelineEquivalence(t *testing.T) {
	scenario := model.InterceptSlopeScenario()
	result, err := newTestService(t).Run(context.Background(), StudyRequest{Scenario: scenario})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !result.Equivalent() {
		t.Error("growth scenario should produce an equivalent verdict")
	}
	if len(result.Comparison.Scores) != 2 {
		t.Fatalf("comparison has %d score agreements, want 2", len(result.Comparison.Scores))
	}
	for _, s := range result.Comparison.Scores {
		if s.Correlation <= 0.99 {
			t.Errorf("factor %s score correlation = %.6f, want > 0.99", s.Factor, s.Correlation)
		}
		if s.N != 1000 {
			t.Errorf("factor %s agreement over %d units, want 1000", s.Factor, s.N)
		}
	}
	if len(result.Comparison.Components) != 9 {
		t.Errorf("comparison has %d components, want 9", len(result.Comparison.Components))
	}
}

func TestStudyObservedData(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	wide, err := sim.NewSimulator().Simulate(context.Background(), ports.SimulationRequest{
		Scenario: scenario,
		N:        400,
		Seed:     9,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	result, err := newTestService(t).Run(context.Background(), StudyRequest{
		Scenario: scenario,
		Data:     wide,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Manifest.N != 400 {
		t.Errorf("manifest n = %d, want the observed table's 400 rows", result.Manifest.N)
	}
	if result.Manifest.DataHash != wide.DataHash() {
		t.Error("manifest data hash should pin the observed table")
	}
	if !result.Equivalent() {
		t.Error("observed draw from the generative model should still be equivalent")
	}
}

func TestStudyRejectsMismatchedObservedData(t *testing.T) {
	wide, err := sim.NewSimulator().Simulate(context.Background(), ports.SimulationRequest{
		Scenario: model.RandomInterceptScenario(),
		N:        50,
		Seed:     3,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// Three observed columns against a four-wave scenario.
	_, err = newTestService(t).Run(context.Background(), StudyRequest{
		Scenario: model.InterceptSlopeScenario(),
		Data:     wide,
	})
	if !errors.Is(err, core.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestStudyRejectsInvalidScenario(t *testing.T) {
	scenario := model.RandomInterceptScenario()
	scenario.Loadings = scenario.Loadings[:2]

	_, err := newTestService(t).Run(context.Background(), StudyRequest{Scenario: scenario})
	if err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestStudyArchivesResult(t *testing.T) {
	archive := new(MockArchive)

	var saved *study.Result
	archive.On("SaveStudy", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*study.Result)
	}).Return(nil)

	result, err := newTestService(t, WithArchive(archive)).Run(context.Background(), StudyRequest{
		Scenario: model.RandomInterceptScenario(),
		N:        200,
		Seed:     5,
	})
	assert.NoError(t, err)
	archive.AssertNumberOfCalls(t, "SaveStudy", 1)
	assert.Same(t, result, saved)
}

func TestStudyArchiveFailureSurfaces(t *testing.T) {
	archive := new(MockArchive)
	archive.On("SaveStudy", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := newTestService(t, WithArchive(archive)).Run(context.Background(), StudyRequest{
		Scenario: model.RandomInterceptScenario(),
		N:        200,
		Seed:     5,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "archiving failed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestStudyUsesOverrides(t *testing.T) {
	result, err := newTestService(t).Run(context.Background(), StudyRequest{
		Scenario: model.RandomInterceptScenario(),
		N:        300,
		Seed:     7,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Manifest.N != 300 || result.Manifest.Seed != 7 {
		t.Errorf("manifest n/seed = %d/%d, want 300/7", result.Manifest.N, result.Manifest.Seed)
	}
	if len(result.Latent.Scores) != 300 {
		t.Errorf("latent fit scored %d units, want 300", len(result.Latent.Scores))
	}
}
