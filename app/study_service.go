// Package app orchestrates study runs: simulate or accept data, fit both
// model families, compare them, and stamp the result with provenance.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
	"github.com/shahhaard47/latenteq/domain/table"
	"github.com/shahhaard47/latenteq/internal/compare"
	"github.com/shahhaard47/latenteq/ports"
)

// StudyService runs one scenario end to end: data, latent fit, mixed fit,
// comparison, manifest. Archiving is optional; when configured, a failed
// save fails the run rather than silently dropping the record.
type StudyService struct {
	simulator  ports.SimulatorPort
	latent     ports.LatentFitterPort
	mixed      ports.MixedFitterPort
	comparator *compare.Comparator
	archive    ports.ArchivePort
	logger     *slog.Logger
	version    core.CodeVersion
}

// StudyOption configures optional service collaborators.
type StudyOption func(*StudyService)

// WithArchive persists every completed study through the given port.
func WithArchive(archive ports.ArchivePort) StudyOption {
	return func(s *StudyService) {
		s.archive = archive
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) StudyOption {
	return func(s *StudyService) {
		s.logger = logger
	}
}

// WithVersion stamps manifests with the given code version.
func WithVersion(version core.CodeVersion) StudyOption {
	return func(s *StudyService) {
		s.version = version
	}
}

// NewStudyService creates a study service over the given ports.
func NewStudyService(
	simulator ports.SimulatorPort,
	latent ports.LatentFitterPort,
	mixed ports.MixedFitterPort,
	comparator *compare.Comparator,
	opts ...StudyOption,
) *StudyService {
	s := &StudyService{
		simulator:  simulator,
		latent:     latent,
		mixed:      mixed,
		comparator: comparator,
		logger:     slog.Default(),
		version:    core.CodeVersion("dev"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the comparator's equivalence threshold.
func (s *StudyService) Threshold() float64 {
	return s.comparator.Threshold()
}

// StudyRequest specifies one study run. N and Seed override the scenario
// defaults when positive. When Data is set the simulation stage is skipped
// and the observed table is fitted instead; its column count must match the
// scenario's wave count.
type StudyRequest struct {
	Scenario model.Scenario
	N        int
	Seed     int64
	REML     bool
	Data     *table.Wide
}

// Run executes the full study pipeline and returns the assembled result.
func (s *StudyService) Run(ctx context.Context, req StudyRequest) (*study.Result, error) {
	startTime := time.Now()

	if err := req.Scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	n := req.Scenario.N
	if req.N > 0 {
		n = req.N
	}
	seed := req.Scenario.Seed
	if req.Seed != 0 {
		seed = req.Seed
	}

	wide := req.Data
	if wide == nil {
		var err error
		wide, err = s.simulator.Simulate(ctx, ports.SimulationRequest{
			Scenario: req.Scenario,
			N:        n,
			Seed:     seed,
		})
		if err != nil {
			return nil, fmt.Errorf("simulation failed: %w", err)
		}
		s.logger.Info("simulated dataset",
			"scenario", req.Scenario.Name,
			"n", wide.Rows(),
			"waves", wide.Cols(),
			"seed", seed)
	} else {
		if wide.Cols() != req.Scenario.Waves() {
			return nil, core.NewDimensionError("observed data columns", req.Scenario.Waves(), wide.Cols())
		}
		n = wide.Rows()
		s.logger.Info("using observed dataset", "n", n, "waves", wide.Cols())
	}

	profile, err := table.ProfileWide(wide)
	if err != nil {
		return nil, fmt.Errorf("data profiling failed: %w", err)
	}

	long, err := table.ToLong(wide)
	if err != nil {
		return nil, fmt.Errorf("pivot to long failed: %w", err)
	}
	// Both fitters must see the same data. Pivoting back and comparing cell
	// for cell proves the long table carries everything the wide one did.
	back, err := table.ToWide(long)
	if err != nil {
		return nil, fmt.Errorf("pivot round trip failed: %w", err)
	}
	if !wide.Equal(back) {
		return nil, fmt.Errorf("pivot round trip altered the table")
	}

	latentRes, err := s.latent.FitWide(ctx, wide, req.Scenario.LatentSpec())
	if err != nil {
		return nil, fmt.Errorf("latent fit failed: %w", err)
	}
	s.logger.Info("latent fit complete",
		"loglik", latentRes.LogLik,
		"params", latentRes.NParams,
		"evals", latentRes.FuncEvals)

	mixedSpec := req.Scenario.MixedSpec()
	mixedSpec.REML = req.REML
	mixedRes, err := s.mixed.FitLong(ctx, long, mixedSpec)
	if err != nil {
		return nil, fmt.Errorf("mixed fit failed: %w", err)
	}
	s.logger.Info("mixed fit complete",
		"loglik", mixedRes.LogLik,
		"params", mixedRes.NParams,
		"evals", mixedRes.FuncEvals,
		"reml", req.REML)

	comparison, err := s.comparator.Compare(req.Scenario, latentRes, mixedRes)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	manifest := study.NewManifest(req.Scenario.Name, seed, n, req.Scenario.Waves(), s.version)
	manifest.DataHash = wide.DataHash()
	manifest.RuntimeMS = time.Since(startTime).Milliseconds()

	result := &study.Result{
		Manifest:   manifest,
		Scenario:   req.Scenario,
		Profile:    profile,
		Latent:     latentRes,
		Mixed:      mixedRes,
		Comparison: comparison,
	}

	if s.archive != nil {
		if err := s.archive.SaveStudy(ctx, result); err != nil {
			return nil, fmt.Errorf("archiving failed: %w", err)
		}
		s.logger.Info("study archived", "study", manifest.StudyID.String())
	}

	s.logger.Info("study complete",
		"study", manifest.StudyID.String(),
		"equivalent", comparison.Equivalent,
		"min_correlation", comparison.MinCorrelation(),
		"runtime_ms", manifest.RuntimeMS)

	return result, nil
}
