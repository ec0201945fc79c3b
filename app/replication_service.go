package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
)

// ReplicationService repeats a study under derived seeds to show the
// equivalence verdict is not a single-seed accident. Replicates run
// concurrently; a failed replicate is recorded in its outcome and never
// stops the batch.
type ReplicationService struct {
	study  *StudyService
	logger *slog.Logger
}

// NewReplicationService creates a replication service over a study service.
func NewReplicationService(studyService *StudyService, logger *slog.Logger) *ReplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplicationService{study: studyService, logger: logger}
}

// ReplicationRequest specifies a replication batch. Seeds are derived as
// BaseSeed plus the replicate index, so any single replicate can be rerun
// on its own with the run command.
type ReplicationRequest struct {
	Scenario     model.Scenario
	N            int
	BaseSeed     int64
	Replications int
	Workers      int
	REML         bool
}

// Run executes the batch and returns the aggregated summary. The returned
// error is non-nil only when the batch itself could not run; individual
// replicate failures live in the summary's outcomes.
func (s *ReplicationService) Run(ctx context.Context, req ReplicationRequest) (*study.ReplicationSummary, error) {
	if req.Replications < 1 {
		return nil, core.NewValidationError("replications", "need at least one replication")
	}
	workers := req.Workers
	if workers < 1 {
		workers = 4
	}

	n := req.Scenario.N
	if req.N > 0 {
		n = req.N
	}
	baseSeed := req.BaseSeed
	if baseSeed == 0 {
		baseSeed = req.Scenario.Seed
	}

	s.logger.Info("starting replication study",
		"scenario", req.Scenario.Name,
		"replications", req.Replications,
		"workers", workers,
		"base_seed", baseSeed)
	startTime := time.Now()

	// Each replicate writes only its own slot, so no lock is needed; the
	// slice is read after Wait returns.
	outcomes := make([]study.ReplicateOutcome, req.Replications)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < req.Replications; i++ {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			seed := baseSeed + int64(i)
			result, err := s.study.Run(gctx, StudyRequest{
				Scenario: req.Scenario,
				N:        n,
				Seed:     seed,
				REML:     req.REML,
			})
			if err != nil {
				s.logger.Warn("replicate failed", "replicate", i, "seed", seed, "error", err)
				outcomes[i] = study.ReplicateOutcome{Replicate: i, Seed: seed, Err: err.Error()}
				return nil
			}

			outcomes[i] = study.ReplicateOutcome{
				Replicate:   i,
				Seed:        seed,
				Correlation: result.Comparison.MinCorrelation(),
				Equivalent:  result.Comparison.Equivalent,
			}
			s.logger.Debug("replicate complete",
				"replicate", i,
				"seed", seed,
				"correlation", outcomes[i].Correlation)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &study.ReplicationSummary{
		Scenario:  req.Scenario.Name,
		BaseSeed:  baseSeed,
		N:         n,
		Threshold: s.study.Threshold(),
		Outcomes:  outcomes,
	}
	summary.Summarize()

	s.logger.Info("replication study complete",
		"replications", summary.Replications,
		"failures", summary.Failures,
		"min_correlation", summary.MinCorrelation,
		"all_equivalent", summary.AllEquivalent,
		"elapsed", time.Since(startTime))

	return summary, nil
}
