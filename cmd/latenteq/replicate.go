package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shahhaard47/latenteq/adapters/lmm"
	"github.com/shahhaard47/latenteq/adapters/sem"
	"github.com/shahhaard47/latenteq/adapters/sim"
	"github.com/shahhaard47/latenteq/app"
	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/internal/compare"
	"github.com/shahhaard47/latenteq/internal/config"
)

// NewReplicateCmd creates the replicate command.
func NewReplicateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Repeat a study under derived seeds",
		Long: `Replicate runs the same study many times, seeding replicate i with the
base seed plus i, and aggregates the per-replicate verdicts. A healthy
scenario clears the score-correlation threshold on every replicate; a
single failing seed is worth investigating with the run command.

Replicated studies are not archived. Archive a single interesting seed
with run --archive instead.

Examples:

  latenteq replicate --replications 20
  latenteq replicate -s intercept-slope -r 50 -w 8 -f json -o sweep.json`,
		Args: cobra.NoArgs,
		RunE: runReplicateCmd,
	}

	cmd.Flags().StringP("scenario", "s", "",
		"Scenario name or YAML file path (default: random-intercept)")
	cmd.Flags().Int("n", 0,
		"Override the scenario's sample size")
	cmd.Flags().Int64("seed", 0,
		"Base seed; replicate i runs under base+i (default: scenario seed)")
	cmd.Flags().IntP("replications", "r", 20,
		"Number of replications")
	cmd.Flags().IntP("workers", "w", 0,
		"Concurrent replications (default: 4)")
	cmd.Flags().Bool("reml", false,
		"Fit the mixed models by REML instead of ML")
	cmd.Flags().Float64("threshold", 0,
		"Equivalence threshold on the score correlation (default: 0.99)")
	cmd.Flags().StringP("format", "f", "",
		"Report format: markdown, html or json (default: markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout")

	return cmd
}

// runReplicateCmd executes the replicate command.
func runReplicateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	replications, err := cmd.Flags().GetInt("replications")
	if err != nil {
		return err
	}
	if workers, err := cmd.Flags().GetInt("workers"); err != nil {
		return err
	} else if workers > 0 {
		cfg.Run.Workers = workers
	}

	compareCfg := compare.DefaultConfig()
	if threshold, err := cmd.Flags().GetFloat64("threshold"); err != nil {
		return err
	} else if threshold > 0 {
		compareCfg.ScoreThreshold = threshold
	}

	logger := setupLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	scenario, err := config.ResolveScenario(cfg.Run.Scenario)
	if err != nil {
		return err
	}

	studyService := app.NewStudyService(
		sim.NewSimulator(),
		sem.NewFitter(),
		lmm.NewFitter(),
		compare.New(compareCfg),
		app.WithLogger(logger),
		app.WithVersion(core.CodeVersion(getVersion())),
	)

	summary, err := app.NewReplicationService(studyService, logger).Run(ctx, app.ReplicationRequest{
		Scenario:     scenario,
		N:            cfg.Run.N,
		BaseSeed:     cfg.Run.Seed,
		Replications: replications,
		Workers:      cfg.Run.Workers,
		REML:         cfg.Run.REML,
	})
	if err != nil {
		return err
	}

	return outputSummary(cfg, summary)
}
