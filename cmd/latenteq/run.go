package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shahhaard47/latenteq/adapters/dataio"
	"github.com/shahhaard47/latenteq/adapters/lmm"
	"github.com/shahhaard47/latenteq/adapters/sem"
	"github.com/shahhaard47/latenteq/adapters/sim"
	"github.com/shahhaard47/latenteq/adapters/sqlite"
	"github.com/shahhaard47/latenteq/app"
	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/table"
	"github.com/shahhaard47/latenteq/internal/compare"
	"github.com/shahhaard47/latenteq/internal/config"
	"github.com/shahhaard47/latenteq/internal/logging"
	"github.com/shahhaard47/latenteq/ports"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one study: simulate, fit both models, compare",
		Long: `Run executes the full pipeline once: draw a dataset from the scenario's
generative model (or load an observed one with --input), fit the
constrained latent-variable model to the wide table and the linear mixed
model to the stacked long table, then compare every variance component and
every per-unit prediction.

Examples:

  # The canonical intercept scenario
  latenteq run

  # Larger sample under a different seed, HTML report to a file
  latenteq run --scenario intercept-slope --n 5000 --seed 7 -f html -o report.html

  # Fit an observed dataset instead of simulating
  latenteq run --input panel.xlsx

  # Keep the simulated data and archive the study
  latenteq run --export-data data.csv --archive

  # A scenario defined in a YAML file
  latenteq run --scenario scenarios/my-growth.yaml`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("scenario", "s", "",
		"Scenario name or YAML file path (default: random-intercept)")
	cmd.Flags().Int("n", 0,
		"Override the scenario's sample size")
	cmd.Flags().Int64("seed", 0,
		"Override the scenario's seed")
	cmd.Flags().Bool("reml", false,
		"Fit the mixed model by REML instead of ML")
	cmd.Flags().StringP("input", "i", "",
		"Fit an observed wide dataset (.csv or .xlsx) instead of simulating")
	cmd.Flags().String("export-data", "",
		"Write the wide dataset to this path (.csv or .xlsx)")
	cmd.Flags().String("export-long", "",
		"Write the stacked long dataset to this path (.csv or .xlsx)")
	cmd.Flags().StringP("format", "f", "",
		"Report format: markdown, html or json (default: markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().Bool("archive", false,
		"Save the study to the archive")
	cmd.Flags().String("archive-path", "",
		"Archive database path (default: XDG data directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	scenario, err := config.ResolveScenario(cfg.Run.Scenario)
	if err != nil {
		return err
	}

	req := app.StudyRequest{
		Scenario: scenario,
		N:        cfg.Run.N,
		Seed:     cfg.Run.Seed,
		REML:     cfg.Run.REML,
	}

	inputPath, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}
	exportPath, err := cmd.Flags().GetString("export-data")
	if err != nil {
		return err
	}
	exportLongPath, err := cmd.Flags().GetString("export-long")
	if err != nil {
		return err
	}

	if inputPath != "" {
		req.Data, err = dataio.NewReader().ReadWide(inputPath)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		logger.Info("loaded observed dataset", "path", inputPath, "n", req.Data.Rows())
	} else if exportPath != "" || exportLongPath != "" {
		// Draw the dataset here so it can be exported even if a fit fails.
		// The service accepts it unchanged, so the study is identical to one
		// that simulated internally.
		req.Data, err = sim.NewSimulator().Simulate(ctx, ports.SimulationRequest{
			Scenario: scenario,
			N:        cfg.Run.N,
			Seed:     cfg.Run.Seed,
		})
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
	}

	if req.Data != nil && exportPath != "" {
		if err := dataio.NewWriter().WriteWide(req.Data, exportPath); err != nil {
			return fmt.Errorf("failed to export dataset: %w", err)
		}
		logger.Info("wide dataset exported", "path", exportPath)
	}
	if req.Data != nil && exportLongPath != "" {
		long, err := table.ToLong(req.Data)
		if err != nil {
			return fmt.Errorf("failed to pivot dataset: %w", err)
		}
		if err := dataio.NewWriter().WriteLong(long, exportLongPath); err != nil {
			return fmt.Errorf("failed to export long dataset: %w", err)
		}
		logger.Info("long dataset exported", "path", exportLongPath)
	}

	opts := []app.StudyOption{
		app.WithLogger(logger),
		app.WithVersion(core.CodeVersion(getVersion())),
	}
	if cfg.Archive.Enabled {
		archive, err := sqlite.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()
		opts = append(opts, app.WithArchive(archive))
		logger.Info("archive opened", "path", cfg.Archive.Path)
	}

	service := app.NewStudyService(
		sim.NewSimulator(),
		sem.NewFitter(),
		lmm.NewFitter(),
		compare.New(compare.DefaultConfig()),
		opts...,
	)

	result, err := service.Run(ctx, req)
	if err != nil {
		return err
	}

	return outputStudy(cfg, result)
}

// buildConfig loads environment defaults and applies the command-line flags
// the invoked command actually registered.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("scenario") {
		if cfg.Run.Scenario, err = flags.GetString("scenario"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("n") {
		if cfg.Run.N, err = flags.GetInt("n"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("seed") {
		if cfg.Run.Seed, err = flags.GetInt64("seed"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("reml") {
		if cfg.Run.REML, err = flags.GetBool("reml"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		if cfg.Report.Format, err = flags.GetString("format"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.Report.Output, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("archive") {
		if cfg.Archive.Enabled, err = flags.GetBool("archive"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("archive-path") {
		if cfg.Archive.Path, err = flags.GetString("archive-path"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger builds the process logger. --verbose forces debug level
// regardless of the configured level.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if getVerboseFlag(cmd) {
		level = "debug"
	}
	return logging.New(level)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling")
		cancel()
	}()

	return ctx, cancel
}
