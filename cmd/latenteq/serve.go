package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shahhaard47/latenteq/adapters/lmm"
	"github.com/shahhaard47/latenteq/adapters/sem"
	"github.com/shahhaard47/latenteq/adapters/sim"
	"github.com/shahhaard47/latenteq/app"
	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/internal/compare"
	"github.com/shahhaard47/latenteq/internal/config"
	"github.com/shahhaard47/latenteq/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a study and serve its report over HTTP",
		Long: `Serve executes one study, keeps the result in memory and serves the
rendered report until interrupted: HTML at /, raw JSON at /report.json.

Examples:

  latenteq serve
  latenteq serve -s intercept-slope --addr :9090`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("scenario", "s", "",
		"Scenario name or YAML file path (default: random-intercept)")
	cmd.Flags().Int("n", 0,
		"Override the scenario's sample size")
	cmd.Flags().Int64("seed", 0,
		"Override the scenario's seed")
	cmd.Flags().Bool("reml", false,
		"Fit the mixed model by REML instead of ML")
	cmd.Flags().String("addr", "",
		"Listen address (default: :8080)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if addr, err := cmd.Flags().GetString("addr"); err != nil {
		return err
	} else if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := setupLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	scenario, err := config.ResolveScenario(cfg.Run.Scenario)
	if err != nil {
		return err
	}

	service := app.NewStudyService(
		sim.NewSimulator(),
		sem.NewFitter(),
		lmm.NewFitter(),
		compare.New(compare.DefaultConfig()),
		app.WithLogger(logger),
		app.WithVersion(core.CodeVersion(getVersion())),
	)

	result, err := service.Run(ctx, app.StudyRequest{
		Scenario: scenario,
		N:        cfg.Run.N,
		Seed:     cfg.Run.Seed,
		REML:     cfg.Run.REML,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Study %s complete; serving report at http://localhost%s/\n",
		result.Manifest.StudyID.String(), cfg.Server.Addr)

	return server.New(cfg.Server.Addr, result, logger).Start()
}
