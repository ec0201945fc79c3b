package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahhaard47/latenteq/adapters/sqlite"
	"github.com/shahhaard47/latenteq/domain/core"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [study-id]",
		Short: "List or show archived studies",
		Long: `History lists studies saved with run --archive, most recent first. Pass
a study ID to render that study's full report again in any format.

Examples:

  latenteq history
  latenteq history --limit 5
  latenteq history 0198f2a4-7c1b-7e36-b0f1-2d97a4c11e42 -f html -o old.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int("limit", 20,
		"Maximum number of studies to list (0 for all)")
	cmd.Flags().String("archive-path", "",
		"Archive database path (default: XDG data directory)")
	cmd.Flags().StringP("format", "f", "",
		"Report format for a single study: markdown, html or json")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	archive, err := sqlite.Open(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	ctx := context.Background()

	if len(args) == 1 {
		id, err := core.ParseStudyID(args[0])
		if err != nil {
			return err
		}
		result, err := archive.GetStudy(ctx, id)
		if err != nil {
			return err
		}
		return outputStudy(cfg, result)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	summaries, err := archive.ListStudies(ctx, limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived studies yet. Save one with: latenteq run --archive")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-36s  %-19s  %-18s  %6s  %6s  %11s  %s\n",
		"STUDY", "CREATED", "SCENARIO", "N", "SEED", "CORRELATION", "VERDICT")
	for _, s := range summaries {
		verdict := "equivalent"
		if !s.Equivalent {
			verdict = "divergent"
		}
		fmt.Fprintf(out, "%-36s  %-19s  %-18s  %6d  %6d  %11.6f  %s\n",
			s.StudyID.String(),
			s.CreatedAt.Time().Format("2006-01-02 15:04:05"),
			s.Scenario,
			s.N,
			s.Seed,
			s.Correlation,
			verdict)
	}
	return nil
}
