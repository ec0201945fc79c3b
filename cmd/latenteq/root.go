// Package main provides the entry point for the latenteq CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for latenteq.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latenteq",
		Short: "Show that mixed models and latent-variable models are the same fit",
		Long: `latenteq simulates panel data from a known latent model, fits it twice
(as a constrained latent-variable model on the wide table, and as a linear
mixed model on the stacked long table) and compares every estimate.

The two fits parameterize the same likelihood, so their variance components
must match and their per-unit predictions (factor scores on one side, fixed
effect plus BLUP on the other) must correlate almost perfectly. The run
command executes one study; replicate repeats it under derived seeds to
show the agreement is not a single-seed accident.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewReplicateCmd())
	cmd.AddCommand(NewScenariosCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
