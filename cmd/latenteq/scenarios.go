package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahhaard47/latenteq/domain/model"
)

// NewScenariosCmd creates the scenarios command.
func NewScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Long: `Scenarios lists the generative models that ship with latenteq. Any of
them can be passed to run or replicate by name. Custom scenarios live in
YAML files with the same fields; pass the file path instead of a name:

  name: my-growth
  n: 1000
  seed: 7
  columns: [y1, y2, y3]
  factor_names: [intercept]
  loadings: [[1], [1], [1]]
  factor_means: [0.3]
  factor_cov: [[4]]
  residual_sd: [1, 1.41, 1.73]`,
		Args: cobra.NoArgs,
		Run:  runScenariosCmd,
	}
}

// runScenariosCmd prints every built-in scenario.
func runScenariosCmd(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	for _, s := range model.BuiltinScenarios() {
		fmt.Fprintf(out, "%s\n", s.Name)
		fmt.Fprintf(out, "  %s\n", s.Description)
		fmt.Fprintf(out, "  waves: %d  factors: %s  default n: %d  default seed: %d\n\n",
			s.Waves(), strings.Join(s.FactorNames, ", "), s.N, s.Seed)
	}
}
