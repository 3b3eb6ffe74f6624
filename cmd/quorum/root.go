package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Iterative quality-driven worker coordination",
	Long: `Quorum coordinates specialized workers on a task through iterative
refinement: it selects a worker set, fans the task out, scores every
output, and repeats until quality converges or the iteration budget
runs out.

Workers are declared in a YAML manifest (.quorum/workers.yaml) as
external commands; quorum treats them as opaque executables and judges
only their output.

Core capabilities:
- Selects workers by task domain, keywords, or required capabilities
- Executes sequentially, in parallel, or in priority tiers
- Scores outputs on content, completeness, efficiency, and improvement
- Suspends runs for human approval and resumes them later
- Tracks rolling metrics and alerts on threshold breaches`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
