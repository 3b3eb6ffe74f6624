package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
)

var trainCmd = &cobra.Command{
	Use:   "train <task>",
	Short: "Execute a training run with feedback adjustments",
	Long: `Run a task through the coordination loop with the feedback adjuster
enabled: each iteration's sub-scores are compared against the configured
training targets, and advisory parameter adjustments accumulate in the
final synthesis.

Adjustments never change worker behavior; they describe where the
worker set underperforms its targets. Targets and the learning rate
come from the training section of the config.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrain,
}

func init() {
	// Training shares the run command's flag set.
	trainCmd.Flags().AddFlagSet(runCmd.Flags())
}

func runTrain(cmd *cobra.Command, args []string) error {
	task, runCfg, err := buildTaskAndConfig(args)
	if err != nil {
		return err
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	applyConfigDefaults(&runCfg, cfg)

	engine, db, err := buildEngine(projectRoot, cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Training on: %s (learning rate %.2f)\n", task.Text, cfg.Training.LearningRate)
	stopProgress := printProgress(engine)
	run, err := engine.Run(ctx, task, runCfg)
	stopProgress()
	if err != nil {
		return err
	}

	printRunOutcome(run)

	if len(run.Adjustments) > 0 {
		fmt.Println("\nProposed adjustments:")
		for _, adj := range run.Adjustments {
			fmt.Printf("  %s: %.1f -> %.1f (%s)\n", adj.Parameter, adj.OldValue, adj.NewValue, adj.Reason)
		}
	} else if run.Status.Terminal() {
		fmt.Println("\nAll dimensions met their training targets; no adjustments proposed.")
	}
	return nil
}
