package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/pkg/models"
)

var (
	runDomain       string
	runComplexity   int
	runThreshold    float64
	runMaxIter      int
	runStrategy     string
	runCapabilities []string
	runApproveAfter int
	runContextPairs []string
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Execute a coordination run",
	Long: `Run a task through the coordination loop: select workers, fan out,
score the outputs, and iterate until quality converges or the budget
runs out.

Workers come from the project manifest (.quorum/workers.yaml). The run
and every scored iteration are persisted to .quorum/state.db.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "", "task domain (finance, legal, medical, technical, creative, research)")
	runCmd.Flags().IntVar(&runComplexity, "complexity", 1, "task complexity tier (1-5)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "quality threshold to converge (0-100, default from config)")
	runCmd.Flags().IntVar(&runMaxIter, "max-iterations", 0, "iteration budget (default from config)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "force execution strategy (sequential, parallel, hybrid)")
	runCmd.Flags().StringSliceVar(&runCapabilities, "capability", nil, "force-include workers with this capability tag (repeatable)")
	runCmd.Flags().IntVar(&runApproveAfter, "approve-after", -1, "suspend for approval after this iteration (default from config)")
	runCmd.Flags().StringSliceVar(&runContextPairs, "context", nil, "run context key=value pair (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
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

	engine, db, err := buildEngine(projectRoot, cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Coordinating: %s\n", task.Text)
	stopProgress := printProgress(engine)
	run, err := engine.Run(ctx, task, runCfg)
	stopProgress()
	if err != nil {
		return err
	}

	printRunOutcome(run)
	return nil
}

// buildTaskAndConfig translates CLI flags into the task and run config.
func buildTaskAndConfig(args []string) (models.Task, models.RunConfig, error) {
	task := models.Task{
		Text:                 strings.Join(args, " "),
		Complexity:           runComplexity,
		RequiredCapabilities: runCapabilities,
	}

	if runDomain != "" {
		domain := models.Domain(runDomain)
		if !domain.Valid() {
			return task, models.RunConfig{}, fmt.Errorf("unknown domain %q", runDomain)
		}
		task.Domain = domain
	}

	runCfg := models.RunConfig{
		QualityThreshold: runThreshold,
		MaxIterations:    runMaxIter,
		ApprovalAfter:    runApproveAfter,
	}

	if runStrategy != "" {
		strategy := models.ExecutionStrategy(runStrategy)
		if !strategy.Valid() {
			return task, runCfg, fmt.Errorf("unknown strategy %q", runStrategy)
		}
		runCfg.StrategyOverride = strategy
	}

	contextMap, err := parseContextPairs(runContextPairs)
	if err != nil {
		return task, runCfg, err
	}
	runCfg.Context = contextMap

	return task, runCfg, nil
}

// applyConfigDefaults fills unset run-config fields from loaded config.
func applyConfigDefaults(runCfg *models.RunConfig, cfg *config.Config) {
	if runCfg.QualityThreshold == 0 {
		runCfg.QualityThreshold = cfg.Defaults.QualityThreshold
	}
	if runCfg.MaxIterations == 0 {
		runCfg.MaxIterations = cfg.Defaults.MaxIterations
	}
	if runCfg.ApprovalAfter < 0 {
		runCfg.ApprovalAfter = cfg.Defaults.ApprovalAfter
	}
}
