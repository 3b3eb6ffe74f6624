package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/state"
	"github.com/ShayCichocki/quorum/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show coordination run state",
	Long: `Display persisted coordination runs.

Without arguments, lists recent runs with their status and quality.
With a run ID, shows that run's full detail: iteration history, quality
progression, and recommendations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Run 'quorum run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if len(args) == 1 {
		return displayRunDetail(db, args[0])
	}
	return displayRunList(db)
}

// displayRunList lists recent runs, suspended ones first.
func displayRunList(db *state.DB) error {
	runs, err := db.ListRuns(nil)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'quorum run <task>' to start.")
		return nil
	}

	var suspended []models.CoordinationRun
	for _, r := range runs {
		if r.Status == models.RunAwaitingApproval {
			suspended = append(suspended, r)
		}
	}
	if len(suspended) > 0 {
		fmt.Println("Awaiting approval:")
		for _, r := range suspended {
			statusColor(r.Status).Printf("  %s", r.ID)
			fmt.Printf("  %.1f  %s  (resume with 'quorum resume %s')\n",
				r.FinalQuality, truncate(r.Task.Text, 50), r.ID)
		}
		fmt.Println()
	}

	fmt.Println("Recent runs:")
	shown := 0
	for _, r := range runs {
		if r.Status == models.RunAwaitingApproval {
			continue
		}
		statusColor(r.Status).Printf("  %s", r.ID)
		fmt.Printf("  %-10s  %.1f  %s  (%s ago)\n",
			r.Status, r.FinalQuality, truncate(r.Task.Text, 50),
			formatDuration(time.Since(r.StartedAt)))
		shown++
		if shown >= 10 {
			break
		}
	}
	return nil
}

// displayRunDetail shows one run's full record.
func displayRunDetail(db *state.DB, runID string) error {
	run, cfg, err := db.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	statusColor(run.Status).Printf("Run %s: %s\n", run.ID, run.Status)
	fmt.Printf("  Task:      %s\n", run.Task.Text)
	if run.Task.Domain != "" {
		fmt.Printf("  Domain:    %s\n", run.Task.Domain)
	}
	fmt.Printf("  Threshold: %.1f (budget %d iterations)\n", cfg.QualityThreshold, cfg.MaxIterations)
	fmt.Printf("  Started:   %s ago\n", formatDuration(time.Since(run.StartedAt)))
	if run.FinishedAt != nil {
		fmt.Printf("  Duration:  %s\n", formatDuration(run.FinishedAt.Sub(run.StartedAt)))
	}

	if run.IterationsPerformed() > 0 {
		fmt.Println("\nIterations:")
		for _, rec := range run.Iterations {
			fmt.Printf("  %d: quality %.1f (%d ok, %d failed)\n",
				rec.Index, rec.AggregateQuality, rec.SuccessCount(), rec.FailureCount())
			for _, r := range rec.Results {
				if !r.Success {
					fmt.Printf("     %s failed: %s\n", r.WorkerName, r.Error)
				}
			}
		}
	}

	if run.Summary != nil && len(run.Summary.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range run.Summary.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}

	if run.Status == models.RunAwaitingApproval {
		fmt.Printf("\nContinue with: quorum resume %s\n", run.ID)
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
