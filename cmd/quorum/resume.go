package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/internal/coordinator"
)

var (
	resumeReject bool
	resumeReason string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume or reject a run awaiting approval",
	Long: `Continue a run suspended at its approval gate. By default the run is
approved and re-enters the iteration loop; with --reject it terminates
as failed and the rejection reason is recorded in its summary.

Suspended runs survive process restarts: the run is reloaded from
.quorum/state.db and its workers are rebound from the manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeReject, "reject", false, "reject the run instead of approving it")
	resumeCmd.Flags().StringVar(&resumeReason, "reason", "", "reason for the rejection")
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	projectRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	engine, db, err := buildEngine(projectRoot, cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decision := coordinator.Decision{Approved: !resumeReject, Reason: resumeReason}
	if resumeReject {
		fmt.Printf("Rejecting run %s\n", runID)
	} else {
		fmt.Printf("Approving run %s\n", runID)
	}

	stopProgress := printProgress(engine)
	run, err := engine.Resume(ctx, runID, decision)
	stopProgress()
	if err != nil {
		return err
	}

	printRunOutcome(run)
	return nil
}
