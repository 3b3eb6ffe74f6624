package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/internal/coordinator"
	"github.com/ShayCichocki/quorum/internal/registry"
	"github.com/ShayCichocki/quorum/internal/state"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// loadRegistry builds the worker registry from the project's manifest.
// Manifest entries with a command become external command workers; entries
// without one fail at execution time so the run's failure isolation reports
// them instead of aborting the whole run.
func loadRegistry(projectRoot string, cfg *config.Config) (*registry.Registry, error) {
	manifest := resolveManifest(projectRoot, cfg.Workers.Manifest)
	if manifest == "" {
		return nil, fmt.Errorf("worker manifest not found; create %s",
			filepath.Join(config.ProjectDir(projectRoot), cfg.Workers.Manifest))
	}

	reg := registry.New()
	err := reg.LoadManifest(manifest, func(desc models.WorkerDescriptor, command string) registry.WorkerCapability {
		if command == "" {
			return registry.CapabilityFunc(
				func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
					return registry.Execution{}, fmt.Errorf("worker %s has no command configured", desc.Name)
				})
		}
		return registry.NewCommandWorker(desc.Name, command, projectRoot, nil)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// resolveManifest locates the worker manifest: absolute paths win, then the
// project .quorum directory, then the project root.
func resolveManifest(projectRoot, name string) string {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name
		}
		return ""
	}
	for _, candidate := range []string{
		filepath.Join(config.ProjectDir(projectRoot), name),
		filepath.Join(projectRoot, name),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// buildEngine assembles the coordination engine with project-local
// persistence. The caller owns the returned DB and must close it.
func buildEngine(projectRoot string, cfg *config.Config, training bool) (*coordinator.Engine, *state.DB, error) {
	reg, err := loadRegistry(projectRoot, cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := state.OpenProject(projectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	engineCfg := coordinator.EngineConfig{
		Registry:      reg,
		ExpectedTimes: cfg.Scoring.ExpectedTimes,
		Store:         db,
		Logger:        coordinator.NewDebugLoggerForProject(projectRoot),
	}
	if training {
		engineCfg.AdjusterFactory = func() *coordinator.Adjuster {
			return coordinator.NewAdjuster(cfg.Training.LearningRate, cfg.Training.Targets)
		}
	}

	engine, err := coordinator.NewEngine(engineCfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return engine, db, nil
}

// printProgress streams engine events to stdout while a run executes. The
// returned stop function drains buffered events and must be called before
// the final summary is printed.
func printProgress(engine *coordinator.Engine) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-engine.Events():
				renderEvent(ev)
			case <-quit:
				for {
					select {
					case ev := <-engine.Events():
						renderEvent(ev)
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}

// renderEvent prints the progress line for one engine event. Quiet event
// types are skipped.
func renderEvent(ev coordinator.CoordinationEvent) {
	switch ev.Type {
	case coordinator.EventIterationScored:
		fmt.Printf("  iteration %d: quality %.1f\n", ev.Iteration, ev.Quality)
	case coordinator.EventWorkerFailed:
		fmt.Printf("  %s failed: %s\n", ev.Worker, ev.Message)
	case coordinator.EventAwaitingApproval:
		fmt.Printf("  suspended for approval after iteration %d\n", ev.Iteration)
	}
}

// parseContextPairs parses repeated key=value flags into a map.
func parseContextPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid context pair %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// statusColor returns the display color for a run status.
func statusColor(status models.RunStatus) *color.Color {
	switch status {
	case models.RunConverged:
		return color.New(color.FgGreen)
	case models.RunFailed:
		return color.New(color.FgRed)
	case models.RunAwaitingApproval:
		return color.New(color.FgYellow)
	case models.RunExhausted:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// printRunOutcome renders a finished or suspended run to stdout.
func printRunOutcome(run *models.CoordinationRun) {
	fmt.Println()
	statusColor(run.Status).Printf("Run %s: %s\n", run.ID, run.Status)
	fmt.Printf("  Workers:    %s (%s)\n", strings.Join(run.Workers, ", "), run.Strategy)
	fmt.Printf("  Iterations: %d\n", run.IterationsPerformed())
	fmt.Printf("  Quality:    %.1f\n", run.FinalQuality)

	if run.Status == models.RunAwaitingApproval {
		fmt.Printf("\nRun is suspended. Continue with:\n  quorum resume %s\n", run.ID)
		return
	}

	if run.Summary == nil {
		return
	}
	if len(run.Summary.QualityProgression) > 1 {
		var points []string
		for _, p := range run.Summary.QualityProgression {
			points = append(points, fmt.Sprintf("%.1f", p.Quality))
		}
		fmt.Printf("  Progression: %s (%+.1f%%)\n", strings.Join(points, " -> "), run.Summary.ImprovementRate)
	}
	if len(run.Summary.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range run.Summary.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	if len(run.Summary.CombinedInsights) > 0 {
		fmt.Println("\nOutput:")
		for _, insight := range run.Summary.CombinedInsights {
			fmt.Println(indent(insight, "  "))
		}
	}
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
