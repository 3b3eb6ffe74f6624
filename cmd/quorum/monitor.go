package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/internal/monitor"
	"github.com/ShayCichocki/quorum/pkg/models"
)

var (
	monitorInterval   time.Duration
	monitorMaxCycles  int
	monitorThresholds []string
	monitorStop       bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <task>",
	Short: "Continuously monitor a task's metrics",
	Long: `Run the task through one scored coordination pass per cycle, extract
"name: value" metric lines from the worker outputs, and track rolling
averages per metric. When a rolling average breaches its configured
threshold, an alert fires; alerts never stop the loop.

The loop stops on the cycle budget, Ctrl-C, or an external stop signal
(quorum monitor --stop from another terminal).`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "sleep between cycles (default from config)")
	monitorCmd.Flags().IntVar(&monitorMaxCycles, "max-cycles", -1, "cycle budget, 0 for unbounded (default from config)")
	monitorCmd.Flags().StringSliceVar(&monitorThresholds, "threshold", nil, "alert threshold metric=value (repeatable)")
	monitorCmd.Flags().BoolVar(&monitorStop, "stop", false, "signal a running monitor in this project to stop")
	monitorCmd.Flags().StringVar(&runDomain, "domain", "", "task domain for worker selection")
	monitorCmd.Flags().StringSliceVar(&runCapabilities, "capability", nil, "force-include workers with this capability tag (repeatable)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	projectRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if monitorStop {
		return sendMonitorStop(projectRoot)
	}
	if len(args) == 0 {
		return fmt.Errorf("a task is required unless --stop is given")
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	task := models.Task{Text: strings.Join(args, " ")}
	if runDomain != "" {
		domain := models.Domain(runDomain)
		if !domain.Valid() {
			return fmt.Errorf("unknown domain %q", runDomain)
		}
		task.Domain = domain
	}

	engine, db, err := buildEngine(projectRoot, cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	probe, err := engine.NewProbe(task, models.RunConfig{
		QualityThreshold:     cfg.Defaults.QualityThreshold,
		MaxIterations:        cfg.Defaults.MaxIterations,
		RequiredCapabilities: runCapabilities,
	})
	if err != nil {
		return err
	}

	thresholds, err := mergeThresholds(cfg.Monitor.AlertThresholds, monitorThresholds)
	if err != nil {
		return err
	}

	interval := monitorInterval
	if interval <= 0 {
		interval = cfg.Monitor.Interval
	}
	maxCycles := monitorMaxCycles
	if maxCycles < 0 {
		maxCycles = cfg.Monitor.MaxCycles
	}

	signals, err := monitor.NewSignalWatcher(projectRoot)
	if err != nil {
		return fmt.Errorf("watch stop signals: %w", err)
	}
	defer signals.Close()
	signals.Clear()

	m, err := monitor.New(monitor.Config{
		Sampler:     monitor.NewProbeSampler(probe),
		Thresholds:  thresholds,
		Interval:    interval,
		MaxCycles:   maxCycles,
		HistorySize: cfg.Monitor.HistorySize,
		Signals:     signals,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring: %s (workers: %s, interval %s)\n",
		task.Text, strings.Join(probe.Workers(), ", "), interval)

	runErr := m.Run(ctx)

	anomalies := m.Anomalies()
	fmt.Printf("\nMonitor stopped after %d cycle(s), %d anomaly record(s).\n", m.Cycles(), len(anomalies))
	for _, a := range anomalies {
		fmt.Printf("  cycle %d  %s: %s (avg %.3f, threshold %.3f)\n",
			a.Cycle, a.Metric, a.Rule, a.Average, a.Threshold)
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// sendMonitorStop writes the stop-signal file for a monitor running in this
// project.
func sendMonitorStop(projectRoot string) error {
	signals, err := monitor.NewSignalWatcher(projectRoot)
	if err != nil {
		return fmt.Errorf("open signals directory: %w", err)
	}
	defer signals.Close()

	if err := signals.SendStop(); err != nil {
		return fmt.Errorf("send stop signal: %w", err)
	}
	fmt.Println("Stop signal sent; the monitor exits at its next cycle boundary.")
	return nil
}

// mergeThresholds overlays metric=value flag pairs on the configured map.
func mergeThresholds(base map[string]float64, pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(base)+len(pairs))
	for k, v := range base {
		out[k] = v
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid threshold %q, want metric=value", p)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value in %q: %w", p, err)
		}
		out[k] = f
	}
	return out, nil
}
