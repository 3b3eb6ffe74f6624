package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective Quorum configuration.

Without arguments, displays all configuration values.
With one argument (key), displays the value for that key.

Configuration is read from ~/.config/quorum/config.yaml, overridden by
.quorum/config.yaml in the project, then QUORUM_* environment variables.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		cfg, err := config.Load(cwd)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return displayConfigKey(cfg, args[0])
		}
		displayAllConfig(cfg)
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("defaults.quality_threshold: %.1f\n", cfg.Defaults.QualityThreshold)
	fmt.Printf("defaults.max_iterations: %d\n", cfg.Defaults.MaxIterations)
	fmt.Printf("defaults.approval_after: %d\n", cfg.Defaults.ApprovalAfter)
	fmt.Printf("training.learning_rate: %.2f\n", cfg.Training.LearningRate)
	for _, dim := range sortedKeys(cfg.Training.Targets) {
		fmt.Printf("training.targets.%s: %.1f\n", dim, cfg.Training.Targets[dim])
	}
	fmt.Printf("monitor.interval: %s\n", cfg.Monitor.Interval)
	fmt.Printf("monitor.max_cycles: %d\n", cfg.Monitor.MaxCycles)
	fmt.Printf("monitor.history_size: %d\n", cfg.Monitor.HistorySize)
	for _, metric := range sortedKeys(cfg.Monitor.AlertThresholds) {
		fmt.Printf("monitor.alert_thresholds.%s: %.3f\n", metric, cfg.Monitor.AlertThresholds[metric])
	}
	fmt.Printf("workers.manifest: %s\n", cfg.Workers.Manifest)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) error {
	switch strings.ToLower(key) {
	case "defaults.quality_threshold":
		fmt.Printf("%.1f\n", cfg.Defaults.QualityThreshold)
	case "defaults.max_iterations":
		fmt.Println(cfg.Defaults.MaxIterations)
	case "defaults.approval_after":
		fmt.Println(cfg.Defaults.ApprovalAfter)
	case "training.learning_rate":
		fmt.Printf("%.2f\n", cfg.Training.LearningRate)
	case "monitor.interval":
		fmt.Println(cfg.Monitor.Interval)
	case "monitor.max_cycles":
		fmt.Println(cfg.Monitor.MaxCycles)
	case "monitor.history_size":
		fmt.Println(cfg.Monitor.HistorySize)
	case "workers.manifest":
		fmt.Println(cfg.Workers.Manifest)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// sortedKeys returns a map's keys in sorted order.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
