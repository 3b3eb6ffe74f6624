// Package config handles configuration loading and management for Quorum.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Quorum.
type Config struct {
	Defaults Defaults `mapstructure:"defaults"`
	Scoring  Scoring  `mapstructure:"scoring"`
	Training Training `mapstructure:"training"`
	Monitor  Monitor  `mapstructure:"monitor"`
	Workers  Workers  `mapstructure:"workers"`
}

// Defaults holds default values for coordination runs.
type Defaults struct {
	// QualityThreshold is the aggregate quality needed to converge (0-100).
	QualityThreshold float64 `mapstructure:"quality_threshold"`
	// MaxIterations is the iteration budget per run.
	MaxIterations int `mapstructure:"max_iterations"`
	// ApprovalAfter suspends the run for approval after this iteration
	// index. Zero disables the approval gate.
	ApprovalAfter int `mapstructure:"approval_after"`
}

// Scoring holds quality-scorer settings.
type Scoring struct {
	// ExpectedTimes maps worker types to expected execution times.
	// Unknown types fall back to the scorer's 4s default.
	ExpectedTimes map[string]time.Duration `mapstructure:"expected_times"`
}

// Training holds feedback-adjuster settings for training runs.
type Training struct {
	// LearningRate scales per-dimension adjustment deltas.
	LearningRate float64 `mapstructure:"learning_rate"`
	// Targets maps scoring dimensions to their target values (0-100).
	Targets map[string]float64 `mapstructure:"targets"`
}

// Monitor holds monitoring-specialization settings.
type Monitor struct {
	// Interval is the sleep between monitoring cycles.
	Interval time.Duration `mapstructure:"interval"`
	// MaxCycles bounds the number of cycles. Zero means unbounded.
	MaxCycles int `mapstructure:"max_cycles"`
	// AlertThresholds maps metric names to alerting thresholds.
	AlertThresholds map[string]float64 `mapstructure:"alert_thresholds"`
	// HistorySize bounds the rolling-average window per metric.
	HistorySize int `mapstructure:"history_size"`
}

// Workers holds worker registry settings.
type Workers struct {
	// Manifest is the path to the worker manifest YAML file.
	Manifest string `mapstructure:"manifest"`
}

// ConfigDir returns the Quorum config directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "quorum")
}

// ProjectDir returns the project-local Quorum directory.
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".quorum")
}

// Load reads configuration from the global config dir, then applies
// project-level overrides from .quorum/config.yaml, then QUORUM_* env vars.
// Missing files are not an error; defaults apply.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	if projectRoot != "" {
		v.AddConfigPath(ProjectDir(projectRoot))
	}
	v.SetEnvPrefix("QUORUM")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults applies default values to the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.quality_threshold", 80.0)
	v.SetDefault("defaults.max_iterations", 5)
	v.SetDefault("defaults.approval_after", 0)
	v.SetDefault("training.learning_rate", 0.5)
	v.SetDefault("training.targets", map[string]float64{
		"accuracy":    80,
		"efficiency":  75,
		"quality":     80,
		"consistency": 70,
	})
	v.SetDefault("monitor.interval", 30*time.Second)
	v.SetDefault("monitor.max_cycles", 0)
	v.SetDefault("monitor.history_size", 20)
	v.SetDefault("workers.manifest", "workers.yaml")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Defaults.QualityThreshold < 0 || c.Defaults.QualityThreshold > 100 {
		return fmt.Errorf("quality_threshold must be in [0,100], got %v", c.Defaults.QualityThreshold)
	}
	if c.Defaults.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.Defaults.MaxIterations)
	}
	if c.Training.LearningRate < 0 {
		return fmt.Errorf("learning_rate must be >= 0, got %v", c.Training.LearningRate)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %v", c.Monitor.Interval)
	}
	if c.Monitor.HistorySize < 1 {
		return fmt.Errorf("monitor history_size must be >= 1, got %d", c.Monitor.HistorySize)
	}
	return nil
}
