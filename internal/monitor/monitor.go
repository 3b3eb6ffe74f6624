package monitor

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/quorum/internal/coordinator"
)

// Status is the monitor's lifecycle state.
type Status string

const (
	// StatusIdle indicates the monitor has not started.
	StatusIdle Status = "idle"
	// StatusActive indicates the monitoring loop is running.
	StatusActive Status = "active"
	// StatusStopped indicates the loop has exited.
	StatusStopped Status = "stopped"
)

// CycleStatus is the outcome of one monitoring cycle.
type CycleStatus string

const (
	// CycleOK indicates no threshold was breached this cycle.
	CycleOK CycleStatus = "ok"
	// CycleAlertTriggered indicates at least one breach this cycle.
	// The loop continues regardless.
	CycleAlertTriggered CycleStatus = "alert_triggered"
)

// CycleRecord summarizes one completed monitoring cycle.
type CycleRecord struct {
	// Index is the 1-based cycle index.
	Index int
	// Samples are the raw metric samples collected this cycle.
	Samples map[string]float64
	// Averages are the rolling averages after this cycle's samples.
	Averages map[string]float64
	// Status is ok or alert_triggered.
	Status CycleStatus
	// Timestamp is when the cycle completed.
	Timestamp time.Time
}

// Comparison rules per metric direction.
const (
	ruleAboveThreshold = "average above threshold"
	ruleBelowThreshold = "average below threshold"
	ruleOutsideBand    = "average outside threshold band"
)

// bandTolerance is the permitted deviation for direction-less metrics.
const bandTolerance = 0.1

// higherIsWorse metrics alert when the rolling average exceeds the threshold.
var higherIsWorse = map[string]bool{
	"toxicity":      true,
	"bias":          true,
	"hallucination": true,
}

// lowerIsWorse metrics alert when the rolling average falls below the threshold.
var lowerIsWorse = map[string]bool{
	"fluency":   true,
	"coherence": true,
	"relevance": true,
}

// Config contains construction options for a Monitor.
type Config struct {
	// Sampler produces metric samples each cycle. Required.
	Sampler Sampler
	// Notifier receives alerts. If nil, LogNotifier is used.
	Notifier Notifier
	// Thresholds maps metric names to alerting thresholds. Metrics without
	// a threshold are tracked but never alert.
	Thresholds map[string]float64
	// Interval is the sleep between cycles. Required.
	Interval time.Duration
	// MaxCycles bounds the loop. Zero means unbounded.
	MaxCycles int
	// HistorySize bounds the rolling-average window per metric.
	// Zero uses 20.
	HistorySize int
	// Signals optionally watches for an external stop signal.
	Signals *SignalWatcher
	// Logger is the debug logger. If nil, a no-op logger is used.
	Logger *coordinator.DebugLogger
}

// Monitor drives the continuous monitoring loop. One Monitor instance owns
// one loop; Run must be called at most once.
type Monitor struct {
	sampler     Sampler
	notifier    Notifier
	thresholds  map[string]float64
	interval    time.Duration
	maxCycles   int
	historySize int
	signals     *SignalWatcher
	logger      *coordinator.DebugLogger

	// rings holds the bounded per-metric sample history.
	rings map[string]*coordinator.RingBuffer
	// anomalies is the append-only breach history.
	anomalies []AnomalyRecord
	// cycles counts completed cycles.
	cycles int
	// lastCycle is the most recent completed cycle record.
	lastCycle *CycleRecord
	// status is the monitor lifecycle state.
	status Status
	// stopCh requests a stop at the next cycle boundary.
	stopCh chan struct{}
	// stopOnce guards stopCh closure.
	stopOnce sync.Once
	// mu protects rings, anomalies, cycles, lastCycle, and status.
	mu sync.RWMutex
}

// New creates a Monitor from the given configuration.
func New(cfg Config) (*Monitor, error) {
	if cfg.Sampler == nil {
		return nil, fmt.Errorf("new monitor: sampler is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("new monitor: interval must be positive, got %v", cfg.Interval)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = coordinator.NopLogger()
	}

	return &Monitor{
		sampler:     cfg.Sampler,
		notifier:    notifier,
		thresholds:  cfg.Thresholds,
		interval:    cfg.Interval,
		maxCycles:   cfg.MaxCycles,
		historySize: historySize,
		signals:     cfg.Signals,
		logger:      logger,
		rings:       make(map[string]*coordinator.RingBuffer),
		status:      StatusIdle,
		stopCh:      make(chan struct{}),
	}, nil
}

// Run drives cycles until the cycle budget is spent, Stop is called, an
// external stop signal arrives, or the context is cancelled. An alert alone
// never halts the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.setStatus(StatusActive)
	defer m.setStatus(StatusStopped)

	for cycle := 1; ; cycle++ {
		if m.maxCycles > 0 && cycle > m.maxCycles {
			m.logger.Log("[monitor] cycle budget (%d) spent, stopping", m.maxCycles)
			return nil
		}
		if m.stopRequested(ctx) {
			return ctx.Err()
		}

		samples, err := m.sampler.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[monitor] warning: cycle %d sample failed: %v", cycle, err)
		} else {
			m.evaluate(cycle, samples)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopCh:
			m.logger.Log("[monitor] stop requested, exiting at cycle boundary")
			return nil
		case <-time.After(m.interval):
		}
	}
}

// Stop requests a stop at the next cycle boundary. Safe to call repeatedly
// and from any goroutine.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// stopRequested checks all stop sources at a cycle boundary.
func (m *Monitor) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-m.stopCh:
		return true
	default:
	}
	if m.signals != nil && m.signals.ShouldStop() {
		m.logger.Log("[monitor] external stop signal detected")
		m.Stop()
		return true
	}
	return false
}

// evaluate folds this cycle's samples into the rolling averages and checks
// every thresholded metric with its direction-specific rule. Breaches append
// an AnomalyRecord, mark the cycle alert_triggered, and fire a notification;
// notification failures are logged and swallowed.
func (m *Monitor) evaluate(cycle int, samples map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := CycleRecord{
		Index:     cycle,
		Samples:   samples,
		Averages:  make(map[string]float64, len(samples)),
		Status:    CycleOK,
		Timestamp: time.Now(),
	}

	// Deterministic metric order for stable logs and tests.
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ring, ok := m.rings[name]
		if !ok {
			ring = coordinator.NewRingBuffer(m.historySize)
			m.rings[name] = ring
		}
		ring.Add(samples[name])
		avg := ring.Average()
		rec.Averages[name] = avg

		threshold, ok := m.thresholds[name]
		if !ok {
			continue
		}

		rule, breached := checkThreshold(name, avg, threshold)
		if !breached {
			continue
		}

		rec.Status = CycleAlertTriggered
		anomaly := AnomalyRecord{
			ID:        uuid.New().String()[:8],
			Cycle:     cycle,
			Metric:    name,
			Average:   avg,
			Threshold: threshold,
			Rule:      rule,
			Timestamp: time.Now(),
		}
		m.anomalies = append(m.anomalies, anomaly)
		m.logger.Log("[monitor] cycle %d anomaly %s: %s %s (avg %.3f, threshold %.3f)",
			cycle, anomaly.ID, name, rule, avg, threshold)

		alert := Alert{
			Metric:       name,
			CurrentValue: avg,
			Threshold:    threshold,
			Message:      fmt.Sprintf("%s: %s", name, rule),
			Timestamp:    anomaly.Timestamp,
		}
		if err := m.notifier.Notify(alert); err != nil {
			log.Printf("[monitor] warning: notify failed for %s: %v", name, err)
		}
	}

	m.cycles = cycle
	m.lastCycle = &rec
}

// checkThreshold applies the metric-specific comparison rule.
func checkThreshold(metric string, avg, threshold float64) (string, bool) {
	switch {
	case higherIsWorse[metric]:
		return ruleAboveThreshold, avg > threshold
	case lowerIsWorse[metric]:
		return ruleBelowThreshold, avg < threshold
	default:
		return ruleOutsideBand, math.Abs(avg-threshold) > bandTolerance
	}
}

// Status returns the monitor's lifecycle state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// setStatus updates the lifecycle state.
func (m *Monitor) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

// Anomalies returns a copy of the breach history.
func (m *Monitor) Anomalies() []AnomalyRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AnomalyRecord, len(m.anomalies))
	copy(out, m.anomalies)
	return out
}

// Cycles returns the number of completed cycles.
func (m *Monitor) Cycles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cycles
}

// LastCycle returns the most recent completed cycle record, or nil.
func (m *Monitor) LastCycle() *CycleRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCycle
}
