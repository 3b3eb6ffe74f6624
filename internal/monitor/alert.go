// Package monitor implements the continuous monitoring specialization:
// unbounded scored cycles with rolling per-metric averages, threshold
// alerting, and notification side effects. Alerts never halt the loop; only
// the cycle budget, a cancel call, or an external stop signal do.
package monitor

import (
	"log"
	"time"
)

// Alert is the payload delivered to a Notifier when a threshold is breached.
type Alert struct {
	// Metric is the breached metric name.
	Metric string
	// CurrentValue is the rolling average that breached the threshold.
	CurrentValue float64
	// Threshold is the configured alerting threshold.
	Threshold float64
	// Message is a human-readable description of the breach.
	Message string
	// Timestamp is when the breach was detected.
	Timestamp time.Time
}

// AnomalyRecord is the append-only record of one threshold breach.
type AnomalyRecord struct {
	// ID is the unique anomaly identifier.
	ID string
	// Cycle is the 1-based cycle index the breach occurred in.
	Cycle int
	// Metric is the breached metric name.
	Metric string
	// Average is the rolling average at detection time.
	Average float64
	// Threshold is the configured alerting threshold.
	Threshold float64
	// Rule names the comparison rule that fired.
	Rule string
	// Timestamp is when the breach was detected.
	Timestamp time.Time
}

// Notifier delivers alerts to an external sink. Delivery failures are logged
// and swallowed; they never affect the monitoring loop. Exactly-once
// delivery is not guaranteed.
type Notifier interface {
	Notify(alert Alert) error
}

// LogNotifier is the default Notifier: it writes alerts to the process log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(alert Alert) error {
	log.Printf("[monitor] ALERT %s: %s (avg %.3f, threshold %.3f)",
		alert.Metric, alert.Message, alert.CurrentValue, alert.Threshold)
	return nil
}
