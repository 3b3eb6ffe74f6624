package models

import "time"

// WorkerDescriptor describes a registered worker. Descriptors are static and
// loaded once at registry construction.
type WorkerDescriptor struct {
	// Name is the unique worker name.
	Name string `json:"name" yaml:"name"`
	// Type groups workers for expected-execution-time lookup (e.g. "analyst").
	Type string `json:"type" yaml:"type"`
	// Capabilities lists the tags the worker advertises.
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	// ExpectedTime is a hint for how long one execution usually takes.
	ExpectedTime time.Duration `json:"expected_time,omitempty" yaml:"expected_time,omitempty"`
	// Priority is the hybrid-strategy tier for this worker (higher runs first).
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// HasCapability returns true if the worker advertises the given tag.
func (d WorkerDescriptor) HasCapability(tag string) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// WorkerResult is the outcome of one worker execution within one iteration.
// Results are created once and never mutated.
type WorkerResult struct {
	// WorkerName identifies which worker produced this result.
	WorkerName string `json:"worker_name"`
	// Output is the worker's text output. Empty when the worker failed.
	Output string `json:"output,omitempty"`
	// QualityScore is the 0-100 composite score. Always 0 when Success is false.
	QualityScore float64 `json:"quality_score"`
	// ElapsedMs is the wall-clock execution time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`
	// Success indicates whether the execution completed without error.
	Success bool `json:"success"`
	// Error carries the failure text when Success is false.
	Error string `json:"error,omitempty"`
}

// IterationRecord captures one complete fan-out/execute/score pass.
// Records are append-only within a run.
type IterationRecord struct {
	// Index is the 1-based iteration index, strictly increasing by 1.
	Index int `json:"index"`
	// Results holds the ordered worker results for this pass.
	Results []WorkerResult `json:"results"`
	// AggregateQuality is the arithmetic mean of Results' quality scores.
	// Failed results count as 0, depressing the mean.
	AggregateQuality float64 `json:"aggregate_quality"`
	// Timestamp is when the iteration was scored.
	Timestamp time.Time `json:"timestamp"`
}

// SuccessCount returns the number of successful results in the iteration.
func (r IterationRecord) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed results in the iteration.
func (r IterationRecord) FailureCount() int {
	return len(r.Results) - r.SuccessCount()
}
