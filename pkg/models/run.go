package models

import "time"

// RunStatus represents the lifecycle state of a coordination run.
type RunStatus string

const (
	// RunInit indicates the run has been created but not started.
	RunInit RunStatus = "init"
	// RunIterating indicates the run is actively executing iterations.
	RunIterating RunStatus = "iterating"
	// RunAwaitingApproval indicates the run is suspended pending an external decision.
	RunAwaitingApproval RunStatus = "awaiting_approval"
	// RunConverged indicates the quality threshold was met.
	RunConverged RunStatus = "converged"
	// RunExhausted indicates the iteration budget ran out below threshold.
	RunExhausted RunStatus = "exhausted"
	// RunFailed indicates an iteration produced zero successful results,
	// or the run was rejected at an approval gate.
	RunFailed RunStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunInit, RunIterating, RunAwaitingApproval, RunConverged, RunExhausted, RunFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state. A run reaches
// exactly one terminal status and is frozen afterwards.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunConverged, RunExhausted, RunFailed:
		return true
	default:
		return false
	}
}

// RunConfig carries the per-invocation settings for a coordination run.
type RunConfig struct {
	// QualityThreshold is the aggregate quality required to converge (0-100).
	QualityThreshold float64 `json:"quality_threshold"`
	// MaxIterations is the iteration budget.
	MaxIterations int `json:"max_iterations"`
	// Domain optionally overrides the task's domain for worker selection.
	Domain Domain `json:"domain,omitempty"`
	// RequiredCapabilities force-includes workers advertising a matching tag.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	// StrategyOverride forces an execution strategy instead of the analyzer's choice.
	StrategyOverride ExecutionStrategy `json:"strategy_override,omitempty"`
	// ApprovalAfter suspends the run for external approval once this
	// iteration index completes. Zero disables the gate.
	ApprovalAfter int `json:"approval_after,omitempty"`
	// Context seeds the per-run context map passed to every worker call.
	Context map[string]string `json:"context,omitempty"`
}

// Adjustment is an advisory parameter change proposed by the feedback
// adjuster. Adjustments never alter worker behavior; they are accumulated and
// surfaced as recommendations in the final synthesis.
type Adjustment struct {
	// Parameter names the scoring dimension being adjusted.
	Parameter string `json:"parameter"`
	// OldValue is the dimension value before the adjustment.
	OldValue float64 `json:"old_value"`
	// NewValue is the proposed value, capped at 100.
	NewValue float64 `json:"new_value"`
	// Reason explains why the adjustment was proposed.
	Reason string `json:"reason"`
}

// QualityPoint pairs an iteration index with its aggregate quality.
type QualityPoint struct {
	Iteration int     `json:"iteration"`
	Quality   float64 `json:"quality"`
}

// Summary is the immutable result synthesis of a finished run.
type Summary struct {
	// CombinedInsights flattens the outputs of all successful results in the
	// final iteration.
	CombinedInsights []string `json:"combined_insights"`
	// QualityProgression lists iteration/quality pairs across the run.
	QualityProgression []QualityPoint `json:"quality_progression"`
	// Recommendations are human-readable findings about the run.
	Recommendations []string `json:"recommendations"`
	// ImprovementRate is the percentage quality change from the first to the
	// last iteration. Zero when fewer than two iterations ran.
	ImprovementRate float64 `json:"improvement_rate"`
}

// CoordinationRun is the full record of one coordination invocation. It is
// owned exclusively by its controller until a terminal status is reached,
// then frozen.
type CoordinationRun struct {
	// ID is the unique run identifier.
	ID string `json:"id"`
	// Task is the immutable task the run executes against.
	Task Task `json:"task"`
	// Workers is the ordered worker list selected by the analyzer.
	Workers []string `json:"workers"`
	// Strategy is the execution strategy in use.
	Strategy ExecutionStrategy `json:"strategy"`
	// Iterations is the append-only iteration history.
	Iterations []IterationRecord `json:"iterations"`
	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`
	// FinalQuality is the aggregate quality of the last iteration.
	FinalQuality float64 `json:"final_quality"`
	// Summary is the result synthesis, set when the run terminates.
	Summary *Summary `json:"summary,omitempty"`
	// Adjustments accumulates advisory feedback adjustments across iterations.
	Adjustments []Adjustment `json:"adjustments,omitempty"`
	// StartedAt is when the run was created.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run reached a terminal status, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IterationsPerformed returns the number of completed iterations.
func (r *CoordinationRun) IterationsPerformed() int {
	return len(r.Iterations)
}

// LastIteration returns the most recent iteration record, or nil if none.
func (r *CoordinationRun) LastIteration() *IterationRecord {
	if len(r.Iterations) == 0 {
		return nil
	}
	return &r.Iterations[len(r.Iterations)-1]
}
