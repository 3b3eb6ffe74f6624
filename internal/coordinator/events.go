package coordinator

import "time"

// EventType represents the type of coordination event.
type EventType string

const (
	// EventRunStarted indicates a run has been created and is iterating.
	EventRunStarted EventType = "run_started"
	// EventIterationStarted indicates a fan-out pass has begun.
	EventIterationStarted EventType = "iteration_started"
	// EventWorkerCompleted indicates one worker finished successfully.
	EventWorkerCompleted EventType = "worker_completed"
	// EventWorkerFailed indicates one worker failed in isolation.
	EventWorkerFailed EventType = "worker_failed"
	// EventIterationScored indicates a pass was scored and recorded.
	EventIterationScored EventType = "iteration_scored"
	// EventAwaitingApproval indicates the run suspended pending a decision.
	EventAwaitingApproval EventType = "awaiting_approval"
	// EventRunResumed indicates a suspended run was resumed.
	EventRunResumed EventType = "run_resumed"
	// EventRunConverged indicates the quality threshold was met.
	EventRunConverged EventType = "run_converged"
	// EventRunExhausted indicates the iteration budget ran out.
	EventRunExhausted EventType = "run_exhausted"
	// EventRunFailed indicates the run terminated without success.
	EventRunFailed EventType = "run_failed"
)

// CoordinationEvent is emitted by the engine as a run progresses. Events
// feed the CLI progress output and are safe to drop under backpressure.
type CoordinationEvent struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the ID of the related run.
	RunID string
	// Worker is the related worker name, if applicable.
	Worker string
	// Iteration is the related 1-based iteration index, if applicable.
	Iteration int
	// Quality is the aggregate quality at emission time, if applicable.
	Quality float64
	// Message provides additional context about the event.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
