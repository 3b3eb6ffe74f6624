// Package registry resolves worker names to executable capabilities.
package registry

import (
	"context"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Execution is the raw outcome of one worker call, before scoring.
type Execution struct {
	// Output is the worker's text output.
	Output string
	// ElapsedMs is the wall-clock execution time in milliseconds.
	ElapsedMs int64
}

// WorkerCapability is an opaque executable worker. Implementations are
// supplied by the embedder; the coordinator never inspects how a worker
// produces its output.
type WorkerCapability interface {
	// Execute runs the worker against the task. The context map carries
	// per-run key/value state shared across iterations.
	Execute(ctx context.Context, task models.Task, runContext map[string]string) (Execution, error)
}

// CapabilityFunc adapts a plain function to the WorkerCapability interface.
type CapabilityFunc func(ctx context.Context, task models.Task, runContext map[string]string) (Execution, error)

// Execute implements WorkerCapability.
func (f CapabilityFunc) Execute(ctx context.Context, task models.Task, runContext map[string]string) (Execution, error) {
	return f(ctx, task, runContext)
}
