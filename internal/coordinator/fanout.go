package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/quorum/internal/registry"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// boundWorker pairs a resolved capability with its descriptor. Binding
// happens once per run, before the first iteration, so unknown worker names
// fail fast out of Run.
type boundWorker struct {
	desc models.WorkerDescriptor
	cap  registry.WorkerCapability
}

// Fanout executes a worker set for one iteration, isolating per-worker
// failures. A failed call becomes a zero-score WorkerResult carrying the
// error text; sibling workers are never aborted. No per-call timeout is
// enforced: a slow worker delays the join but cannot corrupt sibling results.
type Fanout struct {
	logger *DebugLogger
}

// NewFanout creates a Fanout.
func NewFanout(logger *DebugLogger) *Fanout {
	if logger == nil {
		logger = NopLogger()
	}
	return &Fanout{logger: logger}
}

// Execute runs all workers under the given strategy and returns one result
// per worker, in worker-list order. Parallel groups are launched together
// and joined before returning; sequential groups run strictly in order;
// hybrid runs priority tiers high-to-low, parallel inside each tier.
func (f *Fanout) Execute(ctx context.Context, workers []boundWorker, strategy models.ExecutionStrategy, task models.Task, runContext map[string]string) []models.WorkerResult {
	switch strategy {
	case models.StrategySequential:
		return f.runSequential(ctx, workers, task, runContext)
	case models.StrategyHybrid:
		return f.runHybrid(ctx, workers, task, runContext)
	default:
		return f.runParallel(ctx, workers, task, runContext)
	}
}

// runSequential executes workers strictly in list order.
func (f *Fanout) runSequential(ctx context.Context, workers []boundWorker, task models.Task, runContext map[string]string) []models.WorkerResult {
	results := make([]models.WorkerResult, len(workers))
	for i, w := range workers {
		results[i] = f.callWorker(ctx, w, task, runContext)
	}
	return results
}

// runParallel launches every worker concurrently and joins. Each result is
// written independently into its own slot; workers share no mutable state.
func (f *Fanout) runParallel(ctx context.Context, workers []boundWorker, task models.Task, runContext map[string]string) []models.WorkerResult {
	results := make([]models.WorkerResult, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(slot int, bw boundWorker) {
			defer wg.Done()
			results[slot] = f.callWorker(ctx, bw, task, runContext)
		}(i, w)
	}
	wg.Wait()
	return results
}

// runHybrid groups workers by descriptor priority and runs tiers from
// highest to lowest, parallel within each tier.
func (f *Fanout) runHybrid(ctx context.Context, workers []boundWorker, task models.Task, runContext map[string]string) []models.WorkerResult {
	// Stable grouping: remember each worker's original slot so the returned
	// order matches the worker list regardless of tier order.
	type slotted struct {
		slot   int
		worker boundWorker
	}
	tiers := make(map[int][]slotted)
	var priorities []int
	for i, w := range workers {
		p := w.desc.Priority
		if _, seen := tiers[p]; !seen {
			priorities = append(priorities, p)
		}
		tiers[p] = append(tiers[p], slotted{slot: i, worker: w})
	}
	sort.Sort(sort.Reverse(sort.IntSlice(priorities)))

	results := make([]models.WorkerResult, len(workers))
	for _, p := range priorities {
		group := tiers[p]
		var wg sync.WaitGroup
		for _, s := range group {
			wg.Add(1)
			go func(s slotted) {
				defer wg.Done()
				results[s.slot] = f.callWorker(ctx, s.worker, task, runContext)
			}(s)
		}
		wg.Wait()
	}
	return results
}

// callWorker invokes one capability, converting any error or panic into a
// failed zero-score result so one broken worker cannot take down the pass.
func (f *Fanout) callWorker(ctx context.Context, w boundWorker, task models.Task, runContext map[string]string) (result models.WorkerResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			f.logger.Log("[fanout] worker %s panicked: %v", w.desc.Name, r)
			result = failedResult(w.desc.Name, time.Since(start), "worker panic")
		}
	}()

	exec, err := w.cap.Execute(ctx, task, runContext)
	if err != nil {
		f.logger.Log("[fanout] worker %s failed: %v", w.desc.Name, err)
		return failedResult(w.desc.Name, time.Since(start), err.Error())
	}

	elapsed := exec.ElapsedMs
	if elapsed <= 0 {
		elapsed = time.Since(start).Milliseconds()
	}

	return models.WorkerResult{
		WorkerName: w.desc.Name,
		Output:     exec.Output,
		ElapsedMs:  elapsed,
		Success:    true,
	}
}

// failedResult builds the zero-score result for a failed worker call.
func failedResult(name string, elapsed time.Duration, errText string) models.WorkerResult {
	return models.WorkerResult{
		WorkerName:   name,
		QualityScore: 0,
		ElapsedMs:    elapsed.Milliseconds(),
		Success:      false,
		Error:        errText,
	}
}
