package coordinator

import (
	"context"
	"sync"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Probe executes single scored passes against a prepared worker set without
// driving a convergence loop. The monitoring specialization uses one Probe
// per watch: each cycle is one Execute call, and the stop decision lives in
// the monitor, not here.
type Probe struct {
	engine    *Engine
	p         *plan
	iteration int
	mu        sync.Mutex
}

// NewProbe analyzes the task, binds its workers, and returns a reusable
// Probe. Unknown worker names fail here, synchronously.
func (e *Engine) NewProbe(task models.Task, cfg models.RunConfig) (*Probe, error) {
	analysis := e.analyzer.Analyze(task, cfg)
	workers, err := e.bindWorkers(analysis.Workers)
	if err != nil {
		return nil, err
	}

	runContext := make(map[string]string, len(cfg.Context))
	for k, v := range cfg.Context {
		runContext[k] = v
	}

	run := &models.CoordinationRun{
		Task:     task,
		Workers:  analysis.Workers,
		Strategy: analysis.Strategy,
	}

	return &Probe{
		engine: e,
		p: &plan{
			run:        run,
			cfg:        cfg,
			workers:    workers,
			runContext: runContext,
			observer:   e.observerFactory("probe"),
		},
	}, nil
}

// Workers returns the probe's selected worker names.
func (pr *Probe) Workers() []string {
	return pr.p.run.Workers
}

// Execute runs one fan-out/score pass and returns the scored record.
// Iteration indices increase monotonically across calls.
func (pr *Probe) Execute(ctx context.Context) (models.IterationRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.IterationRecord{}, err
	}

	pr.mu.Lock()
	pr.iteration++
	i := pr.iteration
	pr.mu.Unlock()

	rec := pr.engine.pass(ctx, pr.p, i)
	pr.p.observer.ObserveIteration(pr.p.run.ID, rec)
	return rec, nil
}
