package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/quorum/internal/registry"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// RunStore persists run state. Implementations must tolerate being called
// from a single goroutine per run; the engine never writes one run from two
// goroutines.
type RunStore interface {
	// CreateRun persists a new run and its config.
	CreateRun(run *models.CoordinationRun, cfg models.RunConfig) error
	// UpdateRun persists the run's current status, quality, and summary.
	UpdateRun(run *models.CoordinationRun) error
	// AppendIteration persists one scored iteration.
	AppendIteration(runID string, rec models.IterationRecord) error
	// GetRun loads a run and its config by ID.
	GetRun(id string) (*models.CoordinationRun, *models.RunConfig, error)
}

// StopFunc decides whether a run stops after an iteration and with which
// terminal status. It is consulted only when the iteration had at least one
// success: an all-failed iteration is always fatal.
type StopFunc func(run *models.CoordinationRun, cfg models.RunConfig) (models.RunStatus, bool)

// DefaultStop is the convergence predicate: stop CONVERGED once aggregate
// quality reaches the threshold, stop EXHAUSTED once the iteration budget is
// spent, otherwise continue.
func DefaultStop(run *models.CoordinationRun, cfg models.RunConfig) (models.RunStatus, bool) {
	last := run.LastIteration()
	if last == nil {
		return "", false
	}
	if last.AggregateQuality >= cfg.QualityThreshold {
		return models.RunConverged, true
	}
	if last.Index >= cfg.MaxIterations {
		return models.RunExhausted, true
	}
	return "", false
}

// EngineConfig contains construction options for the Engine.
type EngineConfig struct {
	// Registry resolves worker names. Required.
	Registry *registry.Registry
	// Weights is the scoring-weight table. Zero value uses DefaultWeights.
	Weights Weights
	// ExpectedTimes maps worker types to expected execution durations.
	ExpectedTimes map[string]time.Duration
	// Store persists run state. If nil, runs are in-memory only and
	// cross-process resume is unavailable.
	Store RunStore
	// Stop overrides the stop predicate. If nil, DefaultStop is used.
	Stop StopFunc
	// AdjusterFactory, when set, enables training-style feedback: a fresh
	// Adjuster is created per run.
	AdjusterFactory func() *Adjuster
	// ObserverFactory creates the per-run quality observer. If nil, a
	// bounded QualityHistory is created per run.
	ObserverFactory func(runID string) QualityObserver
	// Logger is the debug logger. If nil, a no-op logger is used.
	Logger *DebugLogger
	// EventBuffer sizes the event channel. Zero uses 100.
	EventBuffer int
}

// Engine drives coordination runs: analyze, iterate (fan out, score, decide),
// and synthesize. One Engine serves many concurrent runs; runs share no
// mutable state beyond the read-only registry.
type Engine struct {
	registry        *registry.Registry
	analyzer        *Analyzer
	scorer          *Scorer
	fanout          *Fanout
	gate            *ApprovalGate
	store           RunStore
	stop            StopFunc
	adjusterFactory func() *Adjuster
	observerFactory func(runID string) QualityObserver
	emitter         *EventEmitter
	logger          *DebugLogger

	// suspended holds plans for runs parked in AWAITING_APPROVAL.
	suspended map[string]*plan
	// mu protects suspended.
	mu sync.Mutex
}

// plan carries everything one run needs across iterations.
type plan struct {
	run        *models.CoordinationRun
	cfg        models.RunConfig
	workers    []boundWorker
	runContext map[string]string
	adjuster   *Adjuster
	observer   QualityObserver
}

// NewEngine creates an Engine from the given configuration.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("new engine: registry is required")
	}

	weights := cfg.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}
	stop := cfg.Stop
	if stop == nil {
		stop = DefaultStop
	}
	observerFactory := cfg.ObserverFactory
	if observerFactory == nil {
		observerFactory = func(string) QualityObserver { return NewQualityHistory(64) }
	}
	bufferSize := cfg.EventBuffer
	if bufferSize <= 0 {
		bufferSize = 100
	}

	return &Engine{
		registry:        cfg.Registry,
		analyzer:        NewAnalyzer(cfg.Registry),
		scorer:          NewScorer(weights, cfg.ExpectedTimes),
		fanout:          NewFanout(logger),
		gate:            NewApprovalGate(),
		store:           cfg.Store,
		stop:            stop,
		adjusterFactory: cfg.AdjusterFactory,
		observerFactory: observerFactory,
		emitter:         NewEventEmitter(bufferSize),
		logger:          logger,
		suspended:       make(map[string]*plan),
	}, nil
}

// Events returns the engine's event stream.
func (e *Engine) Events() <-chan CoordinationEvent {
	return e.emitter.Events()
}

// Approvals returns the engine's approval gate.
func (e *Engine) Approvals() *ApprovalGate {
	return e.gate
}

// Run executes a full coordination run for the task. It returns when the run
// reaches a terminal status or suspends in AWAITING_APPROVAL. Registry
// lookup failures and invalid configs are returned synchronously without
// starting the run.
func (e *Engine) Run(ctx context.Context, task models.Task, cfg models.RunConfig) (*models.CoordinationRun, error) {
	if err := validateRunConfig(cfg); err != nil {
		return nil, err
	}

	analysis := e.analyzer.Analyze(task, cfg)
	workers, err := e.bindWorkers(analysis.Workers)
	if err != nil {
		return nil, err
	}

	run := &models.CoordinationRun{
		ID:        uuid.New().String()[:8],
		Task:      task,
		Workers:   analysis.Workers,
		Strategy:  analysis.Strategy,
		Status:    models.RunInit,
		StartedAt: time.Now(),
	}

	runContext := make(map[string]string, len(cfg.Context))
	for k, v := range cfg.Context {
		runContext[k] = v
	}

	p := &plan{
		run:        run,
		cfg:        cfg,
		workers:    workers,
		runContext: runContext,
		observer:   e.observerFactory(run.ID),
	}
	if e.adjusterFactory != nil {
		p.adjuster = e.adjusterFactory()
	}

	if e.store != nil {
		if err := e.store.CreateRun(run, cfg); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}

	run.Status = models.RunIterating
	e.persist(run)
	e.emitter.Emit(CoordinationEvent{
		Type:      EventRunStarted,
		RunID:     run.ID,
		Message:   fmt.Sprintf("run started with %d workers (%s)", len(workers), run.Strategy),
		Timestamp: time.Now(),
	})
	e.logger.Log("[controller] run %s started: workers=%v strategy=%s estimate=%s",
		run.ID, run.Workers, run.Strategy, analysis.EstimatedDuration)

	return e.iterate(ctx, p, 1)
}

// Resume continues a run suspended in AWAITING_APPROVAL. An approved run
// re-enters the iteration loop; a rejected run terminates as FAILED with a
// rejection recommendation. Resume is only meaningful for suspended runs.
func (e *Engine) Resume(ctx context.Context, runID string, decision Decision) (*models.CoordinationRun, error) {
	e.mu.Lock()
	p, ok := e.suspended[runID]
	if ok {
		delete(e.suspended, runID)
	}
	e.mu.Unlock()

	if !ok {
		var err error
		p, err = e.reloadPlan(runID)
		if err != nil {
			return nil, err
		}
	}
	e.gate.Take(runID)

	run := p.run
	if run.Status != models.RunAwaitingApproval {
		return nil, fmt.Errorf("resume run %s: status is %s, not %s", runID, run.Status, models.RunAwaitingApproval)
	}

	if !decision.Approved {
		reason := decision.Reason
		if reason == "" {
			reason = "no reason given"
		}
		e.logger.Log("[controller] run %s rejected at approval gate: %s", runID, reason)
		e.finish(p, models.RunFailed)
		run.Summary.Recommendations = append(run.Summary.Recommendations,
			fmt.Sprintf("run rejected at approval gate: %s", reason))
		e.persist(run)
		return run, nil
	}

	run.Status = models.RunIterating
	e.persist(run)
	e.emitter.Emit(CoordinationEvent{
		Type:      EventRunResumed,
		RunID:     runID,
		Iteration: run.IterationsPerformed(),
		Message:   "approval granted, resuming",
		Timestamp: time.Now(),
	})

	return e.iterate(ctx, p, run.IterationsPerformed()+1)
}

// iterate drives the run loop from startIter until a stop decision or
// suspension. Iterations are strictly sequential: the next pass cannot begin
// before the previous pass has been scored.
func (e *Engine) iterate(ctx context.Context, p *plan, startIter int) (*models.CoordinationRun, error) {
	run := p.run

	for i := startIter; ; i++ {
		select {
		case <-ctx.Done():
			return run, fmt.Errorf("run %s interrupted: %w", run.ID, ctx.Err())
		default:
		}

		e.emitter.Emit(CoordinationEvent{
			Type:      EventIterationStarted,
			RunID:     run.ID,
			Iteration: i,
			Timestamp: time.Now(),
		})

		rec := e.pass(ctx, p, i)
		run.Iterations = append(run.Iterations, rec)
		run.FinalQuality = rec.AggregateQuality
		p.observer.ObserveIteration(run.ID, rec)

		if e.store != nil {
			if err := e.store.AppendIteration(run.ID, rec); err != nil {
				e.logger.Log("[controller] warning: persist iteration %d of run %s: %v", i, run.ID, err)
			}
		}
		e.emitter.Emit(CoordinationEvent{
			Type:      EventIterationScored,
			RunID:     run.ID,
			Iteration: i,
			Quality:   rec.AggregateQuality,
			Timestamp: time.Now(),
		})

		// An iteration with zero successes is fatal: never retry against a
		// fully broken worker set.
		if rec.SuccessCount() == 0 {
			e.logger.Log("[controller] run %s: iteration %d had no successful workers, failing run", run.ID, i)
			e.finish(p, models.RunFailed)
			return run, nil
		}

		if status, stop := e.stop(run, p.cfg); stop {
			e.finish(p, status)
			return run, nil
		}

		if p.cfg.ApprovalAfter > 0 && i == p.cfg.ApprovalAfter {
			e.suspend(p, rec)
			return run, nil
		}
	}
}

// pass executes and scores one fan-out iteration.
func (e *Engine) pass(ctx context.Context, p *plan, iteration int) models.IterationRecord {
	run := p.run
	results := e.fanout.Execute(ctx, p.workers, run.Strategy, run.Task, p.runContext)

	var meanBreakdown Breakdown
	successes := 0
	for idx := range results {
		r := &results[idx]
		if !r.Success {
			e.emitter.Emit(CoordinationEvent{
				Type:      EventWorkerFailed,
				RunID:     run.ID,
				Worker:    r.WorkerName,
				Iteration: iteration,
				Message:   r.Error,
				Timestamp: time.Now(),
			})
			continue
		}

		b := e.scorer.Score(*r, p.workerType(r.WorkerName), iteration, run.Task)
		r.QualityScore = b.Composite
		successes++
		meanBreakdown.Content += b.Content
		meanBreakdown.Completeness += b.Completeness
		meanBreakdown.Efficiency += b.Efficiency
		meanBreakdown.Improvement += b.Improvement

		e.emitter.Emit(CoordinationEvent{
			Type:      EventWorkerCompleted,
			RunID:     run.ID,
			Worker:    r.WorkerName,
			Iteration: iteration,
			Quality:   r.QualityScore,
			Timestamp: time.Now(),
		})
	}

	if p.adjuster != nil && successes > 0 {
		meanBreakdown.Content /= float64(successes)
		meanBreakdown.Completeness /= float64(successes)
		meanBreakdown.Efficiency /= float64(successes)
		meanBreakdown.Improvement /= float64(successes)
		run.Adjustments = append(run.Adjustments, p.adjuster.Observe(iteration, meanBreakdown)...)
	}

	return models.IterationRecord{
		Index:            iteration,
		Results:          results,
		AggregateQuality: Aggregate(results),
		Timestamp:        time.Now(),
	}
}

// suspend parks the run in AWAITING_APPROVAL: persist state, record the
// approval request, and exit the loop without blocking.
func (e *Engine) suspend(p *plan, last models.IterationRecord) {
	run := p.run
	run.Status = models.RunAwaitingApproval
	e.persist(run)

	e.mu.Lock()
	e.suspended[run.ID] = p
	e.mu.Unlock()

	e.gate.Request(ApprovalRequest{
		RunID:       run.ID,
		Iteration:   last.Index,
		Quality:     last.AggregateQuality,
		RequestedAt: time.Now(),
	})
	e.emitter.Emit(CoordinationEvent{
		Type:      EventAwaitingApproval,
		RunID:     run.ID,
		Iteration: last.Index,
		Quality:   last.AggregateQuality,
		Message:   "run suspended pending approval",
		Timestamp: time.Now(),
	})
	e.logger.Log("[controller] run %s awaiting approval after iteration %d (quality %.1f)",
		run.ID, last.Index, last.AggregateQuality)
}

// finish freezes the run in a terminal status and synthesizes its summary.
func (e *Engine) finish(p *plan, status models.RunStatus) {
	run := p.run
	run.Status = status
	now := time.Now()
	run.FinishedAt = &now
	run.Summary = Synthesize(run)
	e.persist(run)

	eventType := EventRunFailed
	switch status {
	case models.RunConverged:
		eventType = EventRunConverged
	case models.RunExhausted:
		eventType = EventRunExhausted
	}
	e.emitter.Emit(CoordinationEvent{
		Type:      eventType,
		RunID:     run.ID,
		Iteration: run.IterationsPerformed(),
		Quality:   run.FinalQuality,
		Timestamp: now,
	})
	e.logger.Log("[controller] run %s finished: status=%s quality=%.1f iterations=%d",
		run.ID, status, run.FinalQuality, run.IterationsPerformed())
}

// persist writes the run to the store, logging and swallowing errors:
// persistence failures must not change control flow.
func (e *Engine) persist(run *models.CoordinationRun) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateRun(run); err != nil {
		e.logger.Log("[controller] warning: persist run %s: %v", run.ID, err)
	}
}

// bindWorkers resolves every selected worker up front so configuration
// errors surface synchronously out of Run.
func (e *Engine) bindWorkers(names []string) ([]boundWorker, error) {
	workers := make([]boundWorker, 0, len(names))
	for _, name := range names {
		cap, err := e.registry.Resolve(name)
		if err != nil {
			return nil, err
		}
		desc, err := e.registry.Descriptor(name)
		if err != nil {
			return nil, err
		}
		workers = append(workers, boundWorker{desc: desc, cap: cap})
	}
	return workers, nil
}

// reloadPlan rebuilds a suspended run's plan from the store, rebinding
// workers through the registry. Used for cross-process resume.
func (e *Engine) reloadPlan(runID string) (*plan, error) {
	if e.store == nil {
		return nil, fmt.Errorf("resume run %s: run not suspended in this process and no store configured", runID)
	}

	run, cfg, err := e.store.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("resume run %s: not found", runID)
	}

	workers, err := e.bindWorkers(run.Workers)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", runID, err)
	}

	runContext := make(map[string]string, len(cfg.Context))
	for k, v := range cfg.Context {
		runContext[k] = v
	}

	p := &plan{
		run:        run,
		cfg:        *cfg,
		workers:    workers,
		runContext: runContext,
		observer:   e.observerFactory(run.ID),
	}
	if e.adjusterFactory != nil {
		p.adjuster = e.adjusterFactory()
	}
	return p, nil
}

// workerType looks up the descriptor type for a worker in the plan.
func (p *plan) workerType(name string) string {
	for _, w := range p.workers {
		if w.desc.Name == name {
			return w.desc.Type
		}
	}
	return ""
}

// validateRunConfig checks run config invariants.
func validateRunConfig(cfg models.RunConfig) error {
	if cfg.QualityThreshold < 0 || cfg.QualityThreshold > 100 {
		return fmt.Errorf("quality threshold must be in [0,100], got %v", cfg.QualityThreshold)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.ApprovalAfter < 0 {
		return fmt.Errorf("approval after must be >= 0, got %d", cfg.ApprovalAfter)
	}
	return nil
}
