// Package coordinator implements the iterative quality-driven coordination
// engine: worker selection, fan-out execution, scoring, convergence control,
// feedback adjustment, and result synthesis.
package coordinator

import (
	"strings"
	"time"

	"github.com/ShayCichocki/quorum/internal/registry"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// CoordinatorWorker is the default worker appended to every selection.
const CoordinatorWorker = "coordinator"

// defaultDomainWorkers maps domains to their static worker pre-selections.
// Entries not present in the registry are skipped at analysis time.
var defaultDomainWorkers = map[models.Domain][]string{
	models.DomainFinance:   {"financial-analyst", "risk-assessor", "report-writer"},
	models.DomainLegal:     {"legal-reviewer", "compliance-checker"},
	models.DomainMedical:   {"clinical-analyst", "literature-reviewer"},
	models.DomainTechnical: {"architect", "implementer", "reviewer"},
	models.DomainCreative:  {"writer", "editor"},
	models.DomainResearch:  {"researcher", "fact-checker", "synthesizer"},
}

// Analysis is the analyzer's plan for one run.
type Analysis struct {
	// Workers is the ordered, de-duplicated worker selection.
	Workers []string
	// Strategy is the recommended execution strategy.
	Strategy models.ExecutionStrategy
	// EstimatedDuration is a coarse wall-clock estimate for one iteration set.
	EstimatedDuration time.Duration
}

// Analyzer selects workers and an execution strategy for a task.
type Analyzer struct {
	registry      *registry.Registry
	domainWorkers map[models.Domain][]string
}

// NewAnalyzer creates an Analyzer backed by the given registry.
func NewAnalyzer(reg *registry.Registry) *Analyzer {
	return &Analyzer{
		registry:      reg,
		domainWorkers: defaultDomainWorkers,
	}
}

// SetDomainTable replaces the static domain-to-worker table.
func (a *Analyzer) SetDomainTable(table map[models.Domain][]string) {
	a.domainWorkers = table
}

// Analyze produces the worker selection and strategy for a task.
// Selection: a set domain uses the static table; otherwise workers are kept
// when at least one capability tag appears in the task text. Explicit
// required capabilities force-include matching workers. The default
// coordinator worker is always appended.
func (a *Analyzer) Analyze(task models.Task, cfg models.RunConfig) Analysis {
	domain := task.Domain
	if cfg.Domain != "" {
		domain = cfg.Domain
	}

	var selected []string
	if domain != "" {
		selected = a.selectByDomain(domain)
	} else {
		selected = a.selectByKeywords(task.Text)
	}

	required := append([]string{}, task.RequiredCapabilities...)
	required = append(required, cfg.RequiredCapabilities...)
	selected = append(selected, a.selectByCapabilities(required)...)

	selected = append(selected, CoordinatorWorker)
	workers := dedupe(selected)

	strategy := a.chooseStrategy(workers, task)
	if cfg.StrategyOverride != "" && cfg.StrategyOverride.Valid() {
		strategy = cfg.StrategyOverride
	}

	return Analysis{
		Workers:           workers,
		Strategy:          strategy,
		EstimatedDuration: estimateDuration(len(workers), strategy),
	}
}

// selectByDomain returns the table entry for the domain, filtered to workers
// actually present in the registry.
func (a *Analyzer) selectByDomain(domain models.Domain) []string {
	var selected []string
	for _, name := range a.domainWorkers[domain] {
		if _, err := a.registry.Descriptor(name); err == nil {
			selected = append(selected, name)
		}
	}
	return selected
}

// selectByKeywords keeps every worker with at least one capability tag
// appearing case-insensitively in the task text.
func (a *Analyzer) selectByKeywords(text string) []string {
	lower := strings.ToLower(text)

	var selected []string
	for _, desc := range a.registry.Descriptors() {
		hits := 0
		for _, tag := range desc.Capabilities {
			if tag != "" && strings.Contains(lower, strings.ToLower(tag)) {
				hits++
			}
		}
		if hits >= 1 {
			selected = append(selected, desc.Name)
		}
	}
	return selected
}

// selectByCapabilities force-includes every worker advertising one of the
// required tags.
func (a *Analyzer) selectByCapabilities(required []string) []string {
	var selected []string
	for _, tag := range required {
		for _, desc := range a.registry.Descriptors() {
			if desc.HasCapability(tag) {
				selected = append(selected, desc.Name)
			}
		}
	}
	return selected
}

// chooseStrategy picks the execution strategy:
// two or fewer workers run sequentially, complexity tier >= 3 runs hybrid
// (parallel within a priority tier, sequential across tiers), everything
// else runs parallel.
func (a *Analyzer) chooseStrategy(workers []string, task models.Task) models.ExecutionStrategy {
	switch {
	case len(workers) <= 2:
		return models.StrategySequential
	case task.Complexity >= 3:
		return models.StrategyHybrid
	default:
		return models.StrategyParallel
	}
}

// estimateDuration estimates one iteration's wall-clock time.
// Parallel runs bound below at 30s; sequential and hybrid pay per worker.
func estimateDuration(workerCount int, strategy models.ExecutionStrategy) time.Duration {
	if strategy == models.StrategyParallel {
		d := time.Duration(workerCount) * 10 * time.Second
		if d < 30*time.Second {
			d = 30 * time.Second
		}
		return d
	}
	return time.Duration(workerCount) * 30 * time.Second
}

// dedupe removes duplicate names preserving first appearance.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
