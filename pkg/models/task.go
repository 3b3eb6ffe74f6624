package models

import "strings"

// Domain is a coarse task category used to statically pre-select a worker set.
type Domain string

const (
	// DomainFinance covers financial analysis and reporting tasks.
	DomainFinance Domain = "finance"
	// DomainLegal covers legal review and compliance tasks.
	DomainLegal Domain = "legal"
	// DomainMedical covers medical and clinical tasks.
	DomainMedical Domain = "medical"
	// DomainTechnical covers engineering and technical tasks.
	DomainTechnical Domain = "technical"
	// DomainCreative covers writing and content-generation tasks.
	DomainCreative Domain = "creative"
	// DomainResearch covers open-ended research tasks.
	DomainResearch Domain = "research"
)

// Valid returns true if the domain is a known value.
func (d Domain) Valid() bool {
	switch d {
	case DomainFinance, DomainLegal, DomainMedical, DomainTechnical, DomainCreative, DomainResearch:
		return true
	default:
		return false
	}
}

// ExecutionStrategy describes how workers are scheduled within one iteration.
type ExecutionStrategy string

const (
	// StrategySequential runs workers strictly in list order.
	StrategySequential ExecutionStrategy = "sequential"
	// StrategyParallel launches all workers concurrently and joins.
	StrategyParallel ExecutionStrategy = "parallel"
	// StrategyHybrid runs priority tiers sequentially, parallel within a tier.
	StrategyHybrid ExecutionStrategy = "hybrid"
)

// Valid returns true if the strategy is a known value.
func (s ExecutionStrategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyHybrid:
		return true
	default:
		return false
	}
}

// Task represents the unit of work a coordination run executes against.
// A Task is immutable once a run starts.
type Task struct {
	// Text is the free-text description of the work.
	Text string `json:"text"`
	// Domain is the task category, if known. Empty means unclassified.
	Domain Domain `json:"domain,omitempty"`
	// Complexity is the complexity tier (1 = trivial, 5 = very complex).
	Complexity int `json:"complexity"`
	// Priority orders tasks relative to each other (higher is more urgent).
	Priority int `json:"priority"`
	// RequiredCapabilities force-includes workers advertising a matching tag.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

// Keywords returns the task's significant keywords: lowercased words longer
// than three characters, in order of first appearance, de-duplicated.
func (t Task) Keywords() []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(t.Text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}
