package coordinator

import (
	"strings"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// defaultExpectedMs is the expected execution time for unknown worker types.
const defaultExpectedMs = 4000

// Weights is the scoring-weight table for the composite quality score.
// Specializations swap tables without touching the scoring rules.
type Weights struct {
	Content      float64
	Completeness float64
	Efficiency   float64
	Improvement  float64
}

// DefaultWeights is the standard coordination weight table.
var DefaultWeights = Weights{
	Content:      0.40,
	Completeness: 0.25,
	Efficiency:   0.20,
	Improvement:  0.15,
}

// Breakdown holds the four sub-scores and the weighted composite for one
// worker result. All values are in [0,100].
type Breakdown struct {
	Content      float64
	Completeness float64
	Efficiency   float64
	Improvement  float64
	Composite    float64
}

// structuralMarkers are output fragments treated as structure (bullets,
// numbered lists, headings).
var structuralMarkers = []string{"\n- ", "\n* ", "\n• ", "\n1. ", "\n2. ", "\n#", "- ", "* "}

// conclusionMarkers signal that the output wraps up with a conclusion.
var conclusionMarkers = []string{"conclusion", "in summary", "summary", "overall", "to conclude"}

// causalConnectors signal explanatory reasoning in the output.
var causalConnectors = []string{"because", "since", "due to", "reason"}

// errorMarkers cap completeness when present in the output.
var errorMarkers = []string{"error:", "failed:", "exception:", "unable to complete"}

// Scorer computes composite quality scores for worker results. Scoring is a
// pure function of (output, elapsed, worker type, iteration index); it never
// returns an error — malformed output simply scores low.
type Scorer struct {
	weights       Weights
	expectedTimes map[string]time.Duration
}

// NewScorer creates a Scorer with the given weight table. The expectedTimes
// map keys worker types to expected execution durations; unknown types use
// the 4s default. A nil map is allowed.
func NewScorer(weights Weights, expectedTimes map[string]time.Duration) *Scorer {
	return &Scorer{weights: weights, expectedTimes: expectedTimes}
}

// Score computes the sub-scores and weighted composite for one result.
// Failed results skip the computation entirely and are fixed at 0.
func (s *Scorer) Score(result models.WorkerResult, workerType string, iteration int, task models.Task) Breakdown {
	if !result.Success {
		return Breakdown{}
	}

	b := Breakdown{
		Content:      scoreContent(result.Output, task),
		Completeness: scoreCompleteness(result.Output),
		Efficiency:   s.scoreEfficiency(workerType, result.ElapsedMs),
		Improvement:  scoreImprovement(iteration),
	}
	b.Composite = clamp(s.weights.Content*b.Content +
		s.weights.Completeness*b.Completeness +
		s.weights.Efficiency*b.Efficiency +
		s.weights.Improvement*b.Improvement)
	return b
}

// scoreContent rates output substance: base 50, a length band bonus, a
// structure bonus, and up to 15 points for task-keyword coverage.
func scoreContent(output string, task models.Task) float64 {
	score := 50.0

	length := len(output)
	switch {
	case length >= 100 && length <= 2000:
		score += 20
	case length > 50:
		score += 10
	}

	for _, marker := range structuralMarkers {
		if strings.Contains(output, marker) {
			score += 15
			break
		}
	}

	keywords := task.Keywords()
	if len(keywords) > 0 {
		lower := strings.ToLower(output)
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matched++
			}
		}
		score += 15 * float64(matched) / float64(len(keywords))
	}

	return clamp(score)
}

// scoreCompleteness rates whether the output finishes the job: base 60,
// capped at 20 when an error marker appears, bonuses for a conclusion and
// for substantial output with causal reasoning.
func scoreCompleteness(output string) float64 {
	lower := strings.ToLower(output)

	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return 20
		}
	}

	score := 60.0
	for _, marker := range conclusionMarkers {
		if strings.Contains(lower, marker) {
			score += 20
			break
		}
	}

	if len(output) > 200 {
		for _, connector := range causalConnectors {
			if strings.Contains(lower, connector) {
				score += 20
				break
			}
		}
	}

	return clamp(score)
}

// scoreEfficiency bands the ratio of expected to actual execution time.
func (s *Scorer) scoreEfficiency(workerType string, elapsedMs int64) float64 {
	expectedMs := float64(defaultExpectedMs)
	if d, ok := s.expectedTimes[workerType]; ok && d > 0 {
		expectedMs = float64(d.Milliseconds())
	}

	if elapsedMs <= 0 {
		return 40
	}
	ratio := expectedMs / float64(elapsedMs)

	switch {
	case ratio >= 0.8 && ratio <= 1.2:
		return 100
	case ratio >= 0.6 && ratio <= 1.5:
		return 80
	case ratio >= 0.4 && ratio <= 2.0:
		return 60
	default:
		return 40
	}
}

// scoreImprovement models the decreasing marginal value of further
// iteration: a capped per-iteration bonus damped by a diminishing factor.
func scoreImprovement(iteration int) float64 {
	bonus := float64(iteration) * 8
	if bonus > 30 {
		bonus = 30
	}
	factor := 1 - float64(iteration)*0.1
	if factor < 0.5 {
		factor = 0.5
	}
	return clamp((70 + bonus) * factor)
}

// Aggregate returns the arithmetic mean of the results' quality scores.
// Failed results count as 0, depressing the mean.
func Aggregate(results []models.WorkerResult) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range results {
		total += r.QualityScore
	}
	return total / float64(len(results))
}

// clamp bounds a score to [0,100].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
