package coordinator

import (
	"fmt"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Synthesize builds the immutable run summary from the final iteration and
// the full history: flattened insights, the quality progression, and banded
// recommendations. No further mutation happens after this step.
func Synthesize(run *models.CoordinationRun) *models.Summary {
	summary := &models.Summary{}

	final := run.LastIteration()
	if final == nil {
		summary.Recommendations = []string{"run produced no iterations"}
		return summary
	}

	for _, r := range final.Results {
		if r.Success {
			summary.CombinedInsights = append(summary.CombinedInsights, r.Output)
		}
	}

	for _, rec := range run.Iterations {
		summary.QualityProgression = append(summary.QualityProgression, models.QualityPoint{
			Iteration: rec.Index,
			Quality:   rec.AggregateQuality,
		})
	}

	if len(run.Iterations) >= 2 {
		initial := run.Iterations[0].AggregateQuality
		if initial > 0 {
			summary.ImprovementRate = (final.AggregateQuality - initial) / initial * 100
		}
	}

	summary.Recommendations = recommendations(run, final)
	return summary
}

// recommendations derives the human-readable findings: a quality banding
// message, the refinement-iteration count, failed-worker count, and an
// average-execution-time banding.
func recommendations(run *models.CoordinationRun, final *models.IterationRecord) []string {
	var recs []string

	quality := final.AggregateQuality
	switch {
	case quality >= 90:
		recs = append(recs, fmt.Sprintf("excellent output quality (%.1f); results are ready for use", quality))
	case quality >= 70:
		recs = append(recs, fmt.Sprintf("good output quality (%.1f); spot-check before relying on details", quality))
	default:
		recs = append(recs, fmt.Sprintf("output quality needs improvement (%.1f); consider revising the task or worker set", quality))
	}

	if extra := run.IterationsPerformed() - 1; extra > 0 {
		recs = append(recs, fmt.Sprintf("required %d refinement iteration(s) beyond the first pass", extra))
	}

	if failed := final.FailureCount(); failed > 0 {
		recs = append(recs, fmt.Sprintf("%d worker(s) failed in the final iteration; their zero scores depressed the aggregate", failed))
	}

	recs = append(recs, executionTimeBanding(final))

	for _, adj := range run.Adjustments {
		recs = append(recs, fmt.Sprintf("tuning: raise %s from %.1f to %.1f (%s)",
			adj.Parameter, adj.OldValue, adj.NewValue, adj.Reason))
	}

	return recs
}

// executionTimeBanding bands the final iteration's mean execution time.
func executionTimeBanding(final *models.IterationRecord) string {
	if len(final.Results) == 0 {
		return "no workers executed"
	}

	var total int64
	for _, r := range final.Results {
		total += r.ElapsedMs
	}
	avgMs := total / int64(len(final.Results))

	switch {
	case avgMs > 10000:
		return fmt.Sprintf("average worker execution was slow (%dms); review worker load or expected-time hints", avgMs)
	case avgMs > 4000:
		return fmt.Sprintf("average worker execution was moderate (%dms)", avgMs)
	default:
		return fmt.Sprintf("average worker execution was fast (%dms)", avgMs)
	}
}
