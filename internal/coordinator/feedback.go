package coordinator

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Feedback dimensions. Each scoring sub-dimension maps onto one tunable
// training parameter: accuracy tracks content quality, quality tracks
// completeness, efficiency tracks efficiency, consistency tracks iteration
// improvement.
const (
	DimAccuracy    = "accuracy"
	DimEfficiency  = "efficiency"
	DimQuality     = "quality"
	DimConsistency = "consistency"
)

// deltaConstants are the fixed per-dimension adjustment deltas.
var deltaConstants = map[string]float64{
	DimAccuracy:    15,
	DimEfficiency:  20,
	DimQuality:     12,
	DimConsistency: 10,
}

// Adjuster proposes advisory parameter deltas from score gaps during
// training runs. Adjustments never alter worker behavior — workers are
// opaque — they are accumulated across iterations and surfaced as
// recommendations in the final synthesis.
type Adjuster struct {
	// learningRate scales every proposed delta.
	learningRate float64
	// targets maps dimensions to their target values (0-100).
	targets map[string]float64
	// params holds the current parameter value per dimension, seeded from
	// the first observation.
	params map[string]float64
}

// NewAdjuster creates an Adjuster with the given learning rate and
// per-dimension targets. Dimensions absent from targets are never adjusted.
func NewAdjuster(learningRate float64, targets map[string]float64) *Adjuster {
	return &Adjuster{
		learningRate: learningRate,
		targets:      targets,
		params:       make(map[string]float64),
	}
}

// dimensionValues maps a mean sub-score breakdown onto feedback dimensions.
func dimensionValues(mean Breakdown) map[string]float64 {
	return map[string]float64{
		DimAccuracy:    mean.Content,
		DimQuality:     mean.Completeness,
		DimEfficiency:  mean.Efficiency,
		DimConsistency: mean.Improvement,
	}
}

// Observe inspects one iteration's mean sub-scores and proposes an
// adjustment for every dimension below its target:
// newValue = min(100, oldValue + learningRate * delta).
func (a *Adjuster) Observe(iteration int, mean Breakdown) []models.Adjustment {
	values := dimensionValues(mean)

	// Deterministic order for reproducible recommendations.
	dims := make([]string, 0, len(values))
	for dim := range values {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	var adjustments []models.Adjustment
	for _, dim := range dims {
		target, ok := a.targets[dim]
		if !ok {
			continue
		}
		measured := values[dim]
		if measured >= target {
			continue
		}

		old, seeded := a.params[dim]
		if !seeded {
			old = measured
		}
		newValue := old + a.learningRate*deltaConstants[dim]
		if newValue > 100 {
			newValue = 100
		}
		a.params[dim] = newValue

		adjustments = append(adjustments, models.Adjustment{
			Parameter: dim,
			OldValue:  old,
			NewValue:  newValue,
			Reason: fmt.Sprintf("iteration %d: %s %.1f below target %.1f",
				iteration, dim, measured, target),
		})
	}
	return adjustments
}

// Params returns a copy of the current parameter values.
func (a *Adjuster) Params() map[string]float64 {
	out := make(map[string]float64, len(a.params))
	for k, v := range a.params {
		out[k] = v
	}
	return out
}
