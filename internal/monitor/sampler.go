package monitor

import (
	"context"

	"github.com/ShayCichocki/quorum/internal/coordinator"
	"github.com/ShayCichocki/quorum/internal/segment"
)

// Sampler produces one set of metric samples per monitoring cycle.
type Sampler interface {
	Sample(ctx context.Context) (map[string]float64, error)
}

// SamplerFunc adapts a plain function to the Sampler interface.
type SamplerFunc func(ctx context.Context) (map[string]float64, error)

// Sample implements Sampler.
func (f SamplerFunc) Sample(ctx context.Context) (map[string]float64, error) {
	return f(ctx)
}

// ProbeSampler samples metrics by executing one coordinator pass and
// extracting "name: value" metric lines from successful worker outputs.
// When several workers report the same metric, the values are averaged.
type ProbeSampler struct {
	probe *coordinator.Probe
}

// NewProbeSampler wraps a prepared probe.
func NewProbeSampler(probe *coordinator.Probe) *ProbeSampler {
	return &ProbeSampler{probe: probe}
}

// Sample implements Sampler.
func (s *ProbeSampler) Sample(ctx context.Context) (map[string]float64, error) {
	rec, err := s.probe.Execute(ctx)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rec.Results {
		if !r.Success {
			continue
		}
		for name, value := range segment.Metrics(r.Output) {
			sums[name] += value
			counts[name]++
		}
	}

	samples := make(map[string]float64, len(sums))
	for name, sum := range sums {
		samples[name] = sum / float64(counts[name])
	}
	return samples, nil
}
