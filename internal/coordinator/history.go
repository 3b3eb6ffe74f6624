package coordinator

import (
	"sync"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// QualityObserver receives every scored iteration of a run. Observers are
// injected per run; the engine never shares analytics state across runs.
type QualityObserver interface {
	// ObserveIteration is called after each iteration is scored.
	ObserveIteration(runID string, rec models.IterationRecord)
}

// RingBuffer is a fixed-capacity float64 buffer. Once full, new values
// overwrite the oldest. Safe for concurrent use.
type RingBuffer struct {
	values []float64
	head   int
	count  int
	mu     sync.Mutex
}

// NewRingBuffer creates a RingBuffer with the given capacity.
// Capacity must be at least 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{values: make([]float64, capacity)}
}

// Add appends a value, evicting the oldest when full.
func (b *RingBuffer) Add(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[b.head] = v
	b.head = (b.head + 1) % len(b.values)
	if b.count < len(b.values) {
		b.count++
	}
}

// Len returns the number of stored values.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Average returns the mean of the stored values, or 0 when empty.
func (b *RingBuffer) Average() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < b.count; i++ {
		total += b.values[i]
	}
	return total / float64(b.count)
}

// Values returns the stored values oldest-first.
func (b *RingBuffer) Values() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float64, 0, b.count)
	start := 0
	if b.count == len(b.values) {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		out = append(out, b.values[(start+i)%len(b.values)])
	}
	return out
}

// QualityHistory is the default QualityObserver: a bounded ring of aggregate
// quality values for one run.
type QualityHistory struct {
	ring *RingBuffer
}

// NewQualityHistory creates a QualityHistory bounded to capacity iterations.
func NewQualityHistory(capacity int) *QualityHistory {
	return &QualityHistory{ring: NewRingBuffer(capacity)}
}

// ObserveIteration records the iteration's aggregate quality.
func (h *QualityHistory) ObserveIteration(runID string, rec models.IterationRecord) {
	h.ring.Add(rec.AggregateQuality)
}

// Average returns the rolling mean aggregate quality.
func (h *QualityHistory) Average() float64 {
	return h.ring.Average()
}

// Values returns the recorded qualities oldest-first.
func (h *QualityHistory) Values() []float64 {
	return h.ring.Values()
}
