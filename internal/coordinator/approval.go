package coordinator

import (
	"sync"
	"time"
)

// ApprovalRequest describes a run suspended at its approval gate. It is
// surfaced to the CLI (or any other frontend) so a human can decide whether
// the run continues.
type ApprovalRequest struct {
	// RunID is the ID of the suspended run.
	RunID string
	// Iteration is the index of the last completed iteration.
	Iteration int
	// Quality is the aggregate quality at suspension time.
	Quality float64
	// RequestedAt is when the run suspended.
	RequestedAt time.Time
}

// Decision is the external verdict on a suspended run.
type Decision struct {
	// Approved indicates whether the run may continue iterating.
	Approved bool
	// Reason provides context for rejections.
	Reason string
}

// ApprovalGate tracks runs suspended in AWAITING_APPROVAL. The gate never
// blocks a thread waiting on a human: the engine records the request,
// persists run state, and exits its loop; Resume consumes the request later.
type ApprovalGate struct {
	// pending maps run IDs to their open approval requests.
	pending map[string]ApprovalRequest
	// mu protects pending.
	mu sync.RWMutex
}

// NewApprovalGate creates an ApprovalGate.
func NewApprovalGate() *ApprovalGate {
	return &ApprovalGate{pending: make(map[string]ApprovalRequest)}
}

// Request records an open approval request for a run.
func (g *ApprovalGate) Request(req ApprovalRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[req.RunID] = req
}

// Take removes and returns the pending request for a run.
// The second return is false when no request is open.
func (g *ApprovalGate) Take(runID string) (ApprovalRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.pending[runID]
	if ok {
		delete(g.pending, runID)
	}
	return req, ok
}

// HasPending returns true if the run has an open approval request.
func (g *ApprovalGate) HasPending(runID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pending[runID]
	return ok
}

// Pending returns all open approval requests.
func (g *ApprovalGate) Pending() []ApprovalRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]ApprovalRequest, 0, len(g.pending))
	for _, req := range g.pending {
		out = append(out, req)
	}
	return out
}
