package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/quorum/internal/registry"
	"github.com/ShayCichocki/quorum/pkg/models"
)

func staticWorker(name, output string) boundWorker {
	return boundWorker{
		desc: models.WorkerDescriptor{Name: name},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				return registry.Execution{Output: output}, nil
			}),
	}
}

func failingWorker(name string, err error) boundWorker {
	return boundWorker{
		desc: models.WorkerDescriptor{Name: name},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				return registry.Execution{}, err
			}),
	}
}

func panickingWorker(name string) boundWorker {
	return boundWorker{
		desc: models.WorkerDescriptor{Name: name},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				panic("worker exploded")
			}),
	}
}

func TestFanoutSequentialOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	ordered := func(name string) boundWorker {
		return boundWorker{
			desc: models.WorkerDescriptor{Name: name},
			cap: registry.CapabilityFunc(
				func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
					mu.Lock()
					calls = append(calls, name)
					mu.Unlock()
					return registry.Execution{Output: name}, nil
				}),
		}
	}

	f := NewFanout(nil)
	workers := []boundWorker{ordered("first"), ordered("second"), ordered("third")}
	results := f.Execute(context.Background(), workers, models.StrategySequential, models.Task{}, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"first", "second", "third"} {
		if calls[i] != want {
			t.Errorf("call order[%d] = %s, want %s", i, calls[i], want)
		}
		if results[i].WorkerName != want {
			t.Errorf("result order[%d] = %s, want %s", i, results[i].WorkerName, want)
		}
	}
}

func TestFanoutParallelJoinsAllWorkers(t *testing.T) {
	slow := boundWorker{
		desc: models.WorkerDescriptor{Name: "slow"},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				time.Sleep(20 * time.Millisecond)
				return registry.Execution{Output: "slow done"}, nil
			}),
	}

	f := NewFanout(nil)
	workers := []boundWorker{staticWorker("fast", "fast done"), slow}
	results := f.Execute(context.Background(), workers, models.StrategyParallel, models.Task{}, nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Slot order matches the worker list regardless of completion order.
	if results[0].WorkerName != "fast" || results[1].WorkerName != "slow" {
		t.Errorf("result order = [%s, %s], want [fast, slow]", results[0].WorkerName, results[1].WorkerName)
	}
	if !results[1].Success || results[1].Output != "slow done" {
		t.Errorf("slow worker result = %+v, want success", results[1])
	}
}

func TestFanoutFailureIsolation(t *testing.T) {
	f := NewFanout(nil)
	workers := []boundWorker{
		staticWorker("good", "fine"),
		failingWorker("bad", errors.New("connection refused")),
		staticWorker("also-good", "also fine"),
	}

	for _, strategy := range []models.ExecutionStrategy{
		models.StrategySequential, models.StrategyParallel, models.StrategyHybrid,
	} {
		t.Run(string(strategy), func(t *testing.T) {
			results := f.Execute(context.Background(), workers, strategy, models.Task{}, nil)
			if len(results) != 3 {
				t.Fatalf("expected 3 results, got %d", len(results))
			}
			if !results[0].Success || !results[2].Success {
				t.Error("sibling workers must not be affected by one failure")
			}
			if results[1].Success {
				t.Error("failed worker must report failure")
			}
			if results[1].Error != "connection refused" {
				t.Errorf("error = %q, want connection refused", results[1].Error)
			}
			if results[1].QualityScore != 0 {
				t.Errorf("failed worker score = %f, want 0", results[1].QualityScore)
			}
		})
	}
}

func TestFanoutPanicRecovery(t *testing.T) {
	f := NewFanout(nil)
	workers := []boundWorker{panickingWorker("boomer"), staticWorker("steady", "ok")}

	results := f.Execute(context.Background(), workers, models.StrategyParallel, models.Task{}, nil)

	if results[0].Success {
		t.Error("panicking worker must report failure")
	}
	if results[0].Error != "worker panic" {
		t.Errorf("error = %q, want worker panic", results[0].Error)
	}
	if !results[1].Success {
		t.Error("sibling worker must survive a panic next door")
	}
}

func TestFanoutHybridTierOrder(t *testing.T) {
	var mu sync.Mutex
	var tiers []int
	tiered := func(name string, priority int) boundWorker {
		return boundWorker{
			desc: models.WorkerDescriptor{Name: name, Priority: priority},
			cap: registry.CapabilityFunc(
				func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
					mu.Lock()
					tiers = append(tiers, priority)
					mu.Unlock()
					return registry.Execution{Output: name}, nil
				}),
		}
	}

	f := NewFanout(nil)
	workers := []boundWorker{
		tiered("low-a", 1),
		tiered("high", 3),
		tiered("low-b", 1),
		tiered("mid", 2),
	}
	results := f.Execute(context.Background(), workers, models.StrategyHybrid, models.Task{}, nil)

	// Higher tiers run strictly before lower tiers.
	want := []int{3, 2, 1, 1}
	for i, p := range want {
		if tiers[i] != p {
			t.Fatalf("tier execution order = %v, want %v", tiers, want)
		}
	}

	// Result slots still follow the worker list order.
	for i, name := range []string{"low-a", "high", "low-b", "mid"} {
		if results[i].WorkerName != name {
			t.Errorf("result[%d] = %s, want %s", i, results[i].WorkerName, name)
		}
	}
}

func TestCallWorkerMeasuresElapsedWhenUnreported(t *testing.T) {
	sleeper := boundWorker{
		desc: models.WorkerDescriptor{Name: "sleeper"},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				time.Sleep(15 * time.Millisecond)
				return registry.Execution{Output: "done"}, nil
			}),
	}

	f := NewFanout(nil)
	result := f.callWorker(context.Background(), sleeper, models.Task{}, nil)

	if result.ElapsedMs < 10 {
		t.Errorf("elapsed = %dms, want measured wall clock", result.ElapsedMs)
	}
}

func TestCallWorkerPrefersReportedElapsed(t *testing.T) {
	reporter := boundWorker{
		desc: models.WorkerDescriptor{Name: "reporter"},
		cap: registry.CapabilityFunc(
			func(ctx context.Context, task models.Task, runContext map[string]string) (registry.Execution, error) {
				return registry.Execution{Output: "done", ElapsedMs: 1234}, nil
			}),
	}

	f := NewFanout(nil)
	result := f.callWorker(context.Background(), reporter, models.Task{}, nil)

	if result.ElapsedMs != 1234 {
		t.Errorf("elapsed = %dms, want reported 1234", result.ElapsedMs)
	}
}
