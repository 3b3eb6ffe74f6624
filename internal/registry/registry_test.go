package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/quorum/pkg/models"
)

func echoCapability(output string) WorkerCapability {
	return CapabilityFunc(func(ctx context.Context, task models.Task, runContext map[string]string) (Execution, error) {
		return Execution{Output: output, ElapsedMs: 10}, nil
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New()
	desc := models.WorkerDescriptor{Name: "analyst", Type: "analysis", Capabilities: []string{"finance"}}

	if err := r.Register(desc, echoCapability("ok")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cap, err := r.Resolve("analyst")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	exec, err := cap.Execute(context.Background(), models.Task{Text: "test"}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.Output != "ok" {
		t.Errorf("expected output 'ok', got %q", exec.Output)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New()

	_, err := r.Resolve("ghost")
	if err == nil {
		t.Fatal("expected error for unknown worker")
	}
	if !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("expected ErrWorkerNotFound, got %v", err)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := New()

	if err := r.Register(models.WorkerDescriptor{}, echoCapability("x")); err == nil {
		t.Error("expected error for empty name")
	}
	if err := r.Register(models.WorkerDescriptor{Name: "a"}, nil); err == nil {
		t.Error("expected error for nil capability")
	}
}

func TestRegistry_DescriptorsOrder(t *testing.T) {
	r := New()
	names := []string{"charlie", "alpha", "bravo"}
	for _, n := range names {
		if err := r.Register(models.WorkerDescriptor{Name: n}, echoCapability(n)); err != nil {
			t.Fatalf("Register %s: %v", n, err)
		}
	}

	descs := r.Descriptors()
	if len(descs) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descs))
	}
	for i, n := range names {
		if descs[i].Name != n {
			t.Errorf("position %d: expected %q, got %q", i, n, descs[i].Name)
		}
	}
}

func TestRegistry_ReregisterReplaces(t *testing.T) {
	r := New()
	desc := models.WorkerDescriptor{Name: "analyst", Type: "v1"}
	if err := r.Register(desc, echoCapability("first")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	desc.Type = "v2"
	if err := r.Register(desc, echoCapability("second")); err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	if r.Count() != 1 {
		t.Errorf("expected count 1 after re-register, got %d", r.Count())
	}
	got, err := r.Descriptor("analyst")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if got.Type != "v2" {
		t.Errorf("expected replaced descriptor type 'v2', got %q", got.Type)
	}
}

func TestRegistry_LoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	content := `workers:
  - name: financial-analyst
    type: analysis
    capabilities: [finance, analysis, reporting]
    expected_time: 4s
    priority: 2
  - name: coordinator
    type: coordination
    capabilities: [coordination]
    priority: 1
    command: "cat"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	r := New()
	commands := make(map[string]string)
	err := r.LoadManifest(path, func(d models.WorkerDescriptor, command string) WorkerCapability {
		commands[d.Name] = command
		return echoCapability(d.Name)
	})
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	if commands["coordinator"] != "cat" {
		t.Errorf("expected coordinator command 'cat', got %q", commands["coordinator"])
	}
	if commands["financial-analyst"] != "" {
		t.Errorf("expected empty command for financial-analyst, got %q", commands["financial-analyst"])
	}

	if r.Count() != 2 {
		t.Fatalf("expected 2 workers, got %d", r.Count())
	}

	desc, err := r.Descriptor("financial-analyst")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if !desc.HasCapability("reporting") {
		t.Error("expected capability 'reporting'")
	}
	if desc.ExpectedTime.Seconds() != 4 {
		t.Errorf("expected 4s expected_time, got %v", desc.ExpectedTime)
	}
}

func TestRegistry_LoadManifestErrors(t *testing.T) {
	r := New()
	factory := func(d models.WorkerDescriptor, command string) WorkerCapability { return echoCapability("x") }

	if err := r.LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"), factory); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("workers: []\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.LoadManifest(empty, factory); err == nil {
		t.Error("expected error for empty manifest")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	content := "workers:\n  - name: analyst\n    expected_time: soonish\n"
	if err := os.WriteFile(bad, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.LoadManifest(bad, factory); err == nil {
		t.Error("expected error for unparseable expected_time")
	}
}
