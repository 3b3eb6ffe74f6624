package monitor

import (
	"context"
	"testing"
	"time"
)

func TestSignalWatcherStopFile(t *testing.T) {
	root := t.TempDir()
	sw, err := NewSignalWatcher(root)
	if err != nil {
		t.Fatalf("NewSignalWatcher failed: %v", err)
	}
	defer sw.Close()

	if sw.ShouldStop() {
		t.Error("expected no stop signal initially")
	}

	if err := sw.SendStop(); err != nil {
		t.Fatalf("SendStop failed: %v", err)
	}

	// The stat fallback makes detection immediate even if the fsnotify
	// event has not arrived yet.
	if !sw.ShouldStop() {
		t.Error("expected stop signal after SendStop")
	}
}

func TestSignalWatcherClear(t *testing.T) {
	root := t.TempDir()
	sw, err := NewSignalWatcher(root)
	if err != nil {
		t.Fatalf("NewSignalWatcher failed: %v", err)
	}
	defer sw.Close()

	if err := sw.SendStop(); err != nil {
		t.Fatalf("SendStop failed: %v", err)
	}
	if !sw.ShouldStop() {
		t.Fatal("expected stop signal after SendStop")
	}

	sw.Clear()
	if sw.ShouldStop() {
		t.Error("expected no stop signal after Clear")
	}
}

func TestSignalWatcherStopsMonitor(t *testing.T) {
	root := t.TempDir()
	sw, err := NewSignalWatcher(root)
	if err != nil {
		t.Fatalf("NewSignalWatcher failed: %v", err)
	}
	defer sw.Close()

	m, err := New(Config{
		Sampler:  fixedSampler(map[string]float64{"toxicity": 0.1}),
		Interval: time.Millisecond,
		Signals:  sw,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	if err := sw.SendStop(); err != nil {
		t.Fatalf("SendStop failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after external signal")
	}
}
