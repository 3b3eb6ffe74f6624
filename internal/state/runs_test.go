package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func sampleRun() (*models.CoordinationRun, models.RunConfig) {
	run := &models.CoordinationRun{
		ID: "run-0001",
		Task: models.Task{
			Text:       "analyze quarterly revenue",
			Domain:     models.DomainFinance,
			Complexity: 2,
		},
		Workers:   []string{"financial-analyst", "coordinator"},
		Strategy:  models.StrategySequential,
		Status:    models.RunIterating,
		StartedAt: time.Now().Truncate(time.Second),
	}
	cfg := models.RunConfig{
		QualityThreshold: 80,
		MaxIterations:    5,
		Context:          map[string]string{"quarter": "Q3"},
	}
	return run, cfg
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	db := testDB(t)
	run, cfg := sampleRun()

	if err := db.CreateRun(run, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, gotCfg, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil for an existing run")
	}

	if got.ID != run.ID || got.Status != models.RunIterating {
		t.Errorf("got run %s status %s, want %s iterating", got.ID, got.Status, run.ID)
	}
	if got.Task.Text != run.Task.Text || got.Task.Domain != models.DomainFinance {
		t.Errorf("task round trip mismatch: %+v", got.Task)
	}
	if len(got.Workers) != 2 || got.Workers[0] != "financial-analyst" {
		t.Errorf("workers round trip mismatch: %v", got.Workers)
	}
	if gotCfg.QualityThreshold != 80 || gotCfg.MaxIterations != 5 {
		t.Errorf("config round trip mismatch: %+v", gotCfg)
	}
	if gotCfg.Context["quarter"] != "Q3" {
		t.Errorf("config context mismatch: %v", gotCfg.Context)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := testDB(t)

	run, cfg, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil || cfg != nil {
		t.Error("expected nil result for a missing run")
	}
}

func TestUpdateRunPersistsTerminalState(t *testing.T) {
	db := testDB(t)
	run, cfg := sampleRun()
	if err := db.CreateRun(run, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	run.Status = models.RunConverged
	run.FinalQuality = 87.5
	run.FinishedAt = &now
	run.Summary = &models.Summary{
		CombinedInsights: []string{"revenue grew 12%"},
		Recommendations:  []string{"excellent output quality (87.5); results are ready for use"},
		QualityProgression: []models.QualityPoint{
			{Iteration: 1, Quality: 70}, {Iteration: 2, Quality: 87.5},
		},
		ImprovementRate: 25,
	}
	run.Adjustments = []models.Adjustment{
		{Parameter: "accuracy", OldValue: 60, NewValue: 67.5, Reason: "below target"},
	}

	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, _, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunConverged || got.FinalQuality != 87.5 {
		t.Errorf("got status %s quality %f, want converged 87.5", got.Status, got.FinalQuality)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at should round trip")
	}
	if got.Summary == nil || len(got.Summary.CombinedInsights) != 1 {
		t.Errorf("summary round trip mismatch: %+v", got.Summary)
	}
	if got.Summary.ImprovementRate != 25 {
		t.Errorf("improvement rate = %f, want 25", got.Summary.ImprovementRate)
	}
	if len(got.Adjustments) != 1 || got.Adjustments[0].Parameter != "accuracy" {
		t.Errorf("adjustments round trip mismatch: %+v", got.Adjustments)
	}
}

func TestAppendAndLoadIterations(t *testing.T) {
	db := testDB(t)
	run, cfg := sampleRun()
	if err := db.CreateRun(run, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		rec := models.IterationRecord{
			Index: i,
			Results: []models.WorkerResult{
				{WorkerName: "financial-analyst", Output: "analysis", QualityScore: float64(60 + i*10), Success: true},
				{WorkerName: "coordinator", Success: false, Error: "timeout"},
			},
			AggregateQuality: float64(30 + i*5),
			Timestamp:        time.Now().Truncate(time.Second),
		}
		if err := db.AppendIteration(run.ID, rec); err != nil {
			t.Fatalf("AppendIteration %d failed: %v", i, err)
		}
	}

	got, _, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.IterationsPerformed() != 3 {
		t.Fatalf("iterations = %d, want 3", got.IterationsPerformed())
	}
	for i, rec := range got.Iterations {
		if rec.Index != i+1 {
			t.Errorf("iteration[%d].Index = %d, want %d", i, rec.Index, i+1)
		}
		if len(rec.Results) != 2 {
			t.Errorf("iteration %d results = %d, want 2", rec.Index, len(rec.Results))
		}
	}
	last := got.LastIteration()
	if last.AggregateQuality != 45 {
		t.Errorf("last aggregate = %f, want 45", last.AggregateQuality)
	}
	if !last.Results[0].Success || last.Results[1].Success {
		t.Error("success flags should round trip")
	}
	if last.Results[1].Error != "timeout" {
		t.Errorf("error text = %q, want timeout", last.Results[1].Error)
	}
}

func TestAppendIterationDuplicateIndexFails(t *testing.T) {
	db := testDB(t)
	run, cfg := sampleRun()
	if err := db.CreateRun(run, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	rec := models.IterationRecord{Index: 1, Timestamp: time.Now()}
	if err := db.AppendIteration(run.ID, rec); err != nil {
		t.Fatalf("first AppendIteration failed: %v", err)
	}
	if err := db.AppendIteration(run.ID, rec); err == nil {
		t.Error("duplicate iteration index should violate the primary key")
	}
}

func TestListRunsFiltersByStatus(t *testing.T) {
	db := testDB(t)

	first, cfg := sampleRun()
	if err := db.CreateRun(first, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	second, _ := sampleRun()
	second.ID = "run-0002"
	second.Status = models.RunConverged
	second.StartedAt = first.StartedAt.Add(time.Minute)
	if err := db.CreateRun(second, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	all, err := db.ListRuns(nil)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("runs = %d, want 2", len(all))
	}
	// Newest first.
	if all[0].ID != "run-0002" {
		t.Errorf("first listed run = %s, want run-0002", all[0].ID)
	}

	converged := models.RunConverged
	filtered, err := db.ListRuns(&converged)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "run-0002" {
		t.Errorf("filtered runs = %+v, want only run-0002", filtered)
	}
}

func TestDeleteRunCascadesIterations(t *testing.T) {
	db := testDB(t)
	run, cfg := sampleRun()
	if err := db.CreateRun(run, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.AppendIteration(run.ID, models.IterationRecord{Index: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("AppendIteration failed: %v", err)
	}

	if err := db.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	got, _, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Error("run should be gone after delete")
	}

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM iterations WHERE run_id = ?", run.ID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count iterations: %v", err)
	}
	if count != 0 {
		t.Errorf("iterations after cascade delete = %d, want 0", count)
	}
}

func TestPurgeOldRunsKeepsActiveRuns(t *testing.T) {
	db := testDB(t)

	old, cfg := sampleRun()
	old.ID = "old-done"
	old.Status = models.RunConverged
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	if err := db.CreateRun(old, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	active, _ := sampleRun()
	active.ID = "old-active"
	active.Status = models.RunAwaitingApproval
	active.StartedAt = time.Now().Add(-48 * time.Hour)
	if err := db.CreateRun(active, cfg); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	deleted, err := db.PurgeOldRuns(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want only the terminal run", deleted)
	}

	got, _, err := db.GetRun("old-active")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Error("suspended run must survive the purge")
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/tmp/proj")
	want := filepath.Join("/tmp/proj", ".quorum", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %s, want %s", got, want)
	}
}
