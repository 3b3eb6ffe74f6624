package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Run CRUD operations. The DB satisfies the coordinator's RunStore interface;
// nested structures (task, summary, results) are stored as JSON columns.

// CreateRun persists a new run and its config.
func (db *DB) CreateRun(run *models.CoordinationRun, cfg models.RunConfig) error {
	taskJSON, err := json.Marshal(run.Task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	workersJSON, err := json.Marshal(run.Workers)
	if err != nil {
		return fmt.Errorf("encode workers: %w", err)
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, task, workers, strategy, status, final_quality, config, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(taskJSON), string(workersJSON), string(run.Strategy),
		string(run.Status), run.FinalQuality, string(cfgJSON), formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// UpdateRun persists the run's current status, quality, summary, and
// adjustments.
func (db *DB) UpdateRun(run *models.CoordinationRun) error {
	var summaryJSON sql.NullString
	if run.Summary != nil {
		data, err := json.Marshal(run.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
	}

	var adjustmentsJSON sql.NullString
	if len(run.Adjustments) > 0 {
		data, err := json.Marshal(run.Adjustments)
		if err != nil {
			return fmt.Errorf("encode adjustments: %w", err)
		}
		adjustmentsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var finishedAt sql.NullString
	if run.FinishedAt != nil {
		finishedAt = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}

	_, err := db.Exec(`
		UPDATE runs SET status = ?, final_quality = ?, summary = ?, adjustments = ?, finished_at = ?
		WHERE id = ?
	`, string(run.Status), run.FinalQuality, summaryJSON, adjustmentsJSON, finishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	return nil
}

// AppendIteration persists one scored iteration of a run.
func (db *DB) AppendIteration(runID string, rec models.IterationRecord) error {
	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO iterations (run_id, idx, results, aggregate_quality, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, rec.Index, string(resultsJSON), rec.AggregateQuality, formatTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("append iteration %d of run %s: %w", rec.Index, runID, err)
	}
	return nil
}

// GetRun loads a run and its config by ID, including the full iteration
// history. Returns (nil, nil, nil) when the run does not exist.
func (db *DB) GetRun(id string) (*models.CoordinationRun, *models.RunConfig, error) {
	row := db.QueryRow(`
		SELECT id, task, workers, strategy, status, final_quality, summary, adjustments, config, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, cfg, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get run %s: %w", id, err)
	}

	iterations, err := db.loadIterations(id)
	if err != nil {
		return nil, nil, err
	}
	run.Iterations = iterations

	return run, cfg, nil
}

// ListRuns lists runs newest-first, optionally filtered by status.
// Iteration histories are not loaded.
func (db *DB) ListRuns(status *models.RunStatus) ([]models.CoordinationRun, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, task, workers, strategy, status, final_quality, summary, adjustments, config, started_at, finished_at
			FROM runs WHERE status = ? ORDER BY started_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, task, workers, strategy, status, final_quality, summary, adjustments, config, started_at, finished_at
			FROM runs ORDER BY started_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CoordinationRun
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run and its iterations.
func (db *DB) DeleteRun(id string) error {
	if _, err := db.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun decodes one runs row into a CoordinationRun and its config.
func scanRun(row scanner) (*models.CoordinationRun, *models.RunConfig, error) {
	var run models.CoordinationRun
	var cfg models.RunConfig
	var taskJSON, workersJSON, cfgJSON, strategy, status, startedAt string
	var summaryJSON, adjustmentsJSON, finishedAt sql.NullString
	var finalQuality float64

	err := row.Scan(&run.ID, &taskJSON, &workersJSON, &strategy, &status,
		&finalQuality, &summaryJSON, &adjustmentsJSON, &cfgJSON, &startedAt, &finishedAt)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal([]byte(taskJSON), &run.Task); err != nil {
		return nil, nil, fmt.Errorf("decode task: %w", err)
	}
	if err := json.Unmarshal([]byte(workersJSON), &run.Workers); err != nil {
		return nil, nil, fmt.Errorf("decode workers: %w", err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if summaryJSON.Valid {
		run.Summary = &models.Summary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), run.Summary); err != nil {
			return nil, nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	if adjustmentsJSON.Valid {
		if err := json.Unmarshal([]byte(adjustmentsJSON.String), &run.Adjustments); err != nil {
			return nil, nil, fmt.Errorf("decode adjustments: %w", err)
		}
	}

	run.Strategy = models.ExecutionStrategy(strategy)
	run.Status = models.RunStatus(status)
	run.FinalQuality = finalQuality
	run.StartedAt, _ = parseTime(startedAt)
	run.FinishedAt = parseNullableTime(finishedAt)

	return &run, &cfg, nil
}

// loadIterations loads a run's iteration history in index order.
func (db *DB) loadIterations(runID string) ([]models.IterationRecord, error) {
	rows, err := db.Query(`
		SELECT idx, results, aggregate_quality, created_at
		FROM iterations WHERE run_id = ? ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("load iterations of run %s: %w", runID, err)
	}
	defer rows.Close()

	var iterations []models.IterationRecord
	for rows.Next() {
		var rec models.IterationRecord
		var resultsJSON, createdAt string
		if err := rows.Scan(&rec.Index, &resultsJSON, &rec.AggregateQuality, &createdAt); err != nil {
			return nil, fmt.Errorf("scan iteration of run %s: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
			return nil, fmt.Errorf("decode results of run %s: %w", runID, err)
		}
		rec.Timestamp, _ = parseTime(createdAt)
		iterations = append(iterations, rec)
	}
	return iterations, rows.Err()
}
