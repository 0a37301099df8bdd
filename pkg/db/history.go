package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a reconcile run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord represents one reconcile invocation.
type RunRecord struct {
	ID         string
	SourceFile string
	Workbook   string
	DryRun     bool
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// GroupRun holds the row counts of one group in a run.
type GroupRun struct {
	GroupName    string
	PriorRows    int
	IncomingRows int
	FinalRows    int
	AddedRows    int
	PYRows       int
}

// RunHistory manages run history operations.
type RunHistory struct {
	conn *Connection
	now  func() time.Time
}

// NewRunHistory creates a new RunHistory instance.
func NewRunHistory(conn *Connection) *RunHistory {
	return &RunHistory{conn: conn, now: time.Now}
}

// StartRun records the start of a run and returns it with a fresh ID.
func (h *RunHistory) StartRun(sourceFile, workbook string, dryRun bool) (*RunRecord, error) {
	run := &RunRecord{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		Workbook:   workbook,
		DryRun:     dryRun,
		Status:     RunStatusRunning,
		StartedAt:  h.now().UTC(),
	}

	_, err := h.conn.Exec(`
		INSERT INTO runs (id, source_file, workbook, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourceFile, run.Workbook, run.DryRun, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	return run, nil
}

// FinishRun marks a run finished and stores its per-group counts.
// A non-nil runErr marks the run failed.
func (h *RunHistory) FinishRun(runID string, groups []GroupRun, runErr error) error {
	status, message := RunStatusSucceeded, ""
	if runErr != nil {
		status, message = RunStatusFailed, runErr.Error()
	}

	return h.conn.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE runs SET status = ?, error = ?, finished_at = ?
			WHERE id = ?
		`, string(status), message, h.now().UTC(), runID)
		if err != nil {
			return fmt.Errorf("failed to record run finish: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("run %s not found", runID)
		}

		for _, g := range groups {
			_, err := tx.Exec(`
				INSERT INTO group_runs (run_id, group_name, prior_rows, incoming_rows, final_rows, added_rows, py_rows)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(run_id, group_name) DO UPDATE SET
					prior_rows = excluded.prior_rows,
					incoming_rows = excluded.incoming_rows,
					final_rows = excluded.final_rows,
					added_rows = excluded.added_rows,
					py_rows = excluded.py_rows
			`, runID, g.GroupName, g.PriorRows, g.IncomingRows, g.FinalRows, g.AddedRows, g.PYRows)
			if err != nil {
				return fmt.Errorf("failed to record group %q: %w", g.GroupName, err)
			}
		}

		return nil
	})
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (h *RunHistory) GetRun(runID string) (*RunRecord, error) {
	row := h.conn.QueryRow(`
		SELECT id, source_file, workbook, dry_run, status, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (h *RunHistory) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.conn.Query(`
		SELECT id, source_file, workbook, dry_run, status, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetGroupRuns returns the per-group counts of a run in insertion order.
func (h *RunHistory) GetGroupRuns(runID string) ([]GroupRun, error) {
	rows, err := h.conn.Query(`
		SELECT group_name, prior_rows, incoming_rows, final_rows, added_rows, py_rows
		FROM group_runs
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group runs: %w", err)
	}
	defer rows.Close()

	var groups []GroupRun
	for rows.Next() {
		var g GroupRun
		if err := rows.Scan(&g.GroupName, &g.PriorRows, &g.IncomingRows, &g.FinalRows, &g.AddedRows, &g.PYRows); err != nil {
			return nil, fmt.Errorf("failed to scan group run: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// Stats represents run history statistics.
type Stats struct {
	TotalRuns     int
	SucceededRuns int
	FailedRuns    int
	LastSuccess   sql.NullString
}

// GetStats retrieves run statistics.
func (h *RunHistory) GetStats() (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM runs
	`).Scan(&stats.TotalRuns, &stats.SucceededRuns, &stats.FailedRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	err = h.conn.QueryRow(`
		SELECT MAX(finished_at) FROM runs WHERE status = 'succeeded' AND dry_run = 0
	`).Scan(&stats.LastSuccess)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last success: %w", err)
	}

	return &stats, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var run RunRecord
	var status string

	if err := s.Scan(
		&run.ID,
		&run.SourceFile,
		&run.Workbook,
		&run.DryRun,
		&status,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	return &run, nil
}
