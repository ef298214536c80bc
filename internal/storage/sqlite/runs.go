package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/mapsort/internal/tracking"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the tracker over one input.
type Run struct {
	RunID           string          `json:"run_id"`
	Source          string          `json:"source"`
	Params          json.RawMessage `json:"params"`
	Status          string          `json:"status"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Frames          int             `json:"frames"`
	TracksCreated   int             `json:"tracks_created"`
	TracksConfirmed int             `json:"tracks_confirmed"`
	TracksLost      int             `json:"tracks_lost"`
}

// StartRun records a new running run. params is stored as JSON.
func (s *Store) StartRun(source string, params any) (*Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}

	run := &Run{
		RunID:     uuid.New().String(),
		Source:    source,
		Params:    paramsJSON,
		Status:    RunStatusRunning,
		StartedAt: s.clock.Now().UTC(),
	}

	_, err = s.db.Exec(`
		INSERT INTO tracking_runs (run_id, source, params_json, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.Source, string(paramsJSON), run.Status, run.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run completed with its final frame count and engine counters.
func (s *Store) CompleteRun(runID string, frames int, m tracking.Metrics) error {
	return s.finishRun(runID, RunStatusCompleted, "", frames, m)
}

// FailRun marks a run failed, keeping whatever progress was recorded.
func (s *Store) FailRun(runID string, cause error, frames int, m tracking.Metrics) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finishRun(runID, RunStatusFailed, msg, frames, m)
}

func (s *Store) finishRun(runID, status, msg string, frames int, m tracking.Metrics) error {
	result, err := s.db.Exec(`
		UPDATE tracking_runs
		SET status = ?, error_message = ?, completed_at = ?, frames = ?,
		    tracks_created = ?, tracks_confirmed = ?, tracks_lost = ?
		WHERE run_id = ?
	`, status, nullString(msg), s.clock.Now().UTC().UnixNano(), frames,
		m.TracksCreated, m.TracksConfirmed, m.TracksLost, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source, params_json, status, error_message, started_at,
		       completed_at, frames, tracks_created, tracks_confirmed, tracks_lost
		FROM tracking_runs WHERE run_id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, params_json, status, error_message, started_at,
		       completed_at, frames, tracks_created, tracks_confirmed, tracks_lost
		FROM tracking_runs ORDER BY started_at DESC, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		params      string
		errMsg      sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := sc.Scan(&run.RunID, &run.Source, &params, &run.Status, &errMsg, &startedAt,
		&completedAt, &run.Frames, &run.TracksCreated, &run.TracksConfirmed, &run.TracksLost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Params = json.RawMessage(params)
	run.ErrorMessage = errMsg.String
	run.StartedAt = time.Unix(0, startedAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
