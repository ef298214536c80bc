package sqlite

import (
	"fmt"

	"github.com/banshee-data/mapsort/internal/trackio"
)

// InsertRows stores reported rows for a run in a single transaction.
func (s *Store) InsertRows(runID string, rows []trackio.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert rows: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_rows (run_id, frame, track_id, x, y, w, h, map_x, map_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert rows: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.Frame, r.TrackID, r.X, r.Y, r.Width, r.Height, r.MapX, r.MapY); err != nil {
			return fmt.Errorf("insert row frame=%d track=%d: %w", r.Frame, r.TrackID, err)
		}
	}
	return tx.Commit()
}

// ListRows returns a run's rows ordered by frame then track ID.
func (s *Store) ListRows(runID string) ([]trackio.Row, error) {
	rows, err := s.db.Query(`
		SELECT frame, track_id, x, y, w, h, map_x, map_y
		FROM track_rows WHERE run_id = ?
		ORDER BY frame, track_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []trackio.Row
	for rows.Next() {
		var r trackio.Row
		if err := rows.Scan(&r.Frame, &r.TrackID, &r.X, &r.Y, &r.Width, &r.Height, &r.MapX, &r.MapY); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrackRows returns one track's rows within a run, ordered by frame.
func (s *Store) TrackRows(runID string, trackID int) ([]trackio.Row, error) {
	rows, err := s.db.Query(`
		SELECT frame, track_id, x, y, w, h, map_x, map_y
		FROM track_rows WHERE run_id = ? AND track_id = ?
		ORDER BY frame
	`, runID, trackID)
	if err != nil {
		return nil, fmt.Errorf("list track rows: %w", err)
	}
	defer rows.Close()

	var out []trackio.Row
	for rows.Next() {
		var r trackio.Row
		if err := rows.Scan(&r.Frame, &r.TrackID, &r.X, &r.Y, &r.Width, &r.Height, &r.MapX, &r.MapY); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
