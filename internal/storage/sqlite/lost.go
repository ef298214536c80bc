package sqlite

import (
	"fmt"

	"github.com/banshee-data/mapsort/internal/tracking"
)

// LostTrack summarises a tracklet evicted from the live set.
type LostTrack struct {
	TrackID    int
	FirstFrame int
	LastFrame  int // Frame of the last matched detection
	Age        int
	MapX       float64
	MapY       float64
}

// LostTrackFromTracklet summarises t.
func LostTrackFromTracklet(t *tracking.Tracklet) LostTrack {
	p := t.MapPoint()
	return LostTrack{
		TrackID:    t.ID,
		FirstFrame: t.FirstFrame,
		LastFrame:  t.LastUpdateFrame,
		Age:        t.Age,
		MapX:       p[0],
		MapY:       p[1],
	}
}

// InsertLostTracks stores lost-track summaries for a run. A track already
// stored for the run is replaced.
func (s *Store) InsertLostTracks(runID string, tracks []LostTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert lost tracks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO lost_tracks (run_id, track_id, first_frame, last_frame, age, map_x, map_y)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert lost tracks: %w", err)
	}
	defer stmt.Close()

	for _, lt := range tracks {
		if _, err := stmt.Exec(runID, lt.TrackID, lt.FirstFrame, lt.LastFrame, lt.Age, lt.MapX, lt.MapY); err != nil {
			return fmt.Errorf("insert lost track %d: %w", lt.TrackID, err)
		}
	}
	return tx.Commit()
}

// ListLostTracks returns a run's lost tracks ordered by track ID.
func (s *Store) ListLostTracks(runID string) ([]LostTrack, error) {
	rows, err := s.db.Query(`
		SELECT track_id, first_frame, last_frame, age, map_x, map_y
		FROM lost_tracks WHERE run_id = ?
		ORDER BY track_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list lost tracks: %w", err)
	}
	defer rows.Close()

	var out []LostTrack
	for rows.Next() {
		var lt LostTrack
		if err := rows.Scan(&lt.TrackID, &lt.FirstFrame, &lt.LastFrame, &lt.Age, &lt.MapX, &lt.MapY); err != nil {
			return nil, fmt.Errorf("scan lost track: %w", err)
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}
