package trackio

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/mapsort/internal/tracking"
)

// Row is one reported track in one frame.
type Row struct {
	Frame   int
	TrackID int
	X       int
	Y       int
	Width   int
	Height  int
	MapX    int
	MapY    int
}

// Header names the Row columns in output order.
var Header = []string{"frame", "track_id", "x", "y", "w", "h", "map_x", "map_y"}

// RowsFromOutputs converts one frame's engine output into rows, truncating
// toward zero. Outputs with a non-finite box or map point (a projection on
// or past the horizon line) have no integer form; they are dropped and
// logged on the ops stream.
func RowsFromOutputs(frame int, outputs []tracking.Output) []Row {
	rows := make([]Row, 0, len(outputs))
	for _, o := range outputs {
		if !finite(o.Box.X, o.Box.Y, o.Box.Width, o.Box.Height, o.MapPoint[0], o.MapPoint[1]) {
			tracking.Opsf("frame %d: dropping track %d with non-finite position box=%v map=%v",
				frame, o.TrackID, o.Box, o.MapPoint)
			continue
		}
		rows = append(rows, Row{
			Frame:   frame,
			TrackID: o.TrackID,
			X:       int(o.Box.X),
			Y:       int(o.Box.Y),
			Width:   int(o.Box.Width),
			Height:  int(o.Box.Height),
			MapX:    int(o.MapPoint[0]),
			MapY:    int(o.MapPoint[1]),
		})
	}
	return rows
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (r Row) record(buf []string) []string {
	buf = buf[:0]
	for _, v := range [...]int{r.Frame, r.TrackID, r.X, r.Y, r.Width, r.Height, r.MapX, r.MapY} {
		buf = append(buf, strconv.Itoa(v))
	}
	return buf
}

// RowWriter writes rows as comma-separated integers.
type RowWriter struct {
	w   *csv.Writer
	buf []string
	n   int
}

// NewRowWriter wraps w. With header set, a column header line is written
// before the first row.
func NewRowWriter(w io.Writer, header bool) (*RowWriter, error) {
	rw := &RowWriter{w: csv.NewWriter(w), buf: make([]string, 0, len(Header))}
	if header {
		if err := rw.w.Write(Header); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	return rw, nil
}

// Write appends rows.
func (rw *RowWriter) Write(rows []Row) error {
	for _, r := range rows {
		rw.buf = r.record(rw.buf)
		if err := rw.w.Write(rw.buf); err != nil {
			return fmt.Errorf("writing row %d: %w", rw.n, err)
		}
		rw.n++
	}
	return nil
}

// Flush flushes buffered rows and reports any write error.
func (rw *RowWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}

// Count returns the number of rows written.
func (rw *RowWriter) Count() int { return rw.n }
