package trackio

import (
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/mapsort/internal/tracking"
)

// motFields is the column count of a MOT detection row; extra columns are ignored.
const motFields = 7

// AllClasses disables the class filter in ReadDetections.
const AllClasses = -1

// DetectionSet holds detections grouped by frame.
type DetectionSet struct {
	byFrame  map[int][]tracking.Detection
	maxFrame int
	skipped  int
}

// Frame returns the detections for frame in file order.
func (s *DetectionSet) Frame(frame int) []tracking.Detection {
	return s.byFrame[frame]
}

// MaxFrame returns the highest frame number seen, or 0 for an empty set.
func (s *DetectionSet) MaxFrame() int { return s.maxFrame }

// Frames lists the frame numbers that have detections, ascending.
func (s *DetectionSet) Frames() []int {
	frames := make([]int, 0, len(s.byFrame))
	for f := range s.byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// Len returns the total number of detections kept.
func (s *DetectionSet) Len() int {
	n := 0
	for _, dets := range s.byFrame {
		n += len(dets)
	}
	return n
}

// Skipped returns how many rows the class filter discarded.
func (s *DetectionSet) Skipped() int { return s.skipped }

// ReadDetections parses MOT-format rows. When class is not AllClasses,
// only rows whose second column equals class are kept. Box validity is
// not checked here; the engine rejects bad boxes per frame.
func ReadDetections(r io.Reader, class int) (*DetectionSet, error) {
	set := &DetectionSet{byFrame: make(map[int][]tracking.Detection)}
	err := eachRecord(r, -1, func(_ int, v []float64) error {
		if len(v) < motFields {
			return fmt.Errorf("want at least %d columns, got %d", motFields, len(v))
		}
		frame := int(v[0])
		if frame < 1 {
			return fmt.Errorf("frame must be positive, got %d", frame)
		}
		if class != AllClasses && int(v[1]) != class {
			set.skipped++
			return nil
		}
		set.byFrame[frame] = append(set.byFrame[frame], tracking.NewDetection(v[2], v[3], v[4], v[5], v[6]))
		set.maxFrame = max(set.maxFrame, frame)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("detections: %w", err)
	}
	return set, nil
}
