package tracking

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// minVelocityNorm keeps unit-vector normalisation finite for a stationary track.
const minVelocityNorm = 1e-9

// Projector maps a pixel-space point onto the reference map.
// Implementations must be safe for concurrent readers.
type Projector interface {
	Project(p orb.Point) orb.Point
}

// TrackletState is the lifecycle phase derived from probation and staleness.
type TrackletState string

const (
	TrackletTentative TrackletState = "tentative" // In probation, not yet reported after warm-up
	TrackletConfirmed TrackletState = "confirmed" // Out of probation and matched this frame
	TrackletCoasting  TrackletState = "coasting"  // Out of probation, missed at least the latest frame
)

// TrackletOptions holds the per-track parameters shared by every tracklet
// spawned from one engine.
type TrackletOptions struct {
	MinHits           int
	Anchor            Anchor
	StdWeightPosition float64
	StdWeightVelocity float64
}

// Tracklet follows one object: its Kalman filter, lifecycle counters and
// cached map-space projection.
type Tracklet struct {
	// Identity
	ID int

	// Lifecycle counters
	Age             int  // Frames since creation (starts at 1)
	HitStreak       int  // Consecutive frames with a matching detection
	TimeSinceUpdate int  // Frames since the last match
	InProbation     bool // True until HitStreak reaches MinHits
	LastUpdateFrame int  // Frame index of the last hit
	FirstFrame      int  // Frame index at creation

	kf        *KalmanFilter
	projector Projector
	opts      TrackletOptions

	currentMapPos orb.Point
	lastMapPos    orb.Point
	hasLastMapPos bool
}

// NewTracklet starts a tentative tracklet from det at frame. The filter is
// initialised at the detection box with zero velocity.
func NewTracklet(frame, id int, det Detection, projector Projector, opts TrackletOptions) *Tracklet {
	t := &Tracklet{
		ID:              id,
		Age:             1,
		HitStreak:       1,
		TimeSinceUpdate: 0,
		InProbation:     true,
		LastUpdateFrame: frame,
		FirstFrame:      frame,
		kf:              NewKalmanFilter(det.ToCenterForm(), opts.StdWeightPosition, opts.StdWeightVelocity),
		projector:       projector,
		opts:            opts,
	}
	t.currentMapPos = t.projectBox()
	return t
}

// State reports the lifecycle phase.
func (t *Tracklet) State() TrackletState {
	switch {
	case t.InProbation:
		return TrackletTentative
	case t.TimeSinceUpdate == 0:
		return TrackletConfirmed
	default:
		return TrackletCoasting
	}
}

// Predict advances the tracklet one frame. A frame without an update
// forfeits the hit streak. Rates that would drive height or aspect ratio to
// zero or below are clamped to zero first.
func (t *Tracklet) Predict() {
	if t.TimeSinceUpdate > 0 {
		t.HitStreak = 0
	}
	t.TimeSinceUpdate++
	t.Age++

	s := t.kf.State()
	if s[idxAspect]+s[idxAspectVelocity] <= 0 {
		t.kf.zeroComponent(idxAspectVelocity)
	}
	if s[idxHeight]+s[idxHeightVelocity] <= 0 {
		t.kf.zeroComponent(idxHeightVelocity)
	}

	t.kf.Predict()

	t.lastMapPos = t.currentMapPos
	t.hasLastMapPos = true
	t.currentMapPos = t.projectBox()
}

// Update corrects the filter with det and records a hit for frame. The
// cached map position is refreshed in place; the previous position is kept
// because a correction is not a new time step.
//
// A singular innovation leaves the predicted state in place; the hit is
// still recorded and the error returned for reporting.
func (t *Tracklet) Update(frame int, det Detection) error {
	err := t.kf.Update(det.ToCenterForm())
	if err == nil {
		t.currentMapPos = t.projectBox()
	}
	t.Hit(frame)
	if err != nil {
		return fmt.Errorf("tracklet %d: %w", t.ID, err)
	}
	return nil
}

// Hit records a match for frame. Repeated hits within one frame are ignored.
func (t *Tracklet) Hit(frame int) {
	if frame == t.LastUpdateFrame {
		return
	}
	t.LastUpdateFrame = frame
	t.HitStreak++
	t.TimeSinceUpdate = 0
	if t.HitStreak >= t.opts.MinHits {
		t.InProbation = false
	}
}

// BoundingBox returns the filter's current box in top-left/width/height form.
func (t *Tracklet) BoundingBox() Box {
	return BoxFromCenterForm(t.kf.Measurement())
}

// MapPoint returns the cached map-space position of the current box anchor.
func (t *Tracklet) MapPoint() orb.Point {
	return t.currentMapPos
}

// MapPointAndVelocity returns the cached map position and, once a previous
// position exists, the unit direction of the latest frame-to-frame
// displacement. ok is false before the first Predict.
//
// The velocity is a direction only: magnitude is discarded.
func (t *Tracklet) MapPointAndVelocity() (pos, vel orb.Point, ok bool) {
	pos = t.currentMapPos
	if !t.hasLastMapPos {
		return pos, orb.Point{}, false
	}
	dx := t.currentMapPos[0] - t.lastMapPos[0]
	dy := t.currentMapPos[1] - t.lastMapPos[1]
	norm := math.Max(math.Hypot(dx, dy), minVelocityNorm)
	return pos, orb.Point{dx / norm, dy / norm}, true
}

// FilterState returns a copy of the Kalman state
// (cx, cy, a, h, vcx, vcy, va, vh).
func (t *Tracklet) FilterState() [8]float64 {
	return t.kf.State()
}

func (t *Tracklet) projectBox() orb.Point {
	return t.projector.Project(t.opts.Anchor.Point(t.BoundingBox()))
}
