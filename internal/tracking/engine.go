package tracking

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/mapsort/internal/config"
)

// Config holds the engine parameters.
type Config struct {
	MaxAge                int     // Frames without a match before a tracklet is moved to the lost set
	MinHits               int     // Consecutive hits to leave probation; also the warm-up length
	IOUThreshold          float64 // Fallback matching gate and duplicate-spawn gate
	LimitEntry            bool    // Require new tracklets to start inside an entry region after warm-up
	CascadeMaxIOUCost     float64 // Cost limit for the cascade stage
	Anchor                Anchor
	StdWeightPosition     float64
	StdWeightVelocity     float64
	ParallelCostThreshold int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a tuning file, falling back to the
// defaults for omitted keys.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	if tc == nil {
		tc = config.EmptyTuningConfig()
	}
	return Config{
		MaxAge:                tc.GetMaxAge(),
		MinHits:               tc.GetMinHits(),
		IOUThreshold:          tc.GetIOUThreshold(),
		LimitEntry:            tc.GetLimitEntry(),
		CascadeMaxIOUCost:     tc.GetCascadeMaxIOUCost(),
		Anchor:                Anchor(tc.GetAnchor()),
		StdWeightPosition:     tc.GetStdWeightPosition(),
		StdWeightVelocity:     tc.GetStdWeightVelocity(),
		ParallelCostThreshold: tc.GetParallelCostThreshold(),
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxAge < 1 {
		return fmt.Errorf("max age must be at least 1, got %d", c.MaxAge)
	}
	if c.MinHits < 1 {
		return fmt.Errorf("min hits must be at least 1, got %d", c.MinHits)
	}
	if c.IOUThreshold < 0 || c.IOUThreshold > 1 {
		return fmt.Errorf("iou threshold must be between 0 and 1, got %f", c.IOUThreshold)
	}
	if c.CascadeMaxIOUCost <= 0 || c.CascadeMaxIOUCost > 1 {
		return fmt.Errorf("cascade max iou cost must be in (0, 1], got %f", c.CascadeMaxIOUCost)
	}
	if !c.Anchor.Valid() {
		return fmt.Errorf("unknown anchor %q", c.Anchor)
	}
	if c.StdWeightPosition <= 0 || c.StdWeightVelocity <= 0 {
		return fmt.Errorf("noise weights must be positive, got %f/%f", c.StdWeightPosition, c.StdWeightVelocity)
	}
	return nil
}

// Output is one reported tracklet for a frame.
type Output struct {
	TrackID     int
	Box         Box
	MapPoint    orb.Point
	MapVelocity orb.Point // Unit direction; zero when HasVelocity is false
	HasVelocity bool
}

// Metrics counts engine events since construction.
type Metrics struct {
	TracksCreated      int
	TracksConfirmed    int
	TracksLost         int
	DetectionsRejected int
	FilterErrors       int
}

// Engine runs the per-frame predict, associate, update, spawn, prune and
// report cycle for one camera stream. Each stream owns its own Engine.
type Engine struct {
	mu sync.Mutex

	cfg          Config
	projector    Projector
	entryRegions []orb.Polygon
	matcher      Matcher

	tracklets []*Tracklet
	lost      []*Tracklet
	frames    int
	nextID    int

	metrics Metrics
}

// NewEngine creates an engine. entryRegions are map-space polygons where
// new tracklets may start; they are only consulted when cfg.LimitEntry is set.
func NewEngine(projector Projector, entryRegions []orb.Polygon, cfg Config) (*Engine, error) {
	if projector == nil {
		return nil, errors.New("tracking: projector is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	if cfg.LimitEntry && len(entryRegions) == 0 {
		Opsf("entry limiting enabled with no entry regions; no tracks will spawn after warm-up")
	}
	return &Engine{
		cfg:          cfg,
		projector:    projector,
		entryRegions: entryRegions,
		matcher:      Matcher{ParallelThreshold: cfg.ParallelCostThreshold},
		nextID:       1,
	}, nil
}

// Step processes one frame of detections and returns the tracklets to
// report for that frame, in live-set order. Detections with non-positive
// size are skipped and logged; they never fail the frame.
func (e *Engine) Step(dets []Detection) []Output {
	e.mu.Lock()
	defer e.mu.Unlock()

	valid := make([]Detection, 0, len(dets))
	for i, d := range dets {
		if err := d.Validate(i); err != nil {
			e.metrics.DetectionsRejected++
			Opsf("frame %d: skipping %v", e.frames+1, err)
			continue
		}
		valid = append(valid, d)
	}

	e.predict()
	matches, unmatchedDets := e.associate(valid)
	e.update(matches, valid)
	e.spawn(unmatchedDets, valid)
	e.prune()
	out := e.report()

	Tracef("frame %d: dets=%d matched=%d live=%d lost=%d reported=%d",
		e.frames, len(valid), len(matches), len(e.tracklets), len(e.lost), len(out))
	return out
}

func (e *Engine) predict() {
	e.frames++
	for _, t := range e.tracklets {
		t.Predict()
	}
}

// associate runs the cascade over confirmed tracklets, then offers the
// tentative tracklets plus those that missed only the previous frame to an
// IOU-gated matching against the detections the cascade left over.
func (e *Engine) associate(dets []Detection) ([]Match, []int) {
	var confirmed, tentative []int
	for i, t := range e.tracklets {
		if t.InProbation {
			tentative = append(tentative, i)
		} else {
			confirmed = append(confirmed, i)
		}
	}

	cascadeMatches, cascadeUnmatched, unmatchedDets := e.matcher.MatchingCascade(
		IOUCostFunc, e.cfg.CascadeMaxIOUCost, e.cfg.MaxAge,
		e.tracklets, dets, confirmed, allIndices(len(dets)))

	candidates := make([]int, 0, len(tentative)+len(cascadeUnmatched))
	candidates = append(candidates, tentative...)
	for _, idx := range cascadeUnmatched {
		if e.tracklets[idx].TimeSinceUpdate == 1 {
			candidates = append(candidates, idx)
		}
	}

	iouMatches, _, unmatchedDets := e.matcher.MinCostMatching(
		IOUCostFunc, 1-e.cfg.IOUThreshold,
		e.tracklets, dets, candidates, unmatchedDets)

	matches := append(cascadeMatches, iouMatches...)
	Diagf("frame %d: cascade=%d iou=%d unmatched dets=%d",
		e.frames, len(cascadeMatches), len(iouMatches), len(unmatchedDets))
	return matches, unmatchedDets
}

func (e *Engine) update(matches []Match, dets []Detection) {
	for _, m := range matches {
		t := e.tracklets[m.Track]
		wasProbation := t.InProbation
		if err := t.Update(e.frames, dets[m.Detection]); err != nil {
			e.metrics.FilterErrors++
			Opsf("frame %d: %v", e.frames, err)
		}
		if wasProbation && !t.InProbation {
			e.metrics.TracksConfirmed++
			Diagf("frame %d: track %d confirmed", e.frames, t.ID)
		}
	}
}

// spawn creates tentative tracklets for unmatched detections. The overlap
// check runs against the tracklets that existed before this frame's spawns.
func (e *Engine) spawn(unmatchedDets []int, dets []Detection) {
	existing := len(e.tracklets)
	for _, di := range unmatchedDets {
		det := dets[di]
		if e.frames > e.cfg.MinHits && e.cfg.LimitEntry && !e.inEntryRegion(det.Box) {
			Tracef("frame %d: detection %d outside entry regions", e.frames, di)
			continue
		}
		if e.overlapsLive(det.Box, existing) {
			Tracef("frame %d: detection %d overlaps a live track", e.frames, di)
			continue
		}
		opts := TrackletOptions{
			MinHits:           e.cfg.MinHits,
			Anchor:            e.cfg.Anchor,
			StdWeightPosition: e.cfg.StdWeightPosition,
			StdWeightVelocity: e.cfg.StdWeightVelocity,
		}
		t := NewTracklet(e.frames, e.nextID, det, e.projector, opts)
		e.nextID++
		e.tracklets = append(e.tracklets, t)
		e.metrics.TracksCreated++
		Diagf("frame %d: track %d spawned", e.frames, t.ID)
	}
}

func (e *Engine) inEntryRegion(b Box) bool {
	p := e.projector.Project(e.cfg.Anchor.Point(b))
	for _, poly := range e.entryRegions {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

func (e *Engine) overlapsLive(b Box, n int) bool {
	for _, t := range e.tracklets[:n] {
		if IOU(b, t.BoundingBox()) > e.cfg.IOUThreshold {
			return true
		}
	}
	return false
}

// prune moves stale tracklets into the lost set, preserving live order.
func (e *Engine) prune() {
	kept := e.tracklets[:0]
	for _, t := range e.tracklets {
		if t.TimeSinceUpdate > e.cfg.MaxAge {
			e.lost = append(e.lost, t)
			e.metrics.TracksLost++
			Diagf("frame %d: track %d lost after %d frames unmatched", e.frames, t.ID, t.TimeSinceUpdate)
			continue
		}
		kept = append(kept, t)
	}
	clear(e.tracklets[len(kept):])
	e.tracklets = kept
}

func (e *Engine) report() []Output {
	warmup := e.frames < e.cfg.MinHits
	var out []Output
	for _, t := range e.tracklets {
		if !warmup && (t.TimeSinceUpdate != 0 || t.InProbation) {
			continue
		}
		pos, vel, ok := t.MapPointAndVelocity()
		out = append(out, Output{
			TrackID:     t.ID,
			Box:         t.BoundingBox(),
			MapPoint:    pos,
			MapVelocity: vel,
			HasVelocity: ok,
		})
	}
	return out
}

// Trackers returns the live tracklets in report order. The slice is a copy;
// the tracklets are shared and must not be mutated.
func (e *Engine) Trackers() []*Tracklet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Tracklet(nil), e.tracklets...)
}

// Lost returns the tracklets evicted so far, oldest eviction first.
func (e *Engine) Lost() []*Tracklet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Tracklet(nil), e.lost...)
}

// Frame returns the number of frames processed.
func (e *Engine) Frame() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}
