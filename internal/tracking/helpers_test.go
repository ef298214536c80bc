package tracking

import "github.com/paulmach/orb"

// identityProjector maps pixels onto the map unchanged.
type identityProjector struct{}

func (identityProjector) Project(p orb.Point) orb.Point { return p }

// scaleProjector maps (x, y) to (x*k, y*k).
type scaleProjector struct{ k float64 }

func (s scaleProjector) Project(p orb.Point) orb.Point { return orb.Point{p[0] * s.k, p[1] * s.k} }

func testTrackletOptions(minHits int) TrackletOptions {
	return TrackletOptions{
		MinHits:           minHits,
		Anchor:            AnchorBottomCenter,
		StdWeightPosition: 1.0 / 20,
		StdWeightVelocity: 1.0 / 160,
	}
}

// newTestTracklet spawns a tracklet at frame with no prior map position.
func newTestTracklet(frame, id int, b Box) *Tracklet {
	return NewTracklet(frame, id, Detection{Box: b, Confidence: 1}, identityProjector{}, testTrackletOptions(3))
}

// squareRegion returns a closed square polygon covering [min, max]².
func squareRegion(min, max float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{min, min}, {max, min}, {max, max}, {min, max}, {min, min},
	}}
}
