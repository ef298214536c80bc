package tracking

import "math"

// IOU returns the intersection-over-union of two boxes in [0, 1].
// Boxes with non-positive area have IOU 0 with everything.
func IOU(a, b Box) float64 {
	areaA := a.Area()
	areaB := b.Area()
	if areaA == 0 || areaB == 0 {
		return 0
	}

	xx1 := math.Max(a.X, b.X)
	yy1 := math.Max(a.Y, b.Y)
	xx2 := math.Min(a.X+a.Width, b.X+b.Width)
	yy2 := math.Min(a.Y+a.Height, b.Y+b.Height)

	interW := math.Max(0, xx2-xx1)
	interH := math.Max(0, yy2-yy1)
	inter := interW * interH
	if inter == 0 {
		return 0
	}

	iou := inter / (areaA + areaB - inter)
	if iou > 1 {
		return 1
	}
	return iou
}

// IOUCost is 1 - IOU(track, detection). Non-overlapping or degenerate
// boxes cost 1.
func IOUCost(trackBox, detectionBox Box) float64 {
	return 1 - IOU(trackBox, detectionBox)
}

// CostFunc scores a (tracklet, detection) pair; lower is better.
type CostFunc func(track *Tracklet, det Detection) float64

// IOUCostFunc scores a pair by the IOU cost between the tracklet's current
// filter box and the detection box.
func IOUCostFunc(track *Tracklet, det Detection) float64 {
	return IOUCost(track.BoundingBox(), det.Box)
}
