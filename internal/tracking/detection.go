package tracking

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidDetection is returned for detections with a non-finite box or
// non-positive width or height.
var ErrInvalidDetection = errors.New("invalid detection")

// InvalidDetectionError describes a rejected detection within a frame.
type InvalidDetectionError struct {
	Index int // Position of the detection in the frame's input slice
	Box   Box
}

func (e *InvalidDetectionError) Error() string {
	return fmt.Sprintf("invalid detection %d: box %.2f,%.2f %.2fx%.2f is not a finite positive-size box",
		e.Index, e.Box.X, e.Box.Y, e.Box.Width, e.Box.Height)
}

func (e *InvalidDetectionError) Unwrap() error { return ErrInvalidDetection }

// Box is an axis-aligned image box in top-left/width/height form (pixels).
type Box struct {
	X      float64 // Top-left x
	Y      float64 // Top-left y
	Width  float64
	Height float64
}

// Area returns Width*Height, or 0 when either side is non-positive.
func (b Box) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Center returns the box centre in pixels.
func (b Box) Center() (cx, cy float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// ToCenterForm converts the box into the filter measurement
// (center_x, center_y, aspect_ratio, height).
func (b Box) ToCenterForm() [4]float64 {
	cx, cy := b.Center()
	return [4]float64{cx, cy, b.Width / b.Height, b.Height}
}

// BoxFromCenterForm rebuilds a box from (center_x, center_y, aspect_ratio, height).
func BoxFromCenterForm(xyah [4]float64) Box {
	w := xyah[2] * xyah[3]
	h := xyah[3]
	return Box{
		X:      xyah[0] - w/2,
		Y:      xyah[1] - h/2,
		Width:  w,
		Height: h,
	}
}

// Anchor selects which point of a box is projected onto the map.
type Anchor string

const (
	AnchorBottomCenter Anchor = "bottom_center" // Ground contact point for upright objects
	AnchorCenter       Anchor = "center"
	AnchorTopLeft      Anchor = "top_left"
)

// Valid reports whether a is one of the known anchors.
func (a Anchor) Valid() bool {
	switch a {
	case AnchorBottomCenter, AnchorCenter, AnchorTopLeft:
		return true
	}
	return false
}

// Point returns the pixel-space anchor point of b.
func (a Anchor) Point(b Box) orb.Point {
	switch a {
	case AnchorCenter:
		cx, cy := b.Center()
		return orb.Point{cx, cy}
	case AnchorTopLeft:
		return orb.Point{b.X, b.Y}
	default:
		return orb.Point{b.X + b.Width/2, b.Y + b.Height}
	}
}

// Detection is one observed box and its confidence for one frame.
type Detection struct {
	Box        Box
	Confidence float64
}

// NewDetection builds a Detection from (x, y, width, height) and a confidence.
func NewDetection(x, y, width, height, confidence float64) Detection {
	return Detection{
		Box:        Box{X: x, Y: y, Width: width, Height: height},
		Confidence: confidence,
	}
}

// ToCenterForm returns the detection box as (center_x, center_y, aspect_ratio, height).
func (d Detection) ToCenterForm() [4]float64 {
	return d.Box.ToCenterForm()
}

// Validate returns an *InvalidDetectionError when any box value is NaN or
// infinite, or the width or height is non-positive. index is carried into
// the error for reporting.
func (d Detection) Validate(index int) error {
	for _, v := range [...]float64{d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidDetectionError{Index: index, Box: d.Box}
		}
	}
	if d.Box.Width <= 0 || d.Box.Height <= 0 {
		return &InvalidDetectionError{Index: index, Box: d.Box}
	}
	return nil
}
