// Package mapper fits and applies the planar projective transform between
// camera pixels and the reference map.
package mapper

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// MinCorrespondences is the smallest calibration set that determines a homography.
const MinCorrespondences = 4

const (
	// rankTolerance is the smallest accepted ratio between the 8th and the
	// largest singular value of the design matrix.
	rankTolerance = 1e-10

	// spreadTolerance is the smallest accepted ratio between the minor and
	// major axes of a normalised point cloud.
	spreadTolerance = 1e-9
)

// ErrDegenerateCalibration is the sentinel for calibration sets that
// cannot determine a projective transform.
var ErrDegenerateCalibration = errors.New("degenerate calibration")

// DegenerateCalibrationError explains why a calibration set was rejected.
type DegenerateCalibrationError struct {
	Reason string
}

func (e *DegenerateCalibrationError) Error() string {
	return "degenerate calibration: " + e.Reason
}

func (e *DegenerateCalibrationError) Unwrap() error { return ErrDegenerateCalibration }

func degenerate(format string, args ...interface{}) error {
	return &DegenerateCalibrationError{Reason: fmt.Sprintf(format, args...)}
}

// Mapper holds a fitted pixel-to-map homography and its inverse.
// It is immutable and safe for concurrent use.
type Mapper struct {
	h    [9]float64 // row-major, h[8] == 1 when representable
	hInv [9]float64
}

// New fits the homography taking pixel[i] to mapPts[i] by the normalised
// direct linear transform. Both slices must have the same length, at
// least MinCorrespondences, and neither point set may be collinear.
func New(pixel, mapPts []orb.Point) (*Mapper, error) {
	if len(pixel) != len(mapPts) {
		return nil, degenerate("%d pixel points but %d map points", len(pixel), len(mapPts))
	}
	if len(pixel) < MinCorrespondences {
		return nil, degenerate("need at least %d correspondences, got %d", MinCorrespondences, len(pixel))
	}

	tPix, normPix, err := normalize(pixel)
	if err != nil {
		return nil, fmt.Errorf("pixel points: %w", err)
	}
	tMap, normMap, err := normalize(mapPts)
	if err != nil {
		return nil, fmt.Errorf("map points: %w", err)
	}

	n := len(pixel)
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := normPix[i][0], normPix[i][1]
		u, v := normMap[i][0], normMap[i][1]
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, degenerate("SVD did not converge")
	}
	values := svd.Values(nil)
	if len(values) < 8 || values[0] == 0 || values[7]/values[0] < rankTolerance {
		return nil, degenerate("correspondences are rank deficient")
	}

	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// H = Tmap⁻¹ · Hn · Tpix
	var tMapInv mat.Dense
	if err := tMapInv.Inverse(tMap); err != nil {
		return nil, degenerate("map normalisation is singular")
	}
	var tmp, h mat.Dense
	tmp.Mul(hn, tPix)
	h.Mul(&tMapInv, &tmp)

	if det := mat.Det(&h); math.Abs(det) < 1e-12*math.Pow(mat.Norm(&h, 2), 3) {
		return nil, degenerate("transform is singular")
	}

	var hInv mat.Dense
	if err := hInv.Inverse(&h); err != nil {
		return nil, degenerate("transform is not invertible: %v", err)
	}

	return &Mapper{h: scaled(&h), hInv: scaled(&hInv)}, nil
}

// normalize returns the similarity T that moves the centroid of pts to the
// origin and scales their mean distance to √2, plus the transformed points.
func normalize(pts []orb.Point) (*mat.Dense, []orb.Point, error) {
	var cx, cy float64
	for _, p := range pts {
		cx += p[0]
		cy += p[1]
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	var meanDist, sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p[0]-cx, p[1]-cy
		meanDist += math.Hypot(dx, dy)
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	meanDist /= float64(len(pts))
	if meanDist == 0 {
		return nil, nil, degenerate("all points coincide")
	}

	// Eigenvalues of the 2x2 scatter matrix.
	tr := sxx + syy
	disc := math.Sqrt(math.Max(0, (sxx-syy)*(sxx-syy)/4+sxy*sxy))
	major, minor := tr/2+disc, tr/2-disc
	if minor <= spreadTolerance*major {
		return nil, nil, degenerate("points are collinear")
	}

	s := math.Sqrt2 / meanDist
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = orb.Point{s * (p[0] - cx), s * (p[1] - cy)}
	}
	return t, out, nil
}

// scaled flattens m and divides by m[2][2] when it is not vanishingly small.
func scaled(m *mat.Dense) [9]float64 {
	var out [9]float64
	div := m.At(2, 2)
	if math.Abs(div) < 1e-12 {
		div = mat.Norm(m, 2)
	}
	for i := 0; i < 9; i++ {
		out[i] = m.At(i/3, i%3) / div
	}
	return out
}

func apply(h *[9]float64, p orb.Point) orb.Point {
	x, y := p[0], p[1]
	w := h[6]*x + h[7]*y + h[8]
	return orb.Point{
		(h[0]*x + h[1]*y + h[2]) / w,
		(h[3]*x + h[4]*y + h[5]) / w,
	}
}

// Project maps a pixel point onto the map. Points on the horizon line
// (homogeneous w of zero) come back as ±Inf or NaN.
func (m *Mapper) Project(p orb.Point) orb.Point {
	return apply(&m.h, p)
}

// Unproject maps a map point back into pixel space.
func (m *Mapper) Unproject(p orb.Point) orb.Point {
	return apply(&m.hInv, p)
}

// Matrix returns the pixel-to-map transform in row-major order.
func (m *Mapper) Matrix() [9]float64 {
	return m.h
}
