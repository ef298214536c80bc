package tracking

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Filter state layout: (cx, cy, a, h, vcx, vcy, va, vh).
const (
	stateDim   = 8
	measureDim = 4

	idxAspect         = 2
	idxHeight         = 3
	idxAspectVelocity = 6
	idxHeightVelocity = 7
)

// Aspect-ratio noise does not scale with box size.
const (
	aspectProcessStdPos  = 1e-2
	aspectProcessStdVel  = 1e-5
	aspectMeasurementStd = 1e-1
)

// ErrSingularInnovation is returned by Update when the innovation
// covariance cannot be inverted.
var ErrSingularInnovation = errors.New("kalman: singular innovation covariance")

var (
	motionMat = newMotionMat()
	updateMat = newUpdateMat()
)

// newMotionMat builds the constant-velocity transition F with dt = 1 frame.
func newMotionMat() *mat.Dense {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1)
		if i < measureDim {
			f.Set(i, measureDim+i, 1)
		}
	}
	return f
}

// newUpdateMat builds the observation matrix H selecting (cx, cy, a, h).
func newUpdateMat() *mat.Dense {
	h := mat.NewDense(measureDim, stateDim, nil)
	for i := 0; i < measureDim; i++ {
		h.Set(i, i, 1)
	}
	return h
}

// KalmanFilter tracks one box in center form with a constant-velocity
// model. Process and measurement noise scale with the box height.
type KalmanFilter struct {
	mean *mat.VecDense // 8
	cov  *mat.Dense    // 8x8

	stdWeightPosition float64
	stdWeightVelocity float64
}

// NewKalmanFilter initialises a filter at the measurement
// (cx, cy, aspect, height) with zero velocity.
func NewKalmanFilter(measurement [4]float64, stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {
	kf := &KalmanFilter{
		mean:              mat.NewVecDense(stateDim, nil),
		cov:               mat.NewDense(stateDim, stateDim, nil),
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
	}
	for i := 0; i < measureDim; i++ {
		kf.mean.SetVec(i, measurement[i])
	}

	h := measurement[3]
	std := [stateDim]float64{
		2 * stdWeightPosition * h,
		2 * stdWeightPosition * h,
		aspectProcessStdPos,
		2 * stdWeightPosition * h,
		10 * stdWeightVelocity * h,
		10 * stdWeightVelocity * h,
		aspectProcessStdVel,
		10 * stdWeightVelocity * h,
	}
	for i, s := range std {
		kf.cov.Set(i, i, s*s)
	}
	return kf
}

// State returns a copy of the state vector.
func (kf *KalmanFilter) State() [8]float64 {
	var s [8]float64
	for i := range s {
		s[i] = kf.mean.AtVec(i)
	}
	return s
}

// Covariance returns a copy of the 8x8 state covariance, row-major.
func (kf *KalmanFilter) Covariance() [64]float64 {
	var c [64]float64
	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			c[i*stateDim+j] = kf.cov.At(i, j)
		}
	}
	return c
}

// Measurement returns the position part (cx, cy, a, h) of the state.
func (kf *KalmanFilter) Measurement() [4]float64 {
	return [4]float64{kf.mean.AtVec(0), kf.mean.AtVec(1), kf.mean.AtVec(2), kf.mean.AtVec(3)}
}

func (kf *KalmanFilter) zeroComponent(i int) {
	kf.mean.SetVec(i, 0)
}

// Predict advances the state one frame: x = F x, P = F P Fᵀ + Q.
func (kf *KalmanFilter) Predict() {
	h := kf.mean.AtVec(idxHeight)
	stdPos := kf.stdWeightPosition * h
	stdVel := kf.stdWeightVelocity * h
	std := [stateDim]float64{
		stdPos, stdPos, aspectProcessStdPos, stdPos,
		stdVel, stdVel, aspectProcessStdVel, stdVel,
	}

	var next mat.VecDense
	next.MulVec(motionMat, kf.mean)
	kf.mean.CopyVec(&next)

	var fp mat.Dense
	fp.Mul(motionMat, kf.cov)
	kf.cov.Mul(&fp, motionMat.T())
	for i, s := range std {
		kf.cov.Set(i, i, kf.cov.At(i, i)+s*s)
	}
}

// project maps the state into measurement space, returning the projected
// mean and the innovation covariance S = H P Hᵀ + R.
func (kf *KalmanFilter) project() (*mat.VecDense, *mat.Dense) {
	h := kf.mean.AtVec(idxHeight)
	stdPos := kf.stdWeightPosition * h
	std := [measureDim]float64{stdPos, stdPos, aspectMeasurementStd, stdPos}

	var projMean mat.VecDense
	projMean.MulVec(updateMat, kf.mean)

	var hp mat.Dense
	hp.Mul(updateMat, kf.cov)
	s := mat.NewDense(measureDim, measureDim, nil)
	s.Mul(&hp, updateMat.T())
	for i, v := range std {
		s.Set(i, i, s.At(i, i)+v*v)
	}
	return &projMean, s
}

// Update corrects the state with a (cx, cy, aspect, height) measurement.
// The gain is solved through a Cholesky factorisation of S, falling back
// to a general inverse. On ErrSingularInnovation the state is left unchanged.
func (kf *KalmanFilter) Update(measurement [4]float64) error {
	projMean, s := kf.project()

	// Kᵀ = S⁻¹ H P (S and P are symmetric).
	var hp mat.Dense
	hp.Mul(updateMat, kf.cov)

	var kt mat.Dense
	var chol mat.Cholesky
	if chol.Factorize(symmetrize(s)) {
		if err := chol.SolveTo(&kt, &hp); err != nil {
			return ErrSingularInnovation
		}
	} else {
		var inv mat.Dense
		if err := inv.Inverse(s); err != nil {
			return ErrSingularInnovation
		}
		kt.Mul(&inv, &hp)
	}
	gain := kt.T()

	innovation := mat.NewVecDense(measureDim, measurement[:])
	innovation.SubVec(innovation, projMean)

	var correction mat.VecDense
	correction.MulVec(gain, innovation)
	kf.mean.AddVec(kf.mean, &correction)

	// P = P - K S Kᵀ
	var ks, kskt mat.Dense
	ks.Mul(gain, s)
	kskt.Mul(&ks, &kt)
	kf.cov.Sub(kf.cov, &kskt)
	return nil
}

// symmetrize averages m with its transpose into a SymDense.
func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return sym
}
