package tracking

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBox_CenterFormRoundTrip(t *testing.T) {
	b := Box{X: 10, Y: 10, Width: 20, Height: 40}
	xyah := b.ToCenterForm()

	want := [4]float64{20, 30, 0.5, 40}
	if xyah != want {
		t.Fatalf("ToCenterForm() = %v, want %v", xyah, want)
	}

	back := BoxFromCenterForm(xyah)
	for _, d := range []float64{back.X - b.X, back.Y - b.Y, back.Width - b.Width, back.Height - b.Height} {
		if math.Abs(d) > 1e-12 {
			t.Fatalf("BoxFromCenterForm() = %+v, want %+v", back, b)
		}
	}
}

func TestAnchor_Point(t *testing.T) {
	b := Box{X: 10, Y: 10, Width: 20, Height: 40}
	tests := []struct {
		anchor Anchor
		want   orb.Point
	}{
		{AnchorBottomCenter, orb.Point{20, 50}},
		{AnchorCenter, orb.Point{20, 30}},
		{AnchorTopLeft, orb.Point{10, 10}},
		{Anchor(""), orb.Point{20, 50}},
	}
	for _, tt := range tests {
		if got := tt.anchor.Point(b); got != tt.want {
			t.Errorf("%q.Point() = %v, want %v", tt.anchor, got, tt.want)
		}
	}
	if Anchor("").Valid() || Anchor("feet").Valid() {
		t.Error("unknown anchors reported valid")
	}
}

func TestDetection_Validate(t *testing.T) {
	if err := NewDetection(0, 0, 1, 1, 0.5).Validate(0); err != nil {
		t.Fatalf("valid detection rejected: %v", err)
	}

	err := NewDetection(5, 5, 0, 10, 0.5).Validate(3)
	if !errors.Is(err, ErrInvalidDetection) {
		t.Fatalf("expected ErrInvalidDetection, got %v", err)
	}
	var detErr *InvalidDetectionError
	if !errors.As(err, &detErr) {
		t.Fatalf("expected *InvalidDetectionError, got %T", err)
	}
	if detErr.Index != 3 {
		t.Errorf("Index = %d, want 3", detErr.Index)
	}

	if err := NewDetection(5, 5, 10, -1, 0.5).Validate(0); err == nil {
		t.Error("negative height accepted")
	}

	nonFinite := []struct {
		name string
		det  Detection
	}{
		{"NaN width", NewDetection(10, 10, math.NaN(), 40, 0.9)},
		{"NaN height", NewDetection(10, 10, 20, math.NaN(), 0.9)},
		{"Inf width", NewDetection(10, 10, math.Inf(1), 40, 0.9)},
		{"NaN x", NewDetection(math.NaN(), 10, 20, 40, 0.9)},
		{"-Inf y", NewDetection(10, math.Inf(-1), 20, 40, 0.9)},
	}
	for _, tt := range nonFinite {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.det.Validate(1)
			var detErr *InvalidDetectionError
			if !errors.As(err, &detErr) {
				t.Fatalf("expected *InvalidDetectionError, got %v", err)
			}
		})
	}
}
