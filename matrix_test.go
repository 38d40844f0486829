package tileview

import (
	"math"
	"testing"
)

func TestMatrixInvertRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity()},
		{"translate", Translate(10, -20)},
		{"scale", Scale(2, -0.5)},
		{"rotate", Rotate(0.7)},
		{"rotate about", RotateAbout(math.Pi/3, Pt(250, 125))},
		{"composite", Translate(5, 5).Multiply(Scale(3, 3)).Multiply(Rotate(-1.2))},
	}
	pts := []Point{Pt(0, 0), Pt(1, 2), Pt(-300, 42.5), Pt(1e5, -1e5)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Invert()
			if !ok {
				t.Fatal("Invert() reported singular matrix")
			}
			for _, p := range pts {
				got := inv.TransformPoint(tt.m.TransformPoint(p))
				if !got.ApproxEqual(p, 1e-6) {
					t.Errorf("round trip of %v = %v", p, got)
				}
			}
		})
	}
}

func TestMatrixSingular(t *testing.T) {
	_, ok := Scale(0, 1).Invert()
	if ok {
		t.Error("Invert() of singular matrix should report false")
	}
}

func TestRotateAboutKeepsCenter(t *testing.T) {
	c := Pt(40, 60)
	m := RotateAbout(1.1, c)
	if got := m.TransformPoint(c); !got.ApproxEqual(c, 1e-9) {
		t.Errorf("center moved to %v", got)
	}
	if got, want := m.TransformPoint(Pt(50, 60)), Pt(50, 60).Rotate(1.1, c); !got.ApproxEqual(want, 1e-9) {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}
}
