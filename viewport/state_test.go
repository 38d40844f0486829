package viewport

import (
	"math"
	"testing"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
)

func TestNewStartsDirty(t *testing.T) {
	s := New(500, 500)
	if !s.Dirty() {
		t.Error("new state should be dirty")
	}
	s.ClearDirty()
	if s.Dirty() {
		t.Error("ClearDirty() did not clear the flag")
	}
}

func TestSettersNoChurnOnEqualValues(t *testing.T) {
	s := New(100, 80)
	s.SetOrigin(tileview.Pt(10, 20))
	s.SetSpacing(tileview.Pt(2, -2))
	s.SetRotation(0.5, tileview.Pt(1, 1))
	s.SetProjection(crs.Geographic)
	s.SetUseProjection(true)
	s.ClearDirty()
	gen := s.Generation()

	s.SetOrigin(tileview.Pt(10, 20))
	s.SetSpacing(tileview.Pt(2, -2))
	s.SetRotation(0.5, tileview.Pt(1, 1))
	s.SetViewportSize(100, 80)
	s.SetProjection(crs.Descriptor{Projection: "wgs84"})
	s.SetUseProjection(true)

	if s.Dirty() {
		t.Error("setting equal values must not set the dirty flag")
	}
	if s.Generation() != gen {
		t.Errorf("Generation() = %d, want %d", s.Generation(), gen)
	}
}

func TestSettersMarkDirty(t *testing.T) {
	tests := []struct {
		name string
		set  func(*State)
	}{
		{"origin", func(s *State) { s.SetOrigin(tileview.Pt(1, 0)) }},
		{"spacing", func(s *State) { s.SetSpacing(tileview.Pt(2, 2)) }},
		{"rotation", func(s *State) { s.SetRotation(0.1, tileview.Pt(0, 0)) }},
		{"size", func(s *State) { s.SetViewportSize(10, 11) }},
		{"projection", func(s *State) { s.SetProjection(crs.WebMercator) }},
		{"use projection", func(s *State) { s.SetUseProjection(true) }},
		{"keywords", func(s *State) { s.SetProjection(crs.Descriptor{Keywords: crs.Keywords{"k": "v"}}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(10, 10)
			s.ClearDirty()
			tt.set(s)
			if !s.Dirty() {
				t.Error("mutation did not set the dirty flag")
			}
		})
	}
}

func TestExtent(t *testing.T) {
	s := New(500, 250)
	s.SetOrigin(tileview.Pt(100, 1000))
	s.SetSpacing(tileview.Pt(2, -4))

	got := s.Extent()
	want := tileview.Rect{Min: tileview.Pt(100, 0), Max: tileview.Pt(1100, 1000)}
	if got != want {
		t.Errorf("Extent() = %+v, want %+v", got, want)
	}
}

func TestZoomInverse(t *testing.T) {
	factors := []float64{0.5, 2, 0.1, 3.7, 1}
	centers := []tileview.Point{{X: 0, Y: 0}, {X: 250, Y: 250}, {X: -1e4, Y: 3.25}}
	for _, f := range factors {
		for _, c := range centers {
			s := New(500, 500)
			s.SetOrigin(tileview.Pt(12.5, -40))
			s.SetSpacing(tileview.Pt(0.75, -1.25))
			origin, spacing := s.Origin(), s.Spacing()

			s.Zoom(c, f)
			s.Zoom(c, 1/f)

			if !s.Origin().ApproxEqual(origin, 1e-9*math.Max(1, c.Length())) {
				t.Errorf("Zoom(%v, %g) then 1/f: origin = %v, want %v", c, f, s.Origin(), origin)
			}
			if !s.Spacing().ApproxEqual(spacing, 1e-12) {
				t.Errorf("Zoom(%v, %g) then 1/f: spacing = %v, want %v", c, f, s.Spacing(), spacing)
			}
		}
	}
}

func TestZoomKeepsCenterFixed(t *testing.T) {
	s := New(200, 100)
	s.SetSpacing(tileview.Pt(1, 1))
	c := tileview.Pt(50, 25)
	before := s.ViewportToScreen(c)

	s.Zoom(c, 0.25)

	if after := s.ViewportToScreen(c); !after.ApproxEqual(before, 1e-9) {
		t.Errorf("center moved on screen from %v to %v", before, after)
	}
}

func TestZoomIgnoresInvalidFactor(t *testing.T) {
	s := New(10, 10)
	s.ClearDirty()
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		s.Zoom(tileview.Pt(1, 1), f)
	}
	if s.Dirty() {
		t.Error("invalid zoom factors should be ignored")
	}
}

func TestCenterIdempotent(t *testing.T) {
	s := New(640, 480)
	s.SetOrigin(tileview.Pt(33, -7))
	s.SetSpacing(tileview.Pt(1.5, -0.5))
	s.SetRotation(0.3, tileview.Pt(10, 10))

	s.Center(s.Extent().Center())
	first := s.Origin()
	for i := 0; i < 3; i++ {
		s.Center(s.Extent().Center())
		if !s.Origin().ApproxEqual(first, 1e-9) {
			t.Fatalf("call %d: origin = %v, want %v", i+2, s.Origin(), first)
		}
	}
}

func TestPanAndScreenConversion(t *testing.T) {
	s := New(100, 100)
	s.SetSpacing(tileview.Pt(2, -2))
	s.Pan(tileview.Pt(10, 5))
	if got := s.Origin(); got != tileview.Pt(20, -10) {
		t.Errorf("Origin() after Pan = %v, want (20,-10)", got)
	}

	p := tileview.Pt(37, 61)
	v := s.ScreenToViewport(p)
	if got := s.ViewportToScreen(v); !got.ApproxEqual(p, 1e-12) {
		t.Errorf("screen round trip = %v, want %v", got, p)
	}
	if got := s.ScreenTransform().TransformPoint(p); !got.ApproxEqual(v, 1e-12) {
		t.Errorf("ScreenTransform() = %v, want %v", got, v)
	}
}

func TestZoomToExtent(t *testing.T) {
	s := New(400, 200)
	s.SetSpacing(tileview.Pt(1, -1))
	r := tileview.Rect{Min: tileview.Pt(0, 0), Max: tileview.Pt(1000, 1000)}

	s.ZoomToExtent(r)

	if got := s.Spacing(); got != tileview.Pt(5, -5) {
		t.Errorf("Spacing() = %v, want (5,-5)", got)
	}
	if c := s.Extent().Center(); !c.ApproxEqual(r.Center(), 1e-9) {
		t.Errorf("extent center = %v, want %v", c, r.Center())
	}
	ext := s.Extent()
	if ext.Min.Y > r.Min.Y || ext.Max.Y < r.Max.Y {
		t.Errorf("extent %+v does not contain %+v vertically", ext, r)
	}
}
