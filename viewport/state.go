package viewport

import (
	"image"
	"math"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
)

// State is the viewport geometry.
//
// Viewport coordinates of the screen pixel (i, j) are
// origin + (i, j) * spacing, before rotation. Rotation is a screen-space
// operation applied around the rotation center, outside any projection.
type State struct {
	origin    tileview.Point
	spacing   tileview.Point
	size      image.Point
	angle     float64
	rotCenter tileview.Point

	projection    crs.Descriptor
	useProjection bool

	dirty      bool
	generation uint64
}

// New returns a viewport of the given pixel size with unit spacing, origin
// at (0,0), no rotation and no projection. The new state starts dirty.
func New(width, height int) *State {
	return &State{
		spacing: tileview.Pt(1, 1),
		size:    image.Pt(width, height),
		dirty:   true,
	}
}

// Geometry is a read-only copy of the state, handed to layers each frame.
type Geometry struct {
	Origin         tileview.Point
	Spacing        tileview.Point
	Size           image.Point
	Angle          float64
	RotationCenter tileview.Point
	Projection     crs.Descriptor
	UseProjection  bool

	// Generation increases on every change; equal generations mean equal
	// geometry.
	Generation uint64
}

// Geometry returns a snapshot of the current state.
func (s *State) Geometry() Geometry {
	return Geometry{
		Origin:         s.origin,
		Spacing:        s.spacing,
		Size:           s.size,
		Angle:          s.angle,
		RotationCenter: s.rotCenter,
		Projection:     s.projection,
		UseProjection:  s.useProjection,
		Generation:     s.generation,
	}
}

func (s *State) Origin() tileview.Point  { return s.origin }
func (s *State) Spacing() tileview.Point { return s.spacing }
func (s *State) Size() image.Point       { return s.size }

// Rotation returns the rotation angle in radians and its center.
func (s *State) Rotation() (float64, tileview.Point) { return s.angle, s.rotCenter }

func (s *State) Projection() crs.Descriptor { return s.projection }
func (s *State) UseProjection() bool        { return s.useProjection }

// Dirty reports whether the geometry changed since the last ClearDirty.
func (s *State) Dirty() bool { return s.dirty }

// ClearDirty resets the geometry-changed flag.
func (s *State) ClearDirty() { s.dirty = false }

// Generation returns the change counter.
func (s *State) Generation() uint64 { return s.generation }

func (s *State) touch() {
	s.dirty = true
	s.generation++
}

// SetOrigin sets the viewport coordinate of the top-left screen pixel.
func (s *State) SetOrigin(p tileview.Point) {
	if p == s.origin {
		return
	}
	s.origin = p
	s.touch()
}

// SetSpacing sets the viewport units per screen pixel. A negative
// component flips that axis.
func (s *State) SetSpacing(sp tileview.Point) {
	if sp == s.spacing {
		return
	}
	s.spacing = sp
	s.touch()
}

// SetRotation sets the rotation angle (radians) and its center in
// viewport coordinates.
func (s *State) SetRotation(angle float64, center tileview.Point) {
	if angle == s.angle && center == s.rotCenter {
		return
	}
	s.angle = angle
	s.rotCenter = center
	s.touch()
}

// SetViewportSize sets the size in screen pixels.
func (s *State) SetViewportSize(width, height int) {
	sz := image.Pt(width, height)
	if sz == s.size {
		return
	}
	s.size = sz
	s.touch()
}

// SetProjection sets the coordinate reference system displayed.
func (s *State) SetProjection(d crs.Descriptor) {
	if d.Equal(s.projection) {
		return
	}
	s.projection = d
	s.touch()
}

// SetUseProjection switches reprojection of layers on or off.
func (s *State) SetUseProjection(use bool) {
	if use == s.useProjection {
		return
	}
	s.useProjection = use
	s.touch()
}

// Extent returns the axis-aligned viewport rectangle covered by the screen,
// [origin, origin + spacing*size] per axis, ignoring rotation.
func (s *State) Extent() tileview.Rect {
	return extent(s.origin, s.spacing, s.size)
}

// Extent returns the viewport rectangle covered by the screen.
func (g Geometry) Extent() tileview.Rect {
	return extent(g.Origin, g.Spacing, g.Size)
}

func extent(origin, spacing tileview.Point, size image.Point) tileview.Rect {
	far := origin.Add(spacing.Scale(sizePoint(size)))
	return tileview.Rect{
		Min: tileview.Pt(math.Min(origin.X, far.X), math.Min(origin.Y, far.Y)),
		Max: tileview.Pt(math.Max(origin.X, far.X), math.Max(origin.Y, far.Y)),
	}
}

// Center moves the origin so that p is in the middle of the screen.
func (s *State) Center(p tileview.Point) {
	half := s.spacing.Scale(sizePoint(s.size)).Mul(0.5)
	s.SetOrigin(p.Sub(half))
}

// Zoom multiplies the spacing by factor, keeping center fixed on screen.
// A factor below 1 zooms in. Non-positive or non-finite factors are ignored.
func (s *State) Zoom(center tileview.Point, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	origin := s.origin.Add(center.Sub(s.origin).Mul(1 - factor))
	spacing := s.spacing.Mul(factor)
	if origin == s.origin && spacing == s.spacing {
		return
	}
	s.origin = origin
	s.spacing = spacing
	s.touch()
}

// Pan shifts the view by d screen pixels.
func (s *State) Pan(d tileview.Point) {
	s.SetOrigin(s.origin.Add(d.Scale(s.spacing)))
}

// ScreenToViewport converts a screen pixel position to viewport
// coordinates, before rotation.
func (s *State) ScreenToViewport(p tileview.Point) tileview.Point {
	return s.origin.Add(p.Scale(s.spacing))
}

// ViewportToScreen converts viewport coordinates to a screen position.
// The result is non-finite if a spacing component is zero.
func (s *State) ViewportToScreen(p tileview.Point) tileview.Point {
	d := p.Sub(s.origin)
	return tileview.Pt(d.X/s.spacing.X, d.Y/s.spacing.Y)
}

// ZoomToExtent picks the spacing that fits r on screen with its aspect
// ratio preserved and centers the view on r. Axis flips are kept.
func (s *State) ZoomToExtent(r tileview.Rect) {
	if r.Empty() || s.size.X <= 0 || s.size.Y <= 0 {
		return
	}
	step := math.Max(r.Width()/float64(s.size.X), r.Height()/float64(s.size.Y))
	s.SetSpacing(tileview.Pt(math.Copysign(step, nonZero(s.spacing.X)), math.Copysign(step, nonZero(s.spacing.Y))))
	s.Center(r.Center())
}

// ScreenTransform returns the matrix mapping screen pixels to viewport
// coordinates, before rotation.
func (s *State) ScreenTransform() tileview.Matrix {
	return tileview.Translate(s.origin.X, s.origin.Y).Multiply(tileview.Scale(s.spacing.X, s.spacing.Y))
}

func sizePoint(sz image.Point) tileview.Point {
	return tileview.Pt(float64(sz.X), float64(sz.Y))
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
