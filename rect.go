package tileview

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in a continuous coordinate system.
// A Rect with Min.X > Max.X or Min.Y > Max.Y is empty.
type Rect struct {
	Min, Max Point
}

// RectFromPoints returns the smallest Rect containing all points.
// Non-finite points are skipped; the result is empty if none remain.
func RectFromPoints(pts ...Point) Rect {
	r := EmptyRect()
	for _, p := range pts {
		if p.IsFinite() {
			r = r.Extend(p)
		}
	}
	return r
}

// EmptyRect returns a rectangle that contains nothing and acts as the
// identity element for Union and Extend.
func EmptyRect() Rect {
	return Rect{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return !(r.Min.X < r.Max.X && r.Min.Y < r.Max.Y)
}

// Width returns the horizontal size of r.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical size of r.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Extend returns r grown to include p.
func (r Rect) Extend(p Point) Rect {
	return Rect{
		Min: Point{X: math.Min(r.Min.X, p.X), Y: math.Min(r.Min.Y, p.Y)},
		Max: Point{X: math.Max(r.Max.X, p.X), Y: math.Max(r.Max.Y, p.Y)},
	}
}

// Union returns the smallest rectangle containing r and s.
func (r Rect) Union(s Rect) Rect {
	if s.Empty() {
		return r
	}
	if r.Empty() {
		return s
	}
	return r.Extend(s.Min).Extend(s.Max)
}

// Intersect returns the largest rectangle contained by both r and s.
func (r Rect) Intersect(s Rect) Rect {
	return Rect{
		Min: Point{X: math.Max(r.Min.X, s.Min.X), Y: math.Max(r.Min.Y, s.Min.Y)},
		Max: Point{X: math.Min(r.Max.X, s.Max.X), Y: math.Min(r.Max.Y, s.Max.Y)},
	}
}

// Contains reports whether p lies inside r (min inclusive, max exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Corners returns the four corners in upper-left, upper-right,
// lower-left, lower-right order.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Min.X, Y: r.Max.Y},
		{X: r.Max.X, Y: r.Max.Y},
	}
}

// PixelBounds returns the smallest integer rectangle covering r.
// Pixels touched only by the exclusive max edge are not included.
func (r Rect) PixelBounds() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.Min.X)),
		int(math.Floor(r.Min.Y)),
		int(math.Ceil(r.Max.X)),
		int(math.Ceil(r.Max.Y)),
	)
}

// RectFromPixels converts an integer rectangle to a Rect.
func RectFromPixels(r image.Rectangle) Rect {
	return Rect{
		Min: Point{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		Max: Point{X: float64(r.Max.X), Y: float64(r.Max.Y)},
	}
}
