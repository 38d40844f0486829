package crs

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/gogpu/tileview"
)

// Authority codes of the built-in projections.
const (
	EPSG4326 = "EPSG:4326"
	EPSG3857 = "EPSG:3857"
)

// Projection converts between a projected plane and WGS84 lon/lat degrees.
// Points that cannot be converted come back non-finite.
type Projection interface {
	ToLonLat(p tileview.Point) tileview.Point
	FromLonLat(ll tileview.Point) tileview.Point
}

// ProjectionFuncs adapts a pair of functions to Projection.
type ProjectionFuncs struct {
	To   func(tileview.Point) tileview.Point
	From func(tileview.Point) tileview.Point
}

func (f ProjectionFuncs) ToLonLat(p tileview.Point) tileview.Point    { return f.To(p) }
func (f ProjectionFuncs) FromLonLat(ll tileview.Point) tileview.Point { return f.From(ll) }

type geographic struct{}

func (geographic) ToLonLat(p tileview.Point) tileview.Point    { return p }
func (geographic) FromLonLat(ll tileview.Point) tileview.Point { return ll }

// Mercator latitude limit; beyond it the projection diverges.
const maxMercatorLat = 85.05112878

type webMercator struct{}

func (webMercator) ToLonLat(p tileview.Point) tileview.Point {
	return fromOrb(project.Mercator.ToWGS84(toOrb(p)))
}

func (webMercator) FromLonLat(ll tileview.Point) tileview.Point {
	if math.Abs(ll.Y) > maxMercatorLat {
		return tileview.Pt(math.NaN(), math.NaN())
	}
	return fromOrb(project.WGS84.ToMercator(toOrb(ll)))
}

func toOrb(p tileview.Point) orb.Point   { return orb.Point{p.X, p.Y} }
func fromOrb(p orb.Point) tileview.Point { return tileview.Pt(p[0], p[1]) }
