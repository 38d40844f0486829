// Package coords maps points between a layer's raster and the viewport.
//
// A [Pair] composes the projection transform (raster CRS to viewport CRS)
// with the on-screen rotation. Rotation is applied outside the projection,
// so it stays a pure screen-space operation whatever raster is shown.
package coords

import (
	"errors"
	"image"
	"math"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/viewport"
)

// rasterIdentity is what a Pair needs to know to detect a different raster.
type rasterIdentity struct {
	name    string
	origin  tileview.Point
	spacing tileview.Point
	size    image.Point
	crs     string
}

func identityOf(m raster.Metadata) rasterIdentity {
	return rasterIdentity{
		name:    m.Name,
		origin:  m.Origin,
		spacing: m.Spacing,
		size:    m.Size,
		crs:     m.Projection.Key(),
	}
}

// projectionInputs are the values the projection transform depends on.
type projectionInputs struct {
	raster        rasterIdentity
	view          string
	useProjection bool
}

// Pair is the forward (raster to viewport) and inverse (viewport to
// raster) transform of one layer. Both directions are always rebuilt
// together.
type Pair struct {
	registry *crs.Registry
	meta     raster.Metadata

	built      bool
	generation uint64
	inputs     projectionInputs

	projection crs.Pair
	rotate     tileview.Matrix
	unrotate   tileview.Matrix
	degraded   error
	rebuilds   int
}

// New returns an unbuilt pair. The first Update builds it.
func New(registry *crs.Registry) *Pair {
	return &Pair{
		registry:   registry,
		projection: crs.IdentityPair(),
		rotate:     tileview.Identity(),
		unrotate:   tileview.Identity(),
	}
}

// Update rebuilds the pair if the viewport geometry or the raster changed
// since the last build, and reports whether it did. The projection part is
// only rebuilt when the coordinate systems or the use-projection switch
// changed.
func (p *Pair) Update(g viewport.Geometry, meta raster.Metadata) bool {
	inputs := projectionInputs{
		raster:        identityOf(meta),
		view:          g.Projection.Key(),
		useProjection: g.UseProjection,
	}
	if p.built && g.Generation == p.generation && inputs == p.inputs {
		return false
	}

	if !p.built || inputs != p.inputs {
		p.meta = meta
		p.projection, p.degraded = p.buildProjection(meta.Projection, g)
		p.inputs = inputs
	}
	p.rotate = tileview.RotateAbout(g.Angle, g.RotationCenter)
	p.unrotate = tileview.RotateAbout(-g.Angle, g.RotationCenter)

	p.generation = g.Generation
	p.built = true
	p.rebuilds++
	return true
}

func (p *Pair) buildProjection(src crs.Descriptor, g viewport.Geometry) (crs.Pair, error) {
	if !g.UseProjection {
		return crs.IdentityPair(), nil
	}
	pair, err := p.registry.Build(src, g.Projection)
	if err != nil {
		tileview.Logger().Warn("coords: transform unavailable, using identity",
			"raster", p.meta.Name, "src", src.String(), "dst", g.Projection.String(), "err", err)
		return crs.IdentityPair(), err
	}
	return pair, nil
}

// Built reports whether Update has been called.
func (p *Pair) Built() bool { return p.built }

// Rebuilds returns how many times the pair was rebuilt.
func (p *Pair) Rebuilds() int { return p.rebuilds }

// Degraded returns the transform-build failure that made the pair fall
// back to the identity mapping, or nil.
func (p *Pair) Degraded() error { return p.degraded }

// IsDegraded reports whether err came from a transform-build fallback.
func IsDegraded(err error) bool { return errors.Is(err, crs.ErrUnsupported) }

// Metadata returns the raster metadata of the last build.
func (p *Pair) Metadata() raster.Metadata { return p.meta }

// ToRaster maps a viewport point to the raster: the rotation is undone
// first, then the projection inverse is applied. With wantPhysical false
// the result is converted to level-0 pixel units.
func (p *Pair) ToRaster(v tileview.Point, wantPhysical bool) tileview.Point {
	q := p.projection.Inverse.TransformPoint(p.unrotate.TransformPoint(v))
	if !wantPhysical {
		q = p.meta.PhysicalToPixel(q)
	}
	return q
}

// ToViewport maps a raster point to the viewport, the inverse of ToRaster.
// isPhysical tells whether r is in physical or level-0 pixel units.
func (p *Pair) ToViewport(r tileview.Point, isPhysical bool) tileview.Point {
	if !isPhysical {
		r = p.meta.PixelToPhysical(r)
	}
	return p.rotate.TransformPoint(p.projection.Forward.TransformPoint(r))
}

// edgeSamples is the number of points sampled along each viewport edge
// when mapping a rectangle, so that curved projected edges are covered.
const edgeSamples = 8

// RectToRaster returns the bounding box, in level-0 pixel units, of a
// viewport rectangle mapped to the raster. Points that fail to map are
// skipped; the result is empty if none map.
func (p *Pair) RectToRaster(r tileview.Rect) tileview.Rect {
	if r.Empty() {
		return tileview.EmptyRect()
	}
	out := tileview.EmptyRect()
	c := r.Corners()
	edges := [4][2]tileview.Point{{c[0], c[1]}, {c[1], c[3]}, {c[3], c[2]}, {c[2], c[0]}}
	for _, e := range edges {
		for i := 0; i < edgeSamples; i++ {
			v := e[0].Lerp(e[1], float64(i)/edgeSamples)
			if q := p.ToRaster(v, false); q.IsFinite() {
				out = out.Extend(q)
			}
		}
	}
	return out
}

// PixelScale estimates how many level-0 raster pixels one screen pixel
// spans at the middle of the screen, probing probe screen pixels along
// both axes. It returns 0 when the scale cannot be measured.
func (p *Pair) PixelScale(g viewport.Geometry, probe float64) float64 {
	if probe <= 0 || g.Spacing.X == 0 || g.Spacing.Y == 0 {
		return 0
	}
	mid := g.Origin.Add(g.Spacing.Scale(tileview.Pt(float64(g.Size.X), float64(g.Size.Y))).Mul(0.5))
	c := p.ToRaster(mid, false)
	dx := p.ToRaster(mid.Add(tileview.Pt(g.Spacing.X*probe, 0)), false)
	dy := p.ToRaster(mid.Add(tileview.Pt(0, g.Spacing.Y*probe)), false)
	s := (c.Distance(dx) + c.Distance(dy)) / (2 * probe)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}
