package layer

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/coords"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/viewport"
)

// ErrVector wraps vector file read and parse failures.
var ErrVector = fmt.Errorf("%w: vector", raster.ErrOpen)

// VectorStyle describes how features are drawn.
type VectorStyle struct {
	Color color.NRGBA

	// Width of lines and outlines in screen pixels.
	Width float64

	// FillAlpha fills polygons when positive.
	FillAlpha float64

	// PointSize is the edge of the square drawn for point features.
	PointSize float64

	// LabelProperty names the feature property shown as a label.
	LabelProperty string
	LabelSize     float64
}

// DefaultVectorStyle draws cyan outlines without labels.
func DefaultVectorStyle() VectorStyle {
	return VectorStyle{
		Color:     color.NRGBA{G: 200, B: 255, A: 255},
		Width:     1.5,
		PointSize: 5,
		LabelSize: DefaultLabelSize,
	}
}

type vectorOptions struct {
	name  string
	style VectorStyle
	src   crs.Descriptor
}

// VectorOption configures a Vector layer.
type VectorOption func(*vectorOptions)

// WithVectorName sets the layer name.
func WithVectorName(name string) VectorOption {
	return func(o *vectorOptions) { o.name = name }
}

// WithVectorStyle sets the drawing style.
func WithVectorStyle(s VectorStyle) VectorOption {
	return func(o *vectorOptions) { o.style = s }
}

// WithSourceCRS sets the coordinate system of the feature coordinates.
// GeoJSON defaults to longitude and latitude.
func WithSourceCRS(d crs.Descriptor) VectorOption {
	return func(o *vectorOptions) { o.src = d }
}

// indexedFeature is a feature stored in the spatial index.
type indexedFeature struct {
	id      int
	feature *geojson.Feature
	bound   orb.Bound
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return boundRect(f.bound)
}

// boundRect converts b to an index rectangle. The index needs non-zero
// lengths, so points get a tiny extent.
func boundRect(b orb.Bound) rtreego.Rect {
	const epsilon = 1e-9
	lengths := []float64{max(b.Max[0]-b.Min[0], epsilon), max(b.Max[1]-b.Min[1], epsilon)}
	r, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
	return r
}

// path is one projected line string, ring or point.
type path struct {
	pts    []tileview.Point
	closed bool
	fill   bool
}

// projected is a visible feature in viewport coordinates.
type projected struct {
	feature *indexedFeature
	paths   []path
	anchor  tileview.Point
	label   string
}

// Vector is a layer of GeoJSON features.
type Vector struct {
	name    string
	backend gpu.Backend
	style   VectorStyle
	meta    raster.Metadata
	pair    *coords.Pair
	index   *rtreego.Rtree
	bound   orb.Bound
	count   int
	labels  *labelSet

	geom       viewport.Geometry
	hasGeom    bool
	visible    []*indexedFeature
	drawn      []projected
	drawnBuild int
}

// OpenVector reads a GeoJSON feature collection.
func OpenVector(path string, backend gpu.Backend, registry *crs.Registry, opts ...VectorOption) (*Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVector, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVector, path, err)
	}
	opts = append([]VectorOption{WithVectorName(filepath.Base(path))}, opts...)
	return NewVector(fc, backend, registry, opts...), nil
}

// NewVector indexes the features of fc. Features without geometry are
// skipped.
func NewVector(fc *geojson.FeatureCollection, backend gpu.Backend, registry *crs.Registry, opts ...VectorOption) *Vector {
	o := vectorOptions{name: "vector", style: DefaultVectorStyle(), src: crs.Geographic}
	for _, opt := range opts {
		opt(&o)
	}
	v := &Vector{
		name:    o.name,
		backend: backend,
		style:   o.style,
		// Feature coordinates are used as physical coordinates with unit
		// spacing, so that the raster transform pair applies unchanged.
		meta:       raster.Metadata{Name: o.name, Spacing: tileview.Pt(1, 1), Projection: o.src},
		pair:       coords.New(registry),
		index:      rtreego.NewTree(2, 25, 50),
		labels:     newLabelSet(backend, o.style.LabelSize, o.style.Color),
		drawnBuild: -1,
	}
	first := true
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		v.index.Insert(&indexedFeature{id: v.count, feature: f, bound: b})
		v.count++
		if first {
			v.bound, first = b, false
		} else {
			v.bound = v.bound.Union(b)
		}
	}
	tileview.Logger().Info("layer: vector created", "name", v.name, "features", v.count, "crs", o.src.String())
	return v
}

func (v *Vector) Kind() Kind   { return KindVector }
func (v *Vector) Name() string { return v.name }

// Len returns the number of indexed features.
func (v *Vector) Len() int { return v.count }

// Style returns the drawing style.
func (v *Vector) Style() VectorStyle { return v.style }

// SetStyle changes the drawing style.
func (v *Vector) SetStyle(s VectorStyle) {
	v.style = s
	v.OnSettingsChanged()
}

// Visible returns the number of features selected by the last heavy update.
func (v *Vector) Visible() int { return len(v.visible) }

// Extent returns the bound of all features mapped to the viewport.
func (v *Vector) Extent() tileview.Rect {
	if v.count == 0 {
		return tileview.EmptyRect()
	}
	b := tileview.RectFromPoints(
		tileview.Pt(v.bound.Min[0], v.bound.Min[1]),
		tileview.Pt(v.bound.Max[0], v.bound.Max[1]),
	)
	if !v.pair.Built() {
		return b
	}
	c := b.Corners()
	edges := [4][2]tileview.Point{{c[0], c[1]}, {c[1], c[3]}, {c[3], c[2]}, {c[2], c[0]}}
	out := tileview.EmptyRect()
	for _, e := range edges {
		for i := 0; i < 8; i++ {
			if p := v.pair.ToViewport(e[0].Lerp(e[1], float64(i)/8), true); p.IsFinite() {
				out = out.Extend(p)
			}
		}
	}
	return out
}

func (v *Vector) SetViewport(g viewport.Geometry) {
	v.geom = g
	v.hasGeom = true
	v.pair.Update(g, v.meta)
}

// OnSettingsChanged drops label textures so that they are rebuilt with the
// current style.
func (v *Vector) OnSettingsChanged() {
	v.labels.release()
	v.labels = newLabelSet(v.backend, v.style.LabelSize, v.style.Color)
	v.drawnBuild = -1
}

// HeavyUpdate selects the features intersecting the viewport and uploads
// their labels.
func (v *Vector) HeavyUpdate(ctx context.Context) error {
	if !v.hasGeom {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q := v.pair.RectToRaster(v.geom.Extent())
	v.visible = v.visible[:0]
	if !q.Empty() {
		hits := v.index.SearchIntersect(boundRect(orb.Bound{
			Min: orb.Point{q.Min.X, q.Min.Y},
			Max: orb.Point{q.Max.X, q.Max.Y},
		}))
		for _, h := range hits {
			v.visible = append(v.visible, h.(*indexedFeature))
		}
		slices.SortFunc(v.visible, func(a, b *indexedFeature) int { return a.id - b.id })
	}
	v.project()

	if v.style.LabelProperty == "" {
		return nil
	}
	keep := make(map[string]bool)
	for _, p := range v.drawn {
		if p.label == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		keep[p.label] = true
		if _, err := v.labels.get(p.label); err != nil {
			tileview.Logger().Warn("layer: label upload failed", "layer", v.name, "label", p.label, "err", err)
		}
	}
	v.labels.drop(keep)
	return nil
}

// project maps the visible features to the viewport.
func (v *Vector) project() {
	v.drawn = v.drawn[:0]
	for _, f := range v.visible {
		p := projected{feature: f}
		v.appendPaths(&p, f.feature.Geometry)
		if len(p.paths) == 0 {
			continue
		}
		if a := v.pair.ToViewport(tileview.Pt(f.bound.Center()[0], f.bound.Center()[1]), true); a.IsFinite() {
			p.anchor = a
		} else {
			p.anchor = p.paths[0].pts[0]
		}
		if v.style.LabelProperty != "" {
			p.label = f.feature.Properties.MustString(v.style.LabelProperty, "")
		}
		v.drawn = append(v.drawn, p)
	}
	v.drawnBuild = v.pair.Rebuilds()
}

func (v *Vector) appendPaths(p *projected, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		v.addPath(p, []orb.Point{g}, false, false)
	case orb.MultiPoint:
		for _, pt := range g {
			v.addPath(p, []orb.Point{pt}, false, false)
		}
	case orb.LineString:
		v.addPath(p, g, false, false)
	case orb.MultiLineString:
		for _, ls := range g {
			v.addPath(p, ls, false, false)
		}
	case orb.Ring:
		v.addPath(p, g, true, true)
	case orb.Polygon:
		for i, r := range g {
			v.addPath(p, r, true, i == 0)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			v.appendPaths(p, poly)
		}
	case orb.Collection:
		for _, sub := range g {
			v.appendPaths(p, sub)
		}
	case orb.Bound:
		v.appendPaths(p, g.ToPolygon())
	}
}

func (v *Vector) addPath(p *projected, pts []orb.Point, closed, fill bool) {
	out := make([]tileview.Point, 0, len(pts))
	for _, pt := range pts {
		if q := v.pair.ToViewport(tileview.Pt(pt[0], pt[1]), true); q.IsFinite() {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return
	}
	p.paths = append(p.paths, path{pts: out, closed: closed, fill: fill})
}

// LightRender draws the features selected by the last heavy update,
// reprojecting them first if the geometry changed since.
func (v *Vector) LightRender() {
	if v.drawnBuild != v.pair.Rebuilds() {
		v.project()
	}
	line := gpu.Style{Color: v.style.Color, Width: v.style.Width}
	for _, p := range v.drawn {
		for _, pa := range p.paths {
			s := line
			if len(pa.pts) == 1 {
				s.Width = v.style.PointSize
			}
			if pa.fill && v.style.FillAlpha > 0 {
				s.Fill, s.FillAlpha = true, v.style.FillAlpha
			}
			v.backend.DrawPolyline(pa.pts, pa.closed, s)
		}
		if l := v.labels.lookup(p.label); l != nil && p.label != "" {
			v.backend.DrawTexturedQuad(l.texture, l.corners(p.anchor, v.geom.Spacing), 1)
		}
	}
}

func (v *Vector) Close() error {
	v.labels.release()
	v.visible, v.drawn = nil, nil
	return nil
}
