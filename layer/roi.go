package layer

import (
	"context"
	"image/color"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/viewport"
)

// DefaultROIColor is the outline color of a region of interest.
var DefaultROIColor = color.NRGBA{R: 255, G: 210, A: 255}

type roiOptions struct {
	name      string
	color     color.NRGBA
	width     float64
	fillAlpha float64
	label     string
	labelSize float64
	kept      bool
}

// ROIOption configures an ROI layer.
type ROIOption func(*roiOptions)

// WithROIName sets the layer name.
func WithROIName(name string) ROIOption {
	return func(o *roiOptions) { o.name = name }
}

// WithROIStyle sets the outline color, width in screen pixels and fill
// opacity. A zero fill alpha draws the outline only.
func WithROIStyle(c color.NRGBA, width, fillAlpha float64) ROIOption {
	return func(o *roiOptions) {
		o.color, o.width, o.fillAlpha = c, width, fillAlpha
	}
}

// WithROILabel draws text next to the upper-left corner.
func WithROILabel(text string, size float64) ROIOption {
	return func(o *roiOptions) { o.label, o.labelSize = text, size }
}

// WithKept keeps the box axis aligned on screen when the view rotates
// instead of turning with the content.
func WithKept(kept bool) ROIOption {
	return func(o *roiOptions) { o.kept = kept }
}

// ROI is a rectangular region of interest given in viewport coordinates.
type ROI struct {
	name    string
	backend gpu.Backend
	opts    roiOptions
	box     tileview.Rect
	geom    viewport.Geometry
	labels  *labelSet
}

// NewROI creates a box spanning the two corners, in viewport coordinates
// before rotation.
func NewROI(ul, lr tileview.Point, backend gpu.Backend, opts ...ROIOption) *ROI {
	o := roiOptions{name: "roi", color: DefaultROIColor, width: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &ROI{
		name:    o.name,
		backend: backend,
		opts:    o,
		box:     tileview.RectFromPoints(ul, lr),
		labels:  newLabelSet(backend, o.labelSize, o.color),
	}
}

func (r *ROI) Kind() Kind   { return KindROI }
func (r *ROI) Name() string { return r.name }

// Box returns the region before rotation.
func (r *ROI) Box() tileview.Rect { return r.box }

// SetBox moves the region.
func (r *ROI) SetBox(ul, lr tileview.Point) { r.box = tileview.RectFromPoints(ul, lr) }

// SetKept switches between following the content and staying upright.
func (r *ROI) SetKept(kept bool) { r.opts.kept = kept }

// Corners returns the upper-left, upper-right, lower-left and lower-right
// corners as drawn under the last geometry.
func (r *ROI) Corners() [4]tileview.Point {
	c := r.box.Corners()
	if r.opts.kept || r.geom.Angle == 0 {
		return c
	}
	for i := range c {
		c[i] = c[i].Rotate(r.geom.Angle, r.geom.RotationCenter)
	}
	return c
}

func (r *ROI) Extent() tileview.Rect {
	out := tileview.EmptyRect()
	for _, p := range r.Corners() {
		out = out.Extend(p)
	}
	return out
}

func (r *ROI) SetViewport(g viewport.Geometry) { r.geom = g }

// OnSettingsChanged drops the label texture so that it is rebuilt.
func (r *ROI) OnSettingsChanged() { r.labels.drop(nil) }

// HeavyUpdate uploads the label texture.
func (r *ROI) HeavyUpdate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.opts.label == "" {
		return nil
	}
	if _, err := r.labels.get(r.opts.label); err != nil {
		tileview.Logger().Warn("layer: label upload failed", "layer", r.name, "err", err)
	}
	return nil
}

func (r *ROI) LightRender() {
	c := r.Corners()
	outline := []tileview.Point{c[0], c[1], c[3], c[2]}
	r.backend.DrawPolyline(outline, true, gpu.Style{
		Color:     r.opts.color,
		Width:     r.opts.width,
		Fill:      r.opts.fillAlpha > 0,
		FillAlpha: r.opts.fillAlpha,
	})
	if l := r.labels.lookup(r.opts.label); l != nil {
		r.backend.DrawTexturedQuad(l.texture, l.corners(c[0], r.geom.Spacing), 1)
	}
}

func (r *ROI) Close() error {
	r.labels.release()
	return nil
}
