// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package view

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/layer"
	"github.com/gogpu/tileview/viewport"
)

var (
	// ErrDuplicateKey is returned when adding a layer under a used key.
	ErrDuplicateKey = errors.New("view: duplicate layer key")

	// ErrUnknownKey is returned for keys that name no layer.
	ErrUnknownKey = errors.New("view: unknown layer key")

	// ErrNotRaster is returned by raster-only operations on other layers.
	ErrNotRaster = errors.New("view: layer is not a raster")
)

// DefaultClearColor is the frame background.
var DefaultClearColor = color.NRGBA{A: 255}

// Compositor draws a stack of layers over one viewport.
// It is not safe for concurrent use.
type Compositor struct {
	view     *viewport.State
	backend  gpu.Backend
	registry *crs.Registry
	clear    color.Color

	actors  map[string]layer.Layer
	hidden  map[string]bool
	order   []string
	nextKey int

	adopted bool
	closed  bool
}

// New returns a compositor with a width by height viewport. Without
// WithBackend it draws on a software backend of the same size.
func New(width, height int, opts ...Option) *Compositor {
	o := options{clear: DefaultClearColor}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = gpu.NewSoftware(width, height)
	}
	if o.registry == nil {
		o.registry = crs.NewRegistry(0)
	}
	tileview.Logger().Info("view: compositor created", "size", image.Pt(width, height), "backend", o.backend.Name())
	return &Compositor{
		view:     viewport.New(width, height),
		backend:  o.backend,
		registry: o.registry,
		clear:    o.clear,
		actors:   make(map[string]layer.Layer),
		hidden:   make(map[string]bool),
	}
}

// Viewport returns the viewport the host mutates.
func (c *Compositor) Viewport() *viewport.State { return c.view }

// Backend returns the drawing backend; layers must be created with it.
func (c *Compositor) Backend() gpu.Backend { return c.backend }

// Registry returns the transform registry layers should share.
func (c *Compositor) Registry() *crs.Registry { return c.registry }

// AddActor adds l under key, or under a generated key if key is empty,
// and puts it on top of the draw order. The first raster added gives its
// coordinate system to a viewport that has none.
func (c *Compositor) AddActor(l layer.Layer, key string) (string, error) {
	if key == "" {
		key = c.newKey()
	} else if _, ok := c.actors[key]; ok {
		return "", fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	c.actors[key] = l
	c.order = slices.Insert(c.order, 0, key)

	if r, ok := l.(*layer.Raster); ok && !c.adopted {
		c.adopted = true
		if d := r.Metadata().Projection; c.view.Projection().IsZero() && !d.IsZero() {
			c.view.SetProjection(d)
			c.view.SetUseProjection(true)
		}
	}
	tileview.Logger().Info("view: layer added", "key", key, "kind", l.Kind().String(), "name", l.Name())
	return key, nil
}

func (c *Compositor) newKey() string {
	for {
		c.nextKey++
		k := "layer-" + strconv.Itoa(c.nextKey)
		if _, ok := c.actors[k]; !ok {
			return k
		}
	}
}

// RemoveActor closes the layer under key, releasing its textures, and
// removes it from the draw order. It reports whether the key existed.
func (c *Compositor) RemoveActor(key string) bool {
	l, ok := c.actors[key]
	if !ok {
		return false
	}
	if err := l.Close(); err != nil {
		tileview.Logger().Warn("view: layer close failed", "key", key, "err", err)
	}
	delete(c.actors, key)
	delete(c.hidden, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// GetActor returns the layer under key.
func (c *Compositor) GetActor(key string) (layer.Layer, bool) {
	l, ok := c.actors[key]
	return l, ok
}

// Len returns the number of layers.
func (c *Compositor) Len() int { return len(c.actors) }

// SetVisible shows or hides a layer. Hidden layers are neither updated
// nor drawn but keep their resources.
func (c *Compositor) SetVisible(key string, visible bool) error {
	if _, ok := c.actors[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if visible {
		delete(c.hidden, key)
	} else {
		c.hidden[key] = true
	}
	return nil
}

// IsVisible reports whether key names a visible layer.
func (c *Compositor) IsVisible(key string) bool {
	_, ok := c.actors[key]
	return ok && !c.hidden[key]
}

// VisibleKeys returns the visible layers in draw order, topmost first.
func (c *Compositor) VisibleKeys() []string {
	keys := make([]string, 0, len(c.order))
	for _, k := range c.order {
		if !c.hidden[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// BeforeRender hands the viewport to every visible layer and starts a
// frame on the backend.
func (c *Compositor) BeforeRender() {
	g := c.view.Geometry()
	for _, k := range c.VisibleKeys() {
		c.actors[k].SetViewport(g)
	}
	inv, ok := c.view.ScreenTransform().Invert()
	if !ok {
		inv = tileview.Identity()
	}
	c.backend.BeginFrame(gpu.Frame{Size: g.Size, ToScreen: inv, Clear: c.clear})
}

// LightRender draws the visible layers back to front from what they
// already hold.
func (c *Compositor) LightRender() {
	keys := c.VisibleKeys()
	for i := len(keys) - 1; i >= 0; i-- {
		c.actors[keys[i]].LightRender()
	}
}

// HeavyRender runs the heavy update of every visible layer in draw order,
// then draws them. It stops early only when ctx is done.
func (c *Compositor) HeavyRender(ctx context.Context) error {
	for _, k := range c.VisibleKeys() {
		if err := c.actors[k].HeavyUpdate(ctx); err != nil {
			return fmt.Errorf("view: heavy update of %q: %w", k, err)
		}
	}
	c.LightRender()
	return nil
}

// AfterRender finishes the frame and clears the viewport's dirty flag.
func (c *Compositor) AfterRender() error {
	err := c.backend.EndFrame()
	c.view.ClearDirty()
	return err
}

// Render runs a whole frame, heavy or light.
func (c *Compositor) Render(ctx context.Context, heavy bool) error {
	c.BeforeRender()
	if heavy {
		if err := c.HeavyRender(ctx); err != nil {
			_ = c.AfterRender()
			return err
		}
	} else {
		c.LightRender()
	}
	return c.AfterRender()
}

// Extent returns the union of the visible layers' extents.
func (c *Compositor) Extent() tileview.Rect {
	out := tileview.EmptyRect()
	for _, k := range c.VisibleKeys() {
		if e := c.actors[k].Extent(); !e.Empty() {
			out = out.Union(e)
		}
	}
	return out
}

// PixelAt samples the topmost visible raster with a resident tile under
// the viewport point.
func (c *Compositor) PixelAt(v tileview.Point) (string, layer.Sample, bool) {
	for _, k := range c.VisibleKeys() {
		p, ok := c.actors[k].(layer.Prober)
		if !ok {
			continue
		}
		if s, ok := p.PixelAt(v); ok {
			return k, s, true
		}
	}
	return "", layer.Sample{}, false
}

// ZoomToExtent fits r on screen.
func (c *Compositor) ZoomToExtent(r tileview.Rect) {
	c.view.ZoomToExtent(r)
}

// ZoomToLayer fits the extent of one layer on screen.
func (c *Compositor) ZoomToLayer(key string) error {
	l, ok := c.actors[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	l.SetViewport(c.view.Geometry())
	c.view.ZoomToExtent(l.Extent())
	return nil
}

// ZoomToFullResolution zooms about the screen center until one screen
// pixel shows one full-resolution pixel of the raster under key.
func (c *Compositor) ZoomToFullResolution(key string) error {
	l, ok := c.actors[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	r, ok := l.(*layer.Raster)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRaster, key)
	}
	scale := r.PixelScale(c.view.Geometry())
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil
	}
	c.view.Zoom(c.view.Extent().Center(), 1/scale)
	return nil
}

// Close closes every layer and the backend.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, k := range slices.Clone(c.order) {
		if l := c.actors[k]; l != nil {
			if err := l.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	clear(c.actors)
	c.order = nil
	errs = append(errs, c.backend.Close())
	return errors.Join(errs...)
}
