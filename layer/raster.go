package layer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/coords"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/internal/parallel"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/tile"
	"github.com/gogpu/tileview/viewport"
)

// Sample is a raster value under a viewport point.
type Sample = tile.Sample

type rasterOptions struct {
	name     string
	channels []int
	settings ImageSettings
	tileOpts []tile.Option
}

// RasterOption configures a Raster layer.
type RasterOption func(*rasterOptions)

// WithName overrides the layer name, which defaults to the raster name.
func WithName(name string) RasterOption {
	return func(o *rasterOptions) { o.name = name }
}

// WithChannels selects the channels shown: one for grayscale, three for
// RGB. Nil shows all channels.
func WithChannels(channels ...int) RasterOption {
	return func(o *rasterOptions) { o.channels = channels }
}

// WithImageSettings sets the initial shading.
func WithImageSettings(s ImageSettings) RasterOption {
	return func(o *rasterOptions) { o.settings = s }
}

// WithTileOptions passes options to the tile cache.
func WithTileOptions(opts ...tile.Option) RasterOption {
	return func(o *rasterOptions) { o.tileOpts = append(o.tileOpts, opts...) }
}

// Raster is a layer showing a raster dataset through a tile cache.
type Raster struct {
	name     string
	ds       raster.Dataset
	meta     raster.Metadata
	pair     *coords.Pair
	cache    *tile.Cache
	pool     *parallel.WorkerPool
	settings ImageSettings
}

// OpenRaster opens a raster file and wraps it in a layer. Open failures
// wrap raster.ErrOpen.
func OpenRaster(path string, backend gpu.Backend, registry *crs.Registry, opts ...RasterOption) (*Raster, error) {
	ds, err := raster.Open(path)
	if err != nil {
		return nil, err
	}
	opts = append([]RasterOption{WithName(filepath.Base(path))}, opts...)
	r, err := NewRaster(ds, backend, registry, opts...)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	return r, nil
}

// NewRaster creates a layer over ds. The layer owns ds and closes it.
func NewRaster(ds raster.Dataset, backend gpu.Backend, registry *crs.Registry, opts ...RasterOption) (*Raster, error) {
	o := rasterOptions{settings: DefaultImageSettings()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.settings.Validate(); err != nil {
		return nil, err
	}

	meta := ds.Metadata()
	if len(meta.Levels) == 0 || meta.Size.X <= 0 || meta.Size.Y <= 0 {
		return nil, fmt.Errorf("%w: %s has no pixels", raster.ErrOpen, meta.Name)
	}
	name := o.name
	if name == "" {
		name = meta.Name
	}

	r := &Raster{
		name:     name,
		ds:       ds,
		meta:     meta,
		pair:     coords.New(registry),
		pool:     parallel.NewWorkerPool(0),
		settings: o.settings,
	}
	tileOpts := append([]tile.Option{tile.WithColorizer(o.settings.colorizer(r.pool))}, o.tileOpts...)
	r.cache = tile.New(ds, backend, r.pair, tileOpts...)
	r.cache.SetAlpha(o.settings.Alpha)
	if o.channels != nil {
		if err := r.cache.SetChannels(o.channels); err != nil {
			r.pool.Close()
			return nil, err
		}
	}

	tileview.Logger().Info("layer: raster created",
		"name", name, "size", meta.Size, "channels", meta.Channels, "levels", meta.Levels,
		"crs", meta.Projection.String())
	return r, nil
}

func (r *Raster) Kind() Kind   { return KindRaster }
func (r *Raster) Name() string { return r.name }

// Metadata returns the raster metadata.
func (r *Raster) Metadata() raster.Metadata { return r.meta }

// Cache returns the tile cache of the layer.
func (r *Raster) Cache() *tile.Cache { return r.cache }

// Stats returns the tile cache counters.
func (r *Raster) Stats() tile.Stats { return r.cache.Stats() }

// Degraded returns the transform failure the layer fell back from, or nil.
func (r *Raster) Degraded() error { return r.pair.Degraded() }

// Extent returns the raster outline mapped to the viewport. Before the
// first SetViewport it is the physical extent.
func (r *Raster) Extent() tileview.Rect {
	if !r.pair.Built() {
		return r.meta.PhysicalExtent()
	}
	size := tileview.Pt(float64(r.meta.Size.X), float64(r.meta.Size.Y))
	c := [4]tileview.Point{{}, {X: size.X}, {X: size.X, Y: size.Y}, {Y: size.Y}}
	const steps = 8
	out := tileview.EmptyRect()
	for i := range c {
		a, b := c[i], c[(i+1)%4]
		for s := 0; s < steps; s++ {
			if v := r.pair.ToViewport(a.Lerp(b, float64(s)/steps), false); v.IsFinite() {
				out = out.Extend(v)
			}
		}
	}
	return out
}

func (r *Raster) SetViewport(g viewport.Geometry) { r.cache.SetViewport(g) }

// OnSettingsChanged rebuilds the colorizer, which evicts every tile.
func (r *Raster) OnSettingsChanged() {
	r.cache.SetColorizer(r.settings.colorizer(r.pool))
	r.cache.SetAlpha(r.settings.Alpha)
}

func (r *Raster) HeavyUpdate(ctx context.Context) error { return r.cache.HeavyUpdate(ctx) }

func (r *Raster) LightRender() { r.cache.LightRender() }

// Settings returns the current shading.
func (r *Raster) Settings() ImageSettings { return r.settings }

// SetImageSettings changes the shading. Only an alpha change keeps the
// resident tiles.
func (r *Raster) SetImageSettings(s ImageSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	old := r.settings
	r.settings = s
	if sameShading(old, s) {
		r.cache.SetAlpha(s.Alpha)
		return nil
	}
	r.OnSettingsChanged()
	return nil
}

func sameShading(a, b ImageSettings) bool {
	return floatsEqual(a.Min, b.Min) && floatsEqual(a.Max, b.Max) &&
		a.Gamma == b.Gamma && a.HasNoData == b.HasNoData && a.NoData == b.NoData
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetChannels changes the channel selection. Out of range channels wrap
// raster.ErrChannel.
func (r *Raster) SetChannels(channels ...int) error { return r.cache.SetChannels(channels) }

// Channels returns the channel selection; nil means all channels.
func (r *Raster) Channels() []int { return r.cache.Channels() }

// SetPolicy sets the resolution tie-break policy.
func (r *Raster) SetPolicy(p tile.Policy) { r.cache.SetPolicy(p) }

// PixelAt samples the resident tiles under a viewport point.
func (r *Raster) PixelAt(v tileview.Point) (Sample, bool) { return r.cache.PixelAt(v) }

// PixelScale returns how many level-0 raster pixels one screen pixel
// spans under g, or 0 if unknown.
func (r *Raster) PixelScale(g viewport.Geometry) float64 {
	r.cache.SetViewport(g)
	return r.pair.PixelScale(g, tile.DefaultProbeDistance)
}

// Close evicts every tile and closes the dataset.
func (r *Raster) Close() error {
	r.cache.Close()
	r.pool.Close()
	return r.ds.Close()
}
