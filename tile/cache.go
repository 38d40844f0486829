package tile

import (
	"context"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/coords"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/viewport"
)

// State is the pending work of a Cache.
type State int

const (
	// Idle means resident tiles and their corners are up to date.
	Idle State = iota
	// NeedsGeometryUpdate means corners are stale; residency is right.
	NeedsGeometryUpdate
	// NeedsDataUpdate means the resident set may be wrong.
	NeedsDataUpdate
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case NeedsGeometryUpdate:
		return "needs-geometry-update"
	case NeedsDataUpdate:
		return "needs-data-update"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sample is the answer to a PixelAt query.
type Sample struct {
	// Pixel is the level-0 pixel under the point.
	Pixel image.Point
	// LevelPixel is the same pixel at Level.
	LevelPixel image.Point
	// Level is the level the values were read from.
	Level int
	// Values holds one value per selected channel.
	Values []float32
}

// target is the tile set a viewport needs: a level and the viewport
// mapped to that level's pixels, before expansion to whole tiles.
type target struct {
	level  int
	region image.Rectangle
}

// Cache owns the resident tiles of one raster layer.
// It is not safe for concurrent use; the compositor drives it from one
// goroutine.
type Cache struct {
	ds      raster.Dataset
	meta    raster.Metadata
	backend gpu.Backend
	pair    *coords.Pair
	opts    options

	channels   []int
	channelKey string
	alpha      float64

	tiles   map[Key]*Tile
	geom    viewport.Geometry
	hasGeom bool
	state   State
	current target
	stats   Stats
}

// New creates an empty cache. The dataset metadata is read once here.
func New(ds raster.Dataset, backend gpu.Backend, pair *coords.Pair, opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		ds:         ds,
		meta:       ds.Metadata(),
		backend:    backend,
		pair:       pair,
		opts:       o,
		channelKey: ChannelKey(nil),
		alpha:      1,
		tiles:      make(map[Key]*Tile),
		state:      NeedsDataUpdate,
	}
}

// Metadata returns the raster metadata.
func (c *Cache) Metadata() raster.Metadata { return c.meta }

// Pair returns the transform pair used to place tiles.
func (c *Cache) Pair() *coords.Pair { return c.pair }

// State returns the pending work.
func (c *Cache) State() State { return c.state }

// Level returns the level of the last heavy update.
func (c *Cache) Level() int { return c.current.level }

// TileSize returns the tile edge length.
func (c *Cache) TileSize() int { return c.opts.tileSize }

// Policy returns the level tie-break policy.
func (c *Cache) Policy() Policy { return c.opts.policy }

// Channels returns the channel selection; nil means all channels.
func (c *Cache) Channels() []int { return slices.Clone(c.channels) }

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Resident = len(c.tiles)
	s.Level = c.current.level
	return s
}

// OnGeometryChanged marks the corners of resident tiles as stale.
func (c *Cache) OnGeometryChanged() {
	if c.state < NeedsGeometryUpdate {
		c.state = NeedsGeometryUpdate
	}
}

func (c *Cache) onDataChanged() {
	c.state = NeedsDataUpdate
}

// SetViewport hands the current viewport geometry to the cache. The
// transform pair is rebuilt if needed; the cache then needs a geometry
// update, and a data update if the required tile set changed.
func (c *Cache) SetViewport(g viewport.Geometry) {
	c.geom = g
	c.hasGeom = true
	if c.pair.Update(g, c.meta) {
		c.OnGeometryChanged()
	}
	if t, ok := c.target(); ok && t != c.current {
		c.onDataChanged()
	}
}

// SetChannels selects the channels read for each tile; nil selects all.
// Tiles with the old selection are evicted by the next heavy update.
func (c *Cache) SetChannels(channels []int) error {
	if err := c.meta.ValidateChannels(channels); err != nil {
		return err
	}
	key := ChannelKey(channels)
	if key == c.channelKey {
		return nil
	}
	c.channels = slices.Clone(channels)
	c.channelKey = key
	c.onDataChanged()
	return nil
}

// SetPolicy changes the level tie-break policy.
func (c *Cache) SetPolicy(p Policy) {
	if p == c.opts.policy {
		return
	}
	c.opts.policy = p
	c.onDataChanged()
}

// SetColorizer changes how samples become texture pixels. Every resident
// tile is evicted because its texture was built with the old one.
func (c *Cache) SetColorizer(fn Colorizer) {
	if fn == nil {
		fn = DefaultColorizer
	}
	c.opts.colorizer = fn
	c.Flush()
}

// SetAlpha sets the opacity tiles are drawn with.
func (c *Cache) SetAlpha(a float64) {
	c.alpha = math.Max(0, math.Min(1, a))
}

// target computes the tile set the current viewport needs.
func (c *Cache) target() (target, bool) {
	if !c.hasGeom {
		return target{}, false
	}
	scale := c.pair.PixelScale(c.geom, c.opts.probe)
	level, ok := SelectLevel(c.meta.Levels, scale, c.opts.policy)
	if !ok {
		return target{}, false
	}

	mapped := c.pair.RectToRaster(c.geom.Extent()).
		Intersect(tileview.RectFromPixels(c.meta.Bounds()))
	if mapped.Empty() {
		return target{}, false
	}
	f := math.Ldexp(1, level)
	region := image.Rect(
		int(math.Floor(mapped.Min.X/f)),
		int(math.Floor(mapped.Min.Y/f)),
		int(math.Ceil(mapped.Max.X/f)),
		int(math.Ceil(mapped.Max.Y/f)),
	).Intersect(c.meta.LevelBounds(level))
	if region.Empty() {
		return target{}, false
	}
	return target{level: level, region: region}, true
}

// HeavyUpdate brings the resident set in line with the viewport: corners
// of resident tiles are recomputed, stale tiles are evicted, then missing
// tiles are read and uploaded. A tile that fails to load is skipped and
// retried by the next heavy update. Degenerate geometry (zero spacing,
// viewport off the raster, no levels) leaves the cache untouched.
//
// The only error returned is ctx.Err() when ctx is canceled between two
// tile loads; tiles loaded so far stay resident.
func (c *Cache) HeavyUpdate(ctx context.Context) error {
	if !c.hasGeom {
		return nil
	}
	c.updateCorners()

	t, ok := c.target()
	if !ok {
		c.state = Idle
		return nil
	}
	c.current = t

	var evicted int
	for k := range c.tiles {
		if !c.wanted(k, t) {
			c.evict(k)
			evicted++
		}
	}

	var loaded, failed int
	for _, cell := range Cells(t.region, c.opts.tileSize) {
		key := Key{Cell: cell, Level: t.level, Channels: c.channelKey, Size: c.opts.tileSize}
		if _, ok := c.tiles[key]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			c.state = NeedsDataUpdate
			return err
		}
		if c.load(ctx, key) {
			loaded++
		} else {
			failed++
		}
	}

	c.state = Idle
	if failed > 0 {
		c.state = NeedsDataUpdate
	}
	tileview.Logger().Debug("tile: heavy update",
		"raster", c.meta.Name, "level", t.level, "region", t.region,
		"loaded", loaded, "evicted", evicted, "failed", failed, "resident", len(c.tiles))
	return nil
}

func (c *Cache) wanted(k Key, t target) bool {
	return k.Level == t.level &&
		k.Channels == c.channelKey &&
		k.Size == c.opts.tileSize &&
		k.Cell.Overlaps(t.region)
}

func (c *Cache) load(ctx context.Context, key Key) bool {
	rect := key.Cell.Intersect(c.meta.LevelBounds(key.Level))
	buf, err := c.ds.ReadBlock(ctx, key.Level, c.channels, rect)
	if err != nil {
		c.stats.ReadFailures++
		tileview.Logger().Warn("tile: read failed", "raster", c.meta.Name, "tile", key.String(), "err", err)
		return false
	}
	if buf.Empty() {
		return false
	}

	pix := c.opts.colorizer(buf)
	id, err := c.backend.UploadTexture(buf.Rect.Dx(), buf.Rect.Dy(), pix)
	if err != nil {
		c.stats.UploadFailures++
		tileview.Logger().Warn("tile: upload failed", "raster", c.meta.Name, "tile", key.String(), "err", err)
		return false
	}

	t := &Tile{Key: key, Rect: buf.Rect, Texture: id}
	if c.opts.keepBuffers {
		t.Buffer = buf
	}
	c.placeTile(t)
	c.tiles[key] = t
	c.stats.Loaded++
	return true
}

// evict is the only way a tile leaves the resident set; its texture is
// released before it returns.
func (c *Cache) evict(k Key) {
	t, ok := c.tiles[k]
	if !ok {
		return
	}
	delete(c.tiles, k)
	c.backend.ReleaseTexture(t.Texture)
	c.stats.Evicted++
}

// Flush evicts every resident tile and asks for a data update.
func (c *Cache) Flush() {
	for k := range c.tiles {
		c.evict(k)
	}
	c.onDataChanged()
}

// Close evicts every resident tile.
func (c *Cache) Close() {
	for k := range c.tiles {
		c.evict(k)
	}
}

func (c *Cache) placeTile(t *Tile) {
	r := t.PixelRect(c.meta.Size)
	ul := tileview.Pt(float64(r.Min.X), float64(r.Min.Y))
	lr := tileview.Pt(float64(r.Max.X), float64(r.Max.Y))
	t.Corners = [4]tileview.Point{
		c.pair.ToViewport(ul, false),
		c.pair.ToViewport(tileview.Pt(lr.X, ul.Y), false),
		c.pair.ToViewport(tileview.Pt(ul.X, lr.Y), false),
		c.pair.ToViewport(lr, false),
	}
	t.cornersGen = uint64(c.pair.Rebuilds())
}

func (c *Cache) updateCorners() {
	gen := uint64(c.pair.Rebuilds())
	for _, t := range c.tiles {
		if t.cornersGen != gen {
			c.placeTile(t)
		}
	}
	if c.state == NeedsGeometryUpdate {
		c.state = Idle
	}
}

// LightRender draws the resident tiles with their corners, recomputing
// stale corners first. It never reads or uploads.
func (c *Cache) LightRender() {
	c.updateCorners()
	if c.alpha <= 0 {
		return
	}
	for _, t := range c.sorted() {
		c.backend.DrawTexturedQuad(t.Texture, t.Corners, c.alpha)
	}
}

// Resident returns a snapshot of the resident tiles ordered by level, row
// and column. Later updates do not change the returned values.
func (c *Cache) Resident() []Tile {
	sorted := c.sorted()
	tiles := make([]Tile, len(sorted))
	for i, t := range sorted {
		tiles[i] = *t
	}
	return tiles
}

func (c *Cache) sorted() []*Tile {
	tiles := make([]*Tile, 0, len(c.tiles))
	for _, t := range c.tiles {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, func(a, b *Tile) int {
		if d := b.Key.Level - a.Key.Level; d != 0 {
			return d
		}
		if d := a.Key.Cell.Min.Y - b.Key.Cell.Min.Y; d != 0 {
			return d
		}
		return a.Key.Cell.Min.X - b.Key.Cell.Min.X
	})
	return tiles
}

// Keys returns the keys of the resident tiles, in Resident order.
func (c *Cache) Keys() []Key {
	tiles := c.sorted()
	keys := make([]Key, len(tiles))
	for i, t := range tiles {
		keys[i] = t.Key
	}
	return keys
}

// PixelAt returns the raster sample under a viewport point from the
// resident tile covering it. The boolean is false when no resident tile
// covers the point; the pixel may exist but is currently unknown.
func (c *Cache) PixelAt(v tileview.Point) (Sample, bool) {
	if !c.pair.Built() {
		return Sample{}, false
	}
	r := c.pair.ToRaster(v, false)
	if !r.IsFinite() {
		return Sample{}, false
	}
	px := image.Pt(int(math.Floor(r.X)), int(math.Floor(r.Y)))
	if !px.In(c.meta.Bounds()) {
		return Sample{}, false
	}

	level, size := c.current.level, c.opts.tileSize
	lp := image.Pt(px.X>>level, px.Y>>level)
	x0, y0 := floorDiv(lp.X, size)*size, floorDiv(lp.Y, size)*size
	key := Key{
		Cell:     image.Rect(x0, y0, x0+size, y0+size),
		Level:    level,
		Channels: c.channelKey,
		Size:     size,
	}
	t, ok := c.tiles[key]
	if !ok || t.Buffer == nil {
		return Sample{}, false
	}
	values, ok := t.Buffer.Sample(lp.X, lp.Y)
	if !ok {
		return Sample{}, false
	}
	return Sample{Pixel: px, LevelPixel: lp, Level: level, Values: values}, true
}
