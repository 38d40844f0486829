package tile

// Defaults.
const (
	DefaultTileSize      = 256
	DefaultProbeDistance = 100
)

type options struct {
	tileSize    int
	probe       float64
	policy      Policy
	keepBuffers bool
	colorizer   Colorizer
}

func defaultOptions() options {
	return options{
		tileSize:    DefaultTileSize,
		probe:       DefaultProbeDistance,
		policy:      Nearest,
		keepBuffers: true,
		colorizer:   DefaultColorizer,
	}
}

// Option configures a Cache.
type Option func(*options)

// WithTileSize sets the tile edge length in pixels. Non-positive values
// are ignored.
func WithTileSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.tileSize = n
		}
	}
}

// WithProbeDistance sets the screen distance, in pixels, over which the
// zoom is measured for level selection. Non-positive values are ignored.
func WithProbeDistance(px float64) Option {
	return func(o *options) {
		if px > 0 {
			o.probe = px
		}
	}
}

// WithPolicy sets the level tie-break policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithKeepBuffers keeps each tile's pixels after upload so that PixelAt
// can answer. On by default.
func WithKeepBuffers(keep bool) Option {
	return func(o *options) {
		o.keepBuffers = keep
	}
}

// WithColorizer sets the conversion from raster samples to texture pixels.
func WithColorizer(c Colorizer) Option {
	return func(o *options) {
		if c != nil {
			o.colorizer = c
		}
	}
}
