package layer

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/tileview/internal/parallel"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/tile"
)

// ErrSettings is returned for invalid image settings.
var ErrSettings = errors.New("layer: invalid image settings")

// ImageSettings control how raster samples are shaded. The stretch and the
// no-data value are baked into textures; Alpha is applied at draw time.
type ImageSettings struct {
	// Min and Max are the per-output-channel stretch bounds: Min maps to
	// black and Max to full intensity. Empty means 0 and 255 for every
	// channel; a single entry applies to all channels.
	Min, Max []float64

	// Gamma applied after the stretch. Zero means 1.
	Gamma float64

	// NoData samples are drawn transparent when HasNoData is set.
	NoData    float64
	HasNoData bool

	// Alpha is the layer opacity in [0, 1].
	Alpha float64
}

// DefaultImageSettings returns a 0..255 linear stretch, fully opaque.
func DefaultImageSettings() ImageSettings {
	return ImageSettings{Gamma: 1, Alpha: 1}
}

// Validate checks the settings.
func (s ImageSettings) Validate() error {
	if len(s.Min) != len(s.Max) {
		return fmt.Errorf("%w: %d min values for %d max values", ErrSettings, len(s.Min), len(s.Max))
	}
	for i := range s.Min {
		if s.Min[i] == s.Max[i] || math.IsNaN(s.Min[i]) || math.IsNaN(s.Max[i]) {
			return fmt.Errorf("%w: empty stretch [%g, %g] on channel %d", ErrSettings, s.Min[i], s.Max[i], i)
		}
	}
	if s.Gamma < 0 || math.IsNaN(s.Gamma) {
		return fmt.Errorf("%w: gamma %g", ErrSettings, s.Gamma)
	}
	if !(s.Alpha >= 0 && s.Alpha <= 1) {
		return fmt.Errorf("%w: alpha %g", ErrSettings, s.Alpha)
	}
	return nil
}

func (s ImageSettings) bounds(c int) (lo, hi float64) {
	switch {
	case len(s.Min) == 0:
		return 0, 255
	case c < len(s.Min):
		return s.Min[c], s.Max[c]
	}
	return s.Min[0], s.Max[0]
}

// shade maps one sample of output channel c to 0..1.
func (s ImageSettings) shade(v float32, c int) float64 {
	lo, hi := s.bounds(c)
	t := (float64(v) - lo) / (hi - lo)
	t = math.Max(0, math.Min(1, t))
	if s.Gamma > 0 && s.Gamma != 1 {
		t = math.Pow(t, 1/s.Gamma)
	}
	return t
}

// colorizer returns the tile colorizer for these settings. Rows are shaded
// in parallel on pool.
func (s ImageSettings) colorizer(pool *parallel.WorkerPool) tile.Colorizer {
	return func(b *raster.Buffer) []byte {
		w, h := b.Rect.Dx(), b.Rect.Dy()
		out := make([]byte, 4*w*h)
		pool.Rows(h, func(lo, hi int) {
			for i := lo * w; i < hi*w; i++ {
				s.shadePixel(b.Pix[i*b.Channels:(i+1)*b.Channels], out[i*4:i*4+4])
			}
		})
		return out
	}
}

// shadePixel writes the premultiplied RGBA of one pixel: one channel is
// gray, two are gray and alpha, three are RGB and four RGBA. The alpha
// channel is not stretched.
func (s ImageSettings) shadePixel(px []float32, o []byte) {
	if len(px) == 0 {
		return
	}
	if s.HasNoData && isNoData(px, s.NoData) {
		return
	}
	var rgb [3]float64
	alpha := 1.0
	switch len(px) {
	case 1, 2:
		g := s.shade(px[0], 0)
		rgb = [3]float64{g, g, g}
		if len(px) == 2 {
			alpha = float64(px[1]) / 255
		}
	default:
		for c := range rgb {
			rgb[c] = s.shade(px[c], c)
		}
		if len(px) > 3 {
			alpha = float64(px[3]) / 255
		}
	}
	alpha = math.Max(0, math.Min(1, alpha))
	for c := range rgb {
		o[c] = uint8(math.Round(rgb[c] * alpha * 255))
	}
	o[3] = uint8(math.Round(alpha * 255))
}

// isNoData reports whether every color channel equals the no-data value.
func isNoData(px []float32, nodata float64) bool {
	n := min(len(px), 3)
	if len(px) == 2 {
		n = 1
	}
	for _, v := range px[:n] {
		if float64(v) != nodata {
			return false
		}
	}
	return true
}
