package tile

import (
	"math"

	"github.com/gogpu/tileview/raster"
)

// Colorizer converts a block of samples to premultiplied RGBA8 pixels,
// 4*width*height bytes, rows top to bottom.
type Colorizer func(b *raster.Buffer) []byte

// DefaultColorizer maps samples in 0..255 directly: one channel is gray,
// two are gray and alpha, three are RGB and four RGBA.
func DefaultColorizer(b *raster.Buffer) []byte {
	n := b.Rect.Dx() * b.Rect.Dy()
	out := make([]byte, 4*n)
	ch := b.Channels
	for i := 0; i < n; i++ {
		s := b.Pix[i*ch : (i+1)*ch]
		var r, g, bl, a float32
		switch ch {
		case 0:
			continue
		case 1:
			r, g, bl, a = s[0], s[0], s[0], 255
		case 2:
			r, g, bl, a = s[0], s[0], s[0], s[1]
		case 3:
			r, g, bl, a = s[0], s[1], s[2], 255
		default:
			r, g, bl, a = s[0], s[1], s[2], s[3]
		}
		alpha := clamp8(a)
		k := float32(alpha) / 255
		o := out[i*4 : i*4+4]
		o[0] = clamp8(r * k)
		o[1] = clamp8(g * k)
		o[2] = clamp8(bl * k)
		o[3] = alpha
	}
	return out
}

func clamp8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(float64(v)))
}
