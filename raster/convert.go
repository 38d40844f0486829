package raster

import (
	"image"
	"image/color"

	"github.com/gogpu/tileview/internal/parallel"
)

// FromImage converts a decoded image to a level-0 buffer whose Rect starts
// at (0, 0). Gray images give one channel, opaque color images three,
// others four (non-premultiplied RGBA). 8-bit sources keep the 0..255
// range and 16-bit sources 0..65535.
func FromImage(img image.Image) *Buffer {
	b := img.Bounds()
	channels, wide := imageLayout(img)
	buf := NewBuffer(image.Rectangle{Max: b.Size()}, channels)

	div := float32(1)
	if !wide {
		div = 257
	}

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	pool.Rows(b.Dy(), func(lo, hi int) {
		for y := lo; y < hi; y++ {
			o := buf.Offset(0, y)
			for x := 0; x < b.Dx(); x++ {
				c := img.At(b.Min.X+x, b.Min.Y+y)
				if channels == 1 {
					g := color.Gray16Model.Convert(c).(color.Gray16)
					buf.Pix[o] = float32(g.Y) / div
				} else {
					n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
					buf.Pix[o] = float32(n.R) / div
					buf.Pix[o+1] = float32(n.G) / div
					buf.Pix[o+2] = float32(n.B) / div
					if channels == 4 {
						buf.Pix[o+3] = float32(n.A) / div
					}
				}
				o += channels
			}
		}
	})
	return buf
}

func imageLayout(img image.Image) (channels int, wide bool) {
	switch img.(type) {
	case *image.Gray:
		return 1, false
	case *image.Gray16:
		return 1, true
	case *image.RGBA64, *image.NRGBA64:
		wide = true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3, wide
	}
	return 4, wide
}
