package raster

import "image"

// Buffer is a block of multi-channel float32 samples.
// Samples are interleaved and rows are stored top to bottom; Rect is in
// the pixel coordinates of the level the block was read from.
type Buffer struct {
	Rect     image.Rectangle
	Channels int
	Pix      []float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(r image.Rectangle, channels int) *Buffer {
	r = r.Canon()
	return &Buffer{
		Rect:     r,
		Channels: channels,
		Pix:      make([]float32, r.Dx()*r.Dy()*channels),
	}
}

// Bounds returns b.Rect.
func (b *Buffer) Bounds() image.Rectangle { return b.Rect }

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool { return b == nil || b.Rect.Empty() }

// Offset returns the index in Pix of channel 0 of pixel (x, y), or -1 if
// the pixel is outside the buffer.
func (b *Buffer) Offset(x, y int) int {
	if !(image.Point{X: x, Y: y}.In(b.Rect)) {
		return -1
	}
	return ((y-b.Rect.Min.Y)*b.Rect.Dx() + (x - b.Rect.Min.X)) * b.Channels
}

// At returns channel c of pixel (x, y), 0 outside the buffer.
func (b *Buffer) At(x, y, c int) float32 {
	i := b.Offset(x, y)
	if i < 0 || c < 0 || c >= b.Channels {
		return 0
	}
	return b.Pix[i+c]
}

// Set stores channel c of pixel (x, y). Out-of-range writes are ignored.
func (b *Buffer) Set(x, y, c int, v float32) {
	i := b.Offset(x, y)
	if i < 0 || c < 0 || c >= b.Channels {
		return
	}
	b.Pix[i+c] = v
}

// Sample returns a copy of all channels of pixel (x, y).
func (b *Buffer) Sample(x, y int) ([]float32, bool) {
	i := b.Offset(x, y)
	if i < 0 {
		return nil, false
	}
	out := make([]float32, b.Channels)
	copy(out, b.Pix[i:i+b.Channels])
	return out, true
}

// Extract copies the part of b inside r, keeping only the listed channels
// in the listed order. Nil channels keeps all of them.
func (b *Buffer) Extract(r image.Rectangle, channels []int) *Buffer {
	if channels == nil {
		channels = identityChannels(b.Channels)
	}
	r = r.Intersect(b.Rect)
	out := NewBuffer(r, len(channels))
	w := r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := b.Offset(r.Min.X, y)
		dst := out.Offset(r.Min.X, y)
		for x := 0; x < w; x++ {
			for k, c := range channels {
				out.Pix[dst+k] = b.Pix[src+c]
			}
			src += b.Channels
			dst += out.Channels
		}
	}
	return out
}

func identityChannels(n int) []int {
	ch := make([]int, n)
	for i := range ch {
		ch[i] = i
	}
	return ch
}
