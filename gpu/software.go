// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/gogpu/tileview"
)

// SoftwareOption configures a Software backend.
type SoftwareOption func(*Software)

// WithInterpolation selects the texture sampler, draw.NearestNeighbor by
// default. draw.ApproxBiLinear and draw.BiLinear smooth magnified tiles.
func WithInterpolation(i draw.Interpolator) SoftwareOption {
	return func(s *Software) {
		s.interp = i
	}
}

// Software is a CPU Backend drawing into an *image.RGBA.
type Software struct {
	mu       sync.Mutex
	target   *image.RGBA
	textures map[TextureID]*image.RGBA
	frame    Frame
	interp   draw.Interpolator
	closed   bool
}

// NewSoftware creates a backend with a width x height target.
func NewSoftware(width, height int, opts ...SoftwareOption) *Software {
	s := &Software{
		target:   image.NewRGBA(image.Rect(0, 0, width, height)),
		textures: make(map[TextureID]*image.RGBA),
		frame:    Frame{ToScreen: tileview.Identity()},
		interp:   draw.NearestNeighbor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Backend.
func (s *Software) Name() string { return "software" }

// Format returns the pixel format of the target and of every texture.
func (s *Software) Format() gputypes.TextureFormat { return TextureFormat }

// Image returns the render target. It stays valid until the next Resize.
func (s *Software) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Resize reallocates the target. Textures are kept.
func (s *Software) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target.Rect.Dx() == width && s.target.Rect.Dy() == height {
		return
	}
	s.target = image.NewRGBA(image.Rect(0, 0, width, height))
}

// UploadTexture implements Backend.
func (s *Software) UploadTexture(width, height int, pix []byte) (TextureID, error) {
	if err := checkUpload(width, height, pix); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	id := nextTextureID()
	s.textures[id] = img
	return id, nil
}

// ReleaseTexture implements Backend.
func (s *Software) ReleaseTexture(id TextureID) {
	s.mu.Lock()
	delete(s.textures, id)
	s.mu.Unlock()
}

// Textures implements Backend.
func (s *Software) Textures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures)
}

// BeginFrame implements Backend. A frame size different from the target
// size resizes the target.
func (s *Software) BeginFrame(f Frame) {
	if !f.Size.Eq(image.Point{}) {
		s.Resize(f.Size.X, f.Size.Y)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
	if f.Clear != nil {
		draw.Draw(s.target, s.target.Bounds(), image.NewUniform(f.Clear), image.Point{}, draw.Src)
	}
}

// EndFrame implements Backend.
func (s *Software) EndFrame() error { return nil }

// DrawTexturedQuad implements Backend. Parallelograms are mapped with one
// affine transform; other quads are split along the UR-LL diagonal into
// two triangles, each mapped affinely.
func (s *Software) DrawTexturedQuad(id TextureID, corners [4]tileview.Point, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tex, ok := s.textures[id]
	if !ok || alpha <= 0 {
		return
	}
	var scr [4]tileview.Point
	for i, c := range corners {
		scr[i] = s.frame.ToScreen.TransformPoint(c)
		if !scr[i].IsFinite() {
			return
		}
	}
	ul, ur, ll, lr := scr[0], scr[1], scr[2], scr[3]
	w, h := float64(tex.Rect.Dx()), float64(tex.Rect.Dy())

	opts := &draw.Options{}
	if alpha < 1 {
		opts.SrcMask = image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})
	}

	upper := f64.Aff3{
		(ur.X - ul.X) / w, (ll.X - ul.X) / h, ul.X,
		(ur.Y - ul.Y) / w, (ll.Y - ul.Y) / h, ul.Y,
	}
	if lr.ApproxEqual(ur.Add(ll).Sub(ul), 0.5) {
		s.interp.Transform(s.target, upper, tex, tex.Rect, draw.Over, opts)
		return
	}

	lower := f64.Aff3{
		(lr.X - ll.X) / w, (lr.X - ur.X) / h, ll.X + ur.X - lr.X,
		(lr.Y - ll.Y) / w, (lr.Y - ur.Y) / h, ll.Y + ur.Y - lr.Y,
	}
	opts.DstMask = s.triangleMask(ul, ur, ll)
	s.interp.Transform(s.target, upper, tex, tex.Rect, draw.Over, opts)
	opts.DstMask = s.triangleMask(ur, lr, ll)
	s.interp.Transform(s.target, lower, tex, tex.Rect, draw.Over, opts)
}

func (s *Software) triangleMask(a, b, c tileview.Point) *image.Alpha {
	size := s.target.Rect.Size()
	mask := image.NewAlpha(image.Rectangle{Max: size})
	z := vector.NewRasterizer(size.X, size.Y)
	z.MoveTo(float32(a.X), float32(a.Y))
	z.LineTo(float32(b.X), float32(b.Y))
	z.LineTo(float32(c.X), float32(c.Y))
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// DrawPolyline implements Backend.
func (s *Software) DrawPolyline(pts []tileview.Point, closed bool, style Style) {
	if len(pts) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scr := make([]tileview.Point, 0, len(pts))
	for _, p := range pts {
		if q := s.frame.ToScreen.TransformPoint(p); q.IsFinite() {
			scr = append(scr, q)
		}
	}
	if len(scr) == 0 {
		return
	}
	size := s.target.Rect.Size()

	if style.Fill && style.FillAlpha > 0 && len(scr) >= 3 {
		fill := style.Color
		fill.A = uint8(math.Round(float64(fill.A) * math.Min(style.FillAlpha, 1)))
		z := vector.NewRasterizer(size.X, size.Y)
		z.MoveTo(float32(scr[0].X), float32(scr[0].Y))
		for _, p := range scr[1:] {
			z.LineTo(float32(p.X), float32(p.Y))
		}
		z.ClosePath()
		z.Draw(s.target, s.target.Bounds(), image.NewUniform(fill), image.Point{})
	}

	if style.Width <= 0 {
		return
	}
	if closed || style.Fill {
		scr = append(scr, scr[0])
	}
	z := vector.NewRasterizer(size.X, size.Y)
	hw := style.Width / 2
	if len(scr) == 1 {
		addSquare(z, scr[0], hw)
	}
	for i := 1; i < len(scr); i++ {
		addSegment(z, scr[i-1], scr[i], hw)
	}
	z.Draw(s.target, s.target.Bounds(), image.NewUniform(style.Color), image.Point{})
}

// addSegment adds a rectangle of half-width hw around segment a-b,
// extended by hw at both ends so consecutive segments overlap at joints.
func addSegment(z *vector.Rasterizer, a, b tileview.Point, hw float64) {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 {
		addSquare(z, a, hw)
		return
	}
	u := d.Div(l).Mul(hw)
	n := tileview.Pt(-u.Y, u.X)
	a, b = a.Sub(u), b.Add(u)
	quad := [4]tileview.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}
	z.MoveTo(float32(quad[0].X), float32(quad[0].Y))
	for _, p := range quad[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

func addSquare(z *vector.Rasterizer, c tileview.Point, hw float64) {
	z.MoveTo(float32(c.X-hw), float32(c.Y-hw))
	z.LineTo(float32(c.X+hw), float32(c.Y-hw))
	z.LineTo(float32(c.X+hw), float32(c.Y+hw))
	z.LineTo(float32(c.X-hw), float32(c.Y+hw))
	z.ClosePath()
}

// Close implements Backend.
func (s *Software) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.textures)
	s.closed = true
	return nil
}

var _ Backend = (*Software)(nil)
