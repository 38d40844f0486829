package gpu

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/tileview"
)

func solid(w, h int, c color.RGBA) []byte {
	pix := make([]byte, 4*w*h)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return pix
}

func TestSoftwareUploadRelease(t *testing.T) {
	s := NewSoftware(16, 16)
	id, err := s.UploadTexture(4, 4, solid(4, 4, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("UploadTexture returned the zero ID")
	}
	if s.Textures() != 1 {
		t.Errorf("Textures() = %d, want 1", s.Textures())
	}
	s.ReleaseTexture(id)
	s.ReleaseTexture(id)
	if s.Textures() != 0 {
		t.Errorf("Textures() after release = %d, want 0", s.Textures())
	}
}

func TestSoftwareUploadErrors(t *testing.T) {
	s := NewSoftware(4, 4)
	tests := []struct {
		name string
		w, h int
		pix  []byte
		want error
	}{
		{"zero size", 0, 4, nil, ErrEmptyTexture},
		{"short pixels", 2, 2, make([]byte, 15), ErrPixelSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.UploadTexture(tt.w, tt.h, tt.pix); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	s.Close()
	if _, err := s.UploadTexture(1, 1, make([]byte, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("upload after Close error = %v, want ErrClosed", err)
	}
}

func TestSoftwareDrawTexturedQuad(t *testing.T) {
	s := NewSoftware(20, 20)
	red := color.RGBA{R: 255, A: 255}
	id, err := s.UploadTexture(4, 4, solid(4, 4, red))
	if err != nil {
		t.Fatal(err)
	}

	// Viewport units are half a screen pixel.
	s.BeginFrame(Frame{Size: image.Pt(20, 20), ToScreen: tileview.Scale(0.5, 0.5), Clear: color.Black})
	r := tileview.Rect{Min: tileview.Pt(4, 4), Max: tileview.Pt(20, 20)}
	s.DrawTexturedQuad(id, r.Corners(), 1)
	if err := s.EndFrame(); err != nil {
		t.Fatal(err)
	}

	img := s.Image()
	if got := img.RGBAAt(5, 5); got != red {
		t.Errorf("inside pixel = %v, want %v", got, red)
	}
	if got := img.RGBAAt(15, 15); got != (color.RGBA{A: 255}) {
		t.Errorf("outside pixel = %v, want opaque black", got)
	}
}

func TestSoftwareDrawTexturedQuadAlpha(t *testing.T) {
	s := NewSoftware(8, 8)
	id, _ := s.UploadTexture(1, 1, solid(1, 1, color.RGBA{R: 255, A: 255}))
	s.BeginFrame(Frame{ToScreen: tileview.Identity(), Clear: color.Transparent})
	s.DrawTexturedQuad(id, tileview.Rect{Max: tileview.Pt(8, 8)}.Corners(), 0.5)

	got := s.Image().RGBAAt(4, 4)
	if got.A < 120 || got.A > 135 {
		t.Errorf("alpha = %d, want about 128", got.A)
	}
}

func TestSoftwareDrawNonAffineQuad(t *testing.T) {
	s := NewSoftware(32, 32)
	green := color.RGBA{G: 255, A: 255}
	id, _ := s.UploadTexture(2, 2, solid(2, 2, green))
	s.BeginFrame(Frame{ToScreen: tileview.Identity(), Clear: color.Transparent})

	// A trapezoid: the lower edge is wider than the upper one.
	corners := [4]tileview.Point{{X: 10, Y: 2}, {X: 22, Y: 2}, {X: 2, Y: 30}, {X: 30, Y: 30}}
	s.DrawTexturedQuad(id, corners, 1)

	img := s.Image()
	for _, p := range []image.Point{{16, 5}, {4, 28}, {28, 28}, {16, 16}} {
		if got := img.RGBAAt(p.X, p.Y); got != green {
			t.Errorf("pixel %v = %v, want %v", p, got, green)
		}
	}
	for _, p := range []image.Point{{3, 4}, {29, 4}} {
		if got := img.RGBAAt(p.X, p.Y); got.A != 0 {
			t.Errorf("pixel %v outside the trapezoid = %v", p, got)
		}
	}
}

func TestSoftwareDrawPolyline(t *testing.T) {
	s := NewSoftware(20, 20)
	s.BeginFrame(Frame{ToScreen: tileview.Identity(), Clear: color.Transparent})
	blue := color.NRGBA{B: 255, A: 255}

	s.DrawPolyline([]tileview.Point{{X: 2, Y: 10}, {X: 18, Y: 10}}, false, Style{Color: blue, Width: 2})

	img := s.Image()
	if got := img.RGBAAt(10, 10); got.B < 250 || got.A < 250 {
		t.Errorf("pixel on the line = %v, want blue", got)
	}
	if got := img.RGBAAt(10, 14); got.A != 0 {
		t.Errorf("pixel off the line = %v, want transparent", got)
	}
}

func TestSoftwareFillPolygon(t *testing.T) {
	s := NewSoftware(20, 20)
	s.BeginFrame(Frame{ToScreen: tileview.Identity(), Clear: color.Transparent})
	box := []tileview.Point{{X: 2, Y: 2}, {X: 18, Y: 2}, {X: 18, Y: 18}, {X: 2, Y: 18}}

	s.DrawPolyline(box, true, Style{Color: color.NRGBA{R: 255, A: 255}, Fill: true, FillAlpha: 0.5})

	got := s.Image().RGBAAt(10, 10)
	if got.A < 120 || got.A > 135 {
		t.Errorf("fill alpha = %d, want about 128", got.A)
	}
}

func TestSoftwareBeginFrameResizes(t *testing.T) {
	s := NewSoftware(4, 4)
	s.BeginFrame(Frame{Size: image.Pt(10, 6), ToScreen: tileview.Identity()})
	if got := s.Image().Bounds().Size(); got != image.Pt(10, 6) {
		t.Errorf("target size = %v, want (10,6)", got)
	}
}
