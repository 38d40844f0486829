package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/tileview/tile"
)

func writeTestRaster(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	path := filepath.Join(dir, "ramp.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWritesView(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "view.png")
	cfg := config{
		width:   120,
		height:  80,
		output:  out,
		rasters: []string{writeTestRaster(t, dir), filepath.Join(dir, "missing.png")},
		policy:  tile.Nearest,
		zoom:    1,
		rotate:  15,
		roi:     []float64{10, 10, 30, 20},
	}
	n, err := run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Errorf("layers = %d, want the raster and the roi", n)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(120, 80) {
		t.Errorf("output size = %v, want 120x80", got)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config
	}{
		{"nothing to show", config{width: 10, height: 10, output: filepath.Join(dir, "a.png")}},
		{"unwritable output", config{
			width:   10,
			height:  10,
			output:  filepath.Join(dir, "no", "such", "dir", "b.png"),
			rasters: []string{writeTestRaster(t, dir)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(context.Background(), tt.cfg); err == nil {
				t.Error("run succeeded, want an error")
			}
		})
	}
}

func TestParseLists(t *testing.T) {
	if got := splitList(" a, ,b ,"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitList = %q", got)
	}
	if got, err := parseInts("2, 1,0"); err != nil || len(got) != 3 || got[0] != 2 || got[2] != 0 {
		t.Errorf("parseInts = %v, %v", got, err)
	}
	if got, _ := parseInts(""); got != nil {
		t.Errorf("parseInts(\"\") = %v, want nil", got)
	}
	if _, err := parseInts("x"); err == nil {
		t.Error("parseInts(x) should fail")
	}
	if got, err := parseFloats("1.5,-2"); err != nil || len(got) != 2 || got[1] != -2 {
		t.Errorf("parseFloats = %v, %v", got, err)
	}
}
