package layer

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/tileview/internal/parallel"
	"github.com/gogpu/tileview/raster"
)

func TestImageSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       ImageSettings
		wantErr bool
	}{
		{"default", DefaultImageSettings(), false},
		{"stretch", ImageSettings{Min: []float64{0, 10, 20}, Max: []float64{100, 110, 120}, Alpha: 1}, false},
		{"inverted stretch", ImageSettings{Min: []float64{100}, Max: []float64{0}, Alpha: 1}, false},
		{"length mismatch", ImageSettings{Min: []float64{0}, Max: []float64{1, 2}, Alpha: 1}, true},
		{"empty stretch", ImageSettings{Min: []float64{5}, Max: []float64{5}, Alpha: 1}, true},
		{"negative gamma", ImageSettings{Gamma: -1, Alpha: 1}, true},
		{"alpha above one", ImageSettings{Alpha: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSettings) {
				t.Errorf("error %v does not wrap ErrSettings", err)
			}
		})
	}
}

func TestShadePixel(t *testing.T) {
	tests := []struct {
		name string
		s    ImageSettings
		px   []float32
		want [4]byte
	}{
		{"gray default", DefaultImageSettings(), []float32{255}, [4]byte{255, 255, 255, 255}},
		{"gray stretch", ImageSettings{Min: []float64{0}, Max: []float64{100}}, []float32{50}, [4]byte{128, 128, 128, 255}},
		{"clamped", ImageSettings{Min: []float64{0}, Max: []float64{100}}, []float32{500}, [4]byte{255, 255, 255, 255}},
		{"gamma", ImageSettings{Min: []float64{0}, Max: []float64{100}, Gamma: 2}, []float32{25}, [4]byte{128, 128, 128, 255}},
		{"rgb", DefaultImageSettings(), []float32{255, 0, 255}, [4]byte{255, 0, 255, 255}},
		{"rgba premultiplied", DefaultImageSettings(), []float32{255, 0, 0, 127.5}, [4]byte{128, 0, 0, 128}},
		{"gray alpha", DefaultImageSettings(), []float32{255, 0}, [4]byte{0, 0, 0, 0}},
		{"nodata", ImageSettings{HasNoData: true, NoData: -9999}, []float32{-9999, -9999, -9999}, [4]byte{}},
		{"partial nodata", ImageSettings{HasNoData: true, NoData: 0}, []float32{0, 255, 0}, [4]byte{0, 255, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [4]byte
			tt.s.shadePixel(tt.px, got[:])
			if got != tt.want {
				t.Errorf("shadePixel(%v) = %v, want %v", tt.px, got, tt.want)
			}
		})
	}
}

func TestColorizerUsesEveryRow(t *testing.T) {
	pool := parallel.NewWorkerPool(3)
	defer pool.Close()

	b := raster.NewBuffer(image.Rect(10, 20, 17, 31), 1)
	for i := range b.Pix {
		b.Pix[i] = 255
	}
	out := DefaultImageSettings().colorizer(pool)(b)
	if len(out) != 4*7*11 {
		t.Fatalf("len = %d", len(out))
	}
	for i, v := range out {
		if v != 255 {
			t.Fatalf("byte %d = %d, want 255", i, v)
		}
	}
}
