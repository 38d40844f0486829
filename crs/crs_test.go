package crs

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/tileview"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"EPSG:4326", EPSG4326},
		{" wgs84 ", EPSG4326},
		{"epsg:3857", EPSG3857},
		{"EPSG:900913", EPSG3857},
		{`GEOGCS["WGS 84",DATUM["WGS_1984"]]`, EPSG4326},
		{`PROJCS["WGS 84 / Pseudo-Mercator",PROJECTION["Mercator_1SP"]]`, EPSG3857},
		{"EPSG:32631", "EPSG:32631"},
		{"epsg:32631", "EPSG:32631"},
		{" local:100 ", "LOCAL:100"},
		{"+proj=utm +zone=31", "+proj=utm +zone=31"},
		{"local", "local"},
		{":100", ":100"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescriptorEqualAndKey(t *testing.T) {
	a := Descriptor{Projection: "wgs84", Keywords: Keywords{"b": "2", "a": "1"}}
	b := Descriptor{Projection: "EPSG:4326", Keywords: Keywords{"a": "1", "b": "2"}}
	if !a.Equal(b) {
		t.Error("descriptors with equivalent projection and keywords should be equal")
	}
	if a.Key() != b.Key() {
		t.Errorf("Key() differs: %q vs %q", a.Key(), b.Key())
	}
	if a.Equal(Geographic) {
		t.Error("keywords must take part in equality")
	}
	if !Pixel.IsZero() || Geographic.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestRegistryMercatorRoundTrip(t *testing.T) {
	r := NewRegistry(0)
	p, err := r.Build(Geographic, WebMercator)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ll := tileview.Pt(2.35, 48.85)
	m := p.Forward.TransformPoint(ll)
	if math.Abs(m.X-261600) > 500 || math.Abs(m.Y-6250900) > 3000 {
		t.Errorf("Forward(%v) = %v, not near Paris in meters", ll, m)
	}
	back := p.Inverse.TransformPoint(m)
	if !back.ApproxEqual(ll, 1e-9) {
		t.Errorf("Inverse(Forward(%v)) = %v", ll, back)
	}
}

func TestRegistryMercatorOutOfRange(t *testing.T) {
	r := NewRegistry(0)
	p, err := r.Build(Geographic, WebMercator)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Forward.TransformPoint(tileview.Pt(0, 89.9)); got.IsFinite() {
		t.Errorf("Forward near the pole = %v, want non-finite", got)
	}
}

func TestRegistryIdentityAndUnsupported(t *testing.T) {
	r := NewRegistry(4)

	p, err := r.Build(Pixel, Pixel)
	if err != nil || !p.Identity {
		t.Errorf("Build(Pixel, Pixel) = %+v, %v; want identity", p, err)
	}

	if _, err := r.Build(Pixel, Geographic); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Build(Pixel, Geographic) error = %v, want ErrUnsupported", err)
	}
	if _, err := r.Build(Descriptor{Projection: "EPSG:32631"}, Geographic); !errors.Is(err, ErrUnsupported) {
		t.Errorf("unknown projection error = %v, want ErrUnsupported", err)
	}
}

func TestRegistryDropsOldestTransform(t *testing.T) {
	var buf bytes.Buffer
	tileview.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer tileview.SetLogger(nil)

	r := NewRegistry(1)
	if _, err := r.Build(Geographic, WebMercator); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Build(WebMercator, Geographic); err != nil {
		t.Fatal(err)
	}
	if s := r.Stats(); s.Len != 1 || s.Evictions != 1 {
		t.Errorf("Stats() = %+v, want 1 entry and 1 eviction", s)
	}
	if !strings.Contains(buf.String(), "crs: dropped transform") {
		t.Errorf("eviction not logged: %q", buf.String())
	}
}

func TestRegistryCachesPairs(t *testing.T) {
	r := NewRegistry(4)
	for i := 0; i < 3; i++ {
		if _, err := r.Build(Geographic, WebMercator); err != nil {
			t.Fatal(err)
		}
	}
	s := r.Stats()
	if s.Len != 1 || s.Hits != 2 {
		t.Errorf("Stats() = %+v, want 1 entry and 2 hits", s)
	}
	r.Reset()
	if r.Stats().Len != 0 {
		t.Error("Reset() should empty the cache")
	}
}

func TestRegistryCustomProjection(t *testing.T) {
	r := NewRegistry(0)
	// Degrees scaled by 100, a toy planar system.
	scaled := ProjectionFuncs{
		To:   func(p tileview.Point) tileview.Point { return p.Div(100) },
		From: func(ll tileview.Point) tileview.Point { return ll.Mul(100) },
	}
	if err := r.Register("LOCAL:100", scaled); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("local:100", scaled); !errors.Is(err, ErrDuplicateProjection) {
		t.Errorf("second Register error = %v, want ErrDuplicateProjection", err)
	}

	p, err := r.Build(Descriptor{Projection: "local:100"}, Geographic)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Forward.TransformPoint(tileview.Pt(250, -30)); !got.ApproxEqual(tileview.Pt(2.5, -0.3), 1e-12) {
		t.Errorf("Forward = %v", got)
	}
}

func TestBuildMatchesAuthorityCodesIgnoringCase(t *testing.T) {
	r := NewRegistry(0)
	src := Descriptor{Projection: "epsg:32631"}
	dst := Descriptor{Projection: "EPSG:32631"}
	if !src.Equal(dst) {
		t.Fatalf("%v and %v should be equal", src, dst)
	}
	p, err := r.Build(src, dst)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.Identity {
		t.Error("same system in different case should build the identity pair")
	}
}

func TestSensorModel(t *testing.T) {
	// Raster pixels to lon/lat: lon = 10 + 0.01*x, lat = 50 - 0.01*y.
	truth := tileview.Matrix{A: 0.01, C: 10, E: -0.01, F: 50}
	var gcps []GCP
	for _, p := range []tileview.Point{{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 0, Y: 800}, {X: 1000, Y: 800}, {X: 500, Y: 400}} {
		gcps = append(gcps, GCP{Raster: p, LonLat: truth.TransformPoint(p)})
	}

	src := Descriptor{Keywords: GCPKeywords(gcps)}
	if !src.HasSensorModel() {
		t.Fatal("HasSensorModel() = false")
	}
	parsed, err := ParseGCPs(src.Keywords)
	if err != nil || len(parsed) != len(gcps) {
		t.Fatalf("ParseGCPs() = %d points, %v", len(parsed), err)
	}

	r := NewRegistry(0)
	p, err := r.Build(src, Geographic)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, q := range []tileview.Point{{X: 250, Y: 125}, {X: 999, Y: 1}} {
		want := truth.TransformPoint(q)
		if got := p.Forward.TransformPoint(q); !got.ApproxEqual(want, 1e-9) {
			t.Errorf("Forward(%v) = %v, want %v", q, got, want)
		}
		if got := p.Inverse.TransformPoint(want); !got.ApproxEqual(q, 1e-6) {
			t.Errorf("Inverse(%v) = %v, want %v", want, got, q)
		}
	}
}

func TestSensorModelErrors(t *testing.T) {
	tests := []struct {
		name string
		gcps []GCP
	}{
		{"too few", []GCP{{}, {}}},
		{"collinear", []GCP{
			{Raster: tileview.Pt(0, 0), LonLat: tileview.Pt(0, 0)},
			{Raster: tileview.Pt(1, 1), LonLat: tileview.Pt(1, 1)},
			{Raster: tileview.Pt(2, 2), LonLat: tileview.Pt(2, 2)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSensorModel(tt.gcps); !errors.Is(err, ErrSensorModel) {
				t.Errorf("NewSensorModel() error = %v, want ErrSensorModel", err)
			}
		})
	}

	if _, err := ParseGCPs(Keywords{"gcp.000": "1 2 3"}); err == nil {
		t.Error("ParseGCPs with 3 fields should fail")
	}
}
