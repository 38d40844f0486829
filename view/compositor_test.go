package view

import (
	"context"
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/gpu/gputest"
	"github.com/gogpu/tileview/layer"
	"github.com/gogpu/tileview/raster"
	"github.com/gogpu/tileview/viewport"
)

// fakeLayer appends its name to a shared log on every call.
type fakeLayer struct {
	name   string
	log    *[]string
	extent tileview.Rect
	geoms  int
	closed bool
}

func (f *fakeLayer) Kind() layer.Kind               { return layer.KindROI }
func (f *fakeLayer) Name() string                   { return f.name }
func (f *fakeLayer) Extent() tileview.Rect          { return f.extent }
func (f *fakeLayer) SetViewport(viewport.Geometry)  { f.geoms++ }
func (f *fakeLayer) OnSettingsChanged()             {}
func (f *fakeLayer) LightRender()                   { *f.log = append(*f.log, "draw "+f.name) }
func (f *fakeLayer) Close() error                   { f.closed = true; return nil }
func (f *fakeLayer) HeavyUpdate(ctx context.Context) error {
	*f.log = append(*f.log, "heavy "+f.name)
	return ctx.Err()
}

func newABC(t *testing.T) (*Compositor, *[]string, map[string]*fakeLayer) {
	t.Helper()
	c := New(10, 10, WithBackend(gputest.New()))
	log := new([]string)
	layers := make(map[string]*fakeLayer)
	for _, k := range []string{"A", "B", "C"} {
		layers[k] = &fakeLayer{name: k, log: log}
		if _, err := c.AddActor(layers[k], k); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.SetDrawOrder([]string{"A", "B", "C"}, Back); err != nil {
		t.Fatal(err)
	}
	return c, log, layers
}

func TestAddActor(t *testing.T) {
	c := New(10, 10, WithBackend(gputest.New()))
	log := new([]string)
	k1, err := c.AddActor(&fakeLayer{name: "x", log: log}, "")
	if err != nil || k1 != "layer-1" {
		t.Fatalf("AddActor = %q, %v", k1, err)
	}
	if _, err := c.AddActor(&fakeLayer{log: log}, "layer-2"); err != nil {
		t.Fatal(err)
	}
	k3, _ := c.AddActor(&fakeLayer{log: log}, "")
	if k3 != "layer-3" {
		t.Errorf("generated key %q collides or skips", k3)
	}
	if _, err := c.AddActor(&fakeLayer{log: log}, "layer-1"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate AddActor = %v", err)
	}
	if got := c.DrawOrder(); !slices.Equal(got, []string{"layer-3", "layer-2", "layer-1"}) {
		t.Errorf("new layers not on top: %v", got)
	}
	if l, ok := c.GetActor("layer-1"); !ok || l.Name() != "x" {
		t.Errorf("GetActor = %v, %v", l, ok)
	}
}

func TestDrawOrderOperations(t *testing.T) {
	tests := []struct {
		name string
		op   func(c *Compositor) error
		want []string
	}{
		{"rotate up", func(c *Compositor) error { c.RotateDrawOrder(Up); return nil }, []string{"B", "C", "A"}},
		{"rotate down", func(c *Compositor) error { c.RotateDrawOrder(Down); return nil }, []string{"C", "A", "B"}},
		{"rotate down twice", func(c *Compositor) error { c.RotateDrawOrder(Down); c.RotateDrawOrder(Down); return nil }, []string{"B", "C", "A"}},
		{"rotate down then up", func(c *Compositor) error { c.RotateDrawOrder(Down); c.RotateDrawOrder(Up); return nil }, []string{"A", "B", "C"}},
		{"move down twice at tail", func(c *Compositor) error {
			if err := c.MoveActorInOrder("B", Down); err != nil {
				return err
			}
			return c.MoveActorInOrder("B", Down)
		}, []string{"A", "C", "B"}},
		{"move up", func(c *Compositor) error { return c.MoveActorInOrder("B", Up) }, []string{"B", "A", "C"}},
		{"move down", func(c *Compositor) error { return c.MoveActorInOrder("B", Down) }, []string{"A", "C", "B"}},
		{"move up at front", func(c *Compositor) error { return c.MoveActorInOrder("A", Up) }, []string{"A", "B", "C"}},
		{"move down at back", func(c *Compositor) error { return c.MoveActorInOrder("C", Down) }, []string{"A", "B", "C"}},
		{"to back", func(c *Compositor) error { return c.MoveActorToEnd("A", Back) }, []string{"B", "C", "A"}},
		{"to front", func(c *Compositor) error { return c.MoveActorToEnd("C", Front) }, []string{"C", "A", "B"}},
		{"set unlisted front", func(c *Compositor) error { return c.SetDrawOrder([]string{"A"}, Front) }, []string{"B", "C", "A"}},
		{"set unlisted back", func(c *Compositor) error { return c.SetDrawOrder([]string{"C"}, Back) }, []string{"C", "A", "B"}},
		{"set repeated", func(c *Compositor) error { return c.SetDrawOrder([]string{"B", "B", "A"}, Back) }, []string{"B", "A", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newABC(t)
			if err := tt.op(c); err != nil {
				t.Fatal(err)
			}
			if got := c.DrawOrder(); !slices.Equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawOrderUnknownKey(t *testing.T) {
	c, _, _ := newABC(t)
	if err := c.MoveActorInOrder("Z", Up); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("MoveActorInOrder = %v", err)
	}
	if err := c.MoveActorToEnd("Z", Back); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("MoveActorToEnd = %v", err)
	}
	if err := c.SetDrawOrder([]string{"A", "Z"}, Back); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("SetDrawOrder = %v", err)
	}
	if got := c.DrawOrder(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("failed SetDrawOrder changed the order: %v", got)
	}
}

func TestFrameSequence(t *testing.T) {
	c, log, layers := newABC(t)
	c.BeforeRender()
	if err := c.HeavyRender(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"heavy A", "heavy B", "heavy C", "draw C", "draw B", "draw A"}
	if !slices.Equal(*log, want) {
		t.Errorf("calls = %v, want %v", *log, want)
	}
	if layers["A"].geoms != 1 {
		t.Errorf("SetViewport calls = %d", layers["A"].geoms)
	}

	if !c.Viewport().Dirty() {
		t.Fatal("new viewport not dirty")
	}
	if err := c.AfterRender(); err != nil {
		t.Fatal(err)
	}
	if c.Viewport().Dirty() {
		t.Error("AfterRender left the viewport dirty")
	}
	b := c.Backend().(*gputest.Backend)
	if len(b.Frames) != 1 || b.Ended != 1 {
		t.Errorf("frames %d ended %d", len(b.Frames), b.Ended)
	}
}

func TestHiddenLayers(t *testing.T) {
	c, log, layers := newABC(t)
	if err := c.SetVisible("B", false); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	want := []string{"heavy A", "heavy C", "draw C", "draw A"}
	if !slices.Equal(*log, want) {
		t.Errorf("calls = %v, want %v", *log, want)
	}
	if layers["B"].geoms != 0 {
		t.Error("hidden layer got the viewport")
	}
	if got := c.VisibleKeys(); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("VisibleKeys = %v", got)
	}
	if err := c.SetVisible("Z", true); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("SetVisible(Z) = %v", err)
	}
}

func TestHeavyRenderCanceled(t *testing.T) {
	c, log, _ := newABC(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.BeforeRender()
	if err := c.HeavyRender(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("HeavyRender = %v", err)
	}
	if len(*log) != 1 {
		t.Errorf("layers ran after cancel: %v", *log)
	}
}

func TestRemoveActor(t *testing.T) {
	c, _, layers := newABC(t)
	if !c.RemoveActor("B") {
		t.Fatal("RemoveActor(B) = false")
	}
	if !layers["B"].closed {
		t.Error("removed layer not closed")
	}
	if got := c.DrawOrder(); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("order = %v", got)
	}
	if c.RemoveActor("B") {
		t.Error("second RemoveActor(B) = true")
	}
	if _, ok := c.GetActor("B"); ok {
		t.Error("GetActor found removed layer")
	}
}

func TestExtentAndZoom(t *testing.T) {
	c, _, layers := newABC(t)
	layers["A"].extent = tileview.RectFromPoints(tileview.Pt(0, 0), tileview.Pt(10, 10))
	layers["B"].extent = tileview.RectFromPoints(tileview.Pt(-10, 5), tileview.Pt(0, 30))
	layers["C"].extent = tileview.EmptyRect()

	want := tileview.RectFromPoints(tileview.Pt(-10, 0), tileview.Pt(10, 30))
	if got := c.Extent(); got != want {
		t.Errorf("Extent = %v, want %v", got, want)
	}
	if err := c.ZoomToLayer("A"); err != nil {
		t.Fatal(err)
	}
	if got := c.Viewport().Extent(); !got.Min.ApproxEqual(tileview.Pt(0, 0), 1e-9) || !got.Max.ApproxEqual(tileview.Pt(10, 10), 1e-9) {
		t.Errorf("viewport extent = %v", got)
	}
	if err := c.ZoomToLayer("Z"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("ZoomToLayer(Z) = %v", err)
	}
	if err := c.ZoomToFullResolution("A"); !errors.Is(err, ErrNotRaster) {
		t.Errorf("ZoomToFullResolution(A) = %v", err)
	}
}

func TestClose(t *testing.T) {
	c, _, layers := newABC(t)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	for k, l := range layers {
		if !l.closed {
			t.Errorf("layer %s not closed", k)
		}
	}
	if !c.Backend().(*gputest.Backend).Closed {
		t.Error("backend not closed")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func solidRaster(t *testing.T, c *Compositor, value float32, opts ...raster.Option) *layer.Raster {
	t.Helper()
	base := raster.NewBuffer(image.Rect(0, 0, 64, 64), 1)
	for i := range base.Pix {
		base.Pix[i] = value
	}
	ds, err := raster.NewMemory(base, 1, opts...)
	if err != nil {
		t.Fatal(err)
	}
	r, err := layer.NewRaster(ds, c.Backend(), c.Registry())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSoftwareFrame(t *testing.T) {
	sw := gpu.NewSoftware(64, 64)
	c := New(64, 64, WithBackend(sw))
	defer c.Close()

	low := solidRaster(t, c, 100)
	high := solidRaster(t, c, 200)
	lowKey, _ := c.AddActor(low, "low")
	highKey, _ := c.AddActor(high, "high")

	if err := c.Render(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got := sw.Image().RGBAAt(32, 32); got.R != 200 || got.A != 255 {
		t.Errorf("center pixel = %v, want the top layer", got)
	}

	key, s, ok := c.PixelAt(tileview.Pt(10.5, 10.5))
	if !ok || key != highKey || s.Values[0] != 200 {
		t.Errorf("PixelAt = %q, %+v, %v", key, s, ok)
	}

	if err := c.MoveActorToEnd(lowKey, Front); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if got := sw.Image().RGBAAt(32, 32); got.R != 100 {
		t.Errorf("center pixel after reorder = %v", got)
	}
	if key, _, _ := c.PixelAt(tileview.Pt(10.5, 10.5)); key != lowKey {
		t.Errorf("PixelAt after reorder hit %q", key)
	}

	c.RemoveActor(lowKey)
	c.RemoveActor(highKey)
	if n := sw.Textures(); n != 0 {
		t.Errorf("%d textures after removing every layer", n)
	}
}

func TestZoomToFullResolution(t *testing.T) {
	c := New(64, 64, WithBackend(gputest.New()))
	defer c.Close()
	key, _ := c.AddActor(solidRaster(t, c, 1), "")
	c.Viewport().SetSpacing(tileview.Pt(4, 4))
	if err := c.ZoomToFullResolution(key); err != nil {
		t.Fatal(err)
	}
	if sp := c.Viewport().Spacing(); !sp.ApproxEqual(tileview.Pt(1, 1), 1e-9) {
		t.Errorf("spacing = %v, want (1,1)", sp)
	}
}

func TestAdoptRasterProjection(t *testing.T) {
	c := New(64, 64, WithBackend(gputest.New()))
	defer c.Close()
	r := solidRaster(t, c, 1, raster.WithProjection(crs.WebMercator))
	if _, err := c.AddActor(r, ""); err != nil {
		t.Fatal(err)
	}
	if !c.Viewport().Projection().Equal(crs.WebMercator) || !c.Viewport().UseProjection() {
		t.Errorf("viewport projection = %v", c.Viewport().Projection())
	}
}
