// Command tileview renders rasters and vector overlays to a PNG through
// the tile cache and compositor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/layer"
	"github.com/gogpu/tileview/tile"
	"github.com/gogpu/tileview/view"
)

type config struct {
	width, height int
	output        string
	rasters       []string
	vectors       []string
	channels      []int
	policy        tile.Policy
	zoom          float64
	rotate        float64
	full          bool
	roi           []float64
	label         string
}

func main() {
	var (
		width    = flag.Int("width", 800, "image width")
		height   = flag.Int("height", 600, "image height")
		output   = flag.String("output", "view.png", "output file")
		rasters  = flag.String("raster", "", "comma separated raster files, topmost first")
		vectors  = flag.String("vector", "", "comma separated GeoJSON files")
		channels = flag.String("channels", "", "channels to show, e.g. 0 or 2,1,0")
		policy   = flag.String("policy", "nearest", "resolution policy: nearest, nearest-lower, nearest-upper")
		zoom     = flag.Float64("zoom", 1, "zoom factor applied after fitting; above 1 zooms in")
		rotate   = flag.Float64("rotate", 0, "view rotation in degrees")
		full     = flag.Bool("full", false, "zoom to full resolution of the top raster")
		roi      = flag.String("roi", "", "region of interest x0,y0,x1,y1 in view coordinates")
		label    = flag.String("label", "", "label property of vector features")
		verbose  = flag.Bool("v", false, "log tile activity")
	)
	flag.Parse()

	if *verbose {
		tileview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	cfg := config{
		width:   *width,
		height:  *height,
		output:  *output,
		rasters: splitList(*rasters),
		vectors: splitList(*vectors),
		zoom:    *zoom,
		rotate:  *rotate,
		full:    *full,
		label:   *label,
	}
	var err error
	if cfg.policy, err = tile.ParsePolicy(*policy); err != nil {
		log.Fatal(err)
	}
	if cfg.channels, err = parseInts(*channels); err != nil {
		log.Fatalf("bad -channels: %v", err)
	}
	if *roi != "" {
		if cfg.roi, err = parseFloats(*roi); err != nil || len(cfg.roi) != 4 {
			log.Fatalf("bad -roi %q", *roi)
		}
	}

	layers, err := run(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("View saved to %s (%dx%d, %d layers)\n", cfg.output, cfg.width, cfg.height, layers)
}

// run renders one frame of cfg to cfg.output and returns the number of
// layers shown.
func run(ctx context.Context, cfg config) (n int, err error) {
	sw := gpu.NewSoftware(cfg.width, cfg.height)
	c := view.New(cfg.width, cfg.height, view.WithBackend(sw))
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var top string
	for i := len(cfg.rasters) - 1; i >= 0; i-- {
		opts := []layer.RasterOption{layer.WithTileOptions(tile.WithPolicy(cfg.policy))}
		if cfg.channels != nil {
			opts = append(opts, layer.WithChannels(cfg.channels...))
		}
		r, err := layer.OpenRaster(cfg.rasters[i], c.Backend(), c.Registry(), opts...)
		if err != nil {
			// An unreadable raster is skipped; the others are still shown.
			log.Printf("skipping %s: %v", cfg.rasters[i], err)
			continue
		}
		if top, err = c.AddActor(r, ""); err != nil {
			return 0, err
		}
	}
	for _, f := range cfg.vectors {
		style := layer.DefaultVectorStyle()
		style.LabelProperty = cfg.label
		v, err := layer.OpenVector(f, c.Backend(), c.Registry(), layer.WithVectorStyle(style))
		if err != nil {
			log.Printf("skipping %s: %v", f, err)
			continue
		}
		if _, err := c.AddActor(v, ""); err != nil {
			return 0, err
		}
	}
	if len(cfg.roi) == 4 {
		r := layer.NewROI(tileview.Pt(cfg.roi[0], cfg.roi[1]), tileview.Pt(cfg.roi[2], cfg.roi[3]), c.Backend(),
			layer.WithROILabel("roi", 0))
		if _, err := c.AddActor(r, "roi"); err != nil {
			return 0, err
		}
	}
	if c.Len() == 0 {
		return 0, errors.New("nothing to show: give -raster or -vector")
	}

	// Fit everything, then apply the requested zoom and rotation.
	c.BeforeRender()
	c.ZoomToExtent(c.Extent())
	if cfg.full && top != "" {
		if err := c.ZoomToFullResolution(top); err != nil {
			return 0, err
		}
	}
	vp := c.Viewport()
	center := vp.Extent().Center()
	if cfg.zoom > 0 && cfg.zoom != 1 {
		vp.Zoom(center, 1/cfg.zoom)
	}
	if cfg.rotate != 0 {
		vp.SetRotation(cfg.rotate*math.Pi/180, center)
	}

	if err := c.Render(ctx, true); err != nil {
		return 0, err
	}
	if err := writePNG(cfg.output, sw); err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	return c.Len(), nil
}

func writePNG(path string, sw *gpu.Software) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, sw.Image()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
