package raster

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
)

// Open decodes an image file into an in-memory pyramid.
//
// Georeferencing is read from sidecar files next to the image:
//   - a world file (".pgw", ".pngw", ".tfw", ".wld", ...) for origin and spacing
//   - a ".prj" file holding the projection (WKT or authority code)
//   - a ".gcps" file with one "x y lon lat" ground control point per line
//
// Without a world file the raster has unit spacing and origin (0, 0).
// Every failure is wrapped with ErrOpen.
func Open(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	opts := []Option{WithName(filepath.Base(path))}

	origin, spacing, found, err := readWorldFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	if found {
		opts = append(opts, WithGeoreference(origin, spacing))
	}

	desc, err := readProjection(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	if !desc.IsZero() {
		opts = append(opts, WithProjection(desc))
	}

	tileview.Logger().Info("raster: opened",
		"path", path, "format", format, "size", img.Bounds().Size(),
		"georeferenced", found, "crs", desc.String())

	return NewMemory(FromImage(img), AutoLevels, opts...)
}

// worldFileNames lists the sidecar names tried for a world file, in order.
func worldFileNames(path string) []string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	names := []string{base + ".wld"}
	if e := strings.TrimPrefix(ext, "."); len(e) >= 2 {
		short := "." + e[:1] + e[len(e)-1:] + "w"
		names = append([]string{base + short, path + "w", base + strings.ToUpper(short)}, names...)
	}
	return names
}

// readWorldFile parses the six-line world file next to path.
// Line order is A, D, B, E, C, F where C/F is the center of the upper-left
// pixel; rotation terms B and D must be zero.
func readWorldFile(path string) (origin, spacing tileview.Point, found bool, err error) {
	var data []byte
	for _, name := range worldFileNames(path) {
		data, err = os.ReadFile(name)
		if err == nil {
			found = true
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return origin, spacing, false, err
		}
	}
	if !found {
		return origin, spacing, false, nil
	}

	fields := strings.Fields(string(data))
	if len(fields) < 6 {
		return origin, spacing, false, fmt.Errorf("world file: want 6 values, got %d", len(fields))
	}
	var v [6]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
			return origin, spacing, false, fmt.Errorf("world file: %w", err)
		}
	}
	a, d, b, e, c, f := v[0], v[1], v[2], v[3], v[4], v[5]
	if b != 0 || d != 0 {
		return origin, spacing, false, fmt.Errorf("world file: rotated rasters are not supported (B=%g, D=%g)", b, d)
	}
	if a == 0 || e == 0 || math.IsNaN(a) || math.IsNaN(e) {
		return origin, spacing, false, fmt.Errorf("world file: zero pixel size")
	}
	spacing = tileview.Pt(a, e)
	origin = tileview.Pt(c-a/2, f-e/2)
	return origin, spacing, true, nil
}

// readProjection builds the descriptor from the .prj and .gcps sidecars.
func readProjection(path string) (crs.Descriptor, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	var d crs.Descriptor

	prj, err := os.ReadFile(base + ".prj")
	switch {
	case err == nil:
		d.Projection = strings.TrimSpace(string(prj))
	case !errors.Is(err, fs.ErrNotExist):
		return d, err
	}

	gcpData, err := os.ReadFile(base + ".gcps")
	switch {
	case err == nil:
		gcps, err := parseGCPLines(string(gcpData))
		if err != nil {
			return d, err
		}
		d.Keywords = crs.GCPKeywords(gcps)
	case !errors.Is(err, fs.ErrNotExist):
		return d, err
	}
	return d, nil
}

func parseGCPLines(s string) ([]crs.GCP, error) {
	var gcps []crs.GCP
	for n, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("gcps line %d: want 4 values, got %d", n+1, len(fields))
		}
		var v [4]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("gcps line %d: %w", n+1, err)
			}
			v[i] = x
		}
		gcps = append(gcps, crs.GCP{Raster: tileview.Pt(v[0], v[1]), LonLat: tileview.Pt(v[2], v[3])})
	}
	return gcps, nil
}
