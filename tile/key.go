package tile

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/gpu"
	"github.com/gogpu/tileview/raster"
)

// Key identifies a tile. At most one tile per key is resident.
type Key struct {
	// Cell is the grid cell in level pixel coordinates, before cropping
	// to the raster. Its Min is the tile index.
	Cell image.Rectangle

	Level int

	// Channels is the channel selection, as returned by ChannelKey.
	Channels string

	// Size is the tile edge length.
	Size int
}

// Index returns the pixel position of the cell's upper-left corner.
func (k Key) Index() image.Point { return k.Cell.Min }

func (k Key) String() string {
	return fmt.Sprintf("L%d%v[%s]/%d", k.Level, k.Cell.Min, k.Channels, k.Size)
}

// ChannelKey encodes a channel selection as a comparable string.
// Nil means all channels.
func ChannelKey(channels []int) string {
	if channels == nil {
		return "*"
	}
	parts := make([]string, len(channels))
	for i, c := range channels {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// Tile is a resident block of raster pixels and its texture.
type Tile struct {
	Key Key

	// Rect is the cell cropped to the level's extent.
	Rect image.Rectangle

	// Buffer holds the pixels read for this tile. It is nil once dropped.
	Buffer *raster.Buffer

	// Texture is owned by the tile and released when it is evicted.
	Texture gpu.TextureID

	// Corners are the viewport positions of the upper-left, upper-right,
	// lower-left and lower-right corners, valid for the viewport
	// generation they were computed at.
	Corners    [4]tileview.Point
	cornersGen uint64
}

// PixelRect returns the area covered by the tile in level-0 pixels,
// clamped to the raster size.
func (t *Tile) PixelRect(size image.Point) image.Rectangle {
	f := 1 << t.Key.Level
	r := image.Rect(t.Rect.Min.X*f, t.Rect.Min.Y*f, t.Rect.Max.X*f, t.Rect.Max.Y*f)
	return r.Intersect(image.Rectangle{Max: size})
}

// Cells returns the grid cells of a given edge length covering r, in row
// order. r and the cells are in the same level's pixel coordinates.
func Cells(r image.Rectangle, size int) []image.Rectangle {
	if r.Empty() || size <= 0 {
		return nil
	}
	x0, y0 := floorDiv(r.Min.X, size), floorDiv(r.Min.Y, size)
	x1, y1 := floorDiv(r.Max.X+size-1, size), floorDiv(r.Max.Y+size-1, size)
	cells := make([]image.Rectangle, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cells = append(cells, image.Rect(x*size, y*size, (x+1)*size, (y+1)*size))
		}
	}
	return cells
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
