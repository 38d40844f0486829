package raster

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
)

// Metadata is fetched once when a layer is created.
type Metadata struct {
	// Name identifies the raster in logs, usually the file name.
	Name string

	// Origin is the physical coordinate of the upper-left corner of
	// pixel (0, 0) at level 0.
	Origin tileview.Point

	// Spacing is the physical size of one level-0 pixel. A negative Y
	// spacing is the usual north-up convention.
	Spacing tileview.Point

	// Size is the level-0 pixel extent (the largest region).
	Size image.Point

	Channels int

	// Levels lists the available decimation levels in increasing order;
	// level L is a 2^L downsample and level 0 is full resolution.
	Levels []int

	Projection crs.Descriptor
}

// Bounds returns the level-0 pixel rectangle.
func (m Metadata) Bounds() image.Rectangle {
	return image.Rectangle{Max: m.Size}
}

// LevelSize returns the pixel size of a decimation level, rounding up so
// that the last partial pixel is kept.
func (m Metadata) LevelSize(level int) image.Point {
	if level <= 0 {
		return m.Size
	}
	f := 1 << level
	return image.Pt((m.Size.X+f-1)/f, (m.Size.Y+f-1)/f)
}

// LevelBounds returns the pixel rectangle of a decimation level.
func (m Metadata) LevelBounds(level int) image.Rectangle {
	return image.Rectangle{Max: m.LevelSize(level)}
}

// HasLevel reports whether level is available.
func (m Metadata) HasLevel(level int) bool {
	for _, l := range m.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// PixelToPhysical converts level-0 pixel coordinates to physical ones.
func (m Metadata) PixelToPhysical(p tileview.Point) tileview.Point {
	return m.Origin.Add(p.Scale(m.Spacing))
}

// PhysicalToPixel converts physical coordinates to level-0 pixel ones.
func (m Metadata) PhysicalToPixel(p tileview.Point) tileview.Point {
	d := p.Sub(m.Origin)
	return tileview.Pt(d.X/m.Spacing.X, d.Y/m.Spacing.Y)
}

// PhysicalExtent returns the physical rectangle covered by the raster.
func (m Metadata) PhysicalExtent() tileview.Rect {
	return tileview.RectFromPoints(
		m.PixelToPhysical(tileview.Pt(0, 0)),
		m.PixelToPhysical(tileview.Pt(float64(m.Size.X), float64(m.Size.Y))),
	)
}

// ValidateChannels checks a channel selection against the channel count.
func (m Metadata) ValidateChannels(channels []int) error {
	for _, c := range channels {
		if c < 0 || c >= m.Channels {
			return fmt.Errorf("%w: %d (raster has %d)", ErrChannel, c, m.Channels)
		}
	}
	return nil
}

// Dataset is an opened raster.
type Dataset interface {
	Metadata() Metadata

	// ReadBlock reads the pixels of r at the given decimation level.
	// r is in that level's pixel coordinates and is cropped to the level's
	// extent before reading; the returned buffer's Rect is the cropped
	// rectangle. Nil channels selects all channels.
	ReadBlock(ctx context.Context, level int, channels []int, r image.Rectangle) (*Buffer, error)

	Close() error
}
