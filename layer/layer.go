package layer

import (
	"context"
	"fmt"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/viewport"
)

// Kind tags the concrete type of a layer.
type Kind int

const (
	KindRaster Kind = iota
	KindVector
	KindROI
)

func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindVector:
		return "vector"
	case KindROI:
		return "roi"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Layer is one entry of a compositor.
type Layer interface {
	Kind() Kind

	// Name identifies the layer in logs.
	Name() string

	// Extent returns the viewport rectangle covered by the layer under the
	// last geometry it was given.
	Extent() tileview.Rect

	// SetViewport hands the current viewport geometry to the layer.
	SetViewport(g viewport.Geometry)

	// OnSettingsChanged tells the layer its display settings changed and
	// anything baked from them must be rebuilt.
	OnSettingsChanged()

	// HeavyUpdate may read data and upload textures. It returns only
	// ctx.Err(); other failures are logged and retried.
	HeavyUpdate(ctx context.Context) error

	// LightRender draws the resident state without any I/O.
	LightRender()

	// Close releases every GPU resource of the layer.
	Close() error
}

// Prober is implemented by layers that can sample raster values.
type Prober interface {
	PixelAt(v tileview.Point) (Sample, bool)
}
