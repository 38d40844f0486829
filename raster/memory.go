package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/internal/parallel"
)

// AutoLevels asks NewMemory to add levels until the coarsest one fits in
// MinLevelSize pixels.
const AutoLevels = 0

// MinLevelSize bounds automatic pyramid generation.
const MinLevelSize = 256

// Option configures a Memory dataset.
type Option func(*Metadata)

// WithGeoreference sets the physical origin and pixel spacing.
func WithGeoreference(origin, spacing tileview.Point) Option {
	return func(m *Metadata) {
		m.Origin = origin
		m.Spacing = spacing
	}
}

// WithProjection sets the coordinate reference descriptor.
func WithProjection(d crs.Descriptor) Option {
	return func(m *Metadata) {
		m.Projection = d
	}
}

// WithName sets the dataset name.
func WithName(name string) Option {
	return func(m *Metadata) {
		m.Name = name
	}
}

// Memory is a Dataset holding every pyramid level in memory.
type Memory struct {
	mu     sync.RWMutex
	meta   Metadata
	levels []*Buffer
	closed bool
}

// NewMemory builds a dataset from a full-resolution buffer, generating
// the given number of levels (level 0 included) with a 2x2 box filter.
// AutoLevels picks the count from MinLevelSize. Without options the
// raster has unit spacing, origin (0, 0) and no projection.
func NewMemory(base *Buffer, levels int, opts ...Option) (*Memory, error) {
	if base.Empty() || base.Channels <= 0 {
		return nil, fmt.Errorf("%w: empty base buffer", ErrOpen)
	}
	if base.Rect.Min != (image.Point{}) {
		base = base.Extract(base.Rect, nil)
		base.Rect = base.Rect.Sub(base.Rect.Min)
	}

	meta := Metadata{
		Spacing:  tileview.Pt(1, 1),
		Size:     base.Rect.Size(),
		Channels: base.Channels,
	}
	for _, opt := range opts {
		opt(&meta)
	}
	if levels <= AutoLevels {
		levels = autoLevelCount(meta.Size)
	}

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	pyramid := []*Buffer{base}
	for l := 1; l < levels; l++ {
		prev := pyramid[l-1]
		if prev.Rect.Dx() == 1 && prev.Rect.Dy() == 1 {
			break
		}
		pyramid = append(pyramid, downsample(pool, prev, meta.LevelBounds(l)))
	}
	meta.Levels = make([]int, len(pyramid))
	for i := range pyramid {
		meta.Levels[i] = i
	}

	tileview.Logger().Debug("raster: pyramid built",
		"name", meta.Name, "size", meta.Size, "levels", len(pyramid))
	return &Memory{meta: meta, levels: pyramid}, nil
}

func autoLevelCount(size image.Point) int {
	n := 1
	for w, h := size.X, size.Y; max(w, h) > MinLevelSize; n++ {
		w, h = (w+1)/2, (h+1)/2
	}
	return n
}

// downsample averages each 2x2 block of src into one pixel of dst.
// Blocks cut by an odd edge average the pixels they have.
func downsample(pool *parallel.WorkerPool, src *Buffer, bounds image.Rectangle) *Buffer {
	dst := NewBuffer(bounds, src.Channels)
	ch := src.Channels
	pool.Rows(bounds.Dy(), func(lo, hi int) {
		acc := make([]float32, ch)
		for y := lo; y < hi; y++ {
			for x := 0; x < bounds.Dx(); x++ {
				clear(acc)
				n := 0
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						i := src.Offset(2*x+dx, 2*y+dy)
						if i < 0 {
							continue
						}
						for c := 0; c < ch; c++ {
							acc[c] += src.Pix[i+c]
						}
						n++
					}
				}
				o := dst.Offset(x, y)
				for c := 0; c < ch; c++ {
					dst.Pix[o+c] = acc[c] / float32(n)
				}
			}
		}
	})
	return dst
}

// Metadata implements Dataset.
func (m *Memory) Metadata() Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta := m.meta
	meta.Levels = append([]int(nil), m.meta.Levels...)
	return meta
}

// ReadBlock implements Dataset.
func (m *Memory) ReadBlock(ctx context.Context, level int, channels []int, r image.Rectangle) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if level < 0 || level >= len(m.levels) {
		return nil, fmt.Errorf("%w: %d", ErrLevel, level)
	}
	if err := m.meta.ValidateChannels(channels); err != nil {
		return nil, err
	}
	return m.levels[level].Extract(r, channels), nil
}

// Close releases the pyramid.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.levels = nil
	return nil
}
