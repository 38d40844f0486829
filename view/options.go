package view

import (
	"image/color"

	"github.com/gogpu/tileview/crs"
	"github.com/gogpu/tileview/gpu"
)

type options struct {
	backend  gpu.Backend
	registry *crs.Registry
	clear    color.Color
}

// Option configures a Compositor.
type Option func(*options)

// WithBackend draws on b instead of a new software backend. The
// compositor takes ownership and closes it.
func WithBackend(b gpu.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRegistry shares a transform registry between compositors.
func WithRegistry(r *crs.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithClearColor sets the frame background. Nil keeps the previous frame.
func WithClearColor(c color.Color) Option {
	return func(o *options) { o.clear = c }
}
