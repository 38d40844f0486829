// Package gputest provides a recording gpu.Backend for tests.
package gputest

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/gpu"
)

// ErrUploadFailed is returned by uploads while FailUploads is set.
var ErrUploadFailed = errors.New("gputest: upload failed")

// Quad is one recorded DrawTexturedQuad call.
type Quad struct {
	ID      gpu.TextureID
	Corners [4]tileview.Point
	Alpha   float64
}

// Line is one recorded DrawPolyline call.
type Line struct {
	Points []tileview.Point
	Closed bool
	Style  gpu.Style
}

// Texture is the size of a live texture.
type Texture struct {
	Width, Height int
}

// Backend records every call. It is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	// FailUploads makes UploadTexture return ErrUploadFailed.
	FailUploads bool

	Live     map[gpu.TextureID]Texture
	Uploaded []gpu.TextureID
	Released []gpu.TextureID
	Quads    []Quad
	Lines    []Line
	Frames   []gpu.Frame
	Ended    int
	Closed   bool
}

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{Live: make(map[gpu.TextureID]Texture)}
}

// IDs start high so they never collide with real backends in one test.
var nextID atomic.Uint64

func init() { nextID.Store(1 << 32) }

func (b *Backend) Name() string { return "gputest" }

func (b *Backend) UploadTexture(width, height int, pix []byte) (gpu.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailUploads {
		return 0, ErrUploadFailed
	}
	if width <= 0 || height <= 0 {
		return 0, gpu.ErrEmptyTexture
	}
	if len(pix) != 4*width*height {
		return 0, gpu.ErrPixelSize
	}
	id := gpu.TextureID(nextID.Add(1))
	b.Live[id] = Texture{Width: width, Height: height}
	b.Uploaded = append(b.Uploaded, id)
	return id, nil
}

func (b *Backend) ReleaseTexture(id gpu.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Live[id]; !ok {
		return
	}
	delete(b.Live, id)
	b.Released = append(b.Released, id)
}

func (b *Backend) BeginFrame(f gpu.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Frames = append(b.Frames, f)
	b.Quads = b.Quads[:0]
	b.Lines = b.Lines[:0]
}

func (b *Backend) DrawTexturedQuad(id gpu.TextureID, corners [4]tileview.Point, alpha float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Quads = append(b.Quads, Quad{ID: id, Corners: corners, Alpha: alpha})
}

func (b *Backend) DrawPolyline(pts []tileview.Point, closed bool, style gpu.Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Lines = append(b.Lines, Line{Points: append([]tileview.Point(nil), pts...), Closed: closed, Style: style})
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Ended++
	return nil
}

func (b *Backend) Textures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Live)
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.Live {
		b.Released = append(b.Released, id)
	}
	clear(b.Live)
	b.Closed = true
	return nil
}

// WasReleased reports whether id was released.
func (b *Backend) WasReleased(id gpu.TextureID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.Released {
		if r == id {
			return true
		}
	}
	return false
}

// DrawnIDs returns the texture IDs drawn since the last BeginFrame, in order.
func (b *Backend) DrawnIDs() []gpu.TextureID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]gpu.TextureID, len(b.Quads))
	for i, q := range b.Quads {
		ids[i] = q.ID
	}
	return ids
}

var _ gpu.Backend = (*Backend)(nil)
