package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tileview"
)

// halTexture is one uploaded tile texture and its view.
type halTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// QuadCommand is a textured quad recorded during a frame.
type QuadCommand struct {
	Texture TextureID
	View    hal.TextureView
	// Vertices holds two triangles in the tile shader's vertex layout,
	// see QuadVertices.
	Vertices []float32
}

// LineCommand is a polyline recorded during a frame, in screen pixels.
type LineCommand struct {
	Points []tileview.Point
	Closed bool
	Style  Style
}

// HAL is a Backend on a wgpu/hal device. Textures are real GPU textures;
// draws are recorded as commands that the host encodes into its render
// pass with the shaders from Shaders().
type HAL struct {
	mu       sync.Mutex
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat
	shaders  *ShaderRegistry
	textures map[TextureID]*halTexture

	frame Frame
	quads []QuadCommand
	lines []LineCommand

	closed bool
}

// NewHAL creates a backend on a device and queue owned by the caller.
func NewHAL(device hal.Device, queue hal.Queue) *HAL {
	h := &HAL{
		device:   device,
		queue:    queue,
		format:   gputypes.TextureFormatBGRA8Unorm,
		shaders:  NewShaderRegistry(device),
		textures: make(map[TextureID]*halTexture),
		frame:    Frame{ToScreen: tileview.Identity()},
	}
	tileview.Logger().Info("gpu: HAL backend created")
	return h
}

// Name implements Backend.
func (h *HAL) Name() string { return "hal" }

// SurfaceFormat returns the color format of the host's surface.
func (h *HAL) SurfaceFormat() gputypes.TextureFormat { return h.format }

// Shaders returns the backend's shader registry, preloaded with the tile
// and line shaders.
func (h *HAL) Shaders() *ShaderRegistry { return h.shaders }

// UploadTexture implements Backend.
func (h *HAL) UploadTexture(width, height int, pix []byte) (TextureID, error) {
	if err := checkUpload(width, height, pix); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}

	w, ht := uint32(width), uint32(height) //nolint:gosec // checked positive above
	id := nextTextureID()
	label := fmt.Sprintf("tile_%d", id)

	tex, err := h.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TextureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("gpu: create texture: %w", err)
	}
	view, err := h.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        TextureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		h.device.DestroyTexture(tex)
		return 0, fmt.Errorf("gpu: create texture view: %w", err)
	}

	h.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: ht,
		},
		&hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
	)

	h.textures[id] = &halTexture{tex: tex, view: view, width: w, height: ht}
	return id, nil
}

// ReleaseTexture implements Backend. The view and texture are destroyed
// before it returns.
func (h *HAL) ReleaseTexture(id TextureID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.textures[id]
	if !ok {
		return
	}
	delete(h.textures, id)
	h.destroy(t)
}

func (h *HAL) destroy(t *halTexture) {
	if t.view != nil {
		h.device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		h.device.DestroyTexture(t.tex)
	}
}

// Textures implements Backend.
func (h *HAL) Textures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.textures)
}

// BeginFrame implements Backend. Commands of the previous frame are dropped.
func (h *HAL) BeginFrame(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = f
	h.quads = h.quads[:0]
	h.lines = h.lines[:0]
}

// DrawTexturedQuad implements Backend.
func (h *HAL) DrawTexturedQuad(id TextureID, corners [4]tileview.Point, alpha float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.textures[id]
	if !ok || alpha <= 0 {
		return
	}
	toClip := ClipTransform(h.frame)
	var clip [4]tileview.Point
	for i, c := range corners {
		clip[i] = toClip.TransformPoint(c)
		if !clip[i].IsFinite() {
			return
		}
	}
	h.quads = append(h.quads, QuadCommand{
		Texture:  id,
		View:     t.view,
		Vertices: QuadVertices(clip, float32(alpha)),
	})
}

// DrawPolyline implements Backend.
func (h *HAL) DrawPolyline(pts []tileview.Point, closed bool, style Style) {
	h.mu.Lock()
	defer h.mu.Unlock()

	scr := make([]tileview.Point, 0, len(pts))
	for _, p := range pts {
		if q := h.frame.ToScreen.TransformPoint(p); q.IsFinite() {
			scr = append(scr, q)
		}
	}
	if len(scr) == 0 {
		return
	}
	h.lines = append(h.lines, LineCommand{Points: scr, Closed: closed, Style: style})
}

// EndFrame implements Backend.
func (h *HAL) EndFrame() error { return nil }

// Commands returns the quads and lines recorded since BeginFrame, in draw
// order. The slices are reused by the next frame.
func (h *HAL) Commands() ([]QuadCommand, []LineCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quads, h.lines
}

// Close implements Backend. Every texture and shader module is destroyed;
// the device itself belongs to the host and is left alone.
func (h *HAL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for id, t := range h.textures {
		h.destroy(t)
		delete(h.textures, id)
	}
	h.shaders.Close()
	h.closed = true
	return nil
}

// ClipTransform maps viewport coordinates to clip space for a frame:
// screen pixels are scaled to [-1, 1] with Y pointing up.
func ClipTransform(f Frame) tileview.Matrix {
	w, h := float64(f.Size.X), float64(f.Size.Y)
	if w <= 0 || h <= 0 {
		return f.ToScreen
	}
	return tileview.Translate(-1, 1).
		Multiply(tileview.Scale(2/w, -2/h)).
		Multiply(f.ToScreen)
}

// QuadVertices returns the vertex data of a textured quad as two
// triangles (UL, UR, LL) and (UR, LR, LL). Each vertex is five floats:
// position x, y, texture u, v and alpha.
func QuadVertices(corners [4]tileview.Point, alpha float32) []float32 {
	uv := [4][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	order := [6]int{0, 1, 2, 1, 3, 2}
	out := make([]float32, 0, len(order)*5)
	for _, i := range order {
		out = append(out,
			float32(corners[i].X), float32(corners[i].Y),
			uv[i][0], uv[i][1],
			alpha,
		)
	}
	return out
}

var _ Backend = (*HAL)(nil)
