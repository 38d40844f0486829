package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Names of the built-in shaders.
const (
	ShaderTile = "tile_quad"
	ShaderLine = "line"
)

//go:embed shaders/tile_quad.wgsl
var tileQuadShaderSource string

//go:embed shaders/line.wgsl
var lineShaderSource string

// ShaderRegistry compiles named WGSL sources to SPIR-V with naga and
// creates their shader modules on first use. It belongs to one device and
// is torn down with it.
type ShaderRegistry struct {
	mu      sync.Mutex
	device  hal.Device
	sources map[string]string
	spirv   map[string][]uint32
	modules map[string]hal.ShaderModule
}

// NewShaderRegistry returns a registry holding the built-in shaders.
// device may be nil when only SPIR-V compilation is needed.
func NewShaderRegistry(device hal.Device) *ShaderRegistry {
	return &ShaderRegistry{
		device: device,
		sources: map[string]string{
			ShaderTile: tileQuadShaderSource,
			ShaderLine: lineShaderSource,
		},
		spirv:   make(map[string][]uint32),
		modules: make(map[string]hal.ShaderModule),
	}
}

// Register adds a named WGSL source. Replacing an existing name drops its
// compiled code and destroys its module.
func (r *ShaderRegistry) Register(name, wgsl string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		r.device.DestroyShaderModule(m)
		delete(r.modules, name)
	}
	delete(r.spirv, name)
	r.sources[name] = wgsl
}

// Names returns the registered shader names, sorted.
func (r *ShaderRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SPIRV returns the compiled code of a shader, compiling it on first use.
func (r *ShaderRegistry) SPIRV(name string) ([]uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spirvLocked(name)
}

func (r *ShaderRegistry) spirvLocked(name string) ([]uint32, error) {
	if code, ok := r.spirv[name]; ok {
		return code, nil
	}
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("gpu: unknown shader %q", name)
	}
	code, err := CompileSPIRV(src)
	if err != nil {
		return nil, fmt.Errorf("gpu: shader %q: %w", name, err)
	}
	r.spirv[name] = code
	return code, nil
}

// Module returns the shader module of a shader, creating it on first use.
func (r *ShaderRegistry) Module(name string) (hal.ShaderModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		return m, nil
	}
	if r.device == nil {
		return nil, fmt.Errorf("gpu: shader %q: no device", name)
	}
	code, err := r.spirvLocked(name)
	if err != nil {
		return nil, err
	}
	m, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create shader module %q: %w", name, err)
	}
	r.modules[name] = m
	return m, nil
}

// Close destroys every shader module. Compiled code is kept.
func (r *ShaderRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range r.modules {
		if m != nil {
			r.device.DestroyShaderModule(m)
		}
		delete(r.modules, name)
	}
}

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	b, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V length %d is not a multiple of 4", len(b))
	}
	code := make([]uint32, len(b)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return code, nil
}
