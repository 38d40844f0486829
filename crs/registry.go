package crs

import (
	"fmt"
	"sync"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/internal/cache"
)

// DefaultCacheSize is the number of built transform pairs a Registry keeps.
const DefaultCacheSize = 64

// Registry owns the known projections and a cache of built transforms.
// A compositor creates one and hands it to every layer; there is no
// process-wide registry.
type Registry struct {
	mu          sync.RWMutex
	projections map[string]Projection
	pairs       *cache.Cache[string, Pair]
}

// NewRegistry returns a registry with the built-in projections
// (EPSG:4326 and EPSG:3857) and a transform cache of the given size.
// A size of 0 selects DefaultCacheSize.
func NewRegistry(cacheSize int) *Registry {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	pairs := cache.New[string, Pair](cacheSize)
	pairs.OnEvict(func(key string, _ Pair) {
		tileview.Logger().Debug("crs: dropped transform", "pair", key)
	})
	return &Registry{
		projections: map[string]Projection{
			EPSG4326: geographic{},
			EPSG3857: webMercator{},
		},
		pairs: pairs,
	}
}

// Register adds a named projection. Names are matched after Normalize.
func (r *Registry) Register(name string, p Projection) error {
	key := Normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projections[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProjection, key)
	}
	r.projections[key] = p
	return nil
}

// Lookup returns the projection registered under name.
func (r *Registry) Lookup(name string) (Projection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projections[Normalize(name)]
	return p, ok
}

// Build returns the transform pair mapping src coordinates to dst and back.
// Results are cached by descriptor pair. Descriptors without projection
// information only transform to themselves; any other pairing with them
// fails with ErrUnsupported.
func (r *Registry) Build(src, dst Descriptor) (Pair, error) {
	if src.Equal(dst) {
		return IdentityPair(), nil
	}
	return r.pairs.GetOrCreate(src.Key()+" -> "+dst.Key(), func() (Pair, error) {
		return r.build(src, dst)
	})
}

// Stats reports the transform cache statistics.
func (r *Registry) Stats() cache.Stats {
	return r.pairs.Stats()
}

// Reset drops all cached transforms. Registered projections are kept.
func (r *Registry) Reset() {
	r.pairs.Clear()
}

func (r *Registry) build(src, dst Descriptor) (Pair, error) {
	from, err := r.resolve(src)
	if err != nil {
		return Pair{}, err
	}
	to, err := r.resolve(dst)
	if err != nil {
		return Pair{}, err
	}
	tileview.Logger().Debug("crs: built transform", "src", src.String(), "dst", dst.String())
	return Pair{
		Forward: chain(from.ToLonLat, to.FromLonLat),
		Inverse: chain(to.ToLonLat, from.FromLonLat),
	}, nil
}

// resolve finds the projection for one side of a transform.
// A sensor model takes precedence over the projection string.
func (r *Registry) resolve(d Descriptor) (Projection, error) {
	if d.HasSensorModel() {
		gcps, err := ParseGCPs(d.Keywords)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		m, err := NewSensorModel(gcps)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return m, nil
	}
	if d.IsZero() {
		return nil, fmt.Errorf("%w: no projection information", ErrUnsupported)
	}
	p, ok := r.Lookup(d.Projection)
	if !ok {
		return nil, fmt.Errorf("%w: unknown projection %q", ErrUnsupported, Normalize(d.Projection))
	}
	return p, nil
}
