// Package cache provides the bounded LRU cache used by the transform
// registry to keep built coordinate transforms between frames.
//
//	c := cache.New[pairKey, *crs.Pair](64)
//	p, err := c.GetOrCreate(key, build)
//
// Entries evicted for capacity are handed to an optional callback so that
// owners can release whatever the value holds.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
