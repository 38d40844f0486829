package cache

import "sync"

// Cache is a generic thread-safe LRU cache with a fixed capacity.
// Inserting into a full cache evicts the least recently used entry.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*lruNode[K, V]
	order    lruList[K, V]
	capacity int
	onEvict  func(K, V)

	hits, misses, evictions uint64
}

// New creates a cache holding at most capacity entries.
// A capacity of 0 or less means unlimited.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*lruNode[K, V]),
		capacity: capacity,
	}
}

// OnEvict registers fn to be called for every entry removed by capacity
// eviction or Clear. fn runs with the cache lock held and must not
// call back into the cache.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// GetOrCreate returns the cached value for key or builds it with create.
// create runs under the lock, so concurrent callers never build the same
// key twice. A failed create stores nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(node)
		return node.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.insertLocked(key, value)
	return value, nil
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for node := c.order.popBack(); node != nil; node = c.order.popBack() {
		delete(c.entries, node.key)
		c.evicted(node)
	}
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Caller must hold c.mu and key must be absent.
func (c *Cache[K, V]) insertLocked(key K, value V) {
	node := &lruNode[K, V]{key: key, value: value}
	c.entries[key] = node
	c.order.pushFront(node)

	for c.capacity > 0 && c.order.len > c.capacity {
		old := c.order.popBack()
		delete(c.entries, old.key)
		c.evictions++
		c.evicted(old)
	}
}

func (c *Cache[K, V]) evicted(node *lruNode[K, V]) {
	if c.onEvict != nil {
		c.onEvict(node.key, node.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries (0 = unlimited).
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 when there were no lookups.
	HitRate float64
	// Evictions counts entries dropped to stay within Capacity.
	Evictions uint64
}
