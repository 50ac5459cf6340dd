package tau

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of source depths a DepthCache keeps.
const DefaultCacheSize = 64

// DepthCache memoizes depth-corrected models of one surface model, evicting
// the least recently used depth once full. Results are identical with or
// without it. It is safe for concurrent use.
type DepthCache struct {
	surface *Model
	size    int

	mu     sync.Mutex
	order  *list.List // front is most recently used
	models map[float64]*list.Element
}

type cacheEntry struct {
	depth float64
	model *Model
}

// NewDepthCache returns an empty cache for surface holding up to size
// depths. A size below one uses DefaultCacheSize.
func NewDepthCache(surface *Model, size int) *DepthCache {
	if size < 1 {
		size = DefaultCacheSize
	}
	return &DepthCache{
		surface: surface,
		size:    size,
		order:   list.New(),
		models:  make(map[float64]*list.Element),
	}
}

// DepthCorrect returns the cached model for depth, computing it on a miss.
// Concurrent misses for the same depth may both compute.
func (c *DepthCache) DepthCorrect(depth float64) (*Model, error) {
	c.mu.Lock()
	if el, ok := c.models[depth]; ok {
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return el.Value.(*cacheEntry).model, nil
	}
	c.mu.Unlock()

	m, err := c.surface.DepthCorrect(depth)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.models[depth]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).model, nil
	}
	c.models[depth] = c.order.PushFront(&cacheEntry{depth: depth, model: m})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.models, oldest.Value.(*cacheEntry).depth)
		c.surface.log.Debugw("evicted depth-corrected model", "model", c.surface.Name(), "depth", oldest.Value.(*cacheEntry).depth)
	}
	return m, nil
}

// Surface returns the surface-source model.
func (c *DepthCache) Surface() *Model { return c.surface }

// Len returns the number of cached depths.
func (c *DepthCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every cached model.
func (c *DepthCache) Clear() {
	c.mu.Lock()
	c.order.Init()
	c.models = make(map[float64]*list.Element)
	c.mu.Unlock()
}
