package signals

import "sync"

// ParameterCache memoizes generated trade plans per symbol so that repeated
// generation attempts within a signal's lifetime reuse identical levels. An
// entry is invalidated when its signal leaves the board.
type ParameterCache struct {
	mu      sync.RWMutex
	entries map[string]Parameters
}

func NewParameterCache() *ParameterCache {
	return &ParameterCache{entries: make(map[string]Parameters)}
}

// Get returns the cached plan for a symbol ID, if any.
func (c *ParameterCache) Get(id string) (Parameters, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[id]
	return p, ok
}

// Put stores a plan keyed by its symbol ID.
func (c *ParameterCache) Put(p Parameters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.ID] = p
}

// Invalidate drops the cached plan for a symbol ID.
func (c *ParameterCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len reports the number of cached plans.
func (c *ParameterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
