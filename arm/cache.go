package arm

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// blockCache maps block keys to basic blocks. Per the design note on the
// source's "basic blocks owned by a cache keyed by a packed integer": blocks
// live in an arena slice owned by the cache, and the key map holds arena
// indices rather than pointers, so a flush can retire slots (dropping the
// reference so the backend-owned Compiled state becomes eligible for
// collection) without walking every live block to find them.
//
// The dispatch loop contract (§5) is single-threaded cooperative access,
// but ClearICache/ClearICacheRange are documented as taking effect
// immediately and must not race a concurrent Run — the mutex exists to
// make that ordering explicit rather than to support genuine concurrent
// dispatch.
type blockCache struct {
	mu      sync.Mutex
	byKey   map[BlockKey]int
	arena   []*BasicBlock
	freeIdx []int

	hits, misses, evictions uint64
}

func newBlockCache() *blockCache {
	return &blockCache{byKey: make(map[BlockKey]int)}
}

// CacheStats reports counters accumulated since the cache was created; they
// are diagnostic only and never consulted by the dispatch loop itself.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Live      int
}

// Stats returns a snapshot of the cache's hit/miss/eviction counters.
func (c *blockCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Live: len(c.byKey)}
}

// Keys returns every live block key, sorted for reproducible debug dumps.
func (c *blockCache) Keys() []BlockKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := maps.Keys(c.byKey)
	slices.Sort(keys)
	return keys
}

// get returns the cached block for key, or nil if absent.
func (c *blockCache) get(key BlockKey) *BasicBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.byKey[key]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	return c.arena[idx]
}

// set inserts block, replacing any prior entry for its key.
func (c *blockCache) set(block *BasicBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(block.Key)

	var idx int
	if n := len(c.freeIdx); n > 0 {
		idx = c.freeIdx[n-1]
		c.freeIdx = c.freeIdx[:n-1]
		c.arena[idx] = block
	} else {
		idx = len(c.arena)
		c.arena = append(c.arena, block)
	}
	c.byKey[block.Key] = idx
}

// flush evicts everything.
func (c *blockCache) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[BlockKey]int)
	c.arena = nil
	c.freeIdx = nil
}

// flushRange evicts every block whose guest instruction span is not
// disjoint from [lo, hi].
func (c *blockCache) flushRange(lo, hi uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, idx := range c.byKey {
		if c.arena[idx].intersects(lo, hi) {
			c.evictLocked(key)
		}
	}
}

// evictLocked drops key's arena slot, if any. Callers hold c.mu.
func (c *blockCache) evictLocked(key BlockKey) {
	idx, ok := c.byKey[key]
	if !ok {
		return
	}
	delete(c.byKey, key)
	c.arena[idx] = nil
	c.freeIdx = append(c.freeIdx, idx)
	c.evictions++
}
