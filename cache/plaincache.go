// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

// PlainCache is a cache specialization with no transaction semantics:
// Remove takes effect immediately and is visible to every reader as
// soon as its bucket lock is released. Use TransactionalCache instead
// when removals need to stay invisible to a transaction that is still
// running (spec.md §4.11).
type PlainCache struct {
	c *cache[*plainBucket]
}

// PlainCacheConfig configures a new PlainCache.
type PlainCacheConfig struct {
	// Hasher selects how keys are hashed and compared. Defaults to
	// BinaryKeyHasher if nil.
	Hasher hasher
	// InitialLogSize is the starting log2 bucket count; 0 selects
	// minLogSize.
	InitialLogSize uint32
	// Limit is the initial byte budget for this cache.
	Limit int64
}

// NewPlainCache creates a standalone PlainCache not registered with any
// Manager. Most callers should instead use Manager.CreatePlainCache so
// the cache participates in the global memory budget.
func NewPlainCache(cfg PlainCacheConfig) *PlainCache {
	return newPlainCacheWithManager(0, cfg, nil)
}

func newPlainCacheWithManager(id uint64, cfg PlainCacheConfig, mgr *Manager) *PlainCache {
	h := cfg.Hasher
	if h == nil {
		h = BinaryKeyHasher{}
	}
	c := newCache[*plainBucket](id, cfg.InitialLogSize, func() *plainBucket { return &plainBucket{} }, h, cfg.Limit, plainBucketSlots, mgr)
	c.newValue = newCachedValue
	return &PlainCache{c: c}
}

// ID returns the cache's Manager-assigned identifier (0 for a
// standalone cache created via NewPlainCache).
func (pc *PlainCache) ID() uint64 { return pc.c.id }

// Find looks up key. The returned Finding must be Released once the
// caller is done with its value.
func (pc *PlainCache) Find(key []byte) Finding {
	return pc.c.find(key, true)
}

// Insert stores value under key, evicting LRU entries as needed to
// make room within this cache's and the Manager's budgets.
func (pc *PlainCache) Insert(key, value []byte) error {
	return pc.c.insert(key, value)
}

// Remove deletes key, if present.
func (pc *PlainCache) Remove(key []byte) error {
	return pc.c.remove(key)
}

// Banish always returns ErrNotImplemented: a plain cache has no
// transaction terms to banish a key against (spec.md §4.11).
func (pc *PlainCache) Banish(key []byte) error { return ErrNotImplemented }

// FreeMemoryWhile evicts LRU entries until shouldContinue returns
// false, returning bytes reclaimed.
func (pc *PlainCache) FreeMemoryWhile(shouldContinue func(freedBytes int64) bool) int64 {
	return pc.c.freeMemoryWhile(shouldContinue)
}

// Clear empties the cache.
func (pc *PlainCache) Clear() { pc.c.clear() }

// Usage returns current accounted byte usage.
func (pc *PlainCache) Usage() int64 { return pc.c.usage() }

// Stats returns a snapshot of operation counters.
func (pc *PlainCache) Stats() Stats { return pc.c.stats() }

func (pc *PlainCache) migrateStep() bool { return pc.c.migrateStep() }
