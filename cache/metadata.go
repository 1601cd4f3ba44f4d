// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "github.com/docache/docache/internal/budget"

// metadata tracks one cache's share of the Manager's global memory
// budget (spec.md §4.10). It wraps internal/budget.Weighted rather than
// a bare counter so that both a single cache's local limit and the
// Manager's global limit are enforced through the same non-blocking
// TryAcquire/Release vocabulary.
type metadata struct {
	allocated *budget.Weighted
	tableSize int64
}

// newMetadata creates per-cache accounting with an initial byte limit.
func newMetadata(limit int64) *metadata {
	return &metadata{allocated: budget.NewWeighted(limit)}
}

// usage returns the number of bytes currently attributed to this cache.
func (m *metadata) usage() int64 {
	return m.allocated.Allocated() + m.tableSize
}

// limit returns the current byte budget.
func (m *metadata) limit() int64 {
	return m.allocated.Capacity()
}

// adjustLimit resizes the budget, e.g. when the Manager rebalances
// shares across caches.
func (m *metadata) adjustLimit(newLimit int64) {
	m.allocated.SetCapacity(newLimit)
}

// reserve accounts for adding size bytes of CachedValue data, returning
// false (and changing nothing) if doing so would exceed the limit.
func (m *metadata) reserve(size int64) bool {
	return m.allocated.TryAcquire(size)
}

// release gives back size bytes, e.g. after an eviction or removal.
func (m *metadata) release(size int64) {
	m.allocated.Release(size)
}

// setTableSize records the current byte cost of the cache's bucket
// table itself (grown/shrunk independently of entry data), so usage()
// reflects the true total a cache is holding the Manager's budget
// against.
func (m *metadata) setTableSize(size int64) {
	m.tableSize = size
}
