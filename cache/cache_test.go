// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func newTestCache(limit int64) *cache[*plainBucket] {
	c := newCache[*plainBucket](1, minLogSize, func() *plainBucket { return &plainBucket{} }, BinaryKeyHasher{}, limit, plainBucketSlots, nil)
	c.newValue = newCachedValue
	return c
}

// TestCacheStatsReflectsOperations exercises the cache[B] shared
// behavior directly (rather than only indirectly through PlainCache /
// TransactionalCache) and checks the resulting Stats snapshot with a
// structured diff rather than a field-by-field comparison, in the style
// of the pack's own table-driven tests.
func TestCacheStatsReflectsOperations(t *testing.T) {
	c := newTestCache(1 << 20)

	if err := c.insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if f := c.find([]byte("k1"), true); f.Err() != nil {
		t.Fatalf("find: %v", f.Err())
	} else {
		f.Release()
	}
	if f := c.find([]byte("missing"), true); f.Err() == nil {
		t.Fatal("expected a miss for an absent key")
	} else {
		f.Release()
	}
	if err := c.remove([]byte("k1")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got := c.stats()
	want := Stats{
		Hits:       1,
		Misses:     1,
		Inserts:    1,
		Evictions:  0,
		UsageBytes: 0,
		LimitBytes: 1 << 20,
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

// TestCacheClearResetsStateAndUnlocksBuckets confirms clear() leaves
// every bucket unlocked and usage at zero, guarding against the
// double-unlock bug a naive applyToAllBuckets-based implementation
// would hit (bucket.clear() already unlocks on exit).
func TestCacheClearResetsStateAndUnlocksBuckets(t *testing.T) {
	c := newTestCache(1 << 20)
	for i := 0; i < 4; i++ {
		key := []byte{byte('a' + i)}
		if err := c.insert(key, []byte("v")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	c.clear()

	if got := c.usage(); got != 0 {
		t.Fatalf("usage() after clear = %d, want 0", got)
	}
	for i, b := range c.table.buckets {
		if !b.lock(triesFast) {
			t.Fatalf("bucket %d still locked after clear", i)
		}
		b.unlock()
	}
}

// collidingHasher routes every key to the same hash, forcing every
// insert into a single bucket regardless of table size.
type collidingHasher struct{}

func (collidingHasher) HashKey(key []byte) uint32 { return 7 }
func (collidingHasher) SameKey(a, b []byte) bool  { return string(a) == string(b) }

// TestCacheInsertEvictsWhenBucketFull checks that inserting past a
// bucket's slot capacity evicts its LRU-back entry rather than
// rejecting the insert, matching PlainCache.cpp's eviction-on-full
// control flow.
func TestCacheInsertEvictsWhenBucketFull(t *testing.T) {
	c := newCache[*plainBucket](1, minLogSize, func() *plainBucket { return &plainBucket{} }, collidingHasher{}, 1<<20, plainBucketSlots, nil)
	c.newValue = newCachedValue

	for i := 0; i < plainBucketSlots+2; i++ {
		key := []byte{byte(i)}
		if err := c.insert(key, []byte("v")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if got := c.stats().Evictions; got == 0 {
		t.Fatal("expected at least one eviction once the bucket exceeded its slot capacity")
	}
}

// TestCacheInsertReturnsBusyWhenBucketFullAndAllLeased checks that a
// bucket holding capacity entries, every one of them leased (non-zero
// refcount, so none are evictable), refuses a further insert with
// ErrBusyBucket rather than ErrResourceLimit, even though plenty of
// byte budget remains (spec.md §4.2).
func TestCacheInsertReturnsBusyWhenBucketFullAndAllLeased(t *testing.T) {
	c := newCache[*plainBucket](1, minLogSize, func() *plainBucket { return &plainBucket{} }, collidingHasher{}, 1<<20, plainBucketSlots, nil)
	c.newValue = newCachedValue

	for i := 0; i < plainBucketSlots; i++ {
		key := []byte{byte(i)}
		if err := c.insert(key, []byte("v")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if f := c.find(key, false); f.Err() != nil {
			t.Fatalf("find %d: %v", i, f.Err())
		}
		// deliberately not Release()d: keeps RefCount() > 0 so the
		// entry is never evictable.
	}

	if err := c.insert([]byte("overflow"), []byte("v")); err != ErrBusyBucket {
		t.Fatalf("insert into a fully-leased full bucket = %v, want ErrBusyBucket", err)
	}
}

// TestCacheRequestGrowStartsMigrationWhenEntriesOutpaceTable drives
// requestGrow directly (rather than forcing the real resource-limit
// path, which needs a byte budget tight enough to refuse but a bucket
// loose enough not to just evict) to confirm it starts an incremental
// migration once idealSize outgrows the table's current log size, and
// is a no-op once a migration is already underway.
func TestCacheRequestGrowStartsMigrationWhenEntriesOutpaceTable(t *testing.T) {
	c := newTestCache(1 << 20)
	c.entries.Store(int64(idealTestEntryCount()))

	c.requestGrow()
	if c.table.auxiliary == nil {
		t.Fatal("expected requestGrow to start a migration once entries outpaced the table")
	}

	auxBefore := c.table.auxiliary
	c.requestGrow()
	if c.table.auxiliary != auxBefore {
		t.Fatal("expected a second requestGrow call to leave an in-progress migration alone")
	}
}

// idealTestEntryCount returns an entry count guaranteed to push
// idealSize past minLogSize for a plainBucket-sized table.
func idealTestEntryCount() uint32 {
	n := int64(1)
	for idealSize(n, plainBucketSlots) <= minLogSize {
		n *= 2
	}
	return uint32(n)
}
