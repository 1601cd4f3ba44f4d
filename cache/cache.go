// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/docache/docache/docacheaudit"
	"github.com/docache/docache/internal/clock"
	"github.com/docache/docache/internal/retry"
)

// Tries bounds a bucket-lock acquisition is allowed, named after
// spec.md §5's triesFast/triesSlow/triesGuarantee tiers: Fast is what a
// read on the hot path spends before giving up, Slow is what a write
// spends, and Guarantee (triesGuarantee, declared in table.go) is used
// by the free-memory sweep, by migration's destination-bucket locks and
// by Clear, which must eventually make progress even under contention.
const (
	triesFast = 1 << 10
	triesSlow = 1 << 14
)

// errGrowBusy signals requestGrow's retry loop that another goroutine
// currently holds growMu; it never escapes requestGrow itself.
var errGrowBusy = errors.New("cache: grow already in progress")

// cache holds the behavior shared by PlainCache and TransactionalCache:
// lookups, insertion with eviction, removal, and the free-memory sweep
// a Manager drives under budget pressure. It is generic over the
// bucket type so both specializations share one implementation instead
// of the original's two near-identical Cache<Hasher> instantiations
// (grounded on original_source/arangod/Cache/PlainCache.cpp, whose
// find/insert/remove control flow this mirrors one level up).
type cache[B bucketOps[B]] struct {
	id             uint64
	table          *table[B]
	meta           *metadata
	hasher         hasher
	manager        *Manager
	newValue       func(key, value []byte) *CachedValue
	slotsPerBucket int64

	hits      atomic.Int64
	misses    atomic.Int64
	inserts   atomic.Int64
	evictions atomic.Int64
	entries   atomic.Int64

	growMu sync.Mutex
}

func newCache[B bucketOps[B]](id uint64, logSize uint32, newBucket func() B, h hasher, limit int64, slotsPerBucket int64, mgr *Manager) *cache[B] {
	return &cache[B]{
		id:             id,
		table:          newTable[B](logSize, newBucket),
		meta:           newMetadata(limit),
		hasher:         h,
		manager:        mgr,
		slotsPerBucket: slotsPerBucket,
	}
}

// find looks up key, leasing the result if present (spec.md §4.1's
// Find operation). moveToFront is true for normal lookups and false
// for the diagnostic/introspection paths that must not disturb LRU
// order.
func (c *cache[B]) find(key []byte, moveToFront bool) Finding {
	hash := c.hasher.HashKey(key)
	b, ok := c.table.fetchAndLockBucket(hash, triesFast)
	if !ok {
		c.misses.Add(1)
		return notFound(ErrLockTimeout)
	}
	defer b.unlock()

	v := b.find(c.hasher, hash, key, moveToFront)
	if v == nil {
		c.misses.Add(1)
		return notFound(ErrNotFound)
	}
	c.hits.Add(1)
	return newFinding(v, nil)
}

// insert stores value under key, evicting the bucket's LRU-back entry
// first if it is already full. Returns ErrResourceLimit if the
// cache-local or Manager-global budget has no room even after
// evicting, and ErrLockTimeout if the bucket could not be locked.
func (c *cache[B]) insert(key, value []byte) error {
	cv := c.newValue(key, value)
	if cv == nil {
		return ErrInvalidArgument
	}
	size := cv.Size()

	hash := c.hasher.HashKey(key)
	b, ok := c.table.fetchAndLockBucket(hash, triesSlow)
	if !ok {
		return ErrLockTimeout
	}
	defer b.unlock()

	isNew := true
	if old := b.find(c.hasher, hash, key, false); old != nil {
		b.remove(c.hasher, hash, key)
		c.meta.release(old.Size())
		if c.manager != nil {
			c.manager.releaseGlobal(old.Size())
		}
		isNew = false
	}

	if !c.meta.reserve(size) {
		if b.isFull() {
			freed := b.evictCandidate()
			if freed > 0 {
				c.meta.release(freed)
				if c.manager != nil {
					c.manager.releaseGlobal(freed)
				}
				c.evictions.Add(1)
				c.entries.Add(-1)
			}
		}
		if !c.meta.reserve(size) {
			c.requestGrow()
			return ErrResourceLimit
		}
	}
	if c.manager != nil && !c.manager.reserveGlobal(size) {
		c.meta.release(size)
		c.requestGrow()
		return ErrResourceLimit
	}

	if b.isFull() {
		if freed := b.evictCandidate(); freed > 0 {
			c.meta.release(freed)
			if c.manager != nil {
				c.manager.releaseGlobal(freed)
			}
			c.evictions.Add(1)
			c.entries.Add(-1)
		} else {
			c.meta.release(size)
			if c.manager != nil {
				c.manager.releaseGlobal(size)
			}
			c.requestGrow()
			return ErrBusyBucket
		}
	}

	b.insert(hash, cv)
	c.inserts.Add(1)
	if isNew {
		c.entries.Add(1)
	}
	if c.manager != nil {
		c.manager.auditSink().Emit(docacheaudit.Event{
			Kind: docacheaudit.KindInsert, CacheID: c.id, Bytes: size, Timestamp: clock.Now(),
		})
	}
	return nil
}

// requestGrow mirrors spec.md §5's manager.request_grow(self): called
// from insert's resource-limit and busy-bucket returns, it
// opportunistically starts an incremental migration to a larger table
// if this cache's entry count has outpaced its bucket count. growMu
// keeps concurrent callers from racing to install two auxiliary tables
// at once; resizeFast bounds how long a caller waits for that lock
// before giving up. insert calls this synchronously, with its bucket
// lock still held, just before returning ErrResourceLimit or
// ErrBusyBucket, so that bounded wait is part of the failing insert.
func (c *cache[B]) requestGrow() {
	_ = resizeFast(func() error {
		if !c.growMu.TryLock() {
			return errGrowBusy
		}
		defer c.growMu.Unlock()
		if !c.table.migrationDone() {
			return nil
		}
		want := idealSize(c.entries.Load(), c.slotsPerBucket)
		if want <= c.table.logSize {
			return nil
		}
		c.table.beginMigration(want)
		return nil
	})
}

// remove deletes key if present, releasing its accounted bytes.
func (c *cache[B]) remove(key []byte) error {
	hash := c.hasher.HashKey(key)
	b, ok := c.table.fetchAndLockBucket(hash, triesSlow)
	if !ok {
		return ErrLockTimeout
	}
	defer b.unlock()

	v := b.remove(c.hasher, hash, key)
	if v == nil {
		return ErrNotFound
	}
	c.meta.release(v.Size())
	c.entries.Add(-1)
	if c.manager != nil {
		c.manager.releaseGlobal(v.Size())
	}
	return nil
}

// freeMemoryWhile repeatedly evicts LRU-back entries across the table
// until shouldContinue reports false or nothing more is evictable,
// returning the number of bytes reclaimed (spec.md §4.1's
// free_memory_while operation, used by the Manager under global
// pressure and by a cache shrinking its own limit).
func (c *cache[B]) freeMemoryWhile(shouldContinue func(freed int64) bool) int64 {
	var total int64
	c.table.applyToAllBuckets(func(b B) {
		for shouldContinue(total) {
			freed := b.evictCandidate()
			if freed == 0 {
				return
			}
			c.meta.release(freed)
			if c.manager != nil {
				c.manager.releaseGlobal(freed)
				c.manager.auditSink().Emit(docacheaudit.Event{
					Kind: docacheaudit.KindEvict, CacheID: c.id, Bytes: freed, Timestamp: clock.Now(),
				})
			}
			c.evictions.Add(1)
			c.entries.Add(-1)
			total += freed
		}
	})
	return total
}

// migrateStep drives one incremental step of an in-progress table
// resize; see table.migrateStep.
func (c *cache[B]) migrateStep() bool {
	return c.table.migrateStep(retryTries)
}

// retryTries bounds a single migration step's bucket-lock attempts;
// housekeeping calls migrateStep repeatedly rather than looping here,
// so this only needs to cover ordinary contention, not a full retry
// policy (hence no dependency on internal/retry in this one spot).
const retryTries = triesSlow

// clear empties every bucket and releases all of this cache's budget.
// It locks and clears buckets directly rather than going through
// applyToAllBuckets, since bucket.clear() already unlocks on exit
// (spec.md §4.2) and applyToAllBuckets' own unlock would double-unlock
// otherwise.
//
// It waits out any migration already in progress first: entries that
// have already been redistributed live in the auxiliary table, and
// clearing only c.table.buckets while one is still attached would miss
// them.
func (c *cache[B]) clear() {
	c.awaitMigration()
	for _, b := range c.table.buckets {
		if b.lock(triesGuarantee) {
			b.clear()
		}
	}
	used := c.meta.usage()
	c.meta.release(used)
	if c.manager != nil {
		c.manager.releaseGlobal(used)
	}
	c.entries.Store(0)
}

// errMigrationInProgress signals awaitMigration's retry loop to keep
// polling; it never escapes awaitMigration itself.
var errMigrationInProgress = errors.New("cache: migration still in progress")

// awaitMigration blocks until any table migration in progress
// completes, using the Guarantee retry policy: a clear must never race
// a still-running migration. A standalone cache not registered with a
// Manager has no housekeeping worker driving its migration (one that
// requestGrow started, for instance), so awaitMigration finishes that
// migration itself, one migrateStep at a time.
func (c *cache[B]) awaitMigration() {
	if c.manager == nil {
		for !c.table.migrateStep(retryTries) {
		}
		return
	}
	_ = retry.Do(retry.Guarantee(), func() error {
		if c.table.migrationDone() {
			return nil
		}
		return errMigrationInProgress
	})
}

// usage reports the cache's current accounted byte usage.
func (c *cache[B]) usage() int64 { return c.meta.usage() }

// Stats is a point-in-time snapshot of a cache's operation counters,
// exposed so docachemetrics can export them as Prometheus gauges.
type Stats struct {
	Hits       int64
	Misses     int64
	Inserts    int64
	Evictions  int64
	UsageBytes int64
	LimitBytes int64
}

func (c *cache[B]) stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Inserts:    c.inserts.Load(),
		Evictions:  c.evictions.Load(),
		UsageBytes: c.meta.usage(),
		LimitBytes: c.meta.limit(),
	}
}

// resizeFast is a convenience used by requestGrow: it uses the fast
// retry policy to attempt the resize's growMu lock and gives up rather
// than blocking the caller indefinitely.
func resizeFast(fn func() error) error {
	return retry.Do(retry.Fast(), fn)
}
