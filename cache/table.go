// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"golang.org/x/exp/rand"
)

// bucketOps is the set of operations a table needs from a bucket type,
// satisfied by both *plainBucket and *transactionalBucket. A table is
// generic over which one it holds rather than templated the way the
// original C++ Table<Bucket> is, since Go generics cover the same
// ground without needing a separate compiled instantiation per hasher.
// The type parameter on the interface itself (F-bounded: B must
// implement bucketOps[B]) is what lets propagateBanish take a
// same-typed destination bucket without losing static typing to `any`.
type bucketOps[B any] interface {
	lock(maxTries uint64) bool
	unlock()
	isLocked() bool
	isMigrated() bool
	isFull() bool
	markMigrated()
	find(h hasher, hash uint32, key []byte, moveToFront bool) *CachedValue
	insert(hash uint32, value *CachedValue)
	remove(h hasher, hash uint32, key []byte) *CachedValue
	evictionCandidate() *CachedValue
	evictCandidate() int64
	clear()
	// isBanished reports whether hash is currently banished. Always
	// false for bucket types that carry no banish state (plainBucket).
	isBanished(hash uint32) bool
	// forEachEntry visits every live (hash, value) pair, used by the
	// table's migration step to redistribute entries into the
	// resized auxiliary table without either bucket type needing to
	// know about tables at all.
	forEachEntry(fn func(hash uint32, value *CachedValue))
	// propagateBanish merges this bucket's banish state into dst,
	// which belongs to the auxiliary table and is already locked by
	// the caller. A no-op for bucket types that carry no banish
	// state (plainBucket).
	propagateBanish(dst B)
}

// minLogSize/maxLogSize bound a table's size the same way spec.md §4.3
// bounds them: never so small that a single hot bucket starves, never
// so large that an empty cache still pins megabytes of bucket array.
const (
	minLogSize = 3  // 8 buckets
	maxLogSize = 32 // 2^32 buckets, a practical ceiling rather than a hard one
)

// table is a power-of-two array of buckets with online grow/shrink via
// an auxiliary table, grounded on spec.md §4.3 and on the incremental
// evacuation idiom of Go's own runtime map (oldbuckets/nevacuate),
// which this codebase's own hashmap implementation once mirrored.
type table[B bucketOps[B]] struct {
	buckets   []B
	logSize   uint32
	newBucket func() B

	// auxiliary is non-nil while a grow or shrink is in progress. New
	// buckets live in auxiliary; the old array keeps serving lookups
	// for entries not yet migrated.
	auxiliary  *table[B]
	migrateIdx int
	rnd        *rand.Rand
}

func newTable[B bucketOps[B]](logSize uint32, newBucket func() B) *table[B] {
	if logSize < minLogSize {
		logSize = minLogSize
	}
	size := uint32(1) << logSize
	buckets := make([]B, size)
	for i := range buckets {
		buckets[i] = newBucket()
	}
	return &table[B]{
		buckets:   buckets,
		logSize:   logSize,
		newBucket: newBucket,
		rnd:       rand.New(rand.NewSource(uint64(logSize)*2654435761 + 1)),
	}
}

func (t *table[B]) size() uint32 { return uint32(len(t.buckets)) }

// idealSize returns the smallest log2 bucket count (never below
// minLogSize) whose total slot capacity keeps numEntries at or below
// ~75% fill, given a bucket holds slotsPerBucket entries.
func idealSize(numEntries int64, slotsPerBucket int64) uint32 {
	if slotsPerBucket <= 0 {
		slotsPerBucket = 1
	}
	target := numEntries * 4 / 3 // aim for ~75% fill
	needed := target / slotsPerBucket
	logSize := uint32(minLogSize)
	for (uint32(1)<<logSize) < uint32(needed) && logSize < maxLogSize {
		logSize++
	}
	return logSize
}

// bucketIndex maps a hash to a bucket slot for a table of this size.
func (t *table[B]) bucketIndex(hash uint32) uint32 {
	return hash & (t.size() - 1)
}

// fetchAndLockBucket returns the bucket owning hash, locked, following
// the migration chain if a grow/shrink is in flight and the target
// bucket has already been migrated into the auxiliary table. Returns
// false if the lock could not be acquired within maxTries.
func (t *table[B]) fetchAndLockBucket(hash uint32, maxTries uint64) (B, bool) {
	for {
		b := t.buckets[t.bucketIndex(hash)]
		if !b.lock(maxTries) {
			var zero B
			return zero, false
		}
		if t.auxiliary != nil && b.isMigrated() {
			b.unlock()
			t = t.auxiliary
			continue
		}
		return b, true
	}
}

// beginMigration installs a freshly-sized auxiliary table, to be
// populated bucket-by-bucket by migrateStep calls from housekeeping.
// The start offset is randomized so that concurrent caches under the
// same Manager don't all migrate their first bucket in lockstep.
func (t *table[B]) beginMigration(newLogSize uint32) {
	t.auxiliary = newTable[B](newLogSize, t.newBucket)
	t.migrateIdx = t.rnd.Intn(len(t.buckets))
}

// migrationDone reports whether every bucket in t has been migrated
// into t.auxiliary.
func (t *table[B]) migrationDone() bool {
	if t.auxiliary == nil {
		return true
	}
	for _, b := range t.buckets {
		if !b.isMigrated() {
			return false
		}
	}
	return true
}

// migrateStep migrates one not-yet-migrated bucket into the auxiliary
// table and returns whether migration is now complete. Called
// repeatedly by Manager housekeeping so that no single call holds more
// than one bucket's lock at a time (spec.md §5's no-long-holds rule).
func (t *table[B]) migrateStep(maxTries uint64) bool {
	if t.auxiliary == nil {
		return true
	}
	n := len(t.buckets)
	for i := 0; i < n; i++ {
		idx := (t.migrateIdx + i) % n
		src := t.buckets[idx]
		if src.isMigrated() {
			continue
		}
		if !src.lock(maxTries) {
			continue
		}
		if src.isMigrated() {
			src.unlock()
			continue
		}
		t.migrateBucket(src)
		src.markMigrated()
		src.unlock()
		t.migrateIdx = (idx + 1) % n
		break
	}
	if t.migrationDone() {
		t.commitMigration()
		return true
	}
	return false
}

// commitMigration promotes the auxiliary table to be this table's own
// bucket array once every bucket has been migrated into it, so a
// completed grow actually changes t.size() instead of leaving lookups
// forever chasing a pointer into an auxiliary table that never becomes
// the table of record.
func (t *table[B]) commitMigration() {
	aux := t.auxiliary
	if aux == nil {
		return
	}
	t.buckets = aux.buckets
	t.logSize = aux.logSize
	t.rnd = aux.rnd
	t.migrateIdx = 0
	t.auxiliary = nil
}

// migrateBucket redistributes src's live entries into the auxiliary
// table, locking each destination bucket only for the duration of the
// inserts it receives, and merges banish state for bucket types that
// carry it.
func (t *table[B]) migrateBucket(src B) {
	aux := t.auxiliary
	locked := make(map[uint32]bool)
	defer func() {
		for idx := range locked {
			aux.buckets[idx].unlock()
		}
	}()

	lockDst := func(hash uint32) B {
		idx := aux.bucketIndex(hash)
		if !locked[idx] {
			aux.buckets[idx].lock(triesGuarantee)
			locked[idx] = true
		}
		return aux.buckets[idx]
	}

	src.forEachEntry(func(hash uint32, value *CachedValue) {
		dst := lockDst(hash)
		if dst.isFull() {
			dst.evictCandidate()
		}
		if !dst.isFull() {
			dst.insert(hash, value)
		}
	})

	for idx := range locked {
		src.propagateBanish(aux.buckets[idx])
	}
}

// applyToAllBuckets locks each bucket in turn, invokes fn, then unlocks
// it; used by free-memory sweeps (clear() locks buckets itself, since
// bucket.clear() already unlocks on exit). fn must not block or
// perform I/O, matching the no-blocking-while-locked rule every bucket
// operation in this package already follows.
func (t *table[B]) applyToAllBuckets(fn func(b B)) {
	for _, b := range t.buckets {
		if !b.lock(triesGuarantee) {
			continue
		}
		fn(b)
		b.unlock()
	}
}

// triesGuarantee is the bound applyToAllBuckets uses: large enough that
// failing to acquire only happens under real contention, never treated
// as a fast-path timeout.
const triesGuarantee = 1 << 20
