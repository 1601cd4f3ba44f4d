// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

// transactionalBucketSlots is smaller than plainBucketSlots because the
// same cache-line budget also holds the banish-hash slots and the
// banish term, grounded on the 3-data-slot layout in
// original_source/arangod/Cache/TransactionalBucket.h.
const (
	transactionalBucketSlots = 3
	banishSlots              = 4
)

// transactionalBucket adds banish semantics on top of a plain bucket's
// find/insert/remove/evict behavior: a document that was removed inside
// a still-open transaction must stay invisible to that transaction even
// if some other connection reinserts it before the transaction commits
// or rolls back (spec.md §4.2's "banish" rules, renamed from the
// original's "blacklist" terminology).
type transactionalBucket struct {
	state      bucketState
	slotsUsed  int
	hashes     [transactionalBucketSlots]uint32
	values     [transactionalBucketSlots]*CachedValue
	banishTerm uint64
	banished   [banishSlots]uint32
	banishUsed int
}

func (b *transactionalBucket) lock(maxTries uint64) bool { return b.state.lock(maxTries) }
func (b *transactionalBucket) unlock()                   { b.state.unlock() }
func (b *transactionalBucket) isLocked() bool            { return b.state.isLocked() }
func (b *transactionalBucket) isMigrated() bool          { return b.state.isSet(flagMigrated) }
func (b *transactionalBucket) isFull() bool              { return b.slotsUsed == transactionalBucketSlots }
func (b *transactionalBucket) markMigrated()             { b.state.setFlag(flagMigrated) }

// forEachEntry visits every live (hash, value) pair; see bucketOps.
func (b *transactionalBucket) forEachEntry(fn func(hash uint32, value *CachedValue)) {
	for i := 0; i < b.slotsUsed; i++ {
		fn(b.hashes[i], b.values[i])
	}
}

// propagateBanish merges this bucket's banish records into dst, which
// belongs to the auxiliary table migration is populating. dst keeps
// whichever banish term is newer and the union of both banish sets
// (falling back to a full banish if the union would overflow).
func (b *transactionalBucket) propagateBanish(dst *transactionalBucket) {
	if b.banishTerm > dst.banishTerm {
		dst.updateBanishTerm(b.banishTerm)
	}
	if b.state.isSet(flagBanished) {
		dst.state.setFlag(flagBanished)
		return
	}
	for i := 0; i < b.banishUsed; i++ {
		dst.banish(b.banished[i], b.banishTerm)
	}
}

// haveOpenTransaction reports whether term denotes a currently-open
// transaction. Terms are assigned by Manager.BeginTransaction /
// EndTransaction such that odd terms are open and even terms are
// closed (spec.md §4.9).
func haveOpenTransaction(term uint64) bool {
	return term&1 != 0
}

func (b *transactionalBucket) find(h hasher, hash uint32, key []byte, moveToFront bool) *CachedValue {
	for i := 0; i < b.slotsUsed; i++ {
		if b.hashes[i] == hash && h.SameKey(b.values[i].Key(), key) {
			v := b.values[i]
			if moveToFront && i != 0 {
				b.moveToFront(i)
			}
			return v
		}
	}
	return nil
}

func (b *transactionalBucket) insert(hash uint32, value *CachedValue) {
	if b.slotsUsed >= transactionalBucketSlots {
		return
	}
	b.hashes[b.slotsUsed] = hash
	b.values[b.slotsUsed] = value
	if b.slotsUsed != 0 {
		b.moveToFront(b.slotsUsed)
	}
	b.slotsUsed++
}

func (b *transactionalBucket) remove(h hasher, hash uint32, key []byte) *CachedValue {
	for i := 0; i < b.slotsUsed; i++ {
		if b.hashes[i] == hash && h.SameKey(b.values[i].Key(), key) {
			v := b.values[i]
			b.closeGap(i)
			return v
		}
	}
	return nil
}

func (b *transactionalBucket) evictionCandidate() *CachedValue {
	for i := b.slotsUsed - 1; i >= 0; i-- {
		if b.values[i].IsFreeable() {
			return b.values[i]
		}
	}
	return nil
}

func (b *transactionalBucket) evictCandidate() int64 {
	for i := b.slotsUsed - 1; i >= 0; i-- {
		if b.values[i].IsFreeable() {
			size := b.values[i].Size()
			b.closeGap(i)
			return size
		}
	}
	return 0
}

func (b *transactionalBucket) closeGap(slot int) {
	last := b.slotsUsed - 1
	b.hashes[slot] = b.hashes[last]
	b.values[slot] = b.values[last]
	b.hashes[last] = 0
	b.values[last] = nil
	b.slotsUsed--
}

func (b *transactionalBucket) moveToFront(slot int) {
	hash := b.hashes[slot]
	value := b.values[slot]
	for i := slot; i >= 1; i-- {
		b.hashes[i] = b.hashes[i-1]
		b.values[i] = b.values[i-1]
	}
	b.hashes[0] = hash
	b.values[0] = value
}

// banish marks hash as removed-under-an-open-transaction as of term. If
// the banish list is already full, the bucket falls back to banishing
// every key (flagBanished) rather than losing the record that *some*
// key in this bucket is banished — matching the original's behavior
// when its blacklist/banish slots overflow.
func (b *transactionalBucket) banish(hash uint32, term uint64) {
	b.updateBanishTerm(term)
	if !haveOpenTransaction(b.banishTerm) {
		return
	}

	if b.state.isSet(flagBanished) {
		return
	}
	for i := 0; i < b.banishUsed; i++ {
		if b.banished[i] == hash {
			return
		}
	}
	if b.banishUsed >= banishSlots {
		b.state.setFlag(flagBanished)
		return
	}
	b.banished[b.banishUsed] = hash
	b.banishUsed++
}

// isBanished reports whether hash was banished at a term the caller's
// transaction can still observe.
func (b *transactionalBucket) isBanished(hash uint32) bool {
	if !haveOpenTransaction(b.banishTerm) {
		return false
	}
	if b.state.isSet(flagBanished) {
		return true
	}
	for i := 0; i < b.banishUsed; i++ {
		if b.banished[i] == hash {
			return true
		}
	}
	return false
}

// updateBanishTerm advances the bucket's notion of the current
// transaction term, clearing any banish records that predate it: once
// every transaction open at the old term has ended, banished keys from
// that term are safe to forget (spec.md §4.9's "banish_term monotonic
// non-decreasing").
func (b *transactionalBucket) updateBanishTerm(term uint64) {
	if term <= b.banishTerm {
		return
	}
	b.banishTerm = term
	b.banishUsed = 0
	for i := range b.banished {
		b.banished[i] = 0
	}
	b.state.clearFlags(flagBanished)
}

// clear reinitializes the bucket, including all banish state. Like
// plainBucket.clear, the lock is held on entry and released on exit.
func (b *transactionalBucket) clear() {
	b.state.clear()
	for i := 0; i < transactionalBucketSlots; i++ {
		b.hashes[i] = 0
		b.values[i] = nil
	}
	b.slotsUsed = 0
	b.banishTerm = 0
	b.banishUsed = 0
	for i := range b.banished {
		b.banished[i] = 0
	}
	b.unlock()
}
