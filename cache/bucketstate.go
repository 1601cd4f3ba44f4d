// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "sync/atomic"

// bucket state flag bits, packed into a single byte so a bucketState
// fits alongside a bucket's slot data with no padding (spec.md §3).
const (
	flagLocked   uint32 = 1 << 0
	flagMigrated uint32 = 1 << 1
	flagBanished uint32 = 1 << 2
)

// bucketState is a 1-byte-in-spirit spinlock plus flag bits. It is
// stored as a uint32 rather than a literal byte because Go's atomic
// package has no 8-bit compare-and-swap; the slot-count comments in
// plainbucket.go/transactionalbucket.go note the cache-line budget
// this counts against.
type bucketState struct {
	bits atomic.Uint32
}

// lock attempts to set the locked bit via a bounded test-and-test-and-set
// spin. It never sleeps or yields to the scheduler (spec.md §5: "No
// bucket operation performs I/O or blocks ... while holding its bucket
// lock", and acquisition itself must stay a tight spin so the budget in
// maxTries is actually a try count, not wall-clock time).
func (s *bucketState) lock(maxTries uint64) bool {
	for i := uint64(0); i < maxTries; i++ {
		cur := s.bits.Load()
		if cur&flagLocked != 0 {
			continue
		}
		if s.bits.CompareAndSwap(cur, cur|flagLocked) {
			return true
		}
	}
	return false
}

// unlock clears the locked bit. Must only be called by the lock holder.
func (s *bucketState) unlock() {
	for {
		cur := s.bits.Load()
		if s.bits.CompareAndSwap(cur, cur&^flagLocked) {
			return
		}
	}
}

func (s *bucketState) isLocked() bool {
	return s.bits.Load()&flagLocked != 0
}

func (s *bucketState) isSet(flag uint32) bool {
	return s.bits.Load()&flag != 0
}

// setFlag sets flag, preserving the lock bit and all other flags.
func (s *bucketState) setFlag(flag uint32) {
	for {
		cur := s.bits.Load()
		if s.bits.CompareAndSwap(cur, cur|flag) {
			return
		}
	}
}

// toggleFlag flips flag. The bucket code sets the banished flag with
// setFlag (when banish slots overflow) and clears it with clearFlags
// (on a term bump); toggleFlag itself is called only from tests.
func (s *bucketState) toggleFlag(flag uint32) {
	for {
		cur := s.bits.Load()
		if s.bits.CompareAndSwap(cur, cur^flag) {
			return
		}
	}
}

// clearFlags clears the given flags, preserving everything else.
func (s *bucketState) clearFlags(flags uint32) {
	for {
		cur := s.bits.Load()
		if s.bits.CompareAndSwap(cur, cur&^flags) {
			return
		}
	}
}

// clear resets migrated/banished while leaving the lock bit untouched;
// used by bucket.clear(), which per spec.md §4.2 "keeps the lock held on
// entry, releases on exit" — the caller is responsible for unlocking.
func (s *bucketState) clear() {
	s.clearFlags(flagMigrated | flagBanished)
}
