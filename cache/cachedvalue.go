// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "sync/atomic"

const (
	// maxKeySize mirrors the original C++ layout's 24-bit key-length field:
	// a key's length must fit in 3 bytes.
	maxKeySize = 1<<24 - 1
	// maxValueSize mirrors the original's 32-bit value-length field.
	maxValueSize = 1<<32 - 1
	// fixedOverhead approximates the header bytes the original's packed
	// allocation spends on refcount + lengths, so Metadata accounting
	// here tracks comparable numbers to the C++ original for a given
	// key/value size, even though this Go port keeps key and value as
	// ordinary byte slices rather than one packed allocation (design
	// note §9, strategy (a) vs (b); this is strategy (b)).
	fixedOverhead = 16
)

// CachedValue is a cache entry: an immutable key/value pair with an
// atomic reference count. Readers lease it through a Finding and must
// release it promptly; writers delete it only once isFreeable().
//
// The C++ original packs the key and value bytes directly after the
// header in one allocation with manual pointer arithmetic (design note
// §9's strategy (a)). Go has no portable, GC-safe way to do that, so
// this is strategy (b): ordinary byte slices owned by the struct, with
// the same refcount/size/freeable contract.
type CachedValue struct {
	refCount atomic.Int32
	key      []byte
	value    []byte
}

// newCachedValue constructs a CachedValue from caller-owned key and
// value bytes, validating the size invariants spec.md §4.1 requires.
// Returns nil (not an error) on invalid input, matching the original's
// "construct returns null" contract; callers that want an error should
// check ErrInvalidArgument via validateSizes first.
func newCachedValue(key, value []byte) *CachedValue {
	if err := validateSizes(key, value); err != nil {
		return nil
	}
	cv := &CachedValue{
		key:   append([]byte(nil), key...),
		value: nil,
	}
	if len(value) > 0 {
		cv.value = append([]byte(nil), value...)
	}
	return cv
}

func validateSizes(key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidArgument
	}
	if len(key) > maxKeySize {
		return ErrInvalidArgument
	}
	if len(value) > maxValueSize {
		return ErrInvalidArgument
	}
	return nil
}

// Key returns the entry's key bytes. Callers must not mutate the result.
func (cv *CachedValue) Key() []byte { return cv.key }

// Value returns the entry's value bytes, or nil if the value is
// zero-length (value() returns null iff value_size == 0, per spec.md §3).
func (cv *CachedValue) Value() []byte {
	if len(cv.value) == 0 {
		return nil
	}
	return cv.value
}

// KeySize returns the key length in bytes.
func (cv *CachedValue) KeySize() int { return len(cv.key) }

// ValueSize returns the value length in bytes.
func (cv *CachedValue) ValueSize() int { return len(cv.value) }

// Size returns the byte accounting size of the entry: fixed overhead
// plus key plus value, used by Metadata for allocation tracking.
func (cv *CachedValue) Size() int64 {
	return int64(fixedOverhead + len(cv.key) + len(cv.value))
}

// RefCount returns the current lease count.
func (cv *CachedValue) RefCount() int32 { return cv.refCount.Load() }

// Lease increments the reference count. Called when a Finding is
// constructed over this value.
func (cv *CachedValue) Lease() { cv.refCount.Add(1) }

// Release decrements the reference count. Must never be called without
// a matching Lease.
func (cv *CachedValue) Release() { cv.refCount.Add(-1) }

// IsFreeable reports whether no Finding currently holds a lease on this
// entry, i.e. it is safe to delete.
func (cv *CachedValue) IsFreeable() bool { return cv.refCount.Load() == 0 }

// Copy returns a deep copy of this entry with a fresh refcount of 0,
// matching CachedValue::copy's "fresh allocation" contract.
func (cv *CachedValue) Copy() *CachedValue {
	return newCachedValue(cv.key, cv.value)
}
