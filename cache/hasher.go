// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

// hasher is implemented by the two key schemes a cache can be
// parameterized over (spec.md §4.8): BinaryKeyHasher for opaque byte
// keys, and RecordKeyHasher for structured records normalized to bytes
// before hashing. A C++ template parameter becomes a Go interface field
// on Table/Cache instead; HashKey/SameKey are the only two operations a
// bucket needs from it.
type hasher interface {
	// HashKey returns a key's hash, guaranteed non-zero (hash 0 is
	// reserved to mark an empty slot in some bucket layouts upstream,
	// so implementations substitute 1 when the natural hash is 0).
	HashKey(key []byte) uint32

	// SameKey reports whether a and b denote the same logical key. For
	// BinaryKeyHasher this is a byte-equality check; RecordKeyHasher
	// instead compares the normalized structural form, so two
	// differently-encoded byte strings can still be the same key.
	SameKey(a, b []byte) bool
}
