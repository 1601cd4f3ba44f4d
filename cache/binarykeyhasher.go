// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

// BinaryKeyHasher treats keys as opaque byte strings, grounded on
// original_source/arangod/Cache/BinaryKeyHasher.h: a fasthash32-style
// mix of the raw bytes, with the all-zero hash remapped to 1 so that 0
// stays reserved for "slot empty" in bucket layouts that need it.
type BinaryKeyHasher struct{}

// fasthash32 mixing constants, lifted from the same fasthash family the
// original's BinaryKeyHasher builds on (Zilong Tan's fasthash, folded to
// 32 bits).
const (
	fasthashSeed = uint64(0xdeadbeefdeadbeef)
	fasthashMul  = uint64(0x880355f21e6d1965)
)

func fasthashMix(h uint64) uint64 {
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return h
}

func fasthash64(data []byte, seed uint64) uint64 {
	h := seed ^ (uint64(len(data)) * fasthashMul)

	for len(data) >= 8 {
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(data[i]) << (8 * i)
		}
		h ^= fasthashMix(v)
		h *= fasthashMul
		data = data[8:]
	}

	if len(data) > 0 {
		var v uint64
		for i, b := range data {
			v |= uint64(b) << (8 * i)
		}
		h ^= fasthashMix(v)
		h *= fasthashMul
	}

	return fasthashMix(h)
}

func fasthash32(data []byte, seed uint64) uint32 {
	h := fasthash64(data, seed)
	return uint32(h - (h >> 32))
}

// HashKey implements hasher.
func (BinaryKeyHasher) HashKey(key []byte) uint32 {
	h := fasthash32(key, fasthashSeed)
	if h == 0 {
		return 1
	}
	return h
}

// SameKey implements hasher as plain byte equality.
func (BinaryKeyHasher) SameKey(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
