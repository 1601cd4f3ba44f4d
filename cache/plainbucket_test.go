// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "testing"

var testHasher BinaryKeyHasher

func TestPlainBucketInsertFind(t *testing.T) {
	var b plainBucket
	cv := newCachedValue([]byte("k1"), []byte("v1"))
	b.insert(testHasher.HashKey(cv.Key()), cv)

	got := b.find(testHasher, testHasher.HashKey([]byte("k1")), []byte("k1"), true)
	if got != cv {
		t.Fatal("expected find to return the inserted value")
	}
	if got := b.find(testHasher, testHasher.HashKey([]byte("nope")), []byte("nope"), true); got != nil {
		t.Fatal("expected find to miss on unknown key")
	}
}

func TestPlainBucketFindBumpsToFront(t *testing.T) {
	var b plainBucket
	cv1 := newCachedValue([]byte("k1"), []byte("v1"))
	cv2 := newCachedValue([]byte("k2"), []byte("v2"))
	b.insert(testHasher.HashKey(cv1.Key()), cv1)
	b.insert(testHasher.HashKey(cv2.Key()), cv2)

	if b.values[0] != cv2 {
		t.Fatal("expected most recently inserted value at front")
	}
	b.find(testHasher, testHasher.HashKey([]byte("k1")), []byte("k1"), true)
	if b.values[0] != cv1 {
		t.Fatal("expected find to bump k1 to front")
	}
}

func TestPlainBucketRemove(t *testing.T) {
	var b plainBucket
	cv := newCachedValue([]byte("k1"), []byte("v1"))
	b.insert(testHasher.HashKey(cv.Key()), cv)

	removed := b.remove(testHasher, testHasher.HashKey([]byte("k1")), []byte("k1"))
	if removed != cv {
		t.Fatal("expected remove to return the value")
	}
	if b.slotsUsed != 0 {
		t.Fatalf("slotsUsed = %d, want 0", b.slotsUsed)
	}
}

func TestPlainBucketFillToCapacity(t *testing.T) {
	var b plainBucket
	for i := 0; i < plainBucketSlots; i++ {
		key := []byte{byte(i)}
		cv := newCachedValue(key, []byte("v"))
		b.insert(testHasher.HashKey(key), cv)
	}
	if !b.isFull() {
		t.Fatal("expected bucket to report full at capacity")
	}

	extra := newCachedValue([]byte("overflow"), []byte("v"))
	b.insert(testHasher.HashKey(extra.Key()), extra)
	if b.slotsUsed != plainBucketSlots {
		t.Fatal("insert past capacity must be a no-op")
	}
}

func TestPlainBucketEvictionCandidateSkipsLeased(t *testing.T) {
	var b plainBucket
	cv1 := newCachedValue([]byte("k1"), []byte("v1"))
	cv2 := newCachedValue([]byte("k2"), []byte("v2"))
	cv2.Lease()
	b.insert(testHasher.HashKey(cv2.Key()), cv2)
	b.insert(testHasher.HashKey(cv1.Key()), cv1)

	candidate := b.evictionCandidate()
	if candidate != cv1 {
		t.Fatal("expected the unleased entry to be the eviction candidate")
	}
}

func TestPlainBucketEvictCandidateFreesBytes(t *testing.T) {
	var b plainBucket
	cv := newCachedValue([]byte("k1"), []byte("v1"))
	size := cv.Size()
	b.insert(testHasher.HashKey(cv.Key()), cv)

	freed := b.evictCandidate()
	if freed != size {
		t.Fatalf("freed = %d, want %d", freed, size)
	}
	if b.slotsUsed != 0 {
		t.Fatal("expected bucket empty after evicting its only entry")
	}
}

func TestPlainBucketClearResetsSlots(t *testing.T) {
	var b plainBucket
	b.lock(1)
	cv := newCachedValue([]byte("k1"), []byte("v1"))
	b.insert(testHasher.HashKey(cv.Key()), cv)
	b.clear()

	if b.slotsUsed != 0 {
		t.Fatal("expected slotsUsed reset to 0")
	}
	if b.isLocked() {
		t.Fatal("expected clear to unlock the bucket")
	}
}
