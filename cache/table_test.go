// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "testing"

func newPlainTable(logSize uint32) *table[*plainBucket] {
	return newTable[*plainBucket](logSize, func() *plainBucket { return &plainBucket{} })
}

func TestTableSizeIsPowerOfTwo(t *testing.T) {
	tb := newPlainTable(4)
	if got, want := tb.size(), uint32(16); got != want {
		t.Fatalf("size() = %d, want %d", got, want)
	}
}

func TestTableFetchAndLockBucket(t *testing.T) {
	tb := newPlainTable(4)
	hash := testHasher.HashKey([]byte("k1"))

	b, ok := tb.fetchAndLockBucket(hash, 4)
	if !ok {
		t.Fatal("expected fetchAndLockBucket to succeed")
	}
	defer b.unlock()

	cv := newCachedValue([]byte("k1"), []byte("v1"))
	b.insert(hash, cv)
	if got := b.find(testHasher, hash, []byte("k1"), true); got != cv {
		t.Fatal("expected inserted value to be found in the locked bucket")
	}
}

func TestTableMigrationRedistributesEntries(t *testing.T) {
	tb := newPlainTable(3)
	for i := 0; i < 8; i++ {
		key := []byte{byte(i)}
		hash := testHasher.HashKey(key)
		b, ok := tb.fetchAndLockBucket(hash, 4)
		if !ok {
			t.Fatalf("fetchAndLockBucket failed for entry %d", i)
		}
		b.insert(hash, newCachedValue(key, []byte("v")))
		b.unlock()
	}

	tb.beginMigration(4)
	for !tb.migrateStep(triesGuarantee) {
	}

	if tb.auxiliary != nil {
		t.Fatal("expected a completed migration to commit, clearing auxiliary")
	}
	if got, want := tb.size(), uint32(16); got != want {
		t.Fatalf("size() after commit = %d, want %d", got, want)
	}
	for i := 0; i < 8; i++ {
		key := []byte{byte(i)}
		hash := testHasher.HashKey(key)
		idx := tb.bucketIndex(hash)
		found := tb.buckets[idx].find(testHasher, hash, key, false)
		if found == nil {
			t.Fatalf("entry %d missing from migrated table", i)
		}
	}
}

func TestIdealSizeGrowsWithEntryCount(t *testing.T) {
	small := idealSize(10, 10)
	large := idealSize(100000, 10)
	if large <= small {
		t.Fatalf("expected idealSize to grow with entry count: small=%d large=%d", small, large)
	}
	if small < minLogSize {
		t.Fatalf("idealSize must never go below minLogSize: got %d", small)
	}
}
