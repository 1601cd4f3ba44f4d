// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "testing"

func TestTransactionalCacheInsertFind(t *testing.T) {
	tc := NewTransactionalCache(TransactionalCacheConfig{Limit: 1 << 20})
	if err := tc.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	f := tc.Find([]byte("k1"))
	defer f.Release()
	if !f.Found() {
		t.Fatal("expected Find to hit after Insert")
	}
}

func TestTransactionalCacheRemoveDuringOpenTransactionBanishes(t *testing.T) {
	tc := NewTransactionalCache(TransactionalCacheConfig{Limit: 1 << 20})
	tc.Insert([]byte("k1"), []byte("v1"))

	const openTerm = 3 // odd: open
	if err := tc.Remove([]byte("k1"), openTerm); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// A writer on some other connection tries to reinsert the same key
	// while the transaction that removed it is still open: the banish
	// record must reject the write outright, not just hide it later.
	if err := tc.Insert([]byte("k1"), []byte("v2")); err != ErrConflict {
		t.Fatalf("Insert into a banished hash = %v, want ErrConflict", err)
	}

	f := tc.Find([]byte("k1"))
	if f.Found() {
		t.Fatal("expected banished key to stay invisible")
	}
}

func TestTransactionalCacheBanishClearsOnTermAdvance(t *testing.T) {
	tc := NewTransactionalCache(TransactionalCacheConfig{Limit: 1 << 20})
	tc.Insert([]byte("k1"), []byte("v1"))
	tc.Remove([]byte("k1"), 3)

	if err := tc.Insert([]byte("k1"), []byte("v2")); err != ErrConflict {
		t.Fatalf("Insert while still banished = %v, want ErrConflict", err)
	}

	hash := tc.c.hasher.HashKey([]byte("k1"))
	b, _ := tc.c.table.fetchAndLockBucket(hash, triesSlow)
	b.updateBanishTerm(5)
	b.unlock()

	if err := tc.Insert([]byte("k1"), []byte("v2")); err != nil {
		t.Fatalf("Insert after the banish term advanced: %v", err)
	}

	f := tc.Find([]byte("k1"))
	defer f.Release()
	if !f.Found() {
		t.Fatal("expected key visible again once the banish term has advanced")
	}
}

func TestTransactionalCacheRemoveOutsideTransactionDoesNotBanish(t *testing.T) {
	tc := NewTransactionalCache(TransactionalCacheConfig{Limit: 1 << 20})
	tc.Insert([]byte("k1"), []byte("v1"))

	const closedTerm = 4 // even: closed
	tc.Remove([]byte("k1"), closedTerm)
	tc.Insert([]byte("k1"), []byte("v2"))

	f := tc.Find([]byte("k1"))
	defer f.Release()
	if !f.Found() {
		t.Fatal("expected key visible again since no transaction was open at removal time")
	}
}
