// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"github.com/docache/docache/docacheaudit"
	"github.com/docache/docache/internal/clock"
)

// TransactionalCache adds banish semantics to the shared cache
// behavior: removing a key while a transaction is open marks its hash
// banished in the owning bucket so that a concurrent reinsert by
// another connection does not become visible to a transaction that
// already observed the key as absent, until that transaction's term
// closes (spec.md §4.9, grounded on
// original_source/arangod/Cache/TransactionalCache.cpp and
// TransactionalBucket.cpp).
type TransactionalCache struct {
	c *cache[*transactionalBucket]
}

// TransactionalCacheConfig configures a new TransactionalCache.
type TransactionalCacheConfig struct {
	Hasher         hasher
	InitialLogSize uint32
	Limit          int64
}

// NewTransactionalCache creates a standalone TransactionalCache not
// registered with any Manager. Most callers should instead use
// Manager.CreateTransactionalCache so banish terms are driven by the
// Manager's shared transaction-term clock.
func NewTransactionalCache(cfg TransactionalCacheConfig) *TransactionalCache {
	return newTransactionalCacheWithManager(0, cfg, nil)
}

func newTransactionalCacheWithManager(id uint64, cfg TransactionalCacheConfig, mgr *Manager) *TransactionalCache {
	h := cfg.Hasher
	if h == nil {
		h = BinaryKeyHasher{}
	}
	c := newCache[*transactionalBucket](id, cfg.InitialLogSize, func() *transactionalBucket { return &transactionalBucket{} }, h, cfg.Limit, transactionalBucketSlots, mgr)
	c.newValue = newCachedValue
	return &TransactionalCache{c: c}
}

// ID returns the cache's Manager-assigned identifier (0 for a
// standalone cache created via NewTransactionalCache).
func (tc *TransactionalCache) ID() uint64 { return tc.c.id }

// Find looks up key, honoring any banish record against the caller's
// current transaction term: a banished hash is reported as not found
// even if a later writer has since reinserted it, for as long as the
// banish record's term has not been superseded.
func (tc *TransactionalCache) Find(key []byte) Finding {
	hash := tc.c.hasher.HashKey(key)
	b, ok := tc.c.table.fetchAndLockBucket(hash, triesFast)
	if !ok {
		tc.c.misses.Add(1)
		return notFound(ErrLockTimeout)
	}
	defer b.unlock()

	if tc.c.manager != nil {
		b.updateBanishTerm(tc.c.manager.currentTerm())
	}
	if b.isBanished(hash) {
		tc.c.misses.Add(1)
		return notFound(ErrNotFound)
	}
	v := b.find(tc.c.hasher, hash, key, true)
	if v == nil {
		tc.c.misses.Add(1)
		return notFound(ErrNotFound)
	}
	tc.c.hits.Add(1)
	return newFinding(v, nil)
}

// Insert stores value under key, rejecting with ErrConflict if key's
// hash is currently banished: a transaction that removed this key and
// banished it must not see its own write reappear out from under it via
// some other connection's insert (spec.md §4.9).
func (tc *TransactionalCache) Insert(key, value []byte) error {
	hash := tc.c.hasher.HashKey(key)
	b, ok := tc.c.table.fetchAndLockBucket(hash, triesSlow)
	if !ok {
		return ErrLockTimeout
	}
	if tc.c.manager != nil {
		b.updateBanishTerm(tc.c.manager.currentTerm())
	}
	banished := b.isBanished(hash)
	b.unlock()
	if banished {
		return ErrConflict
	}
	return tc.c.insert(key, value)
}

// Remove deletes key. If term denotes a currently-open transaction
// (haveOpenTransaction(term)), the key's hash is also banished at term
// so other open transactions keep seeing it as absent until the term
// advances past theirs.
func (tc *TransactionalCache) Remove(key []byte, term uint64) error {
	hash := tc.c.hasher.HashKey(key)
	b, ok := tc.c.table.fetchAndLockBucket(hash, triesSlow)
	if !ok {
		return ErrLockTimeout
	}
	defer b.unlock()

	v := b.remove(tc.c.hasher, hash, key)
	if haveOpenTransaction(term) {
		b.banish(hash, term)
		if tc.c.manager != nil {
			tc.c.manager.auditSink().Emit(docacheaudit.Event{
				Kind: docacheaudit.KindBanish, CacheID: tc.c.id, Timestamp: clock.Now(),
			})
		}
	}
	if v == nil {
		return ErrNotFound
	}
	tc.c.meta.release(v.Size())
	if tc.c.manager != nil {
		tc.c.manager.releaseGlobal(v.Size())
	}
	return nil
}

// Banish locks key's bucket, removes any matching entry (accounting for
// the freed memory), then marks the hash banished at term. Returns
// ErrNotFound if no entry existed for key (spec.md §4.9).
func (tc *TransactionalCache) Banish(key []byte, term uint64) error {
	hash := tc.c.hasher.HashKey(key)
	b, ok := tc.c.table.fetchAndLockBucket(hash, triesSlow)
	if !ok {
		return ErrLockTimeout
	}
	defer b.unlock()

	v := b.remove(tc.c.hasher, hash, key)
	b.banish(hash, term)
	if tc.c.manager != nil {
		tc.c.manager.auditSink().Emit(docacheaudit.Event{
			Kind: docacheaudit.KindBanish, CacheID: tc.c.id, Timestamp: clock.Now(),
		})
	}
	if v == nil {
		return ErrNotFound
	}
	tc.c.meta.release(v.Size())
	if tc.c.manager != nil {
		tc.c.manager.releaseGlobal(v.Size())
	}
	return nil
}

// FreeMemoryWhile evicts LRU entries until shouldContinue returns
// false, returning bytes reclaimed. Unlike Find and Insert, this sweep
// does not call updateBanishTerm on the buckets it visits, so it acts
// on whatever banish state each bucket last recorded; banish records
// only keep entries out, so evicting under a stale one is harmless.
func (tc *TransactionalCache) FreeMemoryWhile(shouldContinue func(freedBytes int64) bool) int64 {
	return tc.c.freeMemoryWhile(shouldContinue)
}

// Clear empties the cache.
func (tc *TransactionalCache) Clear() { tc.c.clear() }

// Usage returns current accounted byte usage.
func (tc *TransactionalCache) Usage() int64 { return tc.c.usage() }

// Stats returns a snapshot of operation counters.
func (tc *TransactionalCache) Stats() Stats { return tc.c.stats() }

func (tc *TransactionalCache) migrateStep() bool { return tc.c.migrateStep() }
