// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T, limit int64) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		GlobalLimit:          limit,
		HousekeepingInterval: 10 * time.Millisecond,
	})
	t.Cleanup(m.Shutdown)
	return m
}

func TestManagerCreatesCachesSharingGlobalBudget(t *testing.T) {
	m := newTestManager(t, fixedOverhead+4)
	pc := m.CreatePlainCache(PlainCacheConfig{Limit: 1 << 20})
	tc := m.CreateTransactionalCache(TransactionalCacheConfig{Limit: 1 << 20})

	if err := pc.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("first insert within global budget should succeed: %v", err)
	}
	if err := tc.Insert([]byte("k2"), []byte("v2")); err == nil {
		t.Fatal("expected second cache's insert to fail once the shared global budget is exhausted")
	}
}

func TestManagerTransactionTermParity(t *testing.T) {
	m := newTestManager(t, 1<<20)
	term := m.BeginTransaction()
	if !haveOpenTransaction(term) {
		t.Fatalf("BeginTransaction returned %d, want an odd term", term)
	}
	m.EndTransaction(term)
	if haveOpenTransaction(m.currentTerm()) {
		t.Fatal("expected term to be closed (even) after EndTransaction")
	}
}

func TestManagerGlobalLimitAdjustable(t *testing.T) {
	m := newTestManager(t, 100)
	m.SetGlobalLimit(200)
	if got := m.GlobalLimit(); got != 200 {
		t.Fatalf("GlobalLimit() = %d, want 200", got)
	}
}

func TestManagerHousekeepingDrivesMigration(t *testing.T) {
	m := newTestManager(t, 1<<20)
	pc := m.CreatePlainCache(PlainCacheConfig{InitialLogSize: minLogSize, Limit: 1 << 20})
	pc.c.table.beginMigration(minLogSize + 1)

	deadline := time.Now().Add(500 * time.Millisecond)
	for !pc.c.table.migrationDone() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !pc.c.table.migrationDone() {
		t.Fatal("expected housekeeping to drive migration to completion")
	}
}
