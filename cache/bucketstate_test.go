// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "testing"

func TestBucketStateLockUnlock(t *testing.T) {
	var s bucketState
	if !s.lock(1) {
		t.Fatal("expected uncontended lock to succeed")
	}
	if s.lock(4) {
		t.Fatal("expected re-lock of a held bucket to fail")
	}
	s.unlock()
	if !s.lock(1) {
		t.Fatal("expected lock to succeed again after unlock")
	}
}

func TestBucketStateLockBoundedTries(t *testing.T) {
	var s bucketState
	s.lock(1)
	if s.lock(3) {
		t.Fatal("lock should not succeed while already held")
	}
}

func TestBucketStateFlags(t *testing.T) {
	var s bucketState
	s.lock(1)
	s.setFlag(flagMigrated)
	if !s.isSet(flagMigrated) {
		t.Fatal("expected migrated flag to be set")
	}
	if !s.isLocked() {
		t.Fatal("setFlag must not disturb the lock bit")
	}
	s.toggleFlag(flagBanished)
	if !s.isSet(flagBanished) {
		t.Fatal("expected banished flag set after toggle")
	}
	s.toggleFlag(flagBanished)
	if s.isSet(flagBanished) {
		t.Fatal("expected banished flag cleared after second toggle")
	}
}

func TestBucketStateClearPreservesLock(t *testing.T) {
	var s bucketState
	s.lock(1)
	s.setFlag(flagMigrated)
	s.setFlag(flagBanished)
	s.clear()
	if s.isSet(flagMigrated) || s.isSet(flagBanished) {
		t.Fatal("expected clear to drop migrated/banished flags")
	}
	if !s.isLocked() {
		t.Fatal("expected clear to leave the lock bit held")
	}
}
