// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package budget tracks a byte allowance shared by the cache engine's
// Metadata (per-cache soft/hard limits) and Manager (the global budget).
// It is adapted from the pack's own weighted-semaphore wrapper
// (sync/semaphore/semaphore.go), reshaped for a call site that must never
// block: a bucket lock is held while Acquire is called, so every call
// here returns immediately rather than waiting for capacity to free up.
package budget

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// Weighted tracks how many of a fixed byte capacity are currently spoken
// for. TryAcquire/Release must be cheap: callers may hold a bucket
// spinlock while calling them.
type Weighted struct {
	mu        sync.Mutex
	sem       *semaphore.Weighted
	capacity  int64
	allocated int64
}

// NewWeighted creates a budget with the given byte capacity.
func NewWeighted(capacity int64) *Weighted {
	return &Weighted{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
	}
}

// TryAcquire reserves delta bytes if doing so would not exceed capacity.
// A non-positive delta always succeeds (it returns bytes to the budget,
// or reserves nothing) and never needs a matching Release.
func (w *Weighted) TryAcquire(delta int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if delta <= 0 {
		if delta < 0 {
			w.sem.Release(-delta)
			w.allocated += delta
		}
		return true
	}
	if w.allocated+delta > w.capacity {
		return false
	}
	if !w.sem.TryAcquire(delta) {
		return false
	}
	w.allocated += delta
	return true
}

// Release gives back delta bytes unconditionally. Used when an accounting
// step must always succeed, e.g. undoing a prior successful TryAcquire
// after a later step in the same operation failed.
func (w *Weighted) Release(delta int64) {
	if delta <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sem.Release(delta)
	w.allocated -= delta
}

// Allocated returns the number of bytes currently reserved.
func (w *Weighted) Allocated() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.allocated
}

// Capacity returns the total byte capacity.
func (w *Weighted) Capacity() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capacity
}

// SetCapacity changes the capacity, e.g. in response to a Manager rebalance
// or a hot-reloaded config. It never evicts anything itself; a lowered
// capacity that is already exceeded just blocks further TryAcquire calls
// until usage drops below it.
func (w *Weighted) SetCapacity(capacity int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if capacity == w.capacity {
		return
	}
	w.capacity = capacity
	w.sem = growSemaphore(w.sem, w.allocated, capacity)
}

// growSemaphore rebuilds the underlying semaphore.Weighted at the new
// capacity and re-acquires the currently-allocated weight, since
// semaphore.Weighted has no resize primitive of its own.
func growSemaphore(old *semaphore.Weighted, allocated, newCapacity int64) *semaphore.Weighted {
	_ = old
	size := newCapacity
	if allocated > size {
		// A capacity shrink below current usage is allowed to go
		// negative-available (existing usage is never forcibly evicted
		// here). The semaphore is sized to hold all of the existing
		// usage so later Releases never exceed what it holds;
		// TryAcquire enforces the lowered capacity itself.
		size = allocated
	}
	sem := semaphore.NewWeighted(size)
	if allocated > 0 {
		sem.TryAcquire(allocated)
	}
	return sem
}

// Available returns how many bytes can still be acquired.
func (w *Weighted) Available() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if avail := w.capacity - w.allocated; avail > 0 {
		return avail
	}
	return 0
}
