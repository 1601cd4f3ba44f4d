// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package clock provides a fast, coarse-grained monotonic clock source
// for the cache engine's Manager. The Manager stamps audit events and
// paces its housekeeping loop on every tick; calling time.Now() that
// often is needless GC pressure (it escapes to the heap on many
// platforms). Instead a background goroutine refreshes a cached
// timestamp roughly ten times a second and readers just load it
// atomically.
//
// The pack's own monotime package documents exactly this contract
// (Now() uint64, Since(t uint64) time.Duration) but its implementation
// reaches into the runtime via go:linkname, which is not something this
// module can safely reproduce without the toolchain to verify against.
// The calibrated-clock loop below is the same idea implemented the way
// the other cache-shaped example in the retrieval pack
// (simplygulshan4u-ecache2) does it: a ticking goroutine plus an atomic
// int64, calibrated once a second against time.Now and interpolated in
// between.
package clock

import (
	"sync/atomic"
	"time"
)

var cached atomic.Int64

func init() {
	cached.Store(time.Now().UnixNano())
	go calibrate()
}

func calibrate() {
	const tick = 100 * time.Millisecond
	const ticksPerSecond = 10
	for {
		cached.Store(time.Now().UnixNano())
		for i := 0; i < ticksPerSecond-1; i++ {
			time.Sleep(tick)
			cached.Add(int64(tick))
		}
		time.Sleep(tick)
	}
}

// Now returns a monotonically non-decreasing count of nanoseconds,
// refreshed roughly every 100ms. It is cheap enough to call from the
// hot insert/find path for audit-event timestamps.
func Now() int64 {
	return cached.Load()
}

// Since returns the elapsed duration since a timestamp returned by Now.
func Since(t int64) time.Duration {
	return time.Duration(Now() - t)
}
