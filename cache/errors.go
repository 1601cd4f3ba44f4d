// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import "errors"

// Result errors form a flat sentinel taxonomy, the way the teacher repo's
// own RFC6241 error tags do (constants + wrapping), just re-pointed at
// cache result codes instead of NETCONF ones. Callers compare with
// errors.Is, never by string.
var (
	// ErrNotFound means a lookup missed. Not fatal: it is the normal miss path.
	ErrNotFound = errors.New("cache: not found")
	// ErrLockTimeout means a bucket lock could not be acquired within the
	// caller's max_tries budget. Transient; caller may retry.
	ErrLockTimeout = errors.New("cache: lock timeout")
	// ErrBusyBucket means all slots were full and none were evictable
	// (every entry in the bucket is currently leased).
	ErrBusyBucket = errors.New("cache: bucket busy")
	// ErrResourceLimit means Metadata or the Manager's global budget
	// refused an allocation delta. The cache has already tried to start
	// growing its own table (requestGrow).
	ErrResourceLimit = errors.New("cache: resource limit")
	// ErrConflict means a transactional insert was rejected because the
	// key is banished in the current term.
	ErrConflict = errors.New("cache: conflict (key banished)")
	// ErrShuttingDown is terminal: no further operations will succeed.
	ErrShuttingDown = errors.New("cache: shutting down")
	// ErrNotImplemented is a static fact about the chosen cache flavor
	// (PlainCache.Banish).
	ErrNotImplemented = errors.New("cache: not implemented")
	// ErrInvalidArgument means CachedValue construction was given bytes
	// that violate the key/value size invariants.
	ErrInvalidArgument = errors.New("cache: invalid argument")
)
