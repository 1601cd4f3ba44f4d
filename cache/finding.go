// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

// Finding is a scoped borrow of a CachedValue returned by Cache.Find. It
// leases the entry on construction and must be released promptly via
// Release (or by letting a defer run) so the cache can reclaim the entry
// once every outstanding Finding is gone.
//
// Finding is move-only in spirit: Go has no copy constructors to delete,
// so the convention (matching the teacher's own guard types) is simply
// "never copy a Finding by value after Release has been called on the
// original"; callers that need to keep a value around longer than the
// Finding's scope call Copy for a deep, independent copy.
type Finding struct {
	value *CachedValue
	err   error
}

// newFinding wraps v (which may be nil) and leases it if non-nil.
func newFinding(v *CachedValue, err error) Finding {
	if v != nil {
		v.Lease()
	}
	return Finding{value: v, err: err}
}

// notFound returns the canonical miss Finding.
func notFound(err error) Finding {
	return Finding{err: err}
}

// Found reports whether the lookup succeeded.
func (f *Finding) Found() bool { return f.value != nil }

// Value returns the underlying entry, or nil if not Found.
func (f *Finding) Value() *CachedValue { return f.value }

// Err returns the error code associated with the lookup (nil on a hit).
func (f *Finding) Err() error { return f.err }

// Copy returns a deep, independent copy of the underlying value, or nil
// if this Finding did not find anything.
func (f *Finding) Copy() *CachedValue {
	if f.value == nil {
		return nil
	}
	return f.value.Copy()
}

// Release releases the lease on the underlying value, if any. Safe to
// call more than once; subsequent calls are no-ops.
func (f *Finding) Release() {
	if f.value != nil {
		f.value.Release()
		f.value = nil
	}
}
