// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package retry turns the cache engine's three named try-count classes
// (spec.md §5/§9: triesFast, triesSlow, triesGuarantee) into time-budgeted
// retry policies for the call sites that are allowed to wait — bucket
// locks themselves stay a tight bounded spin (see bucketState.lock in
// package cache), but a cache's grow request, the Manager's wait for a
// lowered global limit, and a cache's wait for a migration to finish
// are exactly the kind of "bounded tries with backoff" spec.md §9
// says should be named constants instead of call-site magic numbers.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Fast is for latency-sensitive single-operation retries (a grow request
// piggy-backed on a single insert).
func Fast() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Microsecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 50 * time.Millisecond
	return b
}

// Slow is for background housekeeping retries (Manager.SetGlobalLimit
// waiting for global usage to be evicted down under a lowered limit).
func Slow() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

// Guarantee is for operations that must eventually succeed (waiting out
// a migration so a cache's Clear can proceed) and therefore has no
// elapsed-time ceiling, only a capped backoff step.
func Guarantee() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0 // never give up
	return b
}

// Do runs fn until it returns a nil error or policy gives up, sleeping
// policy's suggested interval between attempts.
func Do(policy backoff.BackOff, fn func() error) error {
	return backoff.Retry(fn, policy)
}
