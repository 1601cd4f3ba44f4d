// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristanetworks/gomap"

	"github.com/docache/docache/docacheaudit"
	"github.com/docache/docache/docachemetrics"
	"github.com/docache/docache/internal/budget"
	"github.com/docache/docache/internal/clock"
	"github.com/docache/docache/internal/retry"
	"github.com/docache/docache/logger"
)

// registeredCache is the common surface Manager needs from either a
// PlainCache or a TransactionalCache: enough to drive housekeeping
// without the Manager itself being generic over bucket type.
type registeredCache interface {
	ID() uint64
	Usage() int64
	Stats() Stats
	FreeMemoryWhile(func(freedBytes int64) bool) int64
	migrateStep() bool
}

// ManagerConfig configures a Manager (spec.md §4.10).
type ManagerConfig struct {
	// GlobalLimit is the total byte budget shared across every cache
	// this Manager owns.
	GlobalLimit int64
	// HousekeepingInterval is how often the background worker sweeps
	// for migrations in progress and evicts when global usage exceeds
	// the global limit. Defaults to 250ms if zero.
	HousekeepingInterval time.Duration
	// Logger receives diagnostic messages; defaults to a no-op logger.
	Logger logger.Logger
}

// Manager arbitrates a single global memory budget across every cache
// it creates, assigns monotonically increasing transaction terms, and
// runs the housekeeping worker that drives incremental table
// migrations and evicts under global pressure (spec.md §4.10, grounded
// on the Manager described there; original_source/ does not retrieve
// Manager.cpp, so the registry and housekeeping loop shapes follow this
// package's own idioms rather than a ported original).
type Manager struct {
	global *budget.Weighted
	log    logger.Logger

	nextID atomic.Uint64
	term   atomic.Uint64

	caches gomap.Map[uint64, registeredCache]

	metrics *docachemetrics.Registry
	audit   atomic.Pointer[docacheaudit.Sink]

	housekeepingInterval time.Duration
	stopOnce             sync.Once
	stop                 chan struct{}
	done                 chan struct{}
}

// NewManager creates a Manager and starts its housekeeping worker.
// Callers should call Shutdown when done to stop the worker cleanly.
func NewManager(cfg ManagerConfig) *Manager {
	interval := cfg.HousekeepingInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	m := &Manager{
		global:               budget.NewWeighted(cfg.GlobalLimit),
		log:                  logger.OrNop(cfg.Logger),
		metrics:              docachemetrics.NewRegistry(),
		housekeepingInterval: interval,
		stop:                 make(chan struct{}),
		done:                 make(chan struct{}),
	}
	nop := docacheaudit.Nop()
	m.audit.Store(&nop)
	go m.housekeeping()
	return m
}

// Metrics returns the Manager's Prometheus registry, so an embedding
// application can serve it however it likes (SPEC_FULL.md §6).
func (m *Manager) Metrics() *docachemetrics.Registry { return m.metrics }

// SetAuditSink installs sink as the destination for lifecycle audit
// events. Passing nil restores the no-op sink.
func (m *Manager) SetAuditSink(sink docacheaudit.Sink) {
	sink = docacheaudit.OrNop(sink)
	m.audit.Store(&sink)
}

func (m *Manager) auditSink() docacheaudit.Sink {
	return *m.audit.Load()
}

// CreatePlainCache registers and returns a new PlainCache sharing this
// Manager's global budget.
func (m *Manager) CreatePlainCache(cfg PlainCacheConfig) *PlainCache {
	id := m.nextID.Add(1)
	pc := newPlainCacheWithManager(id, cfg, m)
	m.caches.Set(id, pc)
	return pc
}

// CreateTransactionalCache registers and returns a new
// TransactionalCache sharing this Manager's global budget.
func (m *Manager) CreateTransactionalCache(cfg TransactionalCacheConfig) *TransactionalCache {
	id := m.nextID.Add(1)
	tc := newTransactionalCacheWithManager(id, cfg, m)
	m.caches.Set(id, tc)
	return tc
}

// BeginTransaction returns a new transaction term. Terms are odd while
// a transaction denoted by that term is open (spec.md §4.9).
func (m *Manager) BeginTransaction() uint64 {
	term := m.term.Add(1)
	if !haveOpenTransaction(term) {
		term = m.term.Add(1)
	}
	m.auditSink().Emit(docacheaudit.Event{Kind: docacheaudit.KindBeginTransaction, Timestamp: clock.Now()})
	return term
}

// EndTransaction advances the shared term clock past term, signaling
// that any bucket holding a banish record at or before term can forget
// it once every cache has observed the advance (spec.md §4.9).
func (m *Manager) EndTransaction(term uint64) {
	defer m.auditSink().Emit(docacheaudit.Event{Kind: docacheaudit.KindEndTransaction, Bytes: int64(term), Timestamp: clock.Now()})
	for {
		cur := m.term.Load()
		if cur > term {
			return
		}
		if m.term.CompareAndSwap(cur, term+1) {
			return
		}
	}
}

// currentTerm returns the Manager's present transaction term.
func (m *Manager) currentTerm() uint64 { return m.term.Load() }

// reserveGlobal attempts to account size bytes against the global
// budget, returning false without side effects if it would not fit.
func (m *Manager) reserveGlobal(size int64) bool { return m.global.TryAcquire(size) }

// releaseGlobal gives back size bytes to the global budget.
func (m *Manager) releaseGlobal(size int64) { m.global.Release(size) }

// GlobalUsage returns the total bytes currently accounted across every
// cache this Manager owns.
func (m *Manager) GlobalUsage() int64 { return m.global.Allocated() }

// GlobalLimit returns the current global byte budget.
func (m *Manager) GlobalLimit() int64 { return m.global.Capacity() }

// SetGlobalLimit resizes the shared budget, e.g. in response to a
// reload of docacheconfig. If the new limit is a reduction, it blocks
// using the Slow retry policy until usage has been evicted down to fit
// or the policy gives up, rather than leaving the budget over capacity
// until housekeeping's next tick happens to notice.
func (m *Manager) SetGlobalLimit(limit int64) {
	m.global.SetCapacity(limit)
	if m.global.Allocated() <= limit {
		return
	}
	_ = retry.Do(retry.Slow(), func() error {
		over := m.global.Allocated() - limit
		if over <= 0 {
			return nil
		}
		m.evictUnderPressure(over)
		if m.global.Allocated() > limit {
			return errOverBudget
		}
		return nil
	})
}

// errOverBudget signals SetGlobalLimit's retry loop that a rebalance
// pass didn't reclaim enough to fit the new limit yet; it never escapes
// SetGlobalLimit itself.
var errOverBudget = errors.New("cache: global usage still exceeds new limit")

// housekeeping is the single cooperative background task spec.md §4.10
// describes: it wakes on a fixed interval, drives one migration step
// per registered cache, and, when global usage exceeds the global
// limit, evicts from the registered caches round-robin until the
// excess is reclaimed, so no bucket lock is ever held across a sleep
// or other blocking call.
func (m *Manager) housekeeping() {
	defer close(m.done)
	ticker := time.NewTicker(m.housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.housekeepingPass()
		}
	}
}

func (m *Manager) housekeepingPass() {
	started := clock.Now()
	m.caches.Range(func(id uint64, c registeredCache) bool {
		done := c.migrateStep()
		if !done {
			m.metrics.ReportMigrationStep(strconv.FormatUint(id, 10))
			m.auditSink().Emit(docacheaudit.Event{
				Kind: docacheaudit.KindMigrate, CacheID: id, Timestamp: clock.Now(),
			})
		}
		s := c.Stats()
		m.metrics.Report(docachemetrics.CacheStats{
			CacheID:    strconv.FormatUint(id, 10),
			Hits:       s.Hits,
			Misses:     s.Misses,
			Evictions:  s.Evictions,
			UsageBytes: s.UsageBytes,
			LimitBytes: s.LimitBytes,
		})
		return true
	})
	m.metrics.SetGlobalBudget(m.global.Capacity())
	m.metrics.SetTransactionTerm(m.term.Load())

	if over := m.global.Allocated() - m.global.Capacity(); over > 0 {
		m.evictUnderPressure(over)
	}
	m.log.Debugf("housekeeping pass complete in %s", clock.Since(started))
}

// evictUnderPressure asks every registered cache to give back bytes,
// round-robin, until the global budget is back under its limit or no
// cache has anything left to evict.
func (m *Manager) evictUnderPressure(target int64) {
	var reclaimed int64
	m.caches.Range(func(id uint64, c registeredCache) bool {
		if reclaimed >= target {
			return false
		}
		reclaimed += c.FreeMemoryWhile(func(freed int64) bool {
			return reclaimed+freed < target
		})
		return true
	})
}

// Shutdown stops the housekeeping worker and waits for it to exit.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}
