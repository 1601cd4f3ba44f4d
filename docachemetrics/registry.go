// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package docachemetrics exposes a Manager's per-cache and global
// counters as Prometheus metrics, following the CounterVec/GaugeVec
// construction style used elsewhere in the retrieved example pack
// (cmd/tempo-vulture/metrics.go) rather than a bespoke accounting
// layer: a vector labeled by cache id lets any number of caches share
// one set of metric families instead of registering one family per
// cache.
package docachemetrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "docache"

// Registry wraps a dedicated prometheus.Registry so embedding
// applications can choose whether and how to expose it (e.g. mounting
// it under /metrics) without docache reaching for the global default
// registry.
type Registry struct {
	reg *prometheus.Registry

	usedBytes       *prometheus.GaugeVec
	allocatedBytes  *prometheus.GaugeVec
	hitTotal        *prometheus.GaugeVec
	missTotal       *prometheus.GaugeVec
	evictionTotal   *prometheus.GaugeVec
	migrationTotal  *prometheus.CounterVec
	budgetBytes     prometheus.Gauge
	transactionTerm prometheus.Gauge
}

// NewRegistry creates a Registry with all metric families registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		usedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "used_bytes", Help: "bytes currently held by a cache's live entries",
		}, []string{"cache_id"}),
		allocatedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "allocated_bytes", Help: "bytes a cache is permitted to use",
		}, []string{"cache_id"}),
		// These are GaugeVecs rather than CounterVecs even though
		// named "_total": cache.Stats already reports a cumulative
		// count on every poll, so Report sets the latest value
		// instead of adding a delta on top of it.
		hitTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hit_total", Help: "total Find calls that located an entry",
		}, []string{"cache_id"}),
		missTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "miss_total", Help: "total Find calls that found nothing",
		}, []string{"cache_id"}),
		evictionTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "eviction_total", Help: "total entries evicted to make room",
		}, []string{"cache_id"}),
		migrationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "migration_total", Help: "total bucket migration steps completed",
		}, []string{"cache_id"}),
		budgetBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "budget_bytes", Help: "global byte budget shared across every cache",
		}),
		transactionTerm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "transaction_term", Help: "current transaction term clock value",
		}),
	}
	r.reg.MustRegister(
		r.usedBytes, r.allocatedBytes, r.hitTotal, r.missTotal,
		r.evictionTotal, r.migrationTotal, r.budgetBytes, r.transactionTerm,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP handler to
// serve, e.g. via promhttp.HandlerFor(reg.Gatherer(), ...).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// CacheStats is the subset of cache.Stats this package reports, kept
// independent of the cache package so docachemetrics has no import
// cycle back onto it.
type CacheStats struct {
	CacheID    string
	Hits       int64
	Misses     int64
	Evictions  int64
	UsageBytes int64
	LimitBytes int64
}

// Report updates every per-cache metric from a fresh snapshot. Calling
// it is cheap (label lookups plus atomic stores) and safe to do on
// every housekeeping pass.
func (r *Registry) Report(s CacheStats) {
	r.usedBytes.WithLabelValues(s.CacheID).Set(float64(s.UsageBytes))
	r.allocatedBytes.WithLabelValues(s.CacheID).Set(float64(s.LimitBytes))
	r.hitTotal.WithLabelValues(s.CacheID).Set(float64(s.Hits))
	r.missTotal.WithLabelValues(s.CacheID).Set(float64(s.Misses))
	r.evictionTotal.WithLabelValues(s.CacheID).Set(float64(s.Evictions))
}

// ReportMigrationStep increments the migration counter for cacheID.
func (r *Registry) ReportMigrationStep(cacheID string) {
	r.migrationTotal.WithLabelValues(cacheID).Inc()
}

// SetGlobalBudget records the Manager's current global byte budget.
func (r *Registry) SetGlobalBudget(bytes int64) {
	r.budgetBytes.Set(float64(bytes))
}

// SetTransactionTerm records the Manager's current transaction term.
func (r *Registry) SetTransactionTerm(term uint64) {
	r.transactionTerm.Set(float64(term))
}
