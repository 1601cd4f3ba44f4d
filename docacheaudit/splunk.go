// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package docacheaudit

import (
	"strconv"
	"time"

	hec "github.com/aristanetworks/splunk-hec-go"

	"github.com/docache/docache/logger"
)

// SplunkSink emits events to a Splunk HEC cluster, grounded on
// cmd/ocsplunk/main.go's hec.Cluster/hec.Event construction. Emit never
// blocks on the network: events are queued to a bounded channel
// drained by a single background worker, and Emit drops the event
// rather than waiting when that queue is full.
type SplunkSink struct {
	cluster hec.Cluster
	source  string
	queue   chan Event
	log     logger.Logger
}

// SplunkConfig configures a SplunkSink.
type SplunkConfig struct {
	URLs       []string
	Token      string
	Index      string
	QueueDepth int
	Logger     logger.Logger
}

// NewSplunkSink creates a SplunkSink and starts its background worker.
func NewSplunkSink(cfg SplunkConfig) *SplunkSink {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 1024
	}
	s := &SplunkSink{
		cluster: hec.NewCluster(cfg.URLs, cfg.Token),
		source:  "docache",
		queue:   make(chan Event, depth),
		log:     logger.OrNop(cfg.Logger),
	}
	go s.run(cfg.Index)
	return s
}

// Emit queues ev for delivery, dropping it (and logging a warning) if
// the queue is full.
func (s *SplunkSink) Emit(ev Event) {
	select {
	case s.queue <- ev:
	default:
		s.log.Warningf("docacheaudit: splunk queue full, dropping %s event for cache %d", ev.Kind, ev.CacheID)
	}
}

func (s *SplunkSink) run(index string) {
	sourceType := "docache"
	for ev := range s.queue {
		cacheID := strconv.FormatUint(ev.CacheID, 10)
		hecEvent := &hec.Event{
			Index:      &index,
			Source:     &s.source,
			SourceType: &sourceType,
			Event: map[string]interface{}{
				"kind":     string(ev.Kind),
				"cache_id": cacheID,
				"bytes":    ev.Bytes,
			},
		}
		hecEvent.SetTime(time.Unix(0, ev.Timestamp))
		if err := s.cluster.WriteEvent(hecEvent); err != nil {
			s.log.Warningf("docacheaudit: splunk write failed: %v", err)
		}
	}
}

// Close closes the queue: the worker delivers the events already queued
// and then exits. Emit must not be called after Close.
func (s *SplunkSink) Close() { close(s.queue) }
