// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package docacheaudit

import (
	"strconv"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/docache/docache/logger"
)

// InfluxSink emits events as InfluxDB line-protocol points, one
// measurement ("docache_event") tagged by kind and cache id. Like
// SplunkSink, Emit never blocks on the network.
type InfluxSink struct {
	c        client.Client
	database string
	queue    chan Event
	log      logger.Logger
}

// InfluxConfig configures an InfluxSink.
type InfluxConfig struct {
	Addr       string
	Username   string
	Password   string
	Database   string
	QueueDepth int
	Logger     logger.Logger
}

// NewInfluxSink creates an InfluxSink and starts its background worker.
// Returns an error only if the HTTP client itself cannot be
// constructed (a malformed Addr); it never dials eagerly.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 1024
	}
	s := &InfluxSink{
		c:        c,
		database: cfg.Database,
		queue:    make(chan Event, depth),
		log:      logger.OrNop(cfg.Logger),
	}
	go s.run()
	return s, nil
}

// Emit queues ev for delivery, dropping it (and logging a warning) if
// the queue is full.
func (s *InfluxSink) Emit(ev Event) {
	select {
	case s.queue <- ev:
	default:
		s.log.Warningf("docacheaudit: influx queue full, dropping %s event for cache %d", ev.Kind, ev.CacheID)
	}
}

func (s *InfluxSink) run() {
	for ev := range s.queue {
		bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: s.database})
		if err != nil {
			s.log.Warningf("docacheaudit: influx batch point creation failed: %v", err)
			continue
		}
		tags := map[string]string{
			"kind":     string(ev.Kind),
			"cache_id": strconv.FormatUint(ev.CacheID, 10),
		}
		fields := map[string]interface{}{"bytes": ev.Bytes}
		pt, err := client.NewPoint("docache_event", tags, fields, time.Unix(0, ev.Timestamp))
		if err != nil {
			s.log.Warningf("docacheaudit: influx point creation failed: %v", err)
			continue
		}
		bp.AddPoint(pt)
		if err := s.c.Write(bp); err != nil {
			s.log.Warningf("docacheaudit: influx write failed: %v", err)
		}
	}
}

// Close closes the queue: the worker delivers the events already queued
// and then exits. Emit must not be called after Close.
func (s *InfluxSink) Close() { close(s.queue) }
