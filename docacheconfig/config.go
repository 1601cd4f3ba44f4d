// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package docacheconfig loads a Manager's configuration from YAML and
// optionally watches it for changes, following the load/watch split the
// teacher repo uses for its own file-backed config (netns's fsnotify
// watcher loop) paired with the teacher's preferred YAML library.
package docacheconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the YAML-loadable shape of a Manager's tunables (spec.md
// §3's ManagerConfig, expanded with yaml tags and defaults suitable for
// hot-reload).
type Config struct {
	GlobalBudgetBytes       int64         `yaml:"global_budget_bytes"`
	HighWaterMarkFraction   float64       `yaml:"high_water_mark_fraction"`
	RebalanceInterval       time.Duration `yaml:"rebalance_interval"`
	MigrationTriesFast      uint64        `yaml:"migration_tries_fast"`
	MigrationTriesSlow      uint64        `yaml:"migration_tries_slow"`
	MigrationTriesGuarantee uint64        `yaml:"migration_tries_guarantee"`
}

// defaults applied to any field left zero after parsing, so a minimal
// config file (just global_budget_bytes) is enough to get a usable
// Manager.
func (c *Config) applyDefaults() {
	if c.HighWaterMarkFraction <= 0 {
		c.HighWaterMarkFraction = 0.9
	}
	if c.RebalanceInterval <= 0 {
		c.RebalanceInterval = 250 * time.Millisecond
	}
	if c.MigrationTriesFast == 0 {
		c.MigrationTriesFast = 1 << 10
	}
	if c.MigrationTriesSlow == 0 {
		c.MigrationTriesSlow = 1 << 14
	}
	if c.MigrationTriesGuarantee == 0 {
		c.MigrationTriesGuarantee = 1 << 20
	}
}

// Load parses path as YAML into a Config, rejecting a budget that would
// leave a Manager unable to admit anything (spec.md §8's testable
// property for this package).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docacheconfig: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("docacheconfig: parsing %s: %w", path, err)
	}
	if cfg.GlobalBudgetBytes <= 0 {
		return nil, fmt.Errorf("docacheconfig: global_budget_bytes must be > 0, got %d", cfg.GlobalBudgetBytes)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
