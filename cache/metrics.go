// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the cache's lifecycle operations: compiles,
// fastmem-to-slowmem downgrades, full clears, and backend overflow
// retries. This is the ambient observability surface spec.md's own
// non-goals (profiling hooks as a feature of the larger emulator) do not
// forbid at this level (SPEC_FULL's DOMAIN STACK section).
type Metrics struct {
	compiles          prometheus.Counter
	fastmemDowngrades prometheus.Counter
	clears            prometheus.Counter
	overflowRetries   prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sh4jit",
			Subsystem: "cache",
			Name:      "compiles_total",
			Help:      "Number of blocks compiled.",
		}),
		fastmemDowngrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sh4jit",
			Subsystem: "cache",
			Name:      "fastmem_downgrades_total",
			Help:      "Number of blocks demoted from FASTMEM to SLOWMEM by a fault.",
		}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sh4jit",
			Subsystem: "cache",
			Name:      "clears_total",
			Help:      "Number of full cache clears (backend code buffer resets).",
		}),
		overflowRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sh4jit",
			Subsystem: "cache",
			Name:      "overflow_retries_total",
			Help:      "Number of times Compile retried assembly after a code buffer overflow.",
		}),
	}
}

// Register adds the cache's counters to reg, for a caller that exposes a
// Prometheus /metrics endpoint (outside this core's scope, per spec.md §1).
func (c *Cache) Register(reg prometheus.Registerer) error {
	for _, coll := range []prometheus.Collector{
		c.metrics.compiles,
		c.metrics.fastmemDowngrades,
		c.metrics.clears,
		c.metrics.overflowRetries,
	} {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	return nil
}
