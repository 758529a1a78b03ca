// Package metrics exposes lump cache and zone counters through a Prometheus
// registry. Collector implements lumps.Observer and provides the zone purge
// hook, so both layers report into the same registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "lumphub"
	subsystem = "cache"
)

// Collector 持有一份独立的 Registry，避免测试之间共享全局状态。
type Collector struct {
	Registry *prometheus.Registry

	hits         prometheus.Counter
	misses       prometheus.Counter
	bytesRead    prometheus.Counter
	purges       prometheus.Counter
	purgedBytes  prometheus.Counter
	lockWarnings prometheus.Counter
	lockedLumps  prometheus.Gauge
}

// New 创建并注册全部指标。
func New() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hits_total",
			Help:      "Lump acquisitions served from an existing cache entry.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "misses_total",
			Help:      "Lump acquisitions that had to materialise the entry.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "read_bytes_total",
			Help:      "Bytes read from backing archive files.",
		}),
		purges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zone",
			Name:      "purges_total",
			Help:      "Cache blocks reclaimed by the zone allocator.",
		}),
		purgedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zone",
			Name:      "purged_bytes_total",
			Help:      "Bytes reclaimed by the zone allocator.",
		}),
		lockWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lock_warnings_total",
			Help:      "Excess unlocks and high lock counts reported by the cache.",
		}),
		lockedLumps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "locked_lumps",
			Help:      "Lumps currently holding at least one lock.",
		}),
	}
	c.Registry.MustRegister(
		c.hits, c.misses, c.bytesRead,
		c.purges, c.purgedBytes,
		c.lockWarnings, c.lockedLumps,
	)
	return c
}

func (c *Collector) CacheHit()         { c.hits.Inc() }
func (c *Collector) CacheMiss(int)     { c.misses.Inc() }
func (c *Collector) BytesRead(n int)   { c.bytesRead.Add(float64(n)) }
func (c *Collector) LockedLumps(n int) { c.lockedLumps.Set(float64(n)) }
func (c *Collector) LockWarning()      { c.lockWarnings.Inc() }

// ZonePurged 作为 zone.WithPurgeHook 的回调。
func (c *Collector) ZonePurged(size int) {
	c.purges.Inc()
	c.purgedBytes.Add(float64(size))
}
