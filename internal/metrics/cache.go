package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgnsrekt/blockvox/internal/cache"
)

// cacheCollector reads the cache counters at scrape time.
type cacheCollector struct {
	stats func() cache.Stats

	bytes     *prometheus.Desc
	capacity  *prometheus.Desc
	items     *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
}

func newCacheCollector(stats func() cache.Stats) *cacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &cacheCollector{
		stats:     stats,
		bytes:     desc("bytes", "Bytes held by the speech and mp3 cache."),
		capacity:  desc("capacity_bytes", "Configured cache capacity."),
		items:     desc("items", "Entries in the cache."),
		hits:      desc("hits_total", "Cache lookups that found an entry."),
		misses:    desc("misses_total", "Cache lookups that found nothing."),
		evictions: desc("evictions_total", "Entries evicted to make room."),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytes
	ch <- c.capacity
	ch <- c.items
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(s.ItemCount))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
}

// WatchCache publishes the counters returned by stats on every scrape. It
// must be called at most once per Metrics.
func (m *Metrics) WatchCache(stats func() cache.Stats) {
	m.registry.MustRegister(newCacheCollector(stats))
}
