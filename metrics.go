package lru

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache lookups and removals and tracks the number of stored
// entries. It implements prometheus.Collector. Give each cache its own
// Metrics; the entries gauge follows a single cache. A nil *Metrics records
// nothing.
type Metrics struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	removals *prometheus.CounterVec
	entries  prometheus.Gauge
}

// NewMetrics creates the collectors for a cache called name. The name ends up
// in the "cache" constant label.
func NewMetrics(name string) *Metrics {
	labels := prometheus.Labels{"cache": name}

	return &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lru",
			Name:        "hits_total",
			Help:        "Number of Get calls that found a live entry.",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lru",
			Name:        "misses_total",
			Help:        "Number of Get calls that found no live entry.",
			ConstLabels: labels,
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "lru",
			Name:        "removals_total",
			Help:        "Number of entries removed by capacity eviction or lazy expiry.",
			ConstLabels: labels,
		}, []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "lru",
			Name:        "entries",
			Help:        "Number of stored entries, expired ones included until they are purged.",
			ConstLabels: labels,
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.hits.Describe(ch)
	m.misses.Describe(ch)
	m.removals.Describe(ch)
	m.entries.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.hits.Collect(ch)
	m.misses.Collect(ch)
	m.removals.Collect(ch)
	m.entries.Collect(ch)
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) removed(reason removalReason) {
	if m != nil {
		m.removals.WithLabelValues(string(reason)).Inc()
	}
}

// setLen must be called with the cache lock held so updates land in order.
func (m *Metrics) setLen(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}
