package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats holds admission statistics for one named tracker.
type Stats struct {
	Admitted   uint64
	Denied     uint64
	LastUpdate time.Time
}

// Collector collects admission metrics.
type Collector struct {
	stats map[string]*trackerStats
	mu    sync.RWMutex
}

type trackerStats struct {
	admitted atomic.Uint64
	denied   atomic.Uint64
	updated  atomic.Int64
}

var (
	globalCollector = &Collector{
		stats: make(map[string]*trackerStats),
	}

	// Prometheus metrics
	promChecksTotal   *prometheus.CounterVec
	promAdmittedTotal *prometheus.CounterVec
	promDeniedTotal   *prometheus.CounterVec
)

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		stats: make(map[string]*trackerStats),
	}
}

// getStats gets or creates stats for a name.
func (c *Collector) getStats(name string) *trackerStats {
	c.mu.RLock()
	stats, ok := c.stats[name]
	c.mu.RUnlock()

	if ok {
		return stats
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	stats, ok = c.stats[name]
	if ok {
		return stats
	}

	stats = &trackerStats{}
	stats.updated.Store(time.Now().Unix())
	c.stats[name] = stats
	return stats
}

// RecordAdmitted records an admitted call.
func (c *Collector) RecordAdmitted(name string) {
	stats := c.getStats(name)
	stats.admitted.Add(1)
	stats.updated.Store(time.Now().Unix())

	if promAdmittedTotal != nil {
		promAdmittedTotal.WithLabelValues(name).Inc()
		promChecksTotal.WithLabelValues(name, "admitted").Inc()
	}
}

// RecordDenied records a denied call.
func (c *Collector) RecordDenied(name string) {
	stats := c.getStats(name)
	stats.denied.Add(1)
	stats.updated.Store(time.Now().Unix())

	if promDeniedTotal != nil {
		promDeniedTotal.WithLabelValues(name).Inc()
		promChecksTotal.WithLabelValues(name, "denied").Inc()
	}
}

// GetStats returns statistics for a named tracker.
func (c *Collector) GetStats(name string) Stats {
	stats := c.getStats(name)
	return Stats{
		Admitted:   stats.admitted.Load(),
		Denied:     stats.denied.Load(),
		LastUpdate: time.Unix(stats.updated.Load(), 0),
	}
}

// GetAllStats returns statistics for all trackers.
func (c *Collector) GetAllStats() map[string]Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Stats, len(c.stats))
	for name, stats := range c.stats {
		result[name] = Stats{
			Admitted:   stats.admitted.Load(),
			Denied:     stats.denied.Load(),
			LastUpdate: time.Unix(stats.updated.Load(), 0),
		}
	}
	return result
}

// Reset resets statistics for a named tracker.
func (c *Collector) Reset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stats, name)
}

// ResetAll resets all statistics.
func (c *Collector) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*trackerStats)
}

// Global functions using the default collector

// RecordAdmitted records an admitted call in the global collector.
func RecordAdmitted(name string) {
	globalCollector.RecordAdmitted(name)
}

// RecordDenied records a denied call in the global collector.
func RecordDenied(name string) {
	globalCollector.RecordDenied(name)
}

// GetStats returns statistics from the global collector.
func GetStats(name string) Stats {
	return globalCollector.GetStats(name)
}

// GetAllStats returns all statistics from the global collector.
func GetAllStats() map[string]Stats {
	return globalCollector.GetAllStats()
}

// RegisterPrometheus registers Prometheus metrics.
func RegisterPrometheus(reg prometheus.Registerer) {
	promChecksTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_checks_total",
			Help: "Total number of admission checks",
		},
		[]string{"tracker", "result"},
	)

	promAdmittedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_admitted_total",
			Help: "Total number of admitted calls",
		},
		[]string{"tracker"},
	)

	promDeniedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_denied_total",
			Help: "Total number of denied calls",
		},
		[]string{"tracker"},
	)
}
