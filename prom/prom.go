// Package prom exports build and search metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/index"
)

var _ neighbors.MetricsCollector = (*Collector)(nil)

// Collector implements neighbors.MetricsCollector with Prometheus counters
// and histograms.
type Collector struct {
	builds         *prometheus.CounterVec
	buildLatency   *prometheus.HistogramVec
	pointsIndexed  *prometheus.CounterVec
	searches       *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
	queriesHandled *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_builds_total",
			Help: "Total index builds",
		}, []string{"kind", "status"}),
		buildLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neighbors_build_duration_seconds",
			Help:    "Latency of index builds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind", "status"}),
		pointsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_points_indexed_total",
			Help: "Total points indexed by successful builds",
		}, []string{"kind"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_searches_total",
			Help: "Total batch searches",
		}, []string{"op", "status"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neighbors_search_duration_seconds",
			Help:    "Latency of batch searches",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		queriesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_queries_total",
			Help: "Total queries processed by successful searches",
		}, []string{"op"}),
	}

	for _, m := range []prometheus.Collector{
		c.builds,
		c.buildLatency,
		c.pointsIndexed,
		c.searches,
		c.searchLatency,
		c.queriesHandled,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordBuild implements neighbors.MetricsCollector.
func (c *Collector) RecordBuild(kind index.Kind, n int, duration time.Duration, err error) {
	s := status(err)
	c.builds.WithLabelValues(kind.String(), s).Inc()
	c.buildLatency.WithLabelValues(kind.String(), s).Observe(duration.Seconds())
	if err == nil {
		c.pointsIndexed.WithLabelValues(kind.String()).Add(float64(n))
	}
}

// RecordSearch implements neighbors.MetricsCollector.
func (c *Collector) RecordSearch(op string, queries int, duration time.Duration, err error) {
	s := status(err)
	c.searches.WithLabelValues(op, s).Inc()
	c.searchLatency.WithLabelValues(op, s).Observe(duration.Seconds())
	if err == nil {
		c.queriesHandled.WithLabelValues(op).Add(float64(queries))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
