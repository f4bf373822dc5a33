package neighbors

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/neighbors/index"
)

// Search operation names reported to MetricsCollector and Logger.
const (
	OpFindKNN    = "find_knn"
	OpQueryKNN   = "query_knn"
	OpRangeFind  = "range_find"
	OpRangeQuery = "range_query"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the prom
// package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordBuild is called after each index build.
	// n is the number of input points, err is nil if successful.
	RecordBuild(kind index.Kind, n int, duration time.Duration, err error)

	// RecordSearch is called after each batch search.
	// op is one of the Op* constants, queries is the number of processed queries.
	RecordSearch(op string, queries int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(index.Kind, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(string, int, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildPoints      atomic.Int64
	BuildTotalNanos  atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchQueries    atomic.Int64
	SearchTotalNanos atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(kind index.Kind, n int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildPoints.Add(int64(n))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(op string, queries int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchQueries.Add(int64(queries))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildPoints:    b.BuildPoints.Load(),
		BuildAvgNanos:  avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		SearchAvgNanos: avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount     int64
	BuildErrors    int64
	BuildPoints    int64
	BuildAvgNanos  int64
	SearchCount    int64
	SearchErrors   int64
	SearchQueries  int64
	SearchAvgNanos int64
}
