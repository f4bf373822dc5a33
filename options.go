package neighbors

import (
	"fmt"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/internal/dispatch"
	"github.com/hupe1980/neighbors/internal/searcher"
)

// Parallel configures how a batch of queries is split across goroutines.
//
// Queries are partitioned into contiguous chunks of ChunkSize queries and at
// most Workers chunks run at once. Zero values select one worker and
// ceil(queries / (4 * Workers)) queries per chunk. Results are identical for
// every configuration.
type Parallel = dispatch.Parallel

type options struct {
	// Search
	wantIndex    bool
	wantDistance bool
	rawIndex     bool
	subset       []int
	parallel     Parallel
	filter       *roaring.Bitmap

	// Build
	metric        distance.Metric
	seed          int64
	seedSet       bool
	clusterCount  int
	maxIterations int
	leafSize      int

	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures BuildIndex and the query functions.
// Options that do not apply to a call are ignored.
type Option func(*options)

// WithoutIndex omits neighbor positions from the results.
// Combined with WithoutDistance, only neighbor counts are reported.
func WithoutIndex() Option {
	return func(o *options) {
		o.wantIndex = false
	}
}

// WithoutDistance omits neighbor distances from the results.
// Combined with WithoutIndex, only neighbor counts are reported.
func WithoutDistance() Option {
	return func(o *options) {
		o.wantDistance = false
	}
}

// WithRawIndex reports positions in the index's internal point order
// instead of the original input order. This skips the final remapping;
// use Index.Order to translate raw positions later.
func WithRawIndex() Option {
	return func(o *options) {
		o.rawIndex = true
	}
}

// WithSubset restricts processing to the given query positions.
// Result rows follow the order of positions. Unselected queries are never
// searched. Positions refer to the reference set for FindKNN and RangeFind
// and to the query set for QueryKNN and RangeQuery.
func WithSubset(positions []int) Option {
	return func(o *options) {
		o.subset = positions
	}
}

// WithParallel sets how queries are partitioned across goroutines.
//
// Example:
//
//	res, _ := neighbors.QueryKNN(ctx, idx, queries, 10,
//	    neighbors.WithParallel(neighbors.Parallel{Workers: runtime.NumCPU()}))
func WithParallel(p Parallel) Option {
	return func(o *options) {
		o.parallel = p
	}
}

// WithFilter restricts the reference points that may be reported to the
// original positions contained in filter. Queries are not affected.
func WithFilter(filter *roaring.Bitmap) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// WithMetric sets the distance metric used by BuildIndex.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithSeed sets the random seed used by BuildIndex for KMKNN center
// initialization and VP-tree pivot selection.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// WithClusterCount sets the number of KMKNN clusters.
// Zero selects ceil(sqrt(N)).
func WithClusterCount(k int) Option {
	return func(o *options) {
		o.clusterCount = k
	}
}

// WithMaxIterations caps the number of KMKNN k-means iterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithLeafSize sets the largest number of points in a VP-tree leaf.
func WithLeafSize(n int) Option {
	return func(o *options) {
		o.leafSize = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &neighbors.BasicMetricsCollector{}
//	res, _ := neighbors.FindKNN(ctx, idx, 10, neighbors.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := neighbors.NewJSONLogger(slog.LevelInfo)
//	idx, _ := neighbors.BuildIndex(ctx, points, index.KindVPTree, neighbors.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		wantIndex:        true,
		wantDistance:     true,
		metric:           distance.MetricEuclidean,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// countOnly reports whether only neighbor counts are requested.
func (o *options) countOnly() bool {
	return !o.wantIndex && !o.wantDistance
}

// referenceFilter returns the filter as a searcher.Filter, keeping a nil
// bitmap a nil interface.
func (o *options) referenceFilter() searcher.Filter {
	if o.filter == nil {
		return nil
	}
	return o.filter
}

// positions resolves the query positions to process out of total.
func (o *options) positions(total int) ([]int, error) {
	if o.subset == nil {
		pos := make([]int, total)
		for i := range pos {
			pos[i] = i
		}
		return pos, nil
	}
	for _, p := range o.subset {
		if p < 0 || p >= total {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSubset, p, total)
		}
	}
	return o.subset, nil
}
