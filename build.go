package neighbors

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/index/exhaustive"
	"github.com/hupe1980/neighbors/index/kmknn"
	"github.com/hupe1980/neighbors/index/vptree"
	"github.com/hupe1980/neighbors/pointset"
)

// BuildIndex builds an immutable search index of the given kind over points.
//
// The returned index is safe for concurrent use and may be reused across any
// number of query calls. Construction runs on the calling goroutine and
// observes ctx between refinement passes.
//
// Relevant options: WithMetric, WithSeed, WithClusterCount, WithMaxIterations,
// WithLeafSize, WithLogger, WithMetricsCollector.
//
// It fails with *DegenerateInputError when points is empty or
// zero-dimensional.
func BuildIndex(ctx context.Context, points *pointset.PointSet, kind index.Kind, optFns ...Option) (index.Index, error) {
	opts := applyOptions(optFns)

	start := time.Now()
	idx, err := build(ctx, points, kind, &opts)
	err = translateError(err)
	duration := time.Since(start)

	n, dim := 0, 0
	if points != nil {
		n, dim = points.Len(), points.Dim()
	}
	opts.logger.LogBuild(ctx, kind, n, dim, duration, err)
	opts.metricsCollector.RecordBuild(kind, n, duration, err)

	if err != nil {
		return nil, err
	}
	return idx, nil
}

func build(ctx context.Context, points *pointset.PointSet, kind index.Kind, opts *options) (index.Index, error) {
	switch kind {
	case index.KindExhaustive:
		return exhaustive.Build(points, func(o *exhaustive.Options) {
			o.Metric = opts.metric
		})
	case index.KindKMKNN:
		return kmknn.Build(ctx, points, func(o *kmknn.Options) {
			o.Metric = opts.metric
			o.ClusterCount = opts.clusterCount
			if opts.maxIterations > 0 {
				o.MaxIterations = opts.maxIterations
			}
			if opts.seedSet {
				o.Seed = opts.seed
			}
		})
	case index.KindVPTree:
		return vptree.Build(ctx, points, func(o *vptree.Options) {
			o.Metric = opts.metric
			if opts.leafSize > 0 {
				o.LeafSize = opts.leafSize
			}
			if opts.seedSet {
				o.Seed = opts.seed
			}
		})
	default:
		return nil, fmt.Errorf("build: %w", &index.ErrUnknownKind{Kind: kind})
	}
}
