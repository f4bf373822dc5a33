package neighbors

import (
	"context"
	"time"

	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/dispatch"
	"github.com/hupe1980/neighbors/internal/searcher"
	"github.com/hupe1980/neighbors/pointset"
)

// batch describes the queries of one call. point returns the prepared query
// for a result row.
type batch struct {
	op    string
	idx   index.Index
	rows  int
	point func(row int) []float64
}

// FindKNN finds the k nearest reference points of every reference point.
//
// Each point is its own nearest neighbor at distance 0 unless duplicates
// tie with it; ties are broken by original position. Rows hold min(k, N)
// entries, fewer only when WithFilter excludes points.
func FindKNN(ctx context.Context, idx index.Index, k int, optFns ...Option) (*Results, error) {
	opts := applyOptions(optFns)
	b, err := selfBatch(OpFindKNN, idx, &opts)
	if err != nil {
		return nil, finish(ctx, &opts, OpFindKNN, 0, 0, time.Now(), err)
	}
	return runKNN(ctx, b, k, &opts)
}

// QueryKNN finds the k nearest reference points of every query point.
//
// It fails with *DimensionMismatchError when the query and index
// dimensionality differ.
func QueryKNN(ctx context.Context, idx index.Index, queries *pointset.PointSet, k int, optFns ...Option) (*Results, error) {
	opts := applyOptions(optFns)
	b, err := crossBatch(OpQueryKNN, idx, queries, &opts)
	if err != nil {
		return nil, finish(ctx, &opts, OpQueryKNN, 0, 0, time.Now(), err)
	}
	return runKNN(ctx, b, k, &opts)
}

// RangeFind finds every reference point within threshold of each reference
// point. Every row contains the point itself at distance 0 unless WithFilter
// excludes it.
//
// A per-query threshold must have one entry per processed query, otherwise
// it fails with *ThresholdLengthError.
func RangeFind(ctx context.Context, idx index.Index, threshold Threshold, optFns ...Option) (*Results, error) {
	opts := applyOptions(optFns)
	b, err := selfBatch(OpRangeFind, idx, &opts)
	if err != nil {
		return nil, finish(ctx, &opts, OpRangeFind, 0, 0, time.Now(), err)
	}
	return runRange(ctx, b, threshold, &opts)
}

// RangeQuery finds every reference point within threshold of each query point.
//
// It fails with *DimensionMismatchError when the query and index
// dimensionality differ and with *ThresholdLengthError when a per-query
// threshold has the wrong length.
func RangeQuery(ctx context.Context, idx index.Index, queries *pointset.PointSet, threshold Threshold, optFns ...Option) (*Results, error) {
	opts := applyOptions(optFns)
	b, err := crossBatch(OpRangeQuery, idx, queries, &opts)
	if err != nil {
		return nil, finish(ctx, &opts, OpRangeQuery, 0, 0, time.Now(), err)
	}
	return runRange(ctx, b, threshold, &opts)
}

// selfBatch queries the index with its own stored points. Stored points are
// already prepared for the metric, so a point's distance to itself is
// exactly 0.
func selfBatch(op string, idx index.Index, opts *options) (*batch, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	pos, err := opts.positions(idx.Len())
	if err != nil {
		return nil, err
	}
	inv := index.Inverse(idx.Order())
	points := idx.Points()
	return &batch{
		op:   op,
		idx:  idx,
		rows: len(pos),
		point: func(row int) []float64 {
			raw := pos[row]
			if inv != nil {
				raw = inv[raw]
			}
			return points.Point(raw)
		},
	}, nil
}

func crossBatch(op string, idx index.Index, queries *pointset.PointSet, opts *options) (*batch, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	if queries == nil {
		queries = &pointset.PointSet{}
	}
	if queries.Len() > 0 && queries.Dim() != idx.Dim() {
		return nil, translateError(&index.ErrDimensionMismatch{Expected: idx.Dim(), Actual: queries.Dim()})
	}
	pos, err := opts.positions(queries.Len())
	if err != nil {
		return nil, err
	}
	metric := idx.Metric()
	return &batch{
		op:   op,
		idx:  idx,
		rows: len(pos),
		point: func(row int) []float64 {
			return index.PrepareQuery(metric, queries.Point(pos[row]))
		},
	}, nil
}

func runKNN(ctx context.Context, b *batch, k int, opts *options) (*Results, error) {
	start := time.Now()
	if k < 1 {
		return nil, finish(ctx, opts, b.op, b.rows, 0, start, ErrInvalidK)
	}

	if opts.countOnly() {
		// Every row holds exactly min(k, eligible) neighbors.
		c := min(k, eligible(b.idx.Len(), opts))
		res := &Results{Count: make([]int, b.rows)}
		for i := range res.Count {
			res.Count[i] = c
		}
		if err := finish(ctx, opts, b.op, b.rows, 0, start, ctx.Err()); err != nil {
			return nil, err
		}
		return res, nil
	}

	order := b.idx.Order()
	filter := opts.referenceFilter()

	chunks := len(opts.parallel.Chunks(b.rows))
	rows, err := dispatch.Map(ctx, b.rows, opts.parallel, func(c dispatch.Chunk) ([]row, error) {
		knn := searcher.NewKNN(k, order, filter)
		buf := make([]searcher.Candidate, 0, k)
		out := make([]row, 0, c.Len())
		for i := c.Start; i < c.End; i++ {
			knn.Reset()
			b.idx.Search(b.point(i), knn)
			buf = knn.Results(buf[:0])
			out = append(out, opts.formatRow(buf))
		}
		return out, nil
	})
	if err := finish(ctx, opts, b.op, b.rows, chunks, start, err); err != nil {
		return nil, err
	}
	return opts.assemble(rows), nil
}

func runRange(ctx context.Context, b *batch, threshold Threshold, opts *options) (*Results, error) {
	start := time.Now()
	if err := threshold.validate(b.rows); err != nil {
		return nil, finish(ctx, opts, b.op, b.rows, 0, start, err)
	}

	order := b.idx.Order()
	filter := opts.referenceFilter()

	chunks := len(opts.parallel.Chunks(b.rows))
	rows, err := dispatch.Map(ctx, b.rows, opts.parallel, func(c dispatch.Chunk) ([]row, error) {
		out := make([]row, 0, c.Len())
		if opts.countOnly() {
			counter := searcher.NewCounter(order, filter)
			for i := c.Start; i < c.End; i++ {
				counter.Reset(threshold.at(i))
				b.idx.Search(b.point(i), counter)
				out = append(out, row{count: counter.Count()})
			}
			return out, nil
		}

		collector := searcher.NewRange(order, filter)
		var buf []searcher.Candidate
		for i := c.Start; i < c.End; i++ {
			collector.Reset(threshold.at(i))
			b.idx.Search(b.point(i), collector)
			buf = collector.Results(buf[:0])
			out = append(out, opts.formatRow(buf))
		}
		return out, nil
	})
	if err := finish(ctx, opts, b.op, b.rows, chunks, start, err); err != nil {
		return nil, err
	}
	return opts.assemble(rows), nil
}

// eligible returns the number of reference points a query may report.
func eligible(n int, opts *options) int {
	if opts.filter == nil {
		return n
	}
	// Rank counts members <= n-1.
	return int(opts.filter.Rank(uint32(n - 1)))
}

// finish logs and records a completed call and returns err translated.
func finish(ctx context.Context, opts *options, op string, queries, chunks int, start time.Time, err error) error {
	err = translateError(err)
	duration := time.Since(start)
	opts.logger.LogSearch(ctx, op, queries, chunks, duration, err)
	opts.metricsCollector.RecordSearch(op, queries, duration, err)
	return err
}
