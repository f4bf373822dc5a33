// Package neighbors provides exact nearest-neighbor search over points in
// fixed-dimensional space.
//
// An index is built once from a PointSet and then answers any number of
// k-nearest-neighbor and range queries, either against its own points (self
// queries) or against a separate query set (cross queries). Three index
// algorithms return identical answers and differ only in speed:
//
//   - index.KindExhaustive compares every query with every point.
//   - index.KindKMKNN clusters points with k-means and prunes clusters and
//     members with the triangle inequality.
//   - index.KindVPTree partitions points around vantage points.
//
// # Quick Start
//
//	ctx := context.Background()
//	points := pointset.MustFromRows([][]float64{{0}, {1}, {2}, {5}, {10}})
//
//	idx, _ := neighbors.BuildIndex(ctx, points, index.KindVPTree)
//
//	knn, _ := neighbors.FindKNN(ctx, idx, 2)
//	in, _ := neighbors.RangeFind(ctx, idx, neighbors.Scalar(3))
//
// # Output Control
//
// Results hold one row per query. WithoutIndex and WithoutDistance drop the
// respective lists; with both, only neighbor counts are computed. WithRawIndex
// reports positions in the index's internal order. WithSubset restricts which
// queries are processed.
//
// # Parallelism
//
// Queries are split into contiguous chunks processed concurrently according
// to WithParallel. Results do not depend on the configuration. If any chunk
// fails, the call returns every *WorkerFailure joined and no results.
//
// Point positions are 0-based throughout.
package neighbors
