// Package distance provides the metrics used by every index.
//
// # Supported Metrics
//
//   - MetricEuclidean: L2 distance (default)
//   - MetricManhattan: L1 distance
//   - MetricCosine: L2 distance between normalized points
//
// All metrics satisfy the triangle inequality, so the pruning bounds used by
// the KMKNN and VP-tree indexes are exact.
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricEuclidean)
//	d := fn(a, b)
package distance
