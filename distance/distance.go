// Package distance provides the metrics used to compare points.
package distance

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Euclidean calculates the Euclidean (L2) distance between two points.
// Assumes points are the same length (caller's responsibility).
//
// The summation order is fixed so that every index computes bit-identical
// distances for the same (query, point) pair.
func Euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Manhattan calculates the Manhattan (L1) distance between two points.
// Assumes points are the same length (caller's responsibility).
func Manhattan(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm; v is left untouched in that case.
func NormalizeL2InPlace(v []float64) bool {
	if len(v) == 0 {
		return false
	}
	var norm2 float64
	for _, x := range v {
		norm2 += x * x
	}
	if norm2 == 0 {
		return false
	}
	inv := 1 / math.Sqrt(norm2)
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// A zero vector is returned as a zero copy.
func NormalizeL2Copy(src []float64) []float64 {
	dst := slices.Clone(src)
	NormalizeL2InPlace(dst)
	return dst
}

// Metric represents the distance metric used for point comparison.
type Metric int

const (
	// MetricEuclidean is the L2 distance.
	MetricEuclidean Metric = iota
	// MetricManhattan is the L1 distance.
	MetricManhattan
	// MetricCosine is the Euclidean distance between L2-normalized points.
	// It is monotonic in cosine similarity and keeps the triangle inequality,
	// which the pruning bounds depend on.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	case MetricManhattan:
		return "Manhattan"
	case MetricCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a case-insensitive metric name.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "euclidean", "l2":
		return MetricEuclidean, nil
	case "manhattan", "l1":
		return MetricManhattan, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", s)
	}
}

// Normalizes reports whether points must be L2-normalized before use.
func (m Metric) Normalizes() bool {
	return m == MetricCosine
}

// Func is a function type for distance calculation.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean, MetricCosine:
		return Euclidean, nil
	case MetricManhattan:
		return Manhattan, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
