// Package exhaustive provides an index that answers queries by scanning every point.
package exhaustive

import (
	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/pointset"
)

// Compile-time check to ensure Exhaustive satisfies the index interface.
var _ index.Index = (*Exhaustive)(nil)

// Options contains configuration options for the exhaustive index.
type Options struct {
	// Metric is the distance metric used for search.
	Metric distance.Metric
}

// DefaultOptions contains the default configuration options for the exhaustive index.
var DefaultOptions = Options{
	Metric: distance.MetricEuclidean,
}

// Exhaustive compares every query against every stored point.
// Raw order equals original order.
type Exhaustive struct {
	metric distance.Metric
	dist   distance.Func
	points *pointset.PointSet
}

// Build creates an exhaustive index over points.
//
// For non-normalizing metrics the index references points directly; cosine
// indexes hold a normalized copy.
func Build(points *pointset.PointSet, optFns ...func(o *Options)) (*Exhaustive, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	stored, dist, err := index.Prepare(points, opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Exhaustive{
		metric: opts.Metric,
		dist:   dist,
		points: stored,
	}, nil
}

// Kind returns index.KindExhaustive.
func (e *Exhaustive) Kind() index.Kind { return index.KindExhaustive }

// Metric returns the distance metric.
func (e *Exhaustive) Metric() distance.Metric { return e.metric }

// Len returns the number of indexed points.
func (e *Exhaustive) Len() int { return e.points.Len() }

// Dim returns the dimensionality of indexed points.
func (e *Exhaustive) Dim() int { return e.points.Dim() }

// Points returns the stored points.
func (e *Exhaustive) Points() *pointset.PointSet { return e.points }

// Order returns nil: raw positions are original positions.
func (e *Exhaustive) Order() []int { return nil }

// Search visits every point.
func (e *Exhaustive) Search(query []float64, v index.Visitor) {
	for raw := 0; raw < e.points.Len(); raw++ {
		v.Visit(raw, e.dist(query, e.points.Point(raw)))
	}
}
