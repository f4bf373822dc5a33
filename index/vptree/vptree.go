// Package vptree implements a vantage-point tree stored as a flat node arena.
//
// Each internal node holds a pivot point, the largest distance from the pivot
// to any point below it (radius), and a threshold splitting the remaining
// points into a near half (distance <= threshold) and a far half (distance >=
// threshold). Children are referenced by arena index; -1 marks an absent child.
package vptree

import (
	"context"
	"math/rand"
	"slices"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/conv"
	"github.com/hupe1980/neighbors/internal/searcher"
	"github.com/hupe1980/neighbors/pointset"
)

// Compile-time check to ensure VPTree satisfies the index interface.
var _ index.Index = (*VPTree)(nil)

const noChild = -1

// Options contains configuration options for the VP-tree.
type Options struct {
	// Metric is the distance metric used for building and search.
	Metric distance.Metric

	// LeafSize is the largest number of points stored in a leaf.
	LeafSize int

	// Seed makes pivot selection deterministic.
	Seed int64
}

// DefaultOptions contains the default configuration options for the VP-tree.
var DefaultOptions = Options{
	Metric:   distance.MetricEuclidean,
	LeafSize: 8,
	Seed:     42,
}

// node covers the raw range [start, end). The first point of the range is
// the pivot.
type node struct {
	start, end int32
	threshold  float64
	radius     float64
	near, far  int32
	leaf       bool
}

// VPTree is an immutable vantage-point tree. Node 0 is the root.
type VPTree struct {
	metric distance.Metric
	dist   distance.Func
	points *pointset.PointSet
	order  []int
	nodes  []node
}

// Stats describes the tree shape.
type Stats struct {
	Nodes      int
	Leaves     int
	Depth      int
	MaxLeafLen int
}

type builder struct {
	ctx      context.Context
	points   *pointset.PointSet
	dist     distance.Func
	rng      *rand.Rand
	leafSize int
	ids      []int
	nodes    []node
	scratch  []entry
	err      error
}

type entry struct {
	id int
	d  float64
}

// Build creates a VP-tree over points.
func Build(ctx context.Context, points *pointset.PointSet, optFns ...func(o *Options)) (*VPTree, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	stored, dist, err := index.Prepare(points, opts.Metric)
	if err != nil {
		return nil, err
	}

	n := stored.Len()
	// Node bounds and child links are int32.
	if _, err := conv.IntToInt32(n); err != nil {
		return nil, err
	}
	b := &builder{
		ctx:      ctx,
		points:   stored,
		dist:     dist,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		leafSize: max(opts.LeafSize, 1),
		ids:      make([]int, n),
		nodes:    make([]node, 0, 2*n/max(opts.LeafSize, 1)+1),
		scratch:  make([]entry, 0, n),
	}
	for i := range b.ids {
		b.ids[i] = i
	}

	b.build(0, n)
	if b.err != nil {
		return nil, b.err
	}

	return &VPTree{
		metric: opts.Metric,
		dist:   dist,
		points: stored.Permute(b.ids),
		order:  b.ids,
		nodes:  b.nodes,
	}, nil
}

// build creates the subtree over ids[lo:hi] and returns its arena index.
func (b *builder) build(lo, hi int) int32 {
	if b.err != nil {
		return noChild
	}
	if err := b.ctx.Err(); err != nil {
		b.err = err
		return noChild
	}

	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{start: int32(lo), end: int32(hi), near: noChild, far: noChild})

	if hi-lo <= b.leafSize {
		pivot := b.points.Point(b.ids[lo])
		radius := 0.0
		for _, i := range b.ids[lo+1 : hi] {
			radius = max(radius, b.dist(pivot, b.points.Point(i)))
		}
		b.nodes[id].leaf = true
		b.nodes[id].radius = radius
		return id
	}

	p := lo + b.rng.Intn(hi-lo)
	b.ids[lo], b.ids[p] = b.ids[p], b.ids[lo]
	pivot := b.points.Point(b.ids[lo])

	rest := b.scratch[:0]
	for _, i := range b.ids[lo+1 : hi] {
		rest = append(rest, entry{id: i, d: b.dist(pivot, b.points.Point(i))})
	}
	slices.SortFunc(rest, func(x, y entry) int {
		switch {
		case x.d < y.d:
			return -1
		case x.d > y.d:
			return 1
		default:
			return x.id - y.id
		}
	})
	for j, e := range rest {
		b.ids[lo+1+j] = e.id
	}

	m := len(rest)
	nearCount := (m + 1) / 2
	last := rest[nearCount-1].d
	threshold := last
	if nearCount < m {
		first := rest[nearCount].d
		// Keep near <= threshold <= far under rounding.
		threshold = min(max(last+(first-last)/2, last), first)
	}
	b.nodes[id].threshold = threshold
	b.nodes[id].radius = rest[m-1].d

	// rest aliases scratch, which the recursive calls overwrite.
	mid := lo + 1 + nearCount

	near := b.build(lo+1, mid)
	b.nodes[id].near = near

	if mid < hi {
		far := b.build(mid, hi)
		b.nodes[id].far = far
	}

	return id
}

// Kind returns index.KindVPTree.
func (t *VPTree) Kind() index.Kind { return index.KindVPTree }

// Metric returns the distance metric.
func (t *VPTree) Metric() distance.Metric { return t.metric }

// Len returns the number of indexed points.
func (t *VPTree) Len() int { return t.points.Len() }

// Dim returns the dimensionality of indexed points.
func (t *VPTree) Dim() int { return t.points.Dim() }

// Points returns the stored points in raw (tree) order.
func (t *VPTree) Points() *pointset.PointSet { return t.points }

// Order maps raw positions to original positions.
func (t *VPTree) Order() []int { return t.order }

// Stats returns statistics about the tree shape.
func (t *VPTree) Stats() Stats {
	s := Stats{Nodes: len(t.nodes)}
	type frame struct {
		id    int32
		depth int
	}
	stack := []frame{{id: 0, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[f.id]
		s.Depth = max(s.Depth, f.depth)
		if n.leaf {
			s.Leaves++
			s.MaxLeafLen = max(s.MaxLeafLen, int(n.end-n.start))
			continue
		}
		for _, c := range []int32{n.near, n.far} {
			if c != noChild {
				stack = append(stack, frame{id: c, depth: f.depth + 1})
			}
		}
	}
	return s
}

// Search descends first into the side of each pivot that contains the query
// and enters the other side only when it may still hold a point within the
// visitor's bound.
func (t *VPTree) Search(query []float64, v index.Visitor) {
	t.search(0, query, v)
}

func (t *VPTree) search(id int32, query []float64, v index.Visitor) {
	n := &t.nodes[id]
	start := int(n.start)

	d := t.dist(query, t.points.Point(start))
	if searcher.Exceeds(d-n.radius, v.Bound(), d+n.radius) {
		return
	}
	v.Visit(start, d)

	if n.leaf {
		for raw := start + 1; raw < int(n.end); raw++ {
			v.Visit(raw, t.dist(query, t.points.Point(raw)))
		}
		return
	}

	if d <= n.threshold {
		if n.near != noChild {
			t.search(n.near, query, v)
		}
		if n.far != noChild && !searcher.Exceeds(n.threshold-d, v.Bound(), n.threshold+d) {
			t.search(n.far, query, v)
		}
		return
	}

	if n.far != noChild {
		t.search(n.far, query, v)
	}
	if n.near != noChild && !searcher.Exceeds(d-n.threshold, v.Bound(), d+n.threshold) {
		t.search(n.near, query, v)
	}
}
