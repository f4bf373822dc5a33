package searcher

import (
	"math"
	"slices"

	"github.com/hupe1980/neighbors/index"
)

// Compile-time checks to ensure collectors satisfy the traversal contract.
var (
	_ index.Visitor = (*KNN)(nil)
	_ index.Visitor = (*Range)(nil)
	_ index.Visitor = (*Counter)(nil)
)

// Filter restricts which original positions may be reported.
// *roaring.Bitmap satisfies it.
type Filter interface {
	Contains(x uint32) bool
}

func allowed(f Filter, id int) bool {
	return f == nil || f.Contains(uint32(id))
}

// KNN collects the k nearest candidates of a query.
type KNN struct {
	k      int
	order  []int
	filter Filter
	heap   *CandidateHeap
}

// NewKNN creates a KNN collector. order maps raw to original positions
// (nil for identity); filter may be nil.
func NewKNN(k int, order []int, filter Filter) *KNN {
	return &KNN{
		k:      k,
		order:  order,
		filter: filter,
		heap:   NewCandidateHeap(k),
	}
}

// Reset clears the collector for the next query.
func (c *KNN) Reset() { c.heap.Reset() }

// Bound is +Inf until k candidates are held, then the k-th best distance.
func (c *KNN) Bound() float64 {
	if c.heap.Len() < c.k {
		return math.Inf(1)
	}
	return c.heap.Peek().Distance
}

// Visit offers a candidate.
func (c *KNN) Visit(raw int, dist float64) {
	id := index.Original(c.order, raw)
	if !allowed(c.filter, id) {
		return
	}
	c.heap.TryPushBounded(Candidate{Raw: raw, ID: id, Distance: dist}, c.k)
}

// Results appends the collected candidates best-first to dst.
func (c *KNN) Results(dst []Candidate) []Candidate {
	return c.heap.SortedResults(dst)
}

// Range collects every candidate within a fixed threshold.
type Range struct {
	threshold float64
	order     []int
	filter    Filter
	found     []Candidate
}

// NewRange creates a Range collector.
func NewRange(order []int, filter Filter) *Range {
	return &Range{order: order, filter: filter}
}

// Reset clears the collector and sets the threshold for the next query.
func (c *Range) Reset(threshold float64) {
	c.threshold = threshold
	c.found = c.found[:0]
}

// Bound returns the threshold.
func (c *Range) Bound() float64 { return c.threshold }

// Visit records the candidate when it lies within the threshold.
func (c *Range) Visit(raw int, dist float64) {
	if dist > c.threshold {
		return
	}
	id := index.Original(c.order, raw)
	if !allowed(c.filter, id) {
		return
	}
	c.found = append(c.found, Candidate{Raw: raw, ID: id, Distance: dist})
}

// Results appends the collected candidates, in traversal order, to dst.
func (c *Range) Results(dst []Candidate) []Candidate {
	return append(dst, c.found...)
}

// Counter counts candidates within a fixed threshold without storing them.
type Counter struct {
	threshold float64
	order     []int
	filter    Filter
	count     int
}

// NewCounter creates a Counter collector.
func NewCounter(order []int, filter Filter) *Counter {
	return &Counter{order: order, filter: filter}
}

// Reset clears the count and sets the threshold for the next query.
func (c *Counter) Reset(threshold float64) {
	c.threshold = threshold
	c.count = 0
}

// Bound returns the threshold.
func (c *Counter) Bound() float64 { return c.threshold }

// Visit counts the candidate when it lies within the threshold.
func (c *Counter) Visit(raw int, dist float64) {
	if dist > c.threshold {
		return
	}
	if c.filter != nil && !allowed(c.filter, index.Original(c.order, raw)) {
		return
	}
	c.count++
}

// Count returns the number of accepted candidates.
func (c *Counter) Count() int { return c.count }

func sortCandidates(cs []Candidate) {
	slices.SortFunc(cs, func(a, b Candidate) int {
		switch {
		case CandidateBetter(a, b):
			return -1
		case CandidateBetter(b, a):
			return 1
		default:
			return 0
		}
	})
}
