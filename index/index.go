// Package index provides the index interface shared by all search algorithms.
package index

import (
	"encoding"
	"fmt"
	"strings"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/pointset"
)

// Kind tags the algorithm an Index was built with.
type Kind uint8

// Constants representing the supported index algorithms.
const (
	KindExhaustive Kind = iota + 1
	KindKMKNN
	KindVPTree
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindExhaustive:
		return "Exhaustive"
	case KindKMKNN:
		return "KMKNN"
	case KindVPTree:
		return "VPTree"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// ParseKind parses a case-insensitive algorithm name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "exhaustive", "flat", "brute":
		return KindExhaustive, nil
	case "kmknn":
		return KindKMKNN, nil
	case "vptree", "vp-tree", "vp":
		return KindVPTree, nil
	default:
		return 0, &ErrUnknownKind{Name: s}
	}
}

// Visitor receives candidate points during a traversal.
//
// Bound is the current pruning bound: no point farther than Bound can be
// accepted. It may shrink during a traversal but never grows. Indexes skip
// whole regions whose lower-bound distance provably exceeds it.
type Visitor interface {
	Bound() float64
	Visit(raw int, dist float64)
}

// Index is a read-only search structure derived from exactly one PointSet.
//
// Implementations are immutable after construction and safe for concurrent
// use. Raw positions address the index's internal (possibly reordered) copy
// of the points; Order maps them back to original positions.
type Index interface {
	encoding.BinaryMarshaler

	// Kind returns the algorithm tag.
	Kind() Kind

	// Metric returns the distance metric the index was built for.
	Metric() distance.Metric

	// Len returns the number of indexed points.
	Len() int

	// Dim returns the dimensionality of indexed points.
	Dim() int

	// Points returns the stored points in raw order.
	// For cosine indexes the points are already L2-normalized.
	Points() *pointset.PointSet

	// Order maps raw positions to original positions.
	// A nil slice means the identity mapping.
	Order() []int

	// Search traverses the index for query and reports candidates to v.
	// The query must already be prepared for Metric (see PrepareQuery).
	Search(query []float64, v Visitor)
}

// PrepareQuery returns the query in the form Search expects.
// For cosine indexes this is a normalized copy; otherwise q itself.
func PrepareQuery(m distance.Metric, q []float64) []float64 {
	if m.Normalizes() {
		return distance.NormalizeL2Copy(q)
	}
	return q
}

// Prepare validates points for building and returns the storage and distance
// function an index should use.
func Prepare(points *pointset.PointSet, m distance.Metric) (*pointset.PointSet, distance.Func, error) {
	if points == nil || points.Len() == 0 || points.Dim() == 0 {
		n, dim := 0, 0
		if points != nil {
			n, dim = points.Len(), points.Dim()
		}
		return nil, nil, &ErrDegenerateInput{N: n, Dim: dim}
	}
	fn, err := distance.Provider(m)
	if err != nil {
		return nil, nil, &ErrInvalidMetric{Metric: m, cause: err}
	}
	if m.Normalizes() {
		points = points.Normalized()
	}
	return points, fn, nil
}

// Original maps a raw position to an original position under order.
func Original(order []int, raw int) int {
	if order == nil {
		return raw
	}
	return order[raw]
}

// Inverse returns the original→raw mapping for order.
// A nil order yields nil (identity).
func Inverse(order []int) []int {
	if order == nil {
		return nil
	}
	inv := make([]int, len(order))
	for raw, orig := range order {
		inv[orig] = raw
	}
	return inv
}

// IsPermutation reports whether order is a permutation of [0, n).
func IsPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, o := range order {
		if o < 0 || o >= n || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}
