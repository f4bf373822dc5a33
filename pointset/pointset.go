// Package pointset provides immutable flat storage for N points in D dimensions.
package pointset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/neighbors/distance"
)

var (
	// ErrRaggedRows is returned when rows do not share the same dimensionality.
	ErrRaggedRows = errors.New("pointset: rows have different dimensions")

	// ErrShapeMismatch is returned when the data length is not n*dim.
	ErrShapeMismatch = errors.New("pointset: data length does not match n*dim")
)

// PointSet stores points row-major in a single contiguous buffer.
// Point i occupies data[i*dim : (i+1)*dim]. A PointSet is never mutated after
// construction, so it can be shared between goroutines freely.
type PointSet struct {
	n    int
	dim  int
	data []float64
}

// New creates a PointSet of n points with dim coordinates each.
// The data is copied.
func New(n, dim int, data []float64) (*PointSet, error) {
	if n < 0 || dim < 0 {
		return nil, fmt.Errorf("pointset: invalid shape %dx%d", n, dim)
	}
	if len(data) != n*dim {
		return nil, fmt.Errorf("%w: got %d values for %dx%d", ErrShapeMismatch, len(data), n, dim)
	}
	return &PointSet{n: n, dim: dim, data: slices.Clone(data)}, nil
}

// FromRows creates a PointSet from one slice per point.
// An empty rows slice yields an empty PointSet with dim 0.
func FromRows(rows [][]float64) (*PointSet, error) {
	if len(rows) == 0 {
		return &PointSet{}, nil
	}
	dim := len(rows[0])
	data := make([]float64, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrRaggedRows, i, len(r), dim)
		}
		data = append(data, r...)
	}
	return &PointSet{n: len(rows), dim: dim, data: data}, nil
}

// MustFromRows is like FromRows but panics on error.
// Use this only in tests or for literal data.
func MustFromRows(rows [][]float64) *PointSet {
	ps, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return ps
}

// Len returns the number of points.
func (p *PointSet) Len() int { return p.n }

// Dim returns the dimensionality of every point.
func (p *PointSet) Dim() int { return p.dim }

// Point returns a read-only view of point i.
func (p *PointSet) Point(i int) []float64 {
	return p.data[i*p.dim : (i+1)*p.dim : (i+1)*p.dim]
}

// Data returns a read-only view of the row-major buffer.
func (p *PointSet) Data() []float64 { return p.data[:len(p.data):len(p.data)] }

// Rows returns a copy of the points as one slice per point.
func (p *PointSet) Rows() [][]float64 {
	rows := make([][]float64, p.n)
	for i := range rows {
		rows[i] = slices.Clone(p.Point(i))
	}
	return rows
}

// Permute returns a new PointSet whose point j is point order[j] of p.
func (p *PointSet) Permute(order []int) *PointSet {
	data := make([]float64, 0, len(order)*p.dim)
	for _, src := range order {
		data = append(data, p.Point(src)...)
	}
	return &PointSet{n: len(order), dim: p.dim, data: data}
}

// Normalized returns a copy of p with every point L2-normalized.
// Zero points stay zero.
func (p *PointSet) Normalized() *PointSet {
	data := slices.Clone(p.data)
	for i := 0; i < p.n; i++ {
		distance.NormalizeL2InPlace(data[i*p.dim : (i+1)*p.dim])
	}
	return &PointSet{n: p.n, dim: p.dim, data: data}
}
