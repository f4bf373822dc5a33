package neighbors

import (
	"math"

	"github.com/hupe1980/neighbors/internal/searcher"
)

// Results holds one row per processed query, in query (or subset) order.
//
// KNN rows are sorted by ascending distance with ties broken by original
// position. Range rows are in no particular order. Index is nil when
// WithoutIndex is set and Distance is nil when WithoutDistance is set. When
// both are set, Count holds the number of neighbors per query instead.
type Results struct {
	Index    [][]int
	Distance [][]float64
	Count    []int
}

// Len returns the number of rows.
func (r *Results) Len() int {
	switch {
	case r.Count != nil:
		return len(r.Count)
	case r.Index != nil:
		return len(r.Index)
	default:
		return len(r.Distance)
	}
}

// Threshold is a range search radius: either one value for every query or
// one value per processed query.
type Threshold struct {
	scalar   float64
	perQuery []float64
	vector   bool
}

// Scalar returns a threshold applied to every query.
func Scalar(r float64) Threshold {
	return Threshold{scalar: r}
}

// PerQuery returns a threshold with one radius per processed query.
// With WithSubset, rs is indexed by subset row, not by query position.
func PerQuery(rs []float64) Threshold {
	return Threshold{perQuery: rs, vector: true}
}

func (t Threshold) at(row int) float64 {
	if t.vector {
		return t.perQuery[row]
	}
	return t.scalar
}

func (t Threshold) validate(rows int) error {
	if !t.vector {
		return validRadius(t.scalar)
	}
	if len(t.perQuery) != rows {
		return &ThresholdLengthError{Expected: rows, Actual: len(t.perQuery)}
	}
	for _, r := range t.perQuery {
		if err := validRadius(r); err != nil {
			return err
		}
	}
	return nil
}

func validRadius(r float64) error {
	if r < 0 || math.IsNaN(r) {
		return ErrInvalidThreshold
	}
	return nil
}

// row is the formatted result for one query.
type row struct {
	ids   []int
	dists []float64
	count int
}

// formatRow applies the output flags to a query's candidates.
func (o *options) formatRow(cands []searcher.Candidate) row {
	var r row
	if o.wantIndex {
		r.ids = make([]int, len(cands))
		for i, c := range cands {
			if o.rawIndex {
				r.ids[i] = c.Raw
			} else {
				r.ids[i] = c.ID
			}
		}
	}
	if o.wantDistance {
		r.dists = make([]float64, len(cands))
		for i, c := range cands {
			r.dists[i] = c.Distance
		}
	}
	return r
}

// assemble collects rows into Results.
func (o *options) assemble(rows []row) *Results {
	res := &Results{}
	if o.countOnly() {
		res.Count = make([]int, len(rows))
		for i, r := range rows {
			res.Count[i] = r.count
		}
		return res
	}
	if o.wantIndex {
		res.Index = make([][]int, len(rows))
		for i, r := range rows {
			res.Index[i] = r.ids
		}
	}
	if o.wantDistance {
		res.Distance = make([][]float64, len(rows))
		for i, r := range rows {
			res.Distance[i] = r.dists
		}
	}
	return res
}
