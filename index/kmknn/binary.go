package kmknn

import (
	"fmt"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/binenc"
)

func init() {
	index.RegisterBinaryLoader(index.KindKMKNN, func(data []byte) (index.Index, error) {
		m := &KMKNN{}
		if err := m.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return m, nil
	})
}

// MarshalBinary encodes the clustered layout.
func (m *KMKNN) MarshalBinary() ([]byte, error) {
	size := 64 + 8*len(m.points.Data()) + 8*len(m.centers.Data()) + 12*len(m.order) + 12*len(m.radii)
	w := binenc.NewWriter(size)
	w.PutU8(uint8(m.metric))
	w.PutPointSet(m.points)
	w.PutInts(m.order)
	w.PutPointSet(m.centers)
	w.PutF64s(m.radii)
	w.PutInts(m.offsets)
	w.PutF64s(m.memberDist)
	return w.Bytes(), nil
}

// UnmarshalBinary restores an index encoded by MarshalBinary.
func (m *KMKNN) UnmarshalBinary(data []byte) error {
	r := binenc.NewReader(data)
	metric := distance.Metric(r.U8())
	points := r.PointSet()
	order := r.Ints()
	centers := r.PointSet()
	radii := r.F64s()
	offsets := r.Ints()
	memberDist := r.F64s()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", index.ErrCorrupted, err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", index.ErrCorrupted, r.Remaining())
	}

	dist, err := distance.Provider(metric)
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrCorrupted, err)
	}

	n := points.Len()
	k := len(radii)
	switch {
	case n == 0 || points.Dim() == 0:
		return fmt.Errorf("%w: empty point set", index.ErrCorrupted)
	case !index.IsPermutation(order, n):
		return fmt.Errorf("%w: order is not a permutation", index.ErrCorrupted)
	case centers.Len() != k || centers.Dim() != points.Dim():
		return fmt.Errorf("%w: center shape %dx%d", index.ErrCorrupted, centers.Len(), centers.Dim())
	case len(memberDist) != n:
		return fmt.Errorf("%w: %d member distances for %d points", index.ErrCorrupted, len(memberDist), n)
	case !validOffsets(offsets, k, n):
		return fmt.Errorf("%w: invalid cluster offsets", index.ErrCorrupted)
	}

	m.metric = metric
	m.dist = dist
	m.points = points
	m.order = order
	m.centers = centers
	m.radii = radii
	m.offsets = offsets
	m.memberDist = memberDist
	m.initScratch()
	return nil
}

func validOffsets(offsets []int, k, n int) bool {
	if len(offsets) != k+1 || offsets[0] != 0 || offsets[k] != n {
		return false
	}
	for c := 0; c < k; c++ {
		if offsets[c+1] <= offsets[c] {
			return false
		}
	}
	return true
}
