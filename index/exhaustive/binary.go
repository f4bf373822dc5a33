package exhaustive

import (
	"fmt"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/binenc"
)

func init() {
	index.RegisterBinaryLoader(index.KindExhaustive, func(data []byte) (index.Index, error) {
		e := &Exhaustive{}
		if err := e.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return e, nil
	})
}

// MarshalBinary encodes the metric and the stored points.
func (e *Exhaustive) MarshalBinary() ([]byte, error) {
	w := binenc.NewWriter(16 + 8*len(e.points.Data()))
	w.PutU8(uint8(e.metric))
	w.PutPointSet(e.points)
	return w.Bytes(), nil
}

// UnmarshalBinary restores an index encoded by MarshalBinary.
func (e *Exhaustive) UnmarshalBinary(data []byte) error {
	r := binenc.NewReader(data)
	metric := distance.Metric(r.U8())
	points := r.PointSet()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", index.ErrCorrupted, err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", index.ErrCorrupted, r.Remaining())
	}
	if points.Len() == 0 || points.Dim() == 0 {
		return fmt.Errorf("%w: empty point set", index.ErrCorrupted)
	}

	dist, err := distance.Provider(metric)
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrCorrupted, err)
	}

	e.metric = metric
	e.dist = dist
	e.points = points
	return nil
}
