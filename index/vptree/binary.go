package vptree

import (
	"fmt"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/binenc"
)

const nodeFlagLeaf = 1

func init() {
	index.RegisterBinaryLoader(index.KindVPTree, func(data []byte) (index.Index, error) {
		t := &VPTree{}
		if err := t.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// MarshalBinary encodes the points, the raw-to-original order and the node arena.
func (t *VPTree) MarshalBinary() ([]byte, error) {
	w := binenc.NewWriter(32 + 8*len(t.points.Data()) + 4*len(t.order) + 33*len(t.nodes))
	w.PutU8(uint8(t.metric))
	w.PutPointSet(t.points)
	w.PutInts(t.order)
	w.PutU32(uint32(len(t.nodes)))
	for _, n := range t.nodes {
		w.PutI32(n.start)
		w.PutI32(n.end)
		w.PutF64(n.threshold)
		w.PutF64(n.radius)
		w.PutI32(n.near)
		w.PutI32(n.far)
		var flags uint8
		if n.leaf {
			flags |= nodeFlagLeaf
		}
		w.PutU8(flags)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary restores a tree encoded by MarshalBinary.
func (t *VPTree) UnmarshalBinary(data []byte) error {
	r := binenc.NewReader(data)
	metric := distance.Metric(r.U8())
	points := r.PointSet()
	order := r.Ints()
	count := r.U32()
	if r.Err() == nil && int(count) > r.Remaining()/33 {
		return fmt.Errorf("%w: %d nodes exceed payload", index.ErrCorrupted, count)
	}

	nodes := make([]node, 0, count)
	for i := uint32(0); i < count && r.Err() == nil; i++ {
		n := node{
			start:     r.I32(),
			end:       r.I32(),
			threshold: r.F64(),
			radius:    r.F64(),
			near:      r.I32(),
			far:       r.I32(),
		}
		n.leaf = r.U8()&nodeFlagLeaf != 0
		nodes = append(nodes, n)
	}
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
	switch {
	case n == 0 || points.Dim() == 0:
		return fmt.Errorf("%w: empty point set", index.ErrCorrupted)
	case !index.IsPermutation(order, n):
		return fmt.Errorf("%w: order is not a permutation", index.ErrCorrupted)
	case !validNodes(nodes, n):
		return fmt.Errorf("%w: invalid node arena", index.ErrCorrupted)
	}

	t.metric = metric
	t.dist = dist
	t.points = points
	t.order = order
	t.nodes = nodes
	return nil
}

// validNodes checks that every node covers a non-empty range inside [0, n),
// the root covers everything, and children always follow their parent in the
// arena, which rules out cycles.
func validNodes(nodes []node, n int) bool {
	if len(nodes) == 0 || nodes[0].start != 0 || int(nodes[0].end) != n {
		return false
	}
	for id, nd := range nodes {
		if nd.start < 0 || nd.start >= nd.end || int(nd.end) > n {
			return false
		}
		for _, c := range []int32{nd.near, nd.far} {
			if c == noChild {
				continue
			}
			if nd.leaf || int(c) <= id || int(c) >= len(nodes) {
				return false
			}
		}
	}
	return true
}
