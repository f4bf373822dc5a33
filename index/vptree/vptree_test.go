package vptree

import (
	"context"
	"slices"
	"testing"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/searcher"
	"github.com/hupe1980/neighbors/pointset"
	"github.com/hupe1980/neighbors/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knn(idx index.Index, q []float64, k int) []testutil.Neighbor {
	c := searcher.NewKNN(k, idx.Order(), nil)
	idx.Search(index.PrepareQuery(idx.Metric(), q), c)
	var out []testutil.Neighbor
	for _, r := range c.Results(nil) {
		out = append(out, testutil.Neighbor{ID: r.ID, Distance: r.Distance})
	}
	return out
}

func within(idx index.Index, q []float64, threshold float64) []testutil.Neighbor {
	c := searcher.NewRange(idx.Order(), nil)
	c.Reset(threshold)
	idx.Search(index.PrepareQuery(idx.Metric(), q), c)
	res := c.Results(nil)
	slices.SortFunc(res, func(a, b searcher.Candidate) int {
		if searcher.CandidateBetter(a, b) {
			return -1
		}
		return 1
	})
	var out []testutil.Neighbor
	for _, r := range res {
		out = append(out, testutil.Neighbor{ID: r.ID, Distance: r.Distance})
	}
	return out
}

func TestVPTree(t *testing.T) {
	ctx := context.Background()

	t.Run("Invariants", func(t *testing.T) {
		ps := testutil.NewRNG(1).GridPoints(300, 2, 6)
		tree, err := Build(ctx, ps, func(o *Options) { o.LeafSize = 4 })
		require.NoError(t, err)

		assert.Equal(t, index.KindVPTree, tree.Kind())
		assert.True(t, index.IsPermutation(tree.Order(), 300))
		assert.True(t, validNodes(tree.nodes, 300))

		for raw := 0; raw < tree.Len(); raw++ {
			assert.Equal(t, ps.Point(tree.Order()[raw]), tree.Points().Point(raw))
		}

		pts := tree.Points()
		for _, n := range tree.nodes {
			pivot := pts.Point(int(n.start))
			for raw := int(n.start) + 1; raw < int(n.end); raw++ {
				assert.LessOrEqual(t, tree.dist(pivot, pts.Point(raw)), n.radius)
			}
			if n.leaf {
				assert.LessOrEqual(t, int(n.end-n.start), 4)
				continue
			}
			near := tree.nodes[n.near]
			assert.Equal(t, n.start+1, near.start)
			for raw := near.start; raw < near.end; raw++ {
				assert.LessOrEqual(t, tree.dist(pivot, pts.Point(int(raw))), n.threshold)
			}
			if n.far != noChild {
				far := tree.nodes[n.far]
				assert.Equal(t, near.end, far.start)
				assert.Equal(t, n.end, far.end)
				for raw := far.start; raw < far.end; raw++ {
					assert.GreaterOrEqual(t, tree.dist(pivot, pts.Point(int(raw))), n.threshold)
				}
			}
		}
	})

	t.Run("LeafSizeOne", func(t *testing.T) {
		ps := testutil.NewRNG(2).UniformPoints(64, 3)
		tree, err := Build(ctx, ps, func(o *Options) { o.LeafSize = 1 })
		require.NoError(t, err)

		q := []float64{0.2, 0.4, 0.6}
		assert.Equal(t, testutil.ExactKNN(ps, q, 9, distance.Euclidean), knn(tree, q, 9))
	})

	t.Run("SinglePoint", func(t *testing.T) {
		tree, err := Build(ctx, pointset.MustFromRows([][]float64{{4}}))
		require.NoError(t, err)
		assert.Len(t, tree.nodes, 1)

		got := knn(tree, []float64{1}, 2)
		require.Len(t, got, 1)
		assert.Equal(t, 3.0, got[0].Distance)
	})

	t.Run("AllDuplicates", func(t *testing.T) {
		rows := make([][]float64, 40)
		for i := range rows {
			rows[i] = []float64{1, 1, 1}
		}
		tree, err := Build(ctx, pointset.MustFromRows(rows), func(o *Options) { o.LeafSize = 2 })
		require.NoError(t, err)

		got := knn(tree, []float64{1, 1, 1}, 5)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, testutil.IDs(got))
		assert.Len(t, within(tree, []float64{1, 1, 1}, 0), 40)
	})

	t.Run("Deterministic", func(t *testing.T) {
		ps := testutil.NewRNG(3).GaussianPoints(200, 4)
		a, err := Build(ctx, ps)
		require.NoError(t, err)
		b, err := Build(ctx, ps)
		require.NoError(t, err)
		assert.Equal(t, a.Order(), b.Order())
		assert.Equal(t, a.nodes, b.nodes)
	})

	t.Run("DegenerateInput", func(t *testing.T) {
		_, err := Build(ctx, pointset.MustFromRows([][]float64{{}}))
		var degenerate *index.ErrDegenerateInput
		assert.ErrorAs(t, err, &degenerate)
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Build(cctx, testutil.NewRNG(4).UniformPoints(50, 2))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Stats", func(t *testing.T) {
		tree, err := Build(ctx, testutil.NewRNG(5).UniformPoints(1000, 2))
		require.NoError(t, err)
		s := tree.Stats()
		assert.Equal(t, len(tree.nodes), s.Nodes)
		assert.Positive(t, s.Leaves)
		assert.LessOrEqual(t, s.MaxLeafLen, DefaultOptions.LeafSize)
		// Halving at every level keeps the tree shallow.
		assert.Less(t, s.Depth, 20)
	})
}

func TestVPTree_MatchesExhaustive(t *testing.T) {
	ctx := context.Background()

	datasets := map[string]*pointset.PointSet{
		"Uniform":   testutil.NewRNG(10).UniformPoints(400, 3),
		"Gaussian":  testutil.NewRNG(11).GaussianPoints(300, 8),
		"Grid":      testutil.NewRNG(12).GridPoints(300, 2, 5),
		"Clustered": testutil.NewRNG(13).ClusteredPoints(500, 4, 6, 0.2),
	}
	metrics := []distance.Metric{distance.MetricEuclidean, distance.MetricManhattan, distance.MetricCosine}

	for name, ps := range datasets {
		for _, metric := range metrics {
			t.Run(name+"/"+metric.String(), func(t *testing.T) {
				tree, err := Build(ctx, ps, func(o *Options) { o.Metric = metric })
				require.NoError(t, err)

				fn, err := distance.Provider(metric)
				require.NoError(t, err)
				ref := ps
				if metric.Normalizes() {
					ref = ps.Normalized()
				}

				queries := testutil.NewRNG(99).GaussianPoints(15, ps.Dim())
				for i := 0; i < queries.Len(); i++ {
					q := queries.Point(i)
					pq := index.PrepareQuery(metric, q)

					for _, k := range []int{1, 5, 17, ps.Len() + 3} {
						assert.Equal(t, testutil.ExactKNN(ref, pq, k, fn), knn(tree, q, k))
					}

					r := testutil.KthDistance(ref, pq, 10, fn)
					assert.Equal(t, testutil.ExactRange(ref, pq, r, fn), within(tree, q, r))
				}

				for _, i := range []int{0, ps.Len() / 2, ps.Len() - 1} {
					assert.Equal(t, testutil.ExactKNN(ref, ref.Point(i), 4, fn), knn(tree, ps.Point(i), 4))
				}
			})
		}
	}
}

func TestBinary(t *testing.T) {
	ctx := context.Background()
	ps := testutil.NewRNG(20).UniformPoints(150, 3)

	tree, err := Build(ctx, ps, func(o *Options) { o.Metric = distance.MetricCosine })
	require.NoError(t, err)

	data, err := tree.MarshalBinary()
	require.NoError(t, err)

	loaded, err := index.UnmarshalBinary(index.KindVPTree, data)
	require.NoError(t, err)
	assert.Equal(t, tree.Order(), loaded.Order())
	assert.Equal(t, tree.nodes, loaded.(*VPTree).nodes)
	assert.Equal(t, distance.MetricCosine, loaded.Metric())

	q := []float64{0.1, 0.9, 0.3}
	assert.Equal(t, knn(tree, q, 7), knn(loaded, q, 7))

	t.Run("Truncated", func(t *testing.T) {
		_, err := index.UnmarshalBinary(index.KindVPTree, data[:len(data)-10])
		assert.ErrorIs(t, err, index.ErrCorrupted)
	})

	t.Run("Cycle", func(t *testing.T) {
		nodes := slices.Clone(tree.nodes)
		for i := range nodes {
			if !nodes[i].leaf {
				nodes[i].near = 0
				break
			}
		}
		bad := &VPTree{metric: tree.metric, points: tree.points, order: tree.order, nodes: nodes}
		raw, err := bad.MarshalBinary()
		require.NoError(t, err)
		_, err = index.UnmarshalBinary(index.KindVPTree, raw)
		assert.ErrorIs(t, err, index.ErrCorrupted)
	})
}

func TestSearchPrunes(t *testing.T) {
	ps := testutil.NewRNG(30).UniformPoints(5000, 2)
	tree, err := Build(context.Background(), ps)
	require.NoError(t, err)

	v := &countingVisitor{KNN: searcher.NewKNN(3, tree.Order(), nil)}
	tree.Search([]float64{0.5, 0.5}, v)
	assert.Less(t, v.visits, ps.Len()/4)
}

type countingVisitor struct {
	*searcher.KNN
	visits int
}

func (v *countingVisitor) Visit(raw int, dist float64) {
	v.visits++
	v.KNN.Visit(raw, dist)
}
