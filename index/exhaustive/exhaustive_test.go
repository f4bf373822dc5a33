package exhaustive

import (
	"math"
	"testing"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/searcher"
	"github.com/hupe1980/neighbors/pointset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line() *pointset.PointSet {
	return pointset.MustFromRows([][]float64{{0}, {1}, {2}, {5}, {10}})
}

func TestExhaustive(t *testing.T) {
	t.Run("Build", func(t *testing.T) {
		e, err := Build(line())
		require.NoError(t, err)
		assert.Equal(t, index.KindExhaustive, e.Kind())
		assert.Equal(t, 5, e.Len())
		assert.Equal(t, 1, e.Dim())
		assert.Nil(t, e.Order())
		assert.Equal(t, distance.MetricEuclidean, e.Metric())
	})

	t.Run("DegenerateInput", func(t *testing.T) {
		_, err := Build(pointset.MustFromRows(nil))
		var degenerate *index.ErrDegenerateInput
		require.ErrorAs(t, err, &degenerate)
		assert.Equal(t, 0, degenerate.N)

		_, err = Build(pointset.MustFromRows([][]float64{{}, {}}))
		require.ErrorAs(t, err, &degenerate)
		assert.Equal(t, 2, degenerate.N)
		assert.Equal(t, 0, degenerate.Dim)
	})

	t.Run("KNN", func(t *testing.T) {
		e, err := Build(line())
		require.NoError(t, err)

		knn := searcher.NewKNN(2, e.Order(), nil)
		e.Search([]float64{0}, knn)
		res := knn.Results(nil)
		require.Len(t, res, 2)
		assert.Equal(t, 0, res[0].ID)
		assert.Equal(t, 0.0, res[0].Distance)
		assert.Equal(t, 1, res[1].ID)
		assert.Equal(t, 1.0, res[1].Distance)
	})

	t.Run("Range", func(t *testing.T) {
		e, err := Build(line())
		require.NoError(t, err)

		rng := searcher.NewRange(e.Order(), nil)
		rng.Reset(3)
		e.Search([]float64{2}, rng)
		var ids []int
		for _, c := range rng.Results(nil) {
			ids = append(ids, c.ID)
		}
		assert.ElementsMatch(t, []int{0, 1, 2, 3}, ids)
	})

	t.Run("Manhattan", func(t *testing.T) {
		ps := pointset.MustFromRows([][]float64{{0, 0}, {1, 1}, {3, 0}})
		e, err := Build(ps, func(o *Options) { o.Metric = distance.MetricManhattan })
		require.NoError(t, err)

		knn := searcher.NewKNN(1, nil, nil)
		e.Search([]float64{2, 0}, knn)
		res := knn.Results(nil)
		require.Len(t, res, 1)
		// (1,1) and (3,0) are at L1 distance 2 and 1.
		assert.Equal(t, 2, res[0].ID)
		assert.Equal(t, 1.0, res[0].Distance)
	})

	t.Run("CosineNormalizesCopy", func(t *testing.T) {
		ps := pointset.MustFromRows([][]float64{{3, 4}, {0, 2}})
		e, err := Build(ps, func(o *Options) { o.Metric = distance.MetricCosine })
		require.NoError(t, err)

		assert.InDelta(t, 0.6, e.Points().Point(0)[0], 1e-12)
		// Input is left untouched.
		assert.Equal(t, 3.0, ps.Point(0)[0])

		knn := searcher.NewKNN(1, nil, nil)
		e.Search(index.PrepareQuery(e.Metric(), []float64{0, 10}), knn)
		res := knn.Results(nil)
		require.Len(t, res, 1)
		assert.Equal(t, 1, res[0].ID)
		assert.InDelta(t, 0, res[0].Distance, 1e-12)
	})

	t.Run("InvalidMetric", func(t *testing.T) {
		_, err := Build(line(), func(o *Options) { o.Metric = distance.Metric(99) })
		var invalid *index.ErrInvalidMetric
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestBinary(t *testing.T) {
	e, err := Build(line(), func(o *Options) { o.Metric = distance.MetricManhattan })
	require.NoError(t, err)

	data, err := e.MarshalBinary()
	require.NoError(t, err)

	loaded, err := index.UnmarshalBinary(index.KindExhaustive, data)
	require.NoError(t, err)
	assert.Equal(t, e.Metric(), loaded.Metric())
	assert.Equal(t, e.Points().Data(), loaded.Points().Data())

	knn := searcher.NewKNN(5, loaded.Order(), nil)
	loaded.Search([]float64{4}, knn)
	res := knn.Results(nil)
	require.Len(t, res, 5)
	assert.Equal(t, 3, res[0].ID)
	assert.Equal(t, 1.0, res[0].Distance)

	t.Run("Truncated", func(t *testing.T) {
		_, err := index.UnmarshalBinary(index.KindExhaustive, data[:len(data)-3])
		assert.ErrorIs(t, err, index.ErrCorrupted)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		_, err := index.UnmarshalBinary(index.KindExhaustive, append(data, 0))
		assert.ErrorIs(t, err, index.ErrCorrupted)
	})
}

func TestSearchVisitsAll(t *testing.T) {
	e, err := Build(line())
	require.NoError(t, err)

	c := searcher.NewCounter(nil, nil)
	c.Reset(math.Inf(1))
	e.Search([]float64{100}, c)
	assert.Equal(t, 5, c.Count())
}
