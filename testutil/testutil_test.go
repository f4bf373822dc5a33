package testutil

import (
	"math"
	"testing"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/pointset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformPoints(t *testing.T) {
	rng := NewRNG(4711)

	ps := rng.UniformPoints(8, 32)

	assert.Equal(t, 8, ps.Len())
	assert.Equal(t, 32, ps.Dim())
	for _, x := range ps.Data() {
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
}

func TestGridPoints(t *testing.T) {
	rng := NewRNG(4711)

	ps := rng.GridPoints(100, 2, 3)
	for _, x := range ps.Data() {
		assert.Equal(t, math.Trunc(x), x)
		assert.Less(t, x, 3.0)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.GaussianPoints(4, 3)
	rng.Reset()
	b := rng.GaussianPoints(4, 3)
	assert.Equal(t, a.Data(), b.Data())
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestClusteredPoints(t *testing.T) {
	rng := NewRNG(4711)

	ps := rng.ClusteredPoints(100, 4, 5, 0.1)

	assert.Equal(t, 100, ps.Len())
	assert.Equal(t, 4, ps.Dim())
}

func TestExact(t *testing.T) {
	ps := pointset.MustFromRows([][]float64{{0}, {1}, {2}, {5}, {10}, {1}})

	nbs := ExactKNN(ps, []float64{1}, 3, distance.Euclidean)
	require.Len(t, nbs, 3)
	assert.Equal(t, []int{1, 5, 0}, IDs(nbs))
	assert.Equal(t, []float64{0, 0, 1}, Distances(nbs))

	assert.Len(t, ExactKNN(ps, []float64{1}, 100, distance.Euclidean), 6)

	in := ExactRange(ps, []float64{1}, 1, distance.Euclidean)
	assert.Equal(t, []int{1, 5, 0, 2}, IDs(in))

	assert.Equal(t, 4.0, KthDistance(ps, []float64{1}, 5, distance.Euclidean))
	assert.True(t, math.IsInf(KthDistance(ps, []float64{1}, 7, distance.Euclidean), 1))
}
