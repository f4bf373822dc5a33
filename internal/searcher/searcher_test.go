package searcher

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
)

func TestKNN(t *testing.T) {
	// raw -> original
	order := []int{3, 0, 2, 1}
	c := NewKNN(2, order, nil)

	assert.True(t, math.IsInf(c.Bound(), 1))
	c.Visit(0, 4)
	assert.True(t, math.IsInf(c.Bound(), 1))
	c.Visit(1, 2)
	assert.Equal(t, 4.0, c.Bound())
	c.Visit(2, 1)
	assert.Equal(t, 2.0, c.Bound())
	c.Visit(3, 9)

	res := c.Results(nil)
	assert.Equal(t, []Candidate{
		{Raw: 2, ID: 2, Distance: 1},
		{Raw: 1, ID: 0, Distance: 2},
	}, res)

	c.Reset()
	assert.Empty(t, c.Results(nil))
}

func TestKNNFilter(t *testing.T) {
	filter := roaring.BitmapOf(1, 2)
	c := NewKNN(3, nil, filter)
	for raw := 0; raw < 4; raw++ {
		c.Visit(raw, float64(raw))
	}
	res := c.Results(nil)
	assert.Len(t, res, 2)
	assert.Equal(t, 1, res[0].ID)
	assert.Equal(t, 2, res[1].ID)
}

func TestRange(t *testing.T) {
	c := NewRange(nil, nil)
	c.Reset(2)
	assert.Equal(t, 2.0, c.Bound())
	c.Visit(0, 3)
	c.Visit(1, 2)
	c.Visit(2, 0)
	assert.Equal(t, []Candidate{{Raw: 1, ID: 1, Distance: 2}, {Raw: 2, ID: 2, Distance: 0}}, c.Results(nil))

	c.Reset(0.5)
	c.Visit(0, 1)
	assert.Empty(t, c.Results(nil))
}

func TestCounter(t *testing.T) {
	filter := roaring.BitmapOf(0, 5)
	c := NewCounter([]int{5, 6, 0}, filter)
	c.Reset(10)
	c.Visit(0, 1) // original 5
	c.Visit(1, 1) // original 6, filtered
	c.Visit(2, 11)
	assert.Equal(t, 1, c.Count())

	c.Reset(10)
	assert.Equal(t, 0, c.Count())
}

func TestExceeds(t *testing.T) {
	assert.True(t, Exceeds(2, 1, 1))
	assert.False(t, Exceeds(1, 1, 1))
	assert.False(t, Exceeds(1, math.Inf(1), 1))
	// Within rounding slack of the bound: not pruned.
	assert.False(t, Exceeds(1+1e-12, 1, 2))
}
