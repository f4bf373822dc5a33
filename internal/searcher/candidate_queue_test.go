package searcher

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateHeap(t *testing.T) {
	t.Run("WorstFirstPop", func(t *testing.T) {
		h := NewCandidateHeap(10)
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 100; i++ {
			h.Push(Candidate{ID: i, Distance: rng.Float64()})
		}
		require.Equal(t, 100, h.Len())

		prev := h.Pop()
		for h.Len() > 0 {
			curr := h.Pop()
			assert.False(t, CandidateBetter(prev, curr), "pop order must be worst first")
			prev = curr
		}
	})

	t.Run("TieBreaking", func(t *testing.T) {
		h := NewCandidateHeap(2)
		h.Push(Candidate{ID: 10, Distance: 1})
		h.Push(Candidate{ID: 20, Distance: 1})

		// Larger original position is worse on equal distance.
		assert.Equal(t, 20, h.Peek().ID)
	})

	t.Run("TryPushBounded", func(t *testing.T) {
		h := NewCandidateHeap(5)
		for i := 0; i < 5; i++ {
			assert.True(t, h.TryPushBounded(Candidate{ID: i, Distance: float64(10 + i)}, 5))
		}
		assert.Equal(t, 14.0, h.Peek().Distance)

		assert.False(t, h.TryPushBounded(Candidate{ID: 9, Distance: 20}, 5))
		assert.Equal(t, 5, h.Len())

		assert.True(t, h.TryPushBounded(Candidate{ID: 9, Distance: 5}, 5))
		assert.Equal(t, 13.0, h.Peek().Distance)

		// Same distance as the worst, smaller ID: kept.
		assert.True(t, h.TryPushBounded(Candidate{ID: 0, Distance: 13}, 5))
		// Same distance, larger ID: rejected.
		assert.False(t, h.TryPushBounded(Candidate{ID: 99, Distance: 13}, 5))
	})

	t.Run("ZeroCapacity", func(t *testing.T) {
		h := NewCandidateHeap(0)
		assert.False(t, h.TryPushBounded(Candidate{Distance: 1}, 0))
		assert.Equal(t, 0, h.Len())
	})

	t.Run("SortedResults", func(t *testing.T) {
		h := NewCandidateHeap(10)
		h.Push(Candidate{ID: 1, Distance: 5})
		h.Push(Candidate{ID: 2, Distance: 1})
		h.Push(Candidate{ID: 3, Distance: 9})
		h.Push(Candidate{ID: 5, Distance: 3})
		h.Push(Candidate{ID: 4, Distance: 3})

		sorted := h.SortedResults(nil)
		ids := make([]int, len(sorted))
		for i, c := range sorted {
			ids[i] = c.ID
		}
		assert.Equal(t, []int{2, 4, 5, 1, 3}, ids)
		assert.Equal(t, 5, h.Len())
	})

	t.Run("Determinism", func(t *testing.T) {
		run := func(seed int64) []Candidate {
			rng := rand.New(rand.NewSource(42))
			cands := make([]Candidate, 1000)
			for i := range cands {
				cands[i] = Candidate{ID: i, Distance: float64(rng.Intn(10))}
			}
			// Offer in a different order each run.
			shuffle := rand.New(rand.NewSource(seed))
			shuffle.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

			h := NewCandidateHeap(25)
			for _, c := range cands {
				h.TryPushBounded(c, 25)
			}
			return h.SortedResults(nil)
		}
		assert.Equal(t, run(1), run(2))
	})
}
