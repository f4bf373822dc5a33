package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/neighbors/distance"
)

// ErrInvalidK is returned when k is not in [1, n].
var ErrInvalidK = errors.New("kmeans: k must be between 1 and the number of vectors")

// Result holds the outcome of a clustering run.
type Result struct {
	// Centroids is the flattened k*dim center matrix.
	Centroids []float64
	// Assignments maps each vector to its nearest centroid.
	Assignments []int
	// Iterations is the number of update steps performed.
	Iterations int
}

// Train clusters n = len(vectors)/dim vectors into k groups using Lloyd's
// algorithm.
//
// Initial centroids are the first k entries of a permutation drawn from rng,
// so a seeded rng gives a deterministic result. At most maxIter update steps
// are run; iteration stops early once no assignment changes. The returned
// assignments always refer to the returned centroids. Clusters that end up
// empty keep their last centroid.
func Train(ctx context.Context, vectors []float64, dim, k int, dist distance.Func, maxIter int, rng *rand.Rand) (*Result, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("kmeans: invalid dimension %d", dim)
	}
	n := len(vectors) / dim
	if k <= 0 || k > n {
		return nil, ErrInvalidK
	}

	centroids := make([]float64, k*dim)
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	iter := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Assignment step
		changed := false
		for i := 0; i < n; i++ {
			best := AssignPartition(vectors[i*dim:(i+1)*dim], centroids, dim, dist)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed || iter >= maxIter {
			break
		}
		iter++

		// Update step
		clear(sums)
		clear(counts)
		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float64(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				// Re-seed an empty cluster with a random vector.
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
	}

	return &Result{
		Centroids:   centroids,
		Assignments: assignments,
		Iterations:  iter,
	}, nil
}

// AssignPartition returns the index of the closest centroid to vec.
// Ties go to the lowest centroid index.
func AssignPartition(vec []float64, centroids []float64, dim int, dist distance.Func) int {
	k := len(centroids) / dim
	best := -1
	minDist := math.Inf(1)
	for j := 0; j < k; j++ {
		d := dist(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist || best < 0 {
			minDist = d
			best = j
		}
	}
	return best
}
