package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/pointset"
)

// Neighbor is a ground-truth result.
type Neighbor struct {
	ID       int
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformPoints generates n points with coordinates in [0, 1).
func (r *RNG) UniformPoints(n, dim int) *pointset.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	for i := range data {
		data[i] = r.rand.Float64()
	}
	return mustNew(n, dim, data)
}

// GaussianPoints generates n points from a standard normal distribution.
func (r *RNG) GaussianPoints(n, dim int) *pointset.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}
	return mustNew(n, dim, data)
}

// GridPoints generates n points with small integer coordinates in [0, side).
// The result contains many duplicate points and equal distances, which
// exercises tie handling.
func (r *RNG) GridPoints(n, dim, side int) *pointset.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	for i := range data {
		data[i] = float64(r.rand.Intn(side))
	}
	return mustNew(n, dim, data)
}

// ClusteredPoints generates points clustered around uniformly drawn centers
// in [0, 10)^dim with Gaussian noise of the given spread.
func (r *RNG) ClusteredPoints(n, dim, clusters int, spread float64) *pointset.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	centers := make([]float64, clusters*dim)
	for i := range centers {
		centers[i] = r.rand.Float64() * 10
	}

	data := make([]float64, n*dim)
	for i := 0; i < n; i++ {
		c := i % clusters
		for j := 0; j < dim; j++ {
			data[i*dim+j] = centers[c*dim+j] + r.rand.NormFloat64()*spread
		}
	}
	return mustNew(n, dim, data)
}

func mustNew(n, dim int, data []float64) *pointset.PointSet {
	ps, err := pointset.New(n, dim, data)
	if err != nil {
		panic(err)
	}
	return ps
}

// ExactKNN returns the k nearest points to query by brute force, ordered by
// distance with ties broken by ascending ID.
func ExactKNN(points *pointset.PointSet, query []float64, k int, dist distance.Func) []Neighbor {
	all := scan(points, query, dist)
	return all[:min(k, len(all))]
}

// ExactRange returns every point within threshold of query, ordered by
// distance with ties broken by ascending ID.
func ExactRange(points *pointset.PointSet, query []float64, threshold float64, dist distance.Func) []Neighbor {
	all := scan(points, query, dist)
	n, _ := slices.BinarySearchFunc(all, threshold, func(nb Neighbor, t float64) int {
		if nb.Distance <= t {
			return -1
		}
		return 1
	})
	return all[:n]
}

func scan(points *pointset.PointSet, query []float64, dist distance.Func) []Neighbor {
	all := make([]Neighbor, points.Len())
	for i := range all {
		all[i] = Neighbor{ID: i, Distance: dist(query, points.Point(i))}
	}
	slices.SortStableFunc(all, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return all
}

// IDs extracts the IDs of neighbors.
func IDs(nbs []Neighbor) []int {
	ids := make([]int, len(nbs))
	for i, nb := range nbs {
		ids[i] = nb.ID
	}
	return ids
}

// Distances extracts the distances of neighbors.
func Distances(nbs []Neighbor) []float64 {
	ds := make([]float64, len(nbs))
	for i, nb := range nbs {
		ds[i] = nb.Distance
	}
	return ds
}

// KthDistance returns the distance of the k-th nearest neighbor (1-based),
// or +Inf when fewer than k points exist.
func KthDistance(points *pointset.PointSet, query []float64, k int, dist distance.Func) float64 {
	nbs := ExactKNN(points, query, k, dist)
	if len(nbs) < k {
		return math.Inf(1)
	}
	return nbs[k-1].Distance
}
