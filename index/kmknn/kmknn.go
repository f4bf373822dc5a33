// Package kmknn implements the k-means for k-nearest neighbors (KMKNN) index.
//
// Points are partitioned with k-means. Each cluster stores its center, its
// radius (largest member distance to the center), and every member's distance
// to the center. Search orders clusters by the triangle-inequality lower bound
// d(q, center) - radius and discards members whose bound |d(q, center) -
// d(p, center)| already exceeds the visitor's bound.
package kmknn

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/kmeans"
	"github.com/hupe1980/neighbors/internal/queue"
	"github.com/hupe1980/neighbors/internal/searcher"
	"github.com/hupe1980/neighbors/pointset"
)

// Compile-time check to ensure KMKNN satisfies the index interface.
var _ index.Index = (*KMKNN)(nil)

// Options contains configuration options for the KMKNN index.
type Options struct {
	// Metric is the distance metric used for clustering and search.
	Metric distance.Metric

	// ClusterCount is the number of k-means clusters.
	// Zero selects ceil(sqrt(N)). The value is clamped to [1, N].
	ClusterCount int

	// MaxIterations caps the number of k-means update steps.
	MaxIterations int

	// Seed makes clustering deterministic.
	Seed int64
}

// DefaultOptions contains the default configuration options for the KMKNN index.
var DefaultOptions = Options{
	Metric:        distance.MetricEuclidean,
	ClusterCount:  0,
	MaxIterations: 10,
	Seed:          42,
}

// KMKNN is an immutable clustered index.
//
// Stored points are reordered so that every cluster occupies a contiguous raw
// range offsets[c]:offsets[c+1], sorted by increasing distance to the center.
type KMKNN struct {
	metric     distance.Metric
	dist       distance.Func
	points     *pointset.PointSet
	order      []int
	centers    *pointset.PointSet
	radii      []float64
	offsets    []int
	memberDist []float64

	scratch sync.Pool
}

type scratch struct {
	centerDist []float64
	pq         *queue.PriorityQueue
}

// Stats describes the cluster layout.
type Stats struct {
	Clusters   int
	MinSize    int
	MaxSize    int
	MaxRadius  float64
	MeanRadius float64
}

// Build clusters points and creates a KMKNN index.
func Build(ctx context.Context, points *pointset.PointSet, optFns ...func(o *Options)) (*KMKNN, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	stored, dist, err := index.Prepare(points, opts.Metric)
	if err != nil {
		return nil, err
	}

	n, dim := stored.Len(), stored.Dim()

	k := opts.ClusterCount
	if k <= 0 {
		k = int(math.Ceil(math.Sqrt(float64(n))))
	}
	k = min(max(k, 1), n)

	rng := rand.New(rand.NewSource(opts.Seed))

	res, err := kmeans.Train(ctx, stored.Data(), dim, k, dist, opts.MaxIterations, rng)
	if err != nil {
		return nil, err
	}

	members := make([][]int, k)
	for i, c := range res.Assignments {
		members[c] = append(members[c], i)
	}

	m := &KMKNN{
		metric:     opts.Metric,
		dist:       dist,
		order:      make([]int, 0, n),
		offsets:    []int{0},
		memberDist: make([]float64, 0, n),
	}

	centers := make([]float64, 0, k*dim)
	toCenter := make([]float64, n)

	for c, ids := range members {
		if len(ids) == 0 {
			continue
		}

		center := res.Centroids[c*dim : (c+1)*dim]
		for _, i := range ids {
			toCenter[i] = dist(stored.Point(i), center)
		}

		// ids is ascending, so a stable sort keeps equal distances in original order.
		slices.SortStableFunc(ids, func(a, b int) int {
			switch {
			case toCenter[a] < toCenter[b]:
				return -1
			case toCenter[a] > toCenter[b]:
				return 1
			default:
				return 0
			}
		})

		for _, i := range ids {
			m.order = append(m.order, i)
			m.memberDist = append(m.memberDist, toCenter[i])
		}

		centers = append(centers, center...)
		m.radii = append(m.radii, toCenter[ids[len(ids)-1]])
		m.offsets = append(m.offsets, len(m.order))
	}

	m.points = stored.Permute(m.order)
	m.centers, err = pointset.New(len(m.radii), dim, centers)
	if err != nil {
		return nil, err
	}

	m.initScratch()

	return m, nil
}

func (m *KMKNN) initScratch() {
	k := len(m.radii)
	m.scratch.New = func() any {
		return &scratch{
			centerDist: make([]float64, k),
			pq:         queue.NewMin(k),
		}
	}
}

// Kind returns index.KindKMKNN.
func (m *KMKNN) Kind() index.Kind { return index.KindKMKNN }

// Metric returns the distance metric.
func (m *KMKNN) Metric() distance.Metric { return m.metric }

// Len returns the number of indexed points.
func (m *KMKNN) Len() int { return m.points.Len() }

// Dim returns the dimensionality of indexed points.
func (m *KMKNN) Dim() int { return m.points.Dim() }

// Points returns the stored points in raw (cluster) order.
func (m *KMKNN) Points() *pointset.PointSet { return m.points }

// Order maps raw positions to original positions.
func (m *KMKNN) Order() []int { return m.order }

// Clusters returns the number of non-empty clusters.
func (m *KMKNN) Clusters() int { return len(m.radii) }

// Stats returns statistics about the cluster layout.
func (m *KMKNN) Stats() Stats {
	s := Stats{Clusters: len(m.radii), MinSize: math.MaxInt}
	for c, r := range m.radii {
		size := m.offsets[c+1] - m.offsets[c]
		s.MinSize = min(s.MinSize, size)
		s.MaxSize = max(s.MaxSize, size)
		s.MaxRadius = max(s.MaxRadius, r)
		s.MeanRadius += r
	}
	if s.Clusters > 0 {
		s.MeanRadius /= float64(s.Clusters)
	} else {
		s.MinSize = 0
	}
	return s
}

// Search visits clusters in order of increasing lower bound and reports every
// member that may lie within the visitor's bound.
func (m *KMKNN) Search(query []float64, v index.Visitor) {
	s := m.scratch.Get().(*scratch)
	defer m.scratch.Put(s)

	s.pq.Reset()
	for c, r := range m.radii {
		dc := m.dist(query, m.centers.Point(c))
		s.centerDist[c] = dc
		s.pq.Push(queue.Item{Node: int32(c), Priority: dc - r})
	}

	for s.pq.Len() > 0 {
		item, _ := s.pq.Pop()
		c := int(item.Node)
		dc := s.centerDist[c]

		// Each cluster is tested at its own scale, so later clusters are
		// still examined after one is pruned.
		if searcher.Exceeds(item.Priority, v.Bound(), dc+m.radii[c]) {
			continue
		}

		for raw := m.offsets[c]; raw < m.offsets[c+1]; raw++ {
			md := m.memberDist[raw]
			bound := v.Bound()
			if searcher.Exceeds(md-dc, bound, md+dc) {
				// Members are sorted by md, so the rest are farther still.
				break
			}
			if searcher.Exceeds(dc-md, bound, md+dc) {
				continue
			}
			v.Visit(raw, m.dist(query, m.points.Point(raw)))
		}
	}
}
