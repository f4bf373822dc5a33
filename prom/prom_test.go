package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/pointset"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordBuild(index.KindVPTree, 100, time.Millisecond, nil)
	c.RecordBuild(index.KindVPTree, 5, time.Millisecond, errors.New("boom"))
	c.RecordSearch(neighbors.OpFindKNN, 100, time.Millisecond, nil)
	c.RecordSearch(neighbors.OpFindKNN, 7, time.Millisecond, nil)
	c.RecordSearch(neighbors.OpRangeQuery, 3, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.builds.WithLabelValues("VPTree", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.builds.WithLabelValues("VPTree", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.pointsIndexed.WithLabelValues("VPTree")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.searches.WithLabelValues(neighbors.OpFindKNN, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(neighbors.OpRangeQuery, "error")))
	assert.Equal(t, 107.0, testutil.ToFloat64(c.queriesHandled.WithLabelValues(neighbors.OpFindKNN)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.queriesHandled.WithLabelValues(neighbors.OpRangeQuery)))

	assert.Equal(t, 2, testutil.CollectAndCount(c.buildLatency))
	assert.Equal(t, 2, testutil.CollectAndCount(c.searchLatency))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)
}

func TestWithNeighbors(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	points := pointset.MustFromRows([][]float64{{0}, {1}, {2}, {5}, {10}})
	idx, err := neighbors.BuildIndex(ctx, points, index.KindKMKNN, neighbors.WithMetricsCollector(c))
	require.NoError(t, err)

	_, err = neighbors.FindKNN(ctx, idx, 2, neighbors.WithMetricsCollector(c))
	require.NoError(t, err)
	_, err = neighbors.FindKNN(ctx, idx, 0, neighbors.WithMetricsCollector(c))
	require.Error(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.pointsIndexed.WithLabelValues("KMKNN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(neighbors.OpFindKNN, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(neighbors.OpFindKNN, "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.queriesHandled.WithLabelValues(neighbors.OpFindKNN)))
}
