package pointio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/pointset"
	"github.com/hupe1980/neighbors/testutil"
)

func TestPointsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		points *pointset.PointSet
	}{
		{name: "Line", points: pointset.MustFromRows([][]float64{{0}, {1}, {2}, {5}, {10}})},
		{name: "Gaussian", points: testutil.NewRNG(1).GaussianPoints(2500, 6)},
		{name: "Empty", points: &pointset.PointSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".parquet")
			require.NoError(t, WritePoints(path, tt.points))

			got, err := ReadPoints(path)
			require.NoError(t, err)
			assert.Equal(t, tt.points.Len(), got.Len())
			assert.Equal(t, tt.points.Dim(), got.Dim())
			assert.Equal(t, tt.points.Data(), got.Data())
		})
	}
}

func TestPointsCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.parquet")
	require.NoError(t, WritePoints(path, testutil.NewRNG(2).UniformPoints(100, 4)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	stat, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, stat.Size())
	require.NoError(t, err)

	meta := pf.Metadata()
	require.NotEmpty(t, meta.RowGroups)
	for _, col := range meta.RowGroups[0].Columns {
		assert.Equal(t, format.Zstd, col.MetaData.Codec)
	}
}

func TestReadPointsShuffled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shuffled.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	pw := parquet.NewGenericWriter[PointRecord](f)
	_, err = pw.Write([]PointRecord{
		{ID: 2, Coords: []float64{2, 2}},
		{ID: 0, Coords: []float64{0, 0}},
		{ID: 1, Coords: []float64{1, 1}},
	})
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, f.Close())

	got, err := ReadPoints(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {1, 1}, {2, 2}}, got.Rows())
}

func TestReadPointsErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, recs []PointRecord) string {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		pw := parquet.NewGenericWriter[PointRecord](f)
		_, err = pw.Write(recs)
		require.NoError(t, err)
		require.NoError(t, pw.Close())
		require.NoError(t, f.Close())
		return path
	}

	t.Run("DuplicateID", func(t *testing.T) {
		path := write("dup.parquet", []PointRecord{{ID: 0, Coords: []float64{1}}, {ID: 0, Coords: []float64{2}}})
		_, err := ReadPoints(path)
		assert.ErrorIs(t, err, ErrBadID)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		path := write("range.parquet", []PointRecord{{ID: 5, Coords: []float64{1}}})
		_, err := ReadPoints(path)
		assert.ErrorIs(t, err, ErrBadID)
	})

	t.Run("Ragged", func(t *testing.T) {
		path := write("ragged.parquet", []PointRecord{{ID: 0, Coords: []float64{1}}, {ID: 1, Coords: []float64{1, 2}}})
		_, err := ReadPoints(path)
		assert.ErrorIs(t, err, pointset.ErrRaggedRows)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ReadPoints(filepath.Join(dir, "missing.parquet"))
		assert.Error(t, err)
	})

	t.Run("NotParquet", func(t *testing.T) {
		path := filepath.Join(dir, "text.parquet")
		require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0o644))
		_, err := ReadPoints(path)
		assert.Error(t, err)
	})
}

func TestResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	points := testutil.NewRNG(3).UniformPoints(200, 3)
	idx, err := neighbors.BuildIndex(ctx, points, index.KindVPTree)
	require.NoError(t, err)

	dir := t.TempDir()

	tests := []struct {
		name string
		run  func() (*neighbors.Results, error)
	}{
		{name: "KNN", run: func() (*neighbors.Results, error) {
			return neighbors.FindKNN(ctx, idx, 4)
		}},
		{name: "RangeIndexOnly", run: func() (*neighbors.Results, error) {
			return neighbors.RangeFind(ctx, idx, neighbors.Scalar(0.2), neighbors.WithoutDistance())
		}},
		{name: "RangeDistanceOnly", run: func() (*neighbors.Results, error) {
			return neighbors.RangeFind(ctx, idx, neighbors.Scalar(0.2), neighbors.WithoutIndex())
		}},
		{name: "CountOnly", run: func() (*neighbors.Results, error) {
			return neighbors.RangeFind(ctx, idx, neighbors.Scalar(0.3), neighbors.WithoutIndex(), neighbors.WithoutDistance())
		}},
		{name: "EmptySubset", run: func() (*neighbors.Results, error) {
			return neighbors.FindKNN(ctx, idx, 2, neighbors.WithSubset([]int{}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := tt.run()
			require.NoError(t, err)

			path := filepath.Join(dir, tt.name+".parquet")
			require.NoError(t, WriteResults(path, want))

			got, err := ReadResults(path)
			require.NoError(t, err)
			assert.Equal(t, want.Len(), got.Len())
			assert.Equal(t, want.Index == nil, got.Index == nil)
			assert.Equal(t, want.Distance == nil, got.Distance == nil)
			assert.Equal(t, want.Count == nil, got.Count == nil)
			for i := 0; i < want.Len(); i++ {
				if want.Index != nil {
					assert.Equal(t, want.Index[i], got.Index[i])
				}
				if want.Distance != nil {
					assert.Equal(t, want.Distance[i], got.Distance[i])
				}
				if want.Count != nil {
					assert.Equal(t, want.Count[i], got.Count[i])
				}
			}
		})
	}
}
