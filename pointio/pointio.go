package pointio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/pointset"
)

// batchSize is the number of rows buffered per Write or Read call.
const batchSize = 1024

// columnsKey is the file metadata key listing which result columns are set.
const columnsKey = "neighbors.columns"

var (
	// ErrBadID is returned when point IDs are not exactly 0..n-1.
	ErrBadID = errors.New("pointio: point ids must be a permutation of 0..n-1")
	// ErrBadQuery is returned when result rows are not in query order.
	ErrBadQuery = errors.New("pointio: result rows out of order")
)

// PointRecord is one point row in a Parquet points file.
type PointRecord struct {
	ID     int64     `parquet:"id"`
	Coords []float64 `parquet:"coords"`
}

// ResultRecord is one query row in a Parquet results file.
type ResultRecord struct {
	Query     int64     `parquet:"query"`
	Neighbors []int64   `parquet:"neighbors"`
	Distances []float64 `parquet:"distances"`
	Count     int64     `parquet:"count"`
}

// WritePoints writes ps to a ZSTD compressed Parquet file at path.
func WritePoints(path string, ps *pointset.PointSet) error {
	return writeFile(path, func(w io.Writer) error {
		return WritePointsTo(w, ps)
	})
}

// WritePointsTo writes ps as Parquet to w. Row i carries ID i.
func WritePointsTo(w io.Writer, ps *pointset.PointSet) error {
	pw := parquet.NewGenericWriter[PointRecord](w, parquet.Compression(&parquet.Zstd))
	defer func() {
		// Best effort close on early return
		_ = pw.Close()
	}()

	buf := make([]PointRecord, 0, batchSize)
	for i := 0; i < ps.Len(); i++ {
		buf = append(buf, PointRecord{ID: int64(i), Coords: ps.Point(i)})
		if len(buf) == batchSize {
			if _, err := pw.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := pw.Write(buf); err != nil {
			return err
		}
	}
	return pw.Close()
}

// ReadPoints reads a points file written by WritePoints. Rows may appear in
// any order; point i is the row with ID i.
func ReadPoints(path string) (*pointset.PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return ReadPointsFrom(f, stat.Size())
}

// ReadPointsFrom reads Parquet points from r.
func ReadPointsFrom(r io.ReaderAt, size int64) (*pointset.PointSet, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, err
	}

	pr := parquet.NewGenericReader[PointRecord](pf)
	defer pr.Close()

	n := int(pr.NumRows())
	rows := make([][]float64, n)
	if err := readAll(pr, func(rec PointRecord) error {
		if rec.ID < 0 || rec.ID >= int64(n) || rows[rec.ID] != nil {
			return fmt.Errorf("%w: id %d", ErrBadID, rec.ID)
		}
		// The reader reuses row buffers between batches.
		rows[rec.ID] = append([]float64{}, rec.Coords...)
		return nil
	}); err != nil {
		return nil, err
	}

	return pointset.FromRows(rows)
}

// WriteResults writes res to a ZSTD compressed Parquet file at path. Row i
// carries query i of res.
func WriteResults(path string, res *neighbors.Results) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteResultsTo(w, res)
	})
}

// WriteResultsTo writes res as Parquet to w. The columns present in res are
// recorded in the file metadata so ReadResults restores nil columns.
func WriteResultsTo(w io.Writer, res *neighbors.Results) error {
	pw := parquet.NewGenericWriter[ResultRecord](w,
		parquet.Compression(&parquet.Zstd),
		parquet.KeyValueMetadata(columnsKey, columns(res)),
	)
	defer func() {
		// Best effort close on early return
		_ = pw.Close()
	}()

	buf := make([]ResultRecord, 0, batchSize)
	for i := 0; i < res.Len(); i++ {
		rec := ResultRecord{Query: int64(i)}
		if res.Index != nil {
			rec.Neighbors = make([]int64, len(res.Index[i]))
			for j, id := range res.Index[i] {
				rec.Neighbors[j] = int64(id)
			}
		}
		if res.Distance != nil {
			rec.Distances = res.Distance[i]
		}
		switch {
		case res.Count != nil:
			rec.Count = int64(res.Count[i])
		case res.Index != nil:
			rec.Count = int64(len(res.Index[i]))
		case res.Distance != nil:
			rec.Count = int64(len(res.Distance[i]))
		}

		buf = append(buf, rec)
		if len(buf) == batchSize {
			if _, err := pw.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := pw.Write(buf); err != nil {
			return err
		}
	}
	return pw.Close()
}

// ReadResults reads a results file written by WriteResults.
func ReadResults(path string) (*neighbors.Results, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, err
	}
	cols, _ := pf.Lookup(columnsKey)
	wantIndex := strings.Contains(cols, "index")
	wantDistance := strings.Contains(cols, "distance")
	wantCount := strings.Contains(cols, "count")

	pr := parquet.NewGenericReader[ResultRecord](pf)
	defer pr.Close()

	n := int(pr.NumRows())
	res := &neighbors.Results{}
	if wantIndex {
		res.Index = make([][]int, n)
	}
	if wantDistance {
		res.Distance = make([][]float64, n)
	}
	if wantCount {
		res.Count = make([]int, n)
	}

	next := int64(0)
	if err := readAll(pr, func(rec ResultRecord) error {
		if rec.Query != next {
			return fmt.Errorf("%w: got query %d, want %d", ErrBadQuery, rec.Query, next)
		}
		next++

		i := int(rec.Query)
		if wantIndex {
			res.Index[i] = make([]int, len(rec.Neighbors))
			for j, id := range rec.Neighbors {
				res.Index[i][j] = int(id)
			}
		}
		if wantDistance {
			res.Distance[i] = make([]float64, len(rec.Distances))
			copy(res.Distance[i], rec.Distances)
		}
		if wantCount {
			res.Count[i] = int(rec.Count)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func columns(res *neighbors.Results) string {
	var cols []string
	if res.Index != nil {
		cols = append(cols, "index")
	}
	if res.Distance != nil {
		cols = append(cols, "distance")
	}
	if res.Count != nil {
		cols = append(cols, "count")
	}
	return strings.Join(cols, ",")
}

// readAll reads every row of pr in batches and passes it to fn.
func readAll[T any](pr *parquet.GenericReader[T], fn func(T) error) error {
	buf := make([]T, batchSize)
	for {
		n, err := pr.Read(buf)
		for _, rec := range buf[:n] {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
