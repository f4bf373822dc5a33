// Package dispatch runs batches of independent queries on a bounded set of
// goroutines and merges their results in input order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// ErrPanic marks a chunk that panicked.
var ErrPanic = errors.New("dispatch: panic recovered")

// Parallel configures how a batch is partitioned.
type Parallel struct {
	// Workers is the maximum number of concurrently running chunks.
	// Values below 1 mean 1.
	Workers int

	// ChunkSize is the number of consecutive queries per chunk.
	// Zero selects ceil(queries / (4 * Workers)).
	ChunkSize int
}

// Chunk is a contiguous range [Start, End) of query positions.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of queries in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Failure reports an error raised while processing one chunk.
type Failure struct {
	Chunk int
	Start int
	End   int
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("chunk %d [%d, %d): %v", f.Chunk, f.Start, f.End, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Normalize resolves defaults for a batch of q queries.
func (p Parallel) Normalize(q int) Parallel {
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.ChunkSize < 1 {
		p.ChunkSize = max((q+4*p.Workers-1)/(4*p.Workers), 1)
	}
	return p
}

// Chunks partitions q queries into contiguous chunks.
func (p Parallel) Chunks(q int) []Chunk {
	p = p.Normalize(q)
	chunks := make([]Chunk, 0, (q+p.ChunkSize-1)/p.ChunkSize)
	for start := 0; start < q; start += p.ChunkSize {
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   min(start+p.ChunkSize, q),
		})
	}
	return chunks
}

// Map applies fn to every chunk of q queries and concatenates the returned
// rows in chunk order. fn must return exactly c.Len() rows.
//
// No further chunks are started once ctx is done or a chunk has failed;
// chunks already running finish. All chunk failures are joined into the
// returned error, and no rows are returned alongside an error.
func Map[T any](ctx context.Context, q int, p Parallel, fn func(c Chunk) ([]T, error)) ([]T, error) {
	p = p.Normalize(q)
	chunks := p.Chunks(q)

	rows := make([][]T, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for _, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := run(c, fn)
			if err == nil && len(out) != c.Len() {
				err = fmt.Errorf("dispatch: %d rows for %d queries", len(out), c.Len())
			}
			if err != nil {
				errs[c.Index] = &Failure{Chunk: c.Index, Start: c.Start, End: c.End, Err: err}
				return errs[c.Index]
			}
			rows[c.Index] = out
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]T, 0, q)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out, nil
}

func run[T any](c Chunk, fn func(c Chunk) ([]T, error)) (out []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return fn(c)
}

// Failures extracts every chunk failure from an error returned by Map.
func Failures(err error) []*Failure {
	var out []*Failure
	var walk func(error)
	walk = func(e error) {
		if f, ok := e.(*Failure); ok {
			out = append(out, f)
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}
