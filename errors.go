package neighbors

import (
	"errors"
	"fmt"

	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/dispatch"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidThreshold is returned for a negative or NaN range threshold.
	ErrInvalidThreshold = errors.New("threshold must be a non-negative number")

	// ErrInvalidSubset is returned when a subset position is out of range.
	ErrInvalidSubset = errors.New("subset position out of range")

	// ErrUnknownKind is returned for an unsupported index algorithm.
	ErrUnknownKind = errors.New("unknown index kind")

	// ErrInvalidMetric is returned for an unsupported distance metric.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrNilIndex is returned when a query is run against a nil index.
	ErrNilIndex = errors.New("index is nil")
)

// DegenerateInputError indicates an empty point set or zero-dimensional points.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DegenerateInputError struct {
	N     int
	Dim   int
	cause error
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %d points with %d dimensions", e.N, e.Dim)
}

func (e *DegenerateInputError) Unwrap() error { return e.cause }

// DimensionMismatchError indicates that query and index dimensionality differ.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return e.cause }

// ThresholdLengthError indicates a per-query threshold vector whose length
// differs from the number of processed queries.
type ThresholdLengthError struct {
	Expected int
	Actual   int
}

func (e *ThresholdLengthError) Error() string {
	return fmt.Sprintf("threshold length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// WorkerFailure reports an error raised while a parallel chunk of queries
// was processed. Chunk is the chunk number; [Start, End) are the query rows
// it covered. Failures of several chunks are combined with errors.Join, so
// use errors.As to inspect them.
type WorkerFailure = dispatch.Failure

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var di *index.ErrDegenerateInput
	if errors.As(err, &di) {
		return &DegenerateInputError{N: di.N, Dim: di.Dim, cause: err}
	}
	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &DimensionMismatchError{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var uk *index.ErrUnknownKind
	if errors.As(err, &uk) {
		return fmt.Errorf("%w: %w", ErrUnknownKind, err)
	}
	var im *index.ErrInvalidMetric
	if errors.As(err, &im) {
		return fmt.Errorf("%w: %w", ErrInvalidMetric, err)
	}

	return err
}
