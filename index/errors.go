package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/neighbors/distance"
)

// ErrCorrupted is returned when a serialized index cannot be decoded.
var ErrCorrupted = errors.New("index: corrupted binary data")

// ErrDegenerateInput is returned when an index is built over an empty point
// set or zero-dimensional points.
type ErrDegenerateInput struct {
	N   int
	Dim int
}

func (e *ErrDegenerateInput) Error() string {
	return fmt.Sprintf("degenerate input: %d points with %d dimensions", e.N, e.Dim)
}

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidMetric indicates an unsupported distance metric.
type ErrInvalidMetric struct {
	Metric distance.Metric
	cause  error
}

func (e *ErrInvalidMetric) Error() string {
	return fmt.Sprintf("invalid metric: %v", e.Metric)
}

func (e *ErrInvalidMetric) Unwrap() error { return e.cause }

// ErrUnknownKind is returned for an unrecognized algorithm.
type ErrUnknownKind struct {
	Kind Kind
	Name string
}

func (e *ErrUnknownKind) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown index kind %q", e.Name)
	}
	return fmt.Sprintf("unknown index kind: %v", e.Kind)
}
