// Package searcher implements the search algorithms as index visitors.
//
// Each collector implements index.Visitor and is written once for every
// index kind:
//
//   - KNN: bounded max-heap of the k best candidates
//   - Range: all candidates within a fixed threshold
//   - Counter: number of candidates within a fixed threshold
//
// Collectors are reusable across queries via Reset and are not safe for
// concurrent use; each worker owns its own.
package searcher
