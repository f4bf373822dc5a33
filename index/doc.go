// Package index defines the search structure shared by all algorithms.
//
// Three index kinds are provided, all of them exact:
//
//   - Exhaustive: linear scan, the correctness oracle
//   - KMKNN: k-means clusters with center/radius bounds
//   - VPTree: vantage-point tree over a flat node arena
//
// # Traversal Contract
//
// Every index implements Search(query, Visitor). The index walks its
// structure in a best-first order and reports candidate points through
// Visitor.Visit, skipping any region whose lower-bound distance provably
// exceeds Visitor.Bound. The KNN, range and counting algorithms are written
// once as visitors and work unchanged on every index kind.
//
// # Subpackages
//
//   - exhaustive: linear scan
//   - kmknn: clustering index
//   - vptree: vantage-point tree
package index
