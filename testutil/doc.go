// Package testutil provides testing utilities for neighbors.
//
// This package is intended for use in tests only. It provides helpers for
// generating random point sets and computing exact nearest neighbors by
// brute force.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	ps := rng.UniformPoints(1000, 8)  // uniform [0, 1)
//	ps = rng.GridPoints(500, 2, 4)     // duplicates and ties
//
// # Exact Search (Ground Truth)
//
//	nbs := testutil.ExactKNN(ps, query, k, distance.Euclidean)
//	nbs = testutil.ExactRange(ps, query, threshold, distance.Euclidean)
package testutil
