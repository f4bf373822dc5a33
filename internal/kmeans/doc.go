// Package kmeans implements seeded k-means clustering.
//
// Used by the KMKNN index to partition points into clusters whose centers
// and radii drive triangle-inequality pruning.
package kmeans
