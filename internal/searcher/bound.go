package searcher

// pruneSlack is the relative tolerance applied before a region is pruned.
// Distances are computed in float64 with a relative error far below this, so
// rounding can only cause a region to be visited needlessly, never skipped
// wrongly.
const pruneSlack = 1e-9

// Exceeds reports whether lower provably exceeds bound. scale is the
// magnitude of the distances lower was derived from.
func Exceeds(lower, bound, scale float64) bool {
	return lower-bound > pruneSlack*scale
}
