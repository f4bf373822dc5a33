package searcher

// Candidate is a point accepted by a collector.
type Candidate struct {
	Raw      int     // position in the index's internal order
	ID       int     // original position
	Distance float64 // distance to the query
}

// CandidateBetter reports whether a ranks before b.
// Ties on distance are broken by original position ascending, giving a total
// order that does not depend on traversal order.
func CandidateBetter(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// CandidateHeap is a 4-ary max-heap of Candidates with the worst candidate on
// top, used for collecting the k best results.
type CandidateHeap struct {
	Candidates []Candidate
}

const heapArity = 4

// NewCandidateHeap creates a new CandidateHeap.
func NewCandidateHeap(capacity int) *CandidateHeap {
	return &CandidateHeap{Candidates: make([]Candidate, 0, capacity)}
}

// Reset clears the heap for reuse.
func (h *CandidateHeap) Reset() { h.Candidates = h.Candidates[:0] }

func (h *CandidateHeap) Len() int { return len(h.Candidates) }

// Push adds x to the heap.
func (h *CandidateHeap) Push(x Candidate) {
	h.Candidates = append(h.Candidates, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the worst candidate.
func (h *CandidateHeap) Pop() Candidate {
	n := h.Len() - 1
	h.Candidates[0], h.Candidates[n] = h.Candidates[n], h.Candidates[0]
	h.down(0, n)
	x := h.Candidates[n]
	h.Candidates = h.Candidates[:n]
	return x
}

// Peek returns the worst candidate without removing it.
// Panics if the heap is empty - caller should check Len() > 0.
func (h *CandidateHeap) Peek() Candidate { return h.Candidates[0] }

// ReplaceTop replaces the worst candidate and restores the heap invariant.
func (h *CandidateHeap) ReplaceTop(x Candidate) {
	h.Candidates[0] = x
	h.down(0, h.Len())
}

// TryPushBounded offers x to a heap holding at most k candidates.
// It reports whether x was kept.
func (h *CandidateHeap) TryPushBounded(x Candidate, k int) bool {
	if h.Len() < k {
		h.Push(x)
		return true
	}
	if k == 0 || !CandidateBetter(x, h.Candidates[0]) {
		return false
	}
	h.ReplaceTop(x)
	return true
}

func (h *CandidateHeap) up(j int) {
	item := h.Candidates[j]
	for j > 0 {
		i := (j - 1) / heapArity
		if !CandidateBetter(h.Candidates[i], item) {
			break
		}
		h.Candidates[j] = h.Candidates[i]
		j = i
	}
	h.Candidates[j] = item
}

func (h *CandidateHeap) down(i0, n int) {
	i := i0
	item := h.Candidates[i]
	for {
		firstChild := heapArity*i + 1
		if firstChild >= n {
			break
		}
		worst := firstChild
		lastChild := min(firstChild+heapArity, n)
		for c := firstChild + 1; c < lastChild; c++ {
			if CandidateBetter(h.Candidates[worst], h.Candidates[c]) {
				worst = c
			}
		}
		if !CandidateBetter(item, h.Candidates[worst]) {
			break
		}
		h.Candidates[i] = h.Candidates[worst]
		i = worst
	}
	h.Candidates[i] = item
}

// SortedResults appends the heap contents best-first to dst.
// The heap itself is left unchanged.
func (h *CandidateHeap) SortedResults(dst []Candidate) []Candidate {
	start := len(dst)
	dst = append(dst, h.Candidates...)
	sortCandidates(dst[start:])
	return dst
}
