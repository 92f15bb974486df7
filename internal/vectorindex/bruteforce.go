package vectorindex

import (
	"container/heap"
	"sort"

	"github.com/vectordb/vectordb/internal/vecmath"
)

// BruteForce is an exact, deterministic k-NN index: search_knn scans every
// stored vector and keeps a bounded min-heap of the top k by cosine
// similarity. O(N*D) per query.
type BruteForce struct {
	dim  int
	rows []bfRow
	pos  map[string]int // id -> index into rows, for O(1) delete/insert checks
}

type bfRow struct {
	id     string
	vector []float32
	norm   float32
}

// NewBruteForce creates an empty brute-force index for vectors of the given
// dimension.
func NewBruteForce(dim int) *BruteForce {
	return &BruteForce{
		dim: dim,
		pos: make(map[string]int),
	}
}

// Build replaces the index contents with entries.
func (b *BruteForce) Build(entries []Entry) error {
	rows := make([]bfRow, 0, len(entries))
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		if len(e.Vector) != b.dim {
			return dimensionMismatch(b.dim, len(e.Vector))
		}
		pos[e.ID] = len(rows)
		rows = append(rows, bfRow{id: e.ID, vector: e.Vector, norm: vecmath.Norm(e.Vector)})
	}
	b.rows = rows
	b.pos = pos
	return nil
}

// Insert adds a new (id, vector). Fails with Duplicate if id is present.
func (b *BruteForce) Insert(id string, vector []float32) error {
	if len(vector) != b.dim {
		return dimensionMismatch(b.dim, len(vector))
	}
	if _, exists := b.pos[id]; exists {
		return duplicateID(id)
	}
	b.pos[id] = len(b.rows)
	b.rows = append(b.rows, bfRow{id: id, vector: vector, norm: vecmath.Norm(vector)})
	return nil
}

// Delete removes id, reporting whether it was present. Uses swap-with-last
// to keep rows compact in O(1).
func (b *BruteForce) Delete(id string) bool {
	idx, exists := b.pos[id]
	if !exists {
		return false
	}
	last := len(b.rows) - 1
	if idx != last {
		b.rows[idx] = b.rows[last]
		b.pos[b.rows[idx].id] = idx
	}
	b.rows = b.rows[:last]
	delete(b.pos, id)
	return true
}

// Size returns the current entry count.
func (b *BruteForce) Size() int {
	return len(b.rows)
}

// bfCandidate is a scored row used by the bounded min-heap during search.
type bfCandidate struct {
	id    string
	score float32
}

// bfMinHeap is a min-heap on score (ties broken so the heap evicts the
// worst-ranked candidate first; descending-score/ascending-id ordering is
// applied at the end via sort).
type bfMinHeap []bfCandidate

func (h bfMinHeap) Len() int { return len(h) }
func (h bfMinHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	// within the heap, break ties by descending id so the "smallest" (first
	// to be evicted) is the one with the lexicographically largest id —
	// final output re-sorts ascending by id among equal scores.
	return h[i].id > h[j].id
}
func (h bfMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bfMinHeap) Push(x any)        { *h = append(*h, x.(bfCandidate)) }
func (h *bfMinHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SearchKNN returns up to k ids ranked by descending cosine similarity to
// query, restricted to ids accepted by filter.
func (b *BruteForce) SearchKNN(query []float32, k int, filter FilterFunc) ([]ScoredID, error) {
	if len(query) != b.dim {
		return nil, dimensionMismatch(b.dim, len(query))
	}
	if k < 1 {
		return nil, invalidK(k)
	}

	queryNorm := vecmath.Norm(query)
	h := &bfMinHeap{}
	heap.Init(h)

	for _, row := range b.rows {
		if filter != nil && !filter(row.id) {
			continue
		}
		score, err := vecmath.CosineSimilarityCached(query, row.vector, queryNorm, row.norm)
		if err != nil {
			return nil, err
		}
		if h.Len() < k {
			heap.Push(h, bfCandidate{id: row.id, score: score})
			continue
		}
		if score > (*h)[0].score || (score == (*h)[0].score && row.id < (*h)[0].id) {
			heap.Pop(h)
			heap.Push(h, bfCandidate{id: row.id, score: score})
		}
	}

	results := make([]ScoredID, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		c := heap.Pop(h).(bfCandidate)
		results[i] = ScoredID{ID: c.id, Score: c.score}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}
