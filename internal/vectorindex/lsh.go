package vectorindex

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/vecmath"
)

// LSH is a locality-sensitive hash index for cosine similarity using random
// hyperplane projections: L independent tables, each hashing a vector to a
// k-bit signature via the sign of its dot product with k random hyperplane
// normals fixed at build time.
type LSH struct {
	dim        int
	l          int
	k          int
	multiProbe int

	hyperplanes [][][]float32          // [table][bit] -> unit normal of length dim
	buckets     []map[string]map[string]struct{} // [table][bucketKey] -> set of ids
	reverse     map[string][]lshLocation         // id -> locations, for O(L) delete
	vectors     map[string][]float32             // id -> stored vector, for exact re-rank

	size int
}

type lshLocation struct {
	table int
	key   string
}

// NewLSH creates an empty LSH index with L tables of K bits each, drawing
// fresh random hyperplanes from a seeded source.
func NewLSH(dim int, params entity.LSHParams) *LSH {
	l := params.L
	if l < 1 {
		l = 8
	}
	k := params.K
	if k < 1 {
		k = 12
	}
	rng := rand.New(rand.NewSource(params.Seed))

	hyperplanes := make([][][]float32, l)
	for t := 0; t < l; t++ {
		planes := make([][]float32, k)
		for b := 0; b < k; b++ {
			planes[b] = randomUnitVector(dim, rng)
		}
		hyperplanes[t] = planes
	}

	buckets := make([]map[string]map[string]struct{}, l)
	for t := range buckets {
		buckets[t] = make(map[string]map[string]struct{})
	}

	return &LSH{
		dim:         dim,
		l:           l,
		k:           k,
		multiProbe:  params.MultiProbe,
		hyperplanes: hyperplanes,
		buckets:     buckets,
		reverse:     make(map[string][]lshLocation),
		vectors:     make(map[string][]float32),
	}
}

func randomUnitVector(dim int, rng *rand.Rand) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	norm := vecmath.Norm(v)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

// signature computes the k-bit sign signature of v against table t's
// hyperplanes, returned as a k-character string of '0'/'1'.
func (idx *LSH) signature(table int, v []float32) string {
	var sb strings.Builder
	sb.Grow(idx.k)
	for _, plane := range idx.hyperplanes[table] {
		d, _ := vecmath.Dot(plane, v)
		if d >= 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Build discards prior contents and re-inserts entries. The hyperplanes drawn
// at construction are kept.
func (idx *LSH) Build(entries []Entry) error {
	for t := range idx.buckets {
		idx.buckets[t] = make(map[string]map[string]struct{})
	}
	idx.reverse = make(map[string][]lshLocation)
	idx.vectors = make(map[string][]float32)
	idx.size = 0

	for _, e := range entries {
		if err := idx.Insert(e.ID, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Insert computes id's signature in every table and appends it to the
// corresponding bucket.
func (idx *LSH) Insert(id string, vector []float32) error {
	if len(vector) != idx.dim {
		return dimensionMismatch(idx.dim, len(vector))
	}
	if _, exists := idx.vectors[id]; exists {
		return duplicateID(id)
	}

	locations := make([]lshLocation, idx.l)
	for t := 0; t < idx.l; t++ {
		key := idx.signature(t, vector)
		if idx.buckets[t][key] == nil {
			idx.buckets[t][key] = make(map[string]struct{})
		}
		idx.buckets[t][key][id] = struct{}{}
		locations[t] = lshLocation{table: t, key: key}
	}
	idx.reverse[id] = locations
	idx.vectors[id] = vector
	idx.size++
	return nil
}

// Delete removes id from every bucket it appears in using the reverse map,
// making delete O(L).
func (idx *LSH) Delete(id string) bool {
	locations, exists := idx.reverse[id]
	if !exists {
		return false
	}
	for _, loc := range locations {
		bucket := idx.buckets[loc.table][loc.key]
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(idx.buckets[loc.table], loc.key)
		}
	}
	delete(idx.reverse, id)
	delete(idx.vectors, id)
	idx.size--
	return true
}

// Size returns the current entry count.
func (idx *LSH) Size() int {
	return idx.size
}

// SearchKNN unions the candidate buckets from all L tables, exact-reranks by
// cosine similarity, and returns the top k. If the union is empty and
// multiProbe > 0, nearby buckets (within the configured Hamming distance) are
// probed before giving up; an empty result is otherwise acceptable.
func (idx *LSH) SearchKNN(query []float32, k int, filter FilterFunc) ([]ScoredID, error) {
	if len(query) != idx.dim {
		return nil, dimensionMismatch(idx.dim, len(query))
	}
	if k < 1 {
		return nil, invalidK(k)
	}

	candidates := idx.collectCandidates(query)
	if len(candidates) == 0 && idx.multiProbe > 0 {
		candidates = idx.collectCandidatesMultiProbe(query)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryNorm := vecmath.Norm(query)
	scored := make([]ScoredID, 0, len(candidates))
	for id := range candidates {
		if filter != nil && !filter(id) {
			continue
		}
		score, err := vecmath.CosineSimilarityCached(query, idx.vectors[id], queryNorm, vecmath.Norm(idx.vectors[id]))
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredID{ID: id, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (idx *LSH) collectCandidates(query []float32) map[string]struct{} {
	candidates := make(map[string]struct{})
	for t := 0; t < idx.l; t++ {
		key := idx.signature(t, query)
		for id := range idx.buckets[t][key] {
			candidates[id] = struct{}{}
		}
	}
	return candidates
}

// collectCandidatesMultiProbe widens the search to every bucket whose key
// differs from each table's query signature in at most multiProbe bits.
func (idx *LSH) collectCandidatesMultiProbe(query []float32) map[string]struct{} {
	candidates := make(map[string]struct{})
	for t := 0; t < idx.l; t++ {
		base := idx.signature(t, query)
		for _, variant := range bitFlipVariants(base, idx.multiProbe) {
			for id := range idx.buckets[t][variant] {
				candidates[id] = struct{}{}
			}
		}
	}
	return candidates
}

// bitFlipVariants returns base plus every signature reachable by flipping up
// to depth bits.
func bitFlipVariants(base string, depth int) []string {
	variants := []string{base}
	bits := []byte(base)
	for d := 1; d <= depth && d <= len(bits); d++ {
		combos := combinations(len(bits), d)
		for _, combo := range combos {
			flipped := make([]byte, len(bits))
			copy(flipped, bits)
			for _, idx := range combo {
				if flipped[idx] == '1' {
					flipped[idx] = '0'
				} else {
					flipped[idx] = '1'
				}
			}
			variants = append(variants, string(flipped))
		}
	}
	return variants
}

// combinations returns all d-element index combinations from [0, n).
func combinations(n, d int) [][]int {
	var result [][]int
	combo := make([]int, d)
	var rec func(start, idx int)
	rec = func(start, idx int) {
		if idx == d {
			picked := make([]int, d)
			copy(picked, combo)
			result = append(result, picked)
			return
		}
		for i := start; i < n; i++ {
			combo[idx] = i
			rec(i+1, idx+1)
		}
	}
	rec(0, 0)
	return result
}
