package vectorindex

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/vecmath"
)

// hnswNode is one graph node: its vector, the highest layer it participates
// in, and a bounded neighbor list per layer from 0 up to that layer.
type hnswNode struct {
	id        string
	vector    []float32
	norm      float32
	level     int
	neighbors [][]string // neighbors[layer], layer 0..level
	deleted   bool
}

// HNSW is a hierarchical navigable small world graph index. Level assignment
// is driven by a seeded rand.Rand and search/insert ties are broken by id, so
// that two HNSW indexes built from the same entries in the same order with the
// same params produce identical graphs (required for the recall@k determinism
// property).
type HNSW struct {
	dim            int
	m              int
	mMax0          int
	efConstruction int
	efSearch       int
	mL             float64
	rng            *rand.Rand

	nodes      map[string]*hnswNode
	entryPoint string
	entryLevel int
	size       int
}

// NewHNSW creates an empty HNSW index for vectors of the given dimension.
func NewHNSW(dim int, params entity.HNSWParams) *HNSW {
	m := params.M
	if m < 1 {
		m = 16
	}
	efConstruction := params.EfConstruction
	if efConstruction < 1 {
		efConstruction = 200
	}
	efSearch := params.EfSearch
	if efSearch < 1 {
		efSearch = 64
	}
	return &HNSW{
		dim:            dim,
		m:              m,
		mMax0:          2 * m,
		efConstruction: efConstruction,
		efSearch:       efSearch,
		mL:             1.0 / math.Log(float64(m)),
		rng:            rand.New(rand.NewSource(params.Seed)),
		nodes:          make(map[string]*hnswNode),
		entryLevel:     -1,
	}
}

// Build discards prior contents and inserts entries in order.
func (h *HNSW) Build(entries []Entry) error {
	h.nodes = make(map[string]*hnswNode)
	h.entryPoint = ""
	h.entryLevel = -1
	h.size = 0
	for _, e := range entries {
		if err := h.Insert(e.ID, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

func (h *HNSW) assignLevel() int {
	u := h.rng.Float64()
	for u <= 0 {
		u = h.rng.Float64()
	}
	level := int(math.Floor(-math.Log(u) * h.mL))
	if level < 0 {
		level = 0
	}
	return level
}

func (h *HNSW) capAtLayer(layer int) int {
	if layer == 0 {
		return h.mMax0
	}
	return h.m
}

func (h *HNSW) distance(a, b []float32) float32 {
	d, _ := vecmath.CosineDistance(a, b)
	return d
}

// Insert adds a new (id, vector). Fails with Duplicate if id is already a
// live (non-tombstoned) member of the graph.
func (h *HNSW) Insert(id string, vector []float32) error {
	if len(vector) != h.dim {
		return dimensionMismatch(h.dim, len(vector))
	}
	if existing, ok := h.nodes[id]; ok && !existing.deleted {
		return duplicateID(id)
	}

	level := h.assignLevel()
	node := &hnswNode{
		id:        id,
		vector:    vector,
		norm:      vecmath.Norm(vector),
		level:     level,
		neighbors: make([][]string, level+1),
	}
	h.nodes[id] = node

	if h.entryPoint == "" {
		h.entryPoint = id
		h.entryLevel = level
		h.size++
		return nil
	}

	cur := h.entryPoint
	for lc := h.entryLevel; lc > level; lc-- {
		cur = h.greedyDescend(cur, vector, lc)
	}

	top := level
	if h.entryLevel < top {
		top = h.entryLevel
	}
	for lc := top; lc >= 0; lc-- {
		candidates := h.searchLayer(cur, vector, h.efConstruction, lc)
		if len(candidates) > 0 {
			cur = candidates[0].id
		}
		selected := h.selectHeuristic(vector, candidates, h.capAtLayer(lc))
		ids := make([]string, len(selected))
		for i, c := range selected {
			ids[i] = c.id
		}
		node.neighbors[lc] = ids

		for _, nb := range selected {
			h.addNeighbor(nb.id, id, lc)
			h.shrinkIfNeeded(nb.id, lc)
		}
	}

	if level > h.entryLevel {
		h.entryPoint = id
		h.entryLevel = level
	}
	h.size++
	return nil
}

func (h *HNSW) addNeighbor(nodeID, neighborID string, layer int) {
	n := h.nodes[nodeID]
	if n == nil || layer > n.level {
		return
	}
	n.neighbors[layer] = append(n.neighbors[layer], neighborID)
}

func (h *HNSW) shrinkIfNeeded(nodeID string, layer int) {
	n := h.nodes[nodeID]
	if n == nil {
		return
	}
	layerCap := h.capAtLayer(layer)
	if len(n.neighbors[layer]) <= layerCap {
		return
	}
	candidates := make([]hnswCandidate, 0, len(n.neighbors[layer]))
	for _, nbID := range n.neighbors[layer] {
		nb := h.nodes[nbID]
		if nb == nil {
			continue
		}
		candidates = append(candidates, hnswCandidate{id: nbID, dist: h.distance(n.vector, nb.vector)})
	}
	selected := h.selectHeuristic(n.vector, candidates, layerCap)
	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.id
	}
	n.neighbors[layer] = ids
}

// selectHeuristic implements the diversity-preserving neighbor selector: a
// candidate is accepted only if no already-selected neighbor is closer to it
// than it is to the query.
func (h *HNSW) selectHeuristic(query []float32, candidates []hnswCandidate, cap int) []hnswCandidate {
	sorted := make([]hnswCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].dist != sorted[j].dist {
			return sorted[i].dist < sorted[j].dist
		}
		return sorted[i].id < sorted[j].id
	})

	selected := make([]hnswCandidate, 0, cap)
	for _, c := range sorted {
		if len(selected) >= cap {
			break
		}
		cNode := h.nodes[c.id]
		if cNode == nil {
			continue
		}
		good := true
		for _, s := range selected {
			sNode := h.nodes[s.id]
			if sNode == nil {
				continue
			}
			if h.distance(sNode.vector, cNode.vector) < c.dist {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c)
		}
	}
	return selected
}

// greedyDescend walks to the single locally-nearest node reachable from
// entry at layer, used to descend through layers above the target.
func (h *HNSW) greedyDescend(entry string, query []float32, layer int) string {
	cur := entry
	curNode := h.nodes[cur]
	if curNode == nil {
		return entry
	}
	curDist := h.distance(query, curNode.vector)

	for {
		improved := false
		if layer > curNode.level {
			break
		}
		for _, nbID := range curNode.neighbors[layer] {
			nb := h.nodes[nbID]
			if nb == nil {
				continue
			}
			d := h.distance(query, nb.vector)
			if d < curDist {
				curDist = d
				cur = nbID
				curNode = nb
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return cur
}

type hnswCandidate struct {
	id   string
	dist float32
}

// searchLayer runs a best-first search seeded at entry, exploring neighbors
// at layer and keeping a bounded result set of size ef (dynamic candidate
// list), as described by the standard HNSW search-layer algorithm. Tombstoned
// nodes are traversed (for connectivity) but excluded from the returned
// result set. Results are sorted ascending by distance, ties by id.
func (h *HNSW) searchLayer(entry string, query []float32, ef int, layer int) []hnswCandidate {
	entryNode := h.nodes[entry]
	if entryNode == nil {
		return nil
	}

	visited := map[string]bool{entry: true}
	entryDist := h.distance(query, entryNode.vector)

	candidates := &minDistHeap{{id: entry, dist: entryDist}}
	var results minDistHeap
	if !entryNode.deleted {
		results = minDistHeap{{id: entry, dist: entryDist}}
	}

	for candidates.Len() > 0 {
		c := popMin(candidates)

		if len(results) >= ef {
			worst := maxOf(results)
			if c.dist > worst.dist {
				break
			}
		}

		var layerIDs []string
		if layer <= h.nodes[c.id].level {
			layerIDs = h.nodes[c.id].neighbors[layer]
		}
		for _, nbID := range layerIDs {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nb := h.nodes[nbID]
			if nb == nil {
				continue
			}
			d := h.distance(query, nb.vector)

			if len(results) < ef || d < maxOf(results).dist {
				pushMin(candidates, hnswCandidate{id: nbID, dist: d})
				if !nb.deleted {
					pushMin(&results, hnswCandidate{id: nbID, dist: d})
					if len(results) > ef {
						popMax(&results)
					}
				}
			}
		}
	}

	out := []hnswCandidate(results)
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist < out[j].dist
		}
		return out[i].id < out[j].id
	})
	return out
}

// minDistHeap is kept as a plain slice with linear push/pop helpers below;
// graphs at the M/efConstruction scale this targets (tens to low thousands
// of nodes per query) make container/heap's bookkeeping not worth it here.
type minDistHeap []hnswCandidate

func pushMin(h *minDistHeap, c hnswCandidate) {
	*h = append(*h, c)
}

func popMin(h *minDistHeap) hnswCandidate {
	s := *h
	minIdx := 0
	for i := 1; i < len(s); i++ {
		if s[i].dist < s[minIdx].dist {
			minIdx = i
		}
	}
	c := s[minIdx]
	s[minIdx] = s[len(s)-1]
	*h = s[:len(s)-1]
	return c
}

func maxOf(h minDistHeap) hnswCandidate {
	maxIdx := 0
	for i := 1; i < len(h); i++ {
		if h[i].dist > h[maxIdx].dist {
			maxIdx = i
		}
	}
	return h[maxIdx]
}

func popMax(h *minDistHeap) hnswCandidate {
	s := *h
	maxIdx := 0
	for i := 1; i < len(s); i++ {
		if s[i].dist > s[maxIdx].dist {
			maxIdx = i
		}
	}
	c := s[maxIdx]
	s[maxIdx] = s[len(s)-1]
	*h = s[:len(s)-1]
	return c
}

// Delete tombstones id. If it was the entry point, the highest-surviving
// node is promoted (ties broken by smallest id); if the graph becomes
// empty, the entry point is cleared.
func (h *HNSW) Delete(id string) bool {
	n, ok := h.nodes[id]
	if !ok || n.deleted {
		return false
	}
	n.deleted = true
	h.size--

	if id == h.entryPoint {
		h.promoteEntryPoint()
	}
	return true
}

func (h *HNSW) promoteEntryPoint() {
	bestID := ""
	bestLevel := -1
	for nid, n := range h.nodes {
		if n.deleted {
			continue
		}
		if n.level > bestLevel || (n.level == bestLevel && nid < bestID) {
			bestLevel = n.level
			bestID = nid
		}
	}
	if bestID == "" {
		h.entryPoint = ""
		h.entryLevel = -1
		return
	}
	h.entryPoint = bestID
	h.entryLevel = bestLevel
}

// Size returns the number of live (non-tombstoned) entries.
func (h *HNSW) Size() int {
	return h.size
}

// SearchKNN greedily descends to layer 0 then runs a best-first search with
// a dynamic candidate list of size max(efSearch, k), returning the top k.
func (h *HNSW) SearchKNN(query []float32, k int, filter FilterFunc) ([]ScoredID, error) {
	if len(query) != h.dim {
		return nil, dimensionMismatch(h.dim, len(query))
	}
	if k < 1 {
		return nil, invalidK(k)
	}
	if h.entryPoint == "" {
		return nil, nil
	}

	ef := h.efSearch
	if k > ef {
		ef = k
	}

	cur := h.entryPoint
	for lc := h.entryLevel; lc > 0; lc-- {
		cur = h.greedyDescend(cur, query, lc)
	}

	candidates := h.searchLayer(cur, query, ef, 0)

	results := make([]ScoredID, 0, k)
	for _, c := range candidates {
		if filter != nil && !filter(c.id) {
			continue
		}
		results = append(results, ScoredID{ID: c.id, Score: 1 - c.dist})
		if len(results) == k {
			break
		}
	}
	return results, nil
}
