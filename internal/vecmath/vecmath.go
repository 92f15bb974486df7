// Package vecmath implements the dense-vector arithmetic that underlies every
// index family: dot product, Euclidean norm, and cosine similarity/distance.
package vecmath

import (
	"math"

	"github.com/vectordb/vectordb/internal/apperrors"
)

// Dot returns the dot product of a and b. Both must have the same length.
func Dot(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, apperrors.DimensionMismatch(len(a), len(b))
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Norm returns the Euclidean (L2) norm of v, always >= 0.
func Norm(v []float32) float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sumSq))
}

// CosineSimilarity returns the cosine similarity of a and b, in [-1, 1].
// If either vector has norm 0, similarity is defined as 0, never NaN.
func CosineSimilarity(a, b []float32) (float32, error) {
	d, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := d / (na * nb)
	// guard against floating point drift pushing slightly outside [-1, 1]
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// CosineSimilarityCached is CosineSimilarity but accepts precomputed norms for
// a and b, skipping the norm recomputation. Callers must ensure the cached
// norms are still valid for the vectors passed (vectors are immutable once
// inserted, so a norm computed at insert time stays valid for its lifetime).
func CosineSimilarityCached(a, b []float32, normA, normB float32) (float32, error) {
	d, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	sim := d / (normA * normB)
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// CosineDistance returns 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float32) (float32, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// NormCache memoizes per-vector norms, keyed by a caller-assigned id. It does
// no locking, and Get stores the computed norm on a miss, so callers must hold
// their own write lock around Get as well as Set/Delete, the same way they do
// around the index they back.
type NormCache struct {
	norms map[string]float32
}

// NewNormCache creates an empty norm cache.
func NewNormCache() *NormCache {
	return &NormCache{norms: make(map[string]float32)}
}

// Get returns the cached norm for id, computing and storing it from v if
// absent.
func (c *NormCache) Get(id string, v []float32) float32 {
	if n, ok := c.norms[id]; ok {
		return n
	}
	n := Norm(v)
	c.norms[id] = n
	return n
}

// Set stores the norm for id directly, overwriting any cached value. Used
// when the vector for id is replaced, since vectors are otherwise immutable.
func (c *NormCache) Set(id string, v []float32) {
	c.norms[id] = Norm(v)
}

// Delete removes id's cached norm.
func (c *NormCache) Delete(id string) {
	delete(c.norms, id)
}
