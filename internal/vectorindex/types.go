// Package vectorindex implements the three interchangeable vector index
// families — brute force, HNSW, and LSH — behind a common Index contract.
// None of the implementations lock internally: the caller (internal/service)
// holds the owning library's reader-writer lock around every call.
package vectorindex

import (
	"fmt"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/entity"
)

// Entry is a (chunk id, vector) pair used to (re)populate an index.
type Entry struct {
	ID     string
	Vector []float32
}

// ScoredID is a search result: a chunk id ranked by similarity score.
type ScoredID struct {
	ID    string
	Score float32
}

// FilterFunc decides whether a candidate id should be included in search
// results. A nil FilterFunc accepts everything.
type FilterFunc func(id string) bool

// Index is the common contract implemented by BruteForce, HNSW, and LSH.
// Build discards previous contents; Insert/Delete mutate incrementally;
// SearchKNN returns up to k results ordered by descending score, ties broken
// by ascending id.
type Index interface {
	Build(entries []Entry) error
	Insert(id string, vector []float32) error
	Delete(id string) (found bool)
	SearchKNN(query []float32, k int, filter FilterFunc) ([]ScoredID, error)
	Size() int
}

func dimensionMismatch(expected, got int) error {
	return apperrors.DimensionMismatch(expected, got)
}

func duplicateID(id string) error {
	return apperrors.Duplicate("id already present: " + id)
}

func invalidK(k int) error {
	return apperrors.InvalidParameter(fmt.Sprintf("k must be >= 1, got %d", k))
}

var (
	_ Index = (*BruteForce)(nil)
	_ Index = (*HNSW)(nil)
	_ Index = (*LSH)(nil)
)

// New constructs the Index implementation named by kind.
func New(kind entity.IndexKind, dim int, seed entity.SeedConfig) (Index, error) {
	switch kind {
	case entity.IndexBruteForce:
		return NewBruteForce(dim), nil
	case entity.IndexHNSW:
		return NewHNSW(dim, seed.HNSW), nil
	case entity.IndexLSH:
		return NewLSH(dim, seed.LSH), nil
	default:
		return nil, apperrors.InvalidParameter("unknown index kind: " + string(kind))
	}
}
