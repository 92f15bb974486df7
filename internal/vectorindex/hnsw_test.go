package vectorindex

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/entity"
)

func smallHNSWParams() entity.HNSWParams {
	return entity.HNSWParams{M: 4, EfConstruction: 8, EfSearch: 8, Seed: 42}
}

func TestHNSW_Scenario2_SameTopTwoAsBruteForce(t *testing.T) {
	entries := []Entry{
		{ID: "chunk1", Vector: []float32{1, 0, 0}},
		{ID: "chunk2", Vector: []float32{0, 1, 0}},
		{ID: "chunk3", Vector: []float32{0.9, 0.1, 0}},
	}

	hnswIdx := NewHNSW(3, smallHNSWParams())
	require.NoError(t, hnswIdx.Build(entries))

	results, err := hnswIdx.SearchKNN([]float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "chunk1", results[0].ID)
	assert.Equal(t, "chunk3", results[1].ID)
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	idx := NewHNSW(4, smallHNSWParams())
	err := idx.Insert("c1", []float32{1, 2, 3})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDimensionMismatch))
}

func TestHNSW_DuplicateInsertFails(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	require.NoError(t, idx.Insert("c1", []float32{1, 0}))
	err := idx.Insert("c1", []float32{0, 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDuplicate))
}

func TestHNSW_DeleteRemovesFromResultsAndPromotesEntryPoint(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	entryID := ""
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%02d", i)
		if i == 0 {
			entryID = id
		}
		require.NoError(t, idx.Insert(id, []float32{float32(i), float32(30 - i)}))
	}

	require.True(t, idx.Delete(entryID))
	assert.Equal(t, 29, idx.Size())

	results, err := idx.SearchKNN([]float32{1, 1}, 10, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, entryID, r.ID)
	}
}

func TestHNSW_DeleteAbsentReportsFalse(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	assert.False(t, idx.Delete("missing"))
}

func TestHNSW_DeleteAllClearsEntryPoint(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	require.NoError(t, idx.Insert("only", []float32{1, 0}))
	require.True(t, idx.Delete("only"))
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, "", idx.entryPoint)

	results, err := idx.SearchKNN([]float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSW_SearchKNN_InvalidK(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	require.NoError(t, idx.Insert("c1", []float32{1, 0}))
	_, err := idx.SearchKNN([]float32{1, 0}, 0, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidParameter))
}

func TestHNSW_DeterministicWithFixedSeed(t *testing.T) {
	entries := randomEntries(200, 16, 7)

	idx1 := NewHNSW(16, entity.HNSWParams{M: 8, EfConstruction: 32, EfSearch: 16, Seed: 42})
	idx2 := NewHNSW(16, entity.HNSWParams{M: 8, EfConstruction: 32, EfSearch: 16, Seed: 42})
	require.NoError(t, idx1.Build(entries))
	require.NoError(t, idx2.Build(entries))

	query := randomVector(16, rand.New(rand.NewSource(999)))
	r1, err := idx1.SearchKNN(query, 10, nil)
	require.NoError(t, err)
	r2, err := idx2.SearchKNN(query, 10, nil)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestHNSW_FilterHonored(t *testing.T) {
	idx := NewHNSW(2, smallHNSWParams())
	require.NoError(t, idx.Build([]Entry{
		{ID: "en1", Vector: []float32{1, 0}},
		{ID: "fr1", Vector: []float32{0.99, 0.01}},
		{ID: "en2", Vector: []float32{0.8, 0.2}},
	}))

	filter := func(id string) bool { return id != "fr1" }
	results, err := idx.SearchKNN([]float32{1, 0}, 3, filter)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "fr1", r.ID)
	}
}

// TestHNSW_RecallAtK checks approximate recall against brute force on a
// uniform random corpus, per the recall@k testable property. Skipped in
// short mode since it builds an HNSW graph over 10k vectors.
func TestHNSW_RecallAtK(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall benchmark in short mode")
	}

	const (
		n         = 10000
		dim       = 128
		k         = 10
		threshold = 0.9
	)

	entries := randomEntries(n, dim, 123)

	bf := NewBruteForce(dim)
	require.NoError(t, bf.Build(entries))

	hnswIdx := NewHNSW(dim, entity.HNSWParams{M: 16, EfConstruction: 200, EfSearch: 64, Seed: 42})
	require.NoError(t, hnswIdx.Build(entries))

	rng := rand.New(rand.NewSource(55))
	const queries = 50
	var totalRecall float64

	for q := 0; q < queries; q++ {
		query := randomVector(dim, rng)

		want, err := bf.SearchKNN(query, k, nil)
		require.NoError(t, err)
		got, err := hnswIdx.SearchKNN(query, k, nil)
		require.NoError(t, err)

		wantSet := make(map[string]bool, len(want))
		for _, r := range want {
			wantSet[r.ID] = true
		}
		hits := 0
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
		totalRecall += float64(hits) / float64(len(want))
	}

	avgRecall := totalRecall / queries
	t.Logf("average recall@%d over %d queries: %.3f", k, queries, avgRecall)
	assert.GreaterOrEqual(t, avgRecall, threshold)
}

func randomVector(dim int, rng *rand.Rand) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func randomEntries(n, dim int, seed int64) []Entry {
	rng := rand.New(rand.NewSource(seed))
	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = Entry{ID: fmt.Sprintf("v%d", i), Vector: randomVector(dim, rng)}
	}
	return entries
}
