package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/entity"
)

func defaultLSHParams() entity.LSHParams {
	return entity.LSHParams{L: 8, K: 10, Seed: 7}
}

func TestLSH_InsertAndSearchFindsNearDuplicates(t *testing.T) {
	idx := NewLSH(4, defaultLSHParams())
	require.NoError(t, idx.Build([]Entry{
		{ID: "a", Vector: []float32{1, 0, 0, 0}},
		{ID: "b", Vector: []float32{0.99, 0.01, 0, 0}},
		{ID: "c", Vector: []float32{0, 0, 1, 0}},
		{ID: "d", Vector: []float32{0, 0, 0, 1}},
	}))

	results, err := idx.SearchKNN([]float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	if len(results) > 0 {
		ids := map[string]bool{}
		for _, r := range results {
			ids[r.ID] = true
		}
		// a and b are near-duplicates and should rank above c/d when present
		assert.True(t, ids["a"] || ids["b"])
	}
}

func TestLSH_DimensionMismatch(t *testing.T) {
	idx := NewLSH(4, defaultLSHParams())
	err := idx.Insert("c1", []float32{1, 2, 3})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDimensionMismatch))
}

func TestLSH_DuplicateInsertFails(t *testing.T) {
	idx := NewLSH(2, defaultLSHParams())
	require.NoError(t, idx.Insert("c1", []float32{1, 0}))
	err := idx.Insert("c1", []float32{0, 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDuplicate))
}

func TestLSH_DeleteRemovesFromAllTables(t *testing.T) {
	idx := NewLSH(4, defaultLSHParams())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Insert("b", []float32{0, 1, 0, 0}))

	require.True(t, idx.Delete("a"))
	assert.Equal(t, 1, idx.Size())

	for t2 := 0; t2 < idx.l; t2++ {
		for _, bucket := range idx.buckets[t2] {
			_, present := bucket["a"]
			assert.False(t, present)
		}
	}

	results, err := idx.SearchKNN([]float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestLSH_DeleteAbsentReportsFalse(t *testing.T) {
	idx := NewLSH(2, defaultLSHParams())
	assert.False(t, idx.Delete("missing"))
}

func TestLSH_SearchKNN_InvalidK(t *testing.T) {
	idx := NewLSH(2, defaultLSHParams())
	require.NoError(t, idx.Insert("c1", []float32{1, 0}))
	_, err := idx.SearchKNN([]float32{1, 0}, 0, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidParameter))
}

func TestLSH_FilterHonoredWhenResultsReturned(t *testing.T) {
	idx := NewLSH(2, entity.LSHParams{L: 16, K: 4, Seed: 3})
	require.NoError(t, idx.Build([]Entry{
		{ID: "en1", Vector: []float32{1, 0}},
		{ID: "en2", Vector: []float32{0.95, 0.05}},
		{ID: "fr1", Vector: []float32{0.9, 0.1}},
	}))

	filter := func(id string) bool { return id != "fr1" }
	results, err := idx.SearchKNN([]float32{1, 0}, 5, filter)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "fr1", r.ID)
	}
}

func TestLSH_MultiProbeSearchReturnsNoError(t *testing.T) {
	params := entity.LSHParams{L: 1, K: 8, Seed: 1, MultiProbe: 2}
	idx := NewLSH(4, params)
	require.NoError(t, idx.Build(randomEntries(20, 4, 11)))

	// a query far from the corpus's actual signatures may miss its own
	// bucket; multi-probe should still find something when one exists.
	query := []float32{0.123, -0.456, 0.789, -0.321}
	results, err := idx.SearchKNN(query, 3, nil)
	require.NoError(t, err)
	_ = results // presence of candidates depends on hash geometry; no panic is the contract
}

func TestLSH_RoundTrip_InsertThenDelete(t *testing.T) {
	idx := NewLSH(2, defaultLSHParams())
	require.NoError(t, idx.Build([]Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))

	before, err := idx.SearchKNN([]float32{1, 1}, 2, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("c", []float32{0.5, 0.5}))
	require.True(t, idx.Delete("c"))

	after, err := idx.SearchKNN([]float32{1, 1}, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestBitFlipVariants_CoversAllSingleBitFlips(t *testing.T) {
	variants := bitFlipVariants("000", 1)
	assert.ElementsMatch(t, []string{"000", "100", "010", "001"}, variants)
}

func TestLSH_Build_ResetsSize(t *testing.T) {
	idx := NewLSH(2, defaultLSHParams())
	require.NoError(t, idx.Build(randomEntries(50, 2, 5)))
	assert.Equal(t, 50, idx.Size())

	require.NoError(t, idx.Build(randomEntries(10, 2, 5)))
	assert.Equal(t, 10, idx.Size())
}
