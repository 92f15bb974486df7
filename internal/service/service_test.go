package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/embedder"
	"github.com/vectordb/vectordb/internal/entity"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(embedder.NewStaticEmbedder())
}

// TestScenario_CreateLibraryAddDocumentAddChunkSearch covers the basic
// lifecycle: create a library, add a document, add chunks, search by text.
func TestScenario_CreateLibraryAddDocumentAddChunkSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)

	doc, err := svc.AddDocument(lib.ID, "readme", map[string]any{"lang": "en"})
	require.NoError(t, err)

	_, err = svc.AddChunk(ctx, doc.ID, "the quick brown fox jumps over the lazy dog", map[string]any{"lang": "en"})
	require.NoError(t, err)
	_, err = svc.AddChunk(ctx, doc.ID, "le renard brun saute par dessus le chien paresseux", map[string]any{"lang": "fr"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, lib.ID, "quick brown fox", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "fox")
}

// TestScenario_SearchAppliesMetadataFilter covers filtering by chunk
// metadata: a clause that would otherwise match the nearest neighbor
// excludes it when its metadata doesn't satisfy the predicate.
func TestScenario_SearchAppliesMetadataFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)

	_, err = svc.AddChunk(ctx, doc.ID, "quick brown fox", map[string]any{"lang": "en"})
	require.NoError(t, err)
	_, err = svc.AddChunk(ctx, doc.ID, "quick brown fox", map[string]any{"lang": "fr"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, lib.ID, "quick brown fox", 5, []string{"lang == fr"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "fr", r.Chunk.Metadata["lang"])
	}
}

// TestScenario_DeleteDocumentCascadesToChunksAndIndex verifies a deleted
// document's chunks no longer surface from search afterward.
func TestScenario_DeleteDocumentCascadesToChunksAndIndex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)
	chunk, err := svc.AddChunk(ctx, doc.ID, "quick brown fox", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(doc.ID))

	err = svc.DeleteChunk(chunk.ID)
	assert.Error(t, err)

	results, err := svc.Search(ctx, lib.ID, "quick brown fox", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddChunk_FailsWhenDocumentMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddChunk(context.Background(), "no-such-doc", "text", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindParentMissing))
}

func TestAddDocument_FailsWhenLibraryMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddDocument("no-such-lib", "d", nil)
	require.Error(t, err)
}

func TestDeleteLibrary_RemovesDocumentAndChunkLookups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)
	chunk, err := svc.AddChunk(ctx, doc.ID, "quick brown fox", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLibrary(lib.ID))

	_, err = svc.GetLibrary(lib.ID)
	assert.Error(t, err)
	err = svc.DeleteChunk(chunk.ID)
	assert.Error(t, err)
	err = svc.DeleteDocument(doc.ID)
	assert.Error(t, err)
}

func TestRebuildIndex_PreservesSearchResults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)
	_, err = svc.AddChunk(ctx, doc.ID, "quick brown fox", nil)
	require.NoError(t, err)

	before, err := svc.Search(ctx, lib.ID, "quick brown fox", 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RebuildIndex(lib.ID))

	after, err := svc.Search(ctx, lib.ID, "quick brown fox", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSearch_RejectsNonPositiveK(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), lib.ID, "q", 0, nil)
	assert.Error(t, err)
}

func TestAddChunks_EmbedsConcurrentlyAndInsertsUnderOneLock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)

	texts := []string{"quick brown fox", "lazy dog", "jumping fox"}
	metadatas := []map[string]any{{"n": 1}, {"n": 2}, {"n": 3}}

	chunks, err := svc.AddChunks(ctx, doc.ID, texts, metadatas)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	results, err := svc.Search(ctx, lib.ID, "quick brown fox", 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestAddChunks_FailsWhenDocumentMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddChunks(context.Background(), "no-such-doc", []string{"a"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindParentMissing))
}

func TestAddChunks_RejectsMismatchedMetadataLength(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)

	_, err = svc.AddChunks(context.Background(), doc.ID, []string{"a", "b"}, []map[string]any{{"n": 1}})
	assert.Error(t, err)
}

func TestGetChunk_ReturnsTextAndMetadata(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("docs", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)
	created, err := svc.AddChunk(ctx, doc.ID, "quick brown fox", map[string]any{"lang": "en"})
	require.NoError(t, err)

	got, err := svc.GetChunk(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "quick brown fox", got.Text)
	assert.Equal(t, "en", got.Metadata["lang"])

	_, err = svc.GetChunk("no-such-chunk")
	assert.Error(t, err)
}

func TestListLibraries_ReturnsAllCreated(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateLibrary("a", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	_, err = svc.CreateLibrary("b", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)

	libs := svc.ListLibraries()
	assert.Len(t, libs, 2)
}
