package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/repository"
	"github.com/vectordb/vectordb/internal/vectorindex"
)

func buildTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store := repository.NewStore()
	now := time.Unix(0, 0)

	lib := entity.NewLibrary("lib1", "my library", "desc", entity.IndexBruteForce, 3, now)
	require.NoError(t, store.Libraries.Put(lib))

	doc := entity.NewDocument("doc1", "lib1", "my doc", map[string]any{"lang": "en"}, now)
	require.NoError(t, store.PutDocument(doc))

	c1 := entity.NewChunk("c1", "doc1", "lib1", "hello world", map[string]any{"lang": "en"}, []float32{1, 0, 0}, now)
	c2 := entity.NewChunk("c2", "doc1", "lib1", "bonjour monde", map[string]any{"lang": "fr"}, []float32{0, 1, 0}, now)
	require.NoError(t, store.PutChunk(c1))
	require.NoError(t, store.PutChunk(c2))

	return store
}

func TestSaveLoad_TextFormat_RoundTripsLibraryStructure(t *testing.T) {
	store := buildTestStore(t)
	snap := Build(store)

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, Save(path, FormatText, snap))

	loaded, err := Load(path, FormatText)
	require.NoError(t, err)

	restored := Restore(loaded)
	lib, err := restored.Libraries.Get("lib1")
	require.NoError(t, err)
	assert.Equal(t, "my library", lib.Name)

	chunk, err := restored.Chunks.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, chunk.Vector)
}

func TestSaveLoad_BinaryFormat_RoundTripsLibraryStructure(t *testing.T) {
	store := buildTestStore(t)
	snap := Build(store)

	path := filepath.Join(t.TempDir(), "snap.gob")
	require.NoError(t, Save(path, FormatBinary, snap))

	loaded, err := Load(path, FormatBinary)
	require.NoError(t, err)

	restored := Restore(loaded)
	chunk, err := restored.Chunks.Get("c2")
	require.NoError(t, err)
	assert.Equal(t, "bonjour monde", chunk.Text)
	assert.Equal(t, "fr", chunk.Metadata["lang"])
}

// TestRoundTrip_SearchResultsIdenticalAfterSnapshot verifies the property
// from the testable-properties list: snapshot -> load -> search yields
// identical results to pre-snapshot search, for a fixed seed.
func TestRoundTrip_SearchResultsIdenticalAfterSnapshot(t *testing.T) {
	store := buildTestStore(t)

	idx := vectorindex.NewBruteForce(3)
	for _, chunk := range store.Chunks.List() {
		require.NoError(t, idx.Insert(chunk.ID, chunk.Vector))
	}

	query := []float32{0.9, 0.1, 0}
	before, err := idx.SearchKNN(query, 2, nil)
	require.NoError(t, err)

	snap := Build(store)
	path := filepath.Join(t.TempDir(), "snap.gob")
	require.NoError(t, Save(path, FormatBinary, snap))

	loaded, err := Load(path, FormatBinary)
	require.NoError(t, err)
	restored := Restore(loaded)

	rebuiltIdx := vectorindex.NewBruteForce(3)
	for _, chunk := range restored.Chunks.List() {
		require.NoError(t, rebuiltIdx.Insert(chunk.ID, chunk.Vector))
	}

	after, err := rebuiltIdx.SearchKNN(query, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestLoad_MissingFileReturnsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), FormatText)
	assert.Error(t, err)
}

func TestSave_UnknownFormatFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.bin")
	err := Save(path, Format("bogus"), Snapshot{})
	assert.Error(t, err)
}

func TestBuild_EmptyStoreProducesEmptySnapshot(t *testing.T) {
	store := repository.NewStore()
	snap := Build(store)
	assert.Empty(t, snap.Libraries)
}
