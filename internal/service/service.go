// Package service orchestrates the repositories, indexes, and embedding
// provider behind one operation set per library: create/delete libraries
// and documents, add/delete chunks, rebuild an index, and search. Every
// mutating or read path for a given library runs under that library's
// reader-writer lock; libraries proceed independently of one another.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/embedder"
	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/filter"
	"github.com/vectordb/vectordb/internal/repository"
	"github.com/vectordb/vectordb/internal/rwlock"
	"github.com/vectordb/vectordb/internal/snapshot"
	"github.com/vectordb/vectordb/internal/vectorindex"
)

// maxConcurrentEmbeds bounds how many texts AddChunks embeds at once, so a
// large batch can't open an unbounded number of outbound requests to a
// remote embedding provider.
const maxConcurrentEmbeds = 8

// libraryEntry bundles one library's lock, its own repository view, and its
// index. Partitioning the repositories per library (rather than one shared
// map for the whole service) means two writers on different libraries never
// touch the same Go map — only writers on the *same* library contend, and
// they already serialize on entry.lock.
type libraryEntry struct {
	lock  *rwlock.RWLock
	store *repository.Store
	index vectorindex.Index
}

// ScoredChunk is a search result: a chunk ranked by similarity to the query.
type ScoredChunk struct {
	Chunk *entity.Chunk
	Score float32
}

// Service is the library/document/chunk orchestration layer.
type Service struct {
	embedder embedder.Embedder

	// registryMu guards the top-level bookkeeping below: which libraries
	// exist, and which library owns a given document/chunk id. It is held
	// only for quick map operations, never across an embedding call or a
	// library lock acquisition.
	registryMu     sync.Mutex
	libraries      map[string]*libraryEntry
	docToLibrary   map[string]string
	chunkToLibrary map[string]string
}

// New constructs an empty Service backed by the given embedding provider.
func New(emb embedder.Embedder) *Service {
	return &Service{
		embedder:       emb,
		libraries:      make(map[string]*libraryEntry),
		docToLibrary:   make(map[string]string),
		chunkToLibrary: make(map[string]string),
	}
}

func (s *Service) lookupEntry(libraryID string) (*libraryEntry, error) {
	s.registryMu.Lock()
	entry, ok := s.libraries[libraryID]
	s.registryMu.Unlock()
	if !ok {
		return nil, apperrors.NotFound("library not found: " + libraryID)
	}
	return entry, nil
}

// CreateLibrary instantiates the appropriate index and registers a new
// library. Library names are not required to be unique; id is
// authoritative.
func (s *Service) CreateLibrary(name, description string, kind entity.IndexKind, dim int) (*entity.Library, error) {
	now := time.Now()
	id := uuid.NewString()
	lib := entity.NewLibrary(id, name, description, kind, dim, now)

	idx, err := vectorindex.New(kind, dim, lib.SeedConfig)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore()
	if err := store.Libraries.Put(lib); err != nil {
		return nil, err
	}

	s.registryMu.Lock()
	s.libraries[id] = &libraryEntry{lock: rwlock.New(), store: store, index: idx}
	s.registryMu.Unlock()

	return lib, nil
}

// GetLibrary returns a library's current record under its read lock.
func (s *Service) GetLibrary(libraryID string) (*entity.Library, error) {
	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}
	release := entry.lock.ReadGuard()
	defer release()
	return entry.store.Libraries.Get(libraryID)
}

// ListLibraries returns every known library. Each library's record is read
// under its own read lock.
func (s *Service) ListLibraries() []*entity.Library {
	s.registryMu.Lock()
	ids := make([]string, 0, len(s.libraries))
	entries := make([]*libraryEntry, 0, len(s.libraries))
	for id, entry := range s.libraries {
		ids = append(ids, id)
		entries = append(entries, entry)
	}
	s.registryMu.Unlock()

	out := make([]*entity.Library, 0, len(ids))
	for i, entry := range entries {
		release := entry.lock.ReadGuard()
		lib, err := entry.store.Libraries.Get(ids[i])
		release()
		if err == nil {
			out = append(out, lib)
		}
	}
	return out
}

// DeleteLibrary removes a library and every document/chunk it owns.
func (s *Service) DeleteLibrary(libraryID string) error {
	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return err
	}

	release := entry.lock.WriteGuard()
	documentIDs := documentIDsOf(entry.store)
	deletedChunkIDs, cascadeErr := entry.store.DeleteLibraryCascade(libraryID)
	release()
	if cascadeErr != nil {
		return cascadeErr
	}

	s.registryMu.Lock()
	delete(s.libraries, libraryID)
	for _, docID := range documentIDs {
		delete(s.docToLibrary, docID)
	}
	for _, chunkID := range deletedChunkIDs {
		delete(s.chunkToLibrary, chunkID)
	}
	s.registryMu.Unlock()

	return nil
}

func documentIDsOf(store *repository.Store) []string {
	docs := store.Documents.List()
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// AddDocument creates a document under libraryID.
func (s *Service) AddDocument(libraryID, name string, metadata map[string]any) (*entity.Document, error) {
	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}

	release := entry.lock.WriteGuard()
	defer release()

	now := time.Now()
	doc := entity.NewDocument(uuid.NewString(), libraryID, name, metadata, now)
	if err := entry.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if lib, err := entry.store.Libraries.Get(libraryID); err == nil {
		repository.Touch(lib, now)
	}

	s.registryMu.Lock()
	s.docToLibrary[doc.ID] = libraryID
	s.registryMu.Unlock()

	return doc, nil
}

// DeleteDocument removes a document and every chunk it owns, including from
// the owning library's index.
func (s *Service) DeleteDocument(documentID string) error {
	s.registryMu.Lock()
	libraryID, ok := s.docToLibrary[documentID]
	s.registryMu.Unlock()
	if !ok {
		return apperrors.NotFound("document not found: " + documentID)
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return err
	}

	release := entry.lock.WriteGuard()
	deletedChunkIDs, cascadeErr := entry.store.DeleteDocumentCascade(documentID)
	if cascadeErr == nil {
		for _, chunkID := range deletedChunkIDs {
			entry.index.Delete(chunkID)
		}
		if lib, lerr := entry.store.Libraries.Get(libraryID); lerr == nil {
			repository.Touch(lib, time.Now())
		}
	}
	release()
	if cascadeErr != nil {
		return cascadeErr
	}

	s.registryMu.Lock()
	delete(s.docToLibrary, documentID)
	for _, chunkID := range deletedChunkIDs {
		delete(s.chunkToLibrary, chunkID)
	}
	s.registryMu.Unlock()

	return nil
}

// AddChunk embeds text and inserts the resulting chunk into its document's
// library. The embedding call happens before the write lock is acquired, so
// provider latency never extends the library's exclusive critical section.
func (s *Service) AddChunk(ctx context.Context, documentID, text string, metadata map[string]any) (*entity.Chunk, error) {
	s.registryMu.Lock()
	libraryID, ok := s.docToLibrary[documentID]
	s.registryMu.Unlock()
	if !ok {
		return nil, apperrors.ParentMissing("document not found for chunk: " + documentID)
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	release := entry.lock.WriteGuard()
	defer release()

	now := time.Now()
	chunk := entity.NewChunk(uuid.NewString(), documentID, libraryID, text, metadata, vector, now)
	if err := entry.store.PutChunk(chunk); err != nil {
		return nil, err
	}
	if err := entry.index.Insert(chunk.ID, chunk.Vector); err != nil {
		entry.store.Chunks.Delete(chunk.ID)
		if doc, derr := entry.store.Documents.Get(documentID); derr == nil {
			delete(doc.ChunkIDs, chunk.ID)
		}
		return nil, err
	}
	if lib, lerr := entry.store.Libraries.Get(libraryID); lerr == nil {
		repository.Touch(lib, now)
	}

	s.registryMu.Lock()
	s.chunkToLibrary[chunk.ID] = libraryID
	s.registryMu.Unlock()

	return chunk, nil
}

// GetChunk returns a chunk by id under its owning library's read lock.
func (s *Service) GetChunk(chunkID string) (*entity.Chunk, error) {
	s.registryMu.Lock()
	libraryID, ok := s.chunkToLibrary[chunkID]
	s.registryMu.Unlock()
	if !ok {
		return nil, apperrors.NotFound("chunk not found: " + chunkID)
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}

	release := entry.lock.ReadGuard()
	defer release()
	return entry.store.Chunks.Get(chunkID)
}

// AddChunks is the batch form of AddChunk: it embeds every text
// concurrently (bounded by maxConcurrentEmbeds) before acquiring the
// document's library's write lock once, then inserts every resulting
// chunk under that single critical section. If any embed or any insert
// fails, no chunk from the batch is kept.
func (s *Service) AddChunks(ctx context.Context, documentID string, texts []string, metadatas []map[string]any) ([]*entity.Chunk, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, apperrors.InvalidParameter("metadatas must have the same length as texts, or be nil")
	}

	s.registryMu.Lock()
	libraryID, ok := s.docToLibrary[documentID]
	s.registryMu.Unlock()
	if !ok {
		return nil, apperrors.ParentMissing("document not found for chunk: " + documentID)
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeds)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	release := entry.lock.WriteGuard()
	defer release()

	now := time.Now()
	chunks := make([]*entity.Chunk, len(texts))
	inserted := make([]string, 0, len(texts))
	for i, text := range texts {
		var metadata map[string]any
		if metadatas != nil {
			metadata = metadatas[i]
		}
		chunk := entity.NewChunk(uuid.NewString(), documentID, libraryID, text, metadata, vectors[i], now)
		if err := entry.store.PutChunk(chunk); err != nil {
			rollbackChunks(entry, inserted)
			return nil, err
		}
		if err := entry.index.Insert(chunk.ID, chunk.Vector); err != nil {
			entry.store.Chunks.Delete(chunk.ID)
			if doc, derr := entry.store.Documents.Get(documentID); derr == nil {
				delete(doc.ChunkIDs, chunk.ID)
			}
			rollbackChunks(entry, inserted)
			return nil, err
		}
		chunks[i] = chunk
		inserted = append(inserted, chunk.ID)
	}
	if lib, lerr := entry.store.Libraries.Get(libraryID); lerr == nil {
		repository.Touch(lib, now)
	}

	s.registryMu.Lock()
	for _, id := range inserted {
		s.chunkToLibrary[id] = libraryID
	}
	s.registryMu.Unlock()

	return chunks, nil
}

// rollbackChunks removes every chunk id in ids from entry's index and
// store, undoing a partially-applied AddChunks batch.
func rollbackChunks(entry *libraryEntry, ids []string) {
	for _, id := range ids {
		entry.index.Delete(id)
		chunk, err := entry.store.Chunks.Get(id)
		entry.store.Chunks.Delete(id)
		if err == nil {
			if doc, derr := entry.store.Documents.Get(chunk.DocumentID); derr == nil {
				delete(doc.ChunkIDs, id)
			}
		}
	}
}

// DeleteChunk removes a chunk from its library's index and chunk store.
func (s *Service) DeleteChunk(chunkID string) error {
	s.registryMu.Lock()
	libraryID, ok := s.chunkToLibrary[chunkID]
	s.registryMu.Unlock()
	if !ok {
		return apperrors.NotFound("chunk not found: " + chunkID)
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return err
	}

	release := entry.lock.WriteGuard()
	entry.index.Delete(chunkID)
	chunk, getErr := entry.store.Chunks.Get(chunkID)
	if getErr == nil {
		entry.store.Chunks.Delete(chunkID)
		if doc, derr := entry.store.Documents.Get(chunk.DocumentID); derr == nil {
			delete(doc.ChunkIDs, chunkID)
		}
		if lib, lerr := entry.store.Libraries.Get(libraryID); lerr == nil {
			repository.Touch(lib, time.Now())
		}
	}
	release()

	s.registryMu.Lock()
	delete(s.chunkToLibrary, chunkID)
	s.registryMu.Unlock()

	return getErr
}

// RebuildIndex discards and reconstructs a library's index from its current
// chunks, under its write lock. Used after a parameter change or to compact
// away tombstoned entries left by many deletions.
func (s *Service) RebuildIndex(libraryID string) error {
	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return err
	}

	release := entry.lock.WriteGuard()
	defer release()

	lib, err := entry.store.Libraries.Get(libraryID)
	if err != nil {
		return err
	}

	newIndex, err := vectorindex.New(lib.IndexKind, lib.Dimension, lib.SeedConfig)
	if err != nil {
		return err
	}

	chunks := entry.store.Chunks.List()
	entries := make([]vectorindex.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorindex.Entry{ID: c.ID, Vector: c.Vector}
	}
	if err := newIndex.Build(entries); err != nil {
		return err
	}

	entry.index = newIndex
	repository.Touch(lib, time.Now())
	return nil
}

// Search embeds query_text, probes the library's index, and materializes
// the resulting chunks. Filter clauses are a conjunction of
// `key op value` predicates over chunk metadata (internal/filter). Chunks
// deleted between the index probe and materialization are silently
// dropped rather than erroring (stale-tolerant read).
func (s *Service) Search(ctx context.Context, libraryID, queryText string, k int, filterClauses []string) ([]ScoredChunk, error) {
	if k < 1 {
		return nil, apperrors.InvalidParameter("k must be >= 1")
	}

	entry, err := s.lookupEntry(libraryID)
	if err != nil {
		return nil, err
	}

	expr, err := filter.Parse(filterClauses)
	if err != nil {
		return nil, err
	}

	release := entry.lock.ReadGuard()
	defer release()

	vector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	lib, err := entry.store.Libraries.Get(libraryID)
	if err != nil {
		return nil, err
	}

	kPrime := k
	if lib.IndexKind == entity.IndexHNSW {
		kPrime = max(k, lib.SeedConfig.HNSW.EfSearch)
	}

	candidateFilter := func(id string) bool {
		chunk, err := entry.store.Chunks.Get(id)
		if err != nil {
			return false
		}
		return expr.Matches(chunk.Metadata)
	}

	candidates, err := entry.index.SearchKNN(vector, kPrime, candidateFilter)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredChunk, 0, k)
	for _, c := range candidates {
		chunk, err := entry.store.Chunks.Get(c.ID)
		if err != nil {
			continue // deleted between probe and materialization
		}
		results = append(results, ScoredChunk{Chunk: chunk, Score: c.Score})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// SaveSnapshot persists every library to path in the given format. Each
// library is read under its own read lock, one at a time, so a snapshot can
// interleave with writers on other libraries but never observes a
// half-written library.
func (s *Service) SaveSnapshot(path string, format snapshot.Format) error {
	s.registryMu.Lock()
	entries := make([]*libraryEntry, 0, len(s.libraries))
	for _, entry := range s.libraries {
		entries = append(entries, entry)
	}
	s.registryMu.Unlock()

	var snap snapshot.Snapshot
	for _, entry := range entries {
		release := entry.lock.ReadGuard()
		libSnap := snapshot.Build(entry.store)
		release()
		snap.Libraries = append(snap.Libraries, libSnap.Libraries...)
	}

	return snapshot.Save(path, format, snap)
}

// LoadSnapshot replaces the service's entire library set with the contents
// of path, rebuilding each library's index from its restored chunks (index
// graph state is never persisted, only chunk vectors). Existing libraries
// are discarded.
func (s *Service) LoadSnapshot(path string, format snapshot.Format) error {
	snap, err := snapshot.Load(path, format)
	if err != nil {
		return err
	}

	libraries := make(map[string]*libraryEntry, len(snap.Libraries))
	docToLibrary := make(map[string]string)
	chunkToLibrary := make(map[string]string)

	for _, libRec := range snap.Libraries {
		store := snapshot.Restore(snapshot.Snapshot{Libraries: []snapshot.LibraryRecord{libRec}})

		idx, err := vectorindex.New(libRec.IndexKind, libRec.Dimension, libRec.SeedConfig)
		if err != nil {
			return err
		}
		chunks := store.Chunks.List()
		entries := make([]vectorindex.Entry, len(chunks))
		for i, c := range chunks {
			entries[i] = vectorindex.Entry{ID: c.ID, Vector: c.Vector}
		}
		if err := idx.Build(entries); err != nil {
			return err
		}

		libraries[libRec.ID] = &libraryEntry{lock: rwlock.New(), store: store, index: idx}
		for _, docRec := range libRec.Documents {
			docToLibrary[docRec.ID] = libRec.ID
			for _, chunkRec := range docRec.Chunks {
				chunkToLibrary[chunkRec.ID] = libRec.ID
			}
		}
	}

	s.registryMu.Lock()
	s.libraries = libraries
	s.docToLibrary = docToLibrary
	s.chunkToLibrary = chunkToLibrary
	s.registryMu.Unlock()

	return nil
}
