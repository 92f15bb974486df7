// Package repository holds the authoritative in-memory entity maps for
// libraries, documents, and chunks. Repositories never lock internally:
// internal/service composes them under the owning library's reader-writer
// lock, so every method here assumes single-writer-or-many-readers access is
// already guaranteed by the caller.
package repository

import (
	"time"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/entity"
)

// LibraryRepo is the id -> Library map.
type LibraryRepo struct {
	byID map[string]*entity.Library
}

// NewLibraryRepo constructs an empty LibraryRepo.
func NewLibraryRepo() *LibraryRepo {
	return &LibraryRepo{byID: make(map[string]*entity.Library)}
}

// Get returns the library for id, or NotFound.
func (r *LibraryRepo) Get(id string) (*entity.Library, error) {
	lib, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("library not found: " + id)
	}
	return lib, nil
}

// Put inserts a new library, failing with Duplicate if id already exists.
func (r *LibraryRepo) Put(lib *entity.Library) error {
	if _, exists := r.byID[lib.ID]; exists {
		return apperrors.Duplicate("library already exists: " + lib.ID)
	}
	r.byID[lib.ID] = lib
	return nil
}

// Delete removes a library, reporting whether it was present.
func (r *LibraryRepo) Delete(id string) bool {
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	return true
}

// List returns every library in no particular order.
func (r *LibraryRepo) List() []*entity.Library {
	out := make([]*entity.Library, 0, len(r.byID))
	for _, lib := range r.byID {
		out = append(out, lib)
	}
	return out
}

// DocumentRepo is the id -> Document map.
type DocumentRepo struct {
	byID map[string]*entity.Document
}

// NewDocumentRepo constructs an empty DocumentRepo.
func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{byID: make(map[string]*entity.Document)}
}

// Get returns the document for id, or NotFound.
func (r *DocumentRepo) Get(id string) (*entity.Document, error) {
	doc, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("document not found: " + id)
	}
	return doc, nil
}

// Put inserts a new document, failing with Duplicate if id already exists.
// The caller (LibraryService) is responsible for verifying the parent
// library exists before calling Put — this repo only owns the document map.
func (r *DocumentRepo) Put(doc *entity.Document) error {
	if _, exists := r.byID[doc.ID]; exists {
		return apperrors.Duplicate("document already exists: " + doc.ID)
	}
	r.byID[doc.ID] = doc
	return nil
}

// Delete removes a document, reporting whether it was present.
func (r *DocumentRepo) Delete(id string) bool {
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	return true
}

// List returns every document in no particular order.
func (r *DocumentRepo) List() []*entity.Document {
	out := make([]*entity.Document, 0, len(r.byID))
	for _, doc := range r.byID {
		out = append(out, doc)
	}
	return out
}

// ListByLibrary returns the documents belonging to libraryID.
func (r *DocumentRepo) ListByLibrary(libraryID string) []*entity.Document {
	var out []*entity.Document
	for _, doc := range r.byID {
		if doc.LibraryID == libraryID {
			out = append(out, doc)
		}
	}
	return out
}

// ChunkRepo is the id -> Chunk map.
type ChunkRepo struct {
	byID map[string]*entity.Chunk
}

// NewChunkRepo constructs an empty ChunkRepo.
func NewChunkRepo() *ChunkRepo {
	return &ChunkRepo{byID: make(map[string]*entity.Chunk)}
}

// Get returns the chunk for id, or NotFound.
func (r *ChunkRepo) Get(id string) (*entity.Chunk, error) {
	chunk, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("chunk not found: " + id)
	}
	return chunk, nil
}

// Put inserts a new chunk, failing with Duplicate if id already exists.
func (r *ChunkRepo) Put(chunk *entity.Chunk) error {
	if _, exists := r.byID[chunk.ID]; exists {
		return apperrors.Duplicate("chunk already exists: " + chunk.ID)
	}
	r.byID[chunk.ID] = chunk
	return nil
}

// Delete removes a chunk, reporting whether it was present.
func (r *ChunkRepo) Delete(id string) bool {
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	return true
}

// List returns every chunk in no particular order.
func (r *ChunkRepo) List() []*entity.Chunk {
	out := make([]*entity.Chunk, 0, len(r.byID))
	for _, chunk := range r.byID {
		out = append(out, chunk)
	}
	return out
}

// ListByDocument returns the chunks belonging to documentID.
func (r *ChunkRepo) ListByDocument(documentID string) []*entity.Chunk {
	var out []*entity.Chunk
	for _, chunk := range r.byID {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	return out
}

// Store bundles the three repositories and the cross-reference integrity
// operations that span them. internal/service keeps one Store per library
// (holding that library's own record plus its documents and chunks),
// guarded entirely by that library's rwlock — this partitions the
// service's logical "library_id/document_id/chunk_id -> entity" mappings
// so that concurrent writers to two different libraries never touch the
// same Go map, while two writers to the same library are already
// serialized by its write lock.
type Store struct {
	Libraries *LibraryRepo
	Documents *DocumentRepo
	Chunks    *ChunkRepo
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		Libraries: NewLibraryRepo(),
		Documents: NewDocumentRepo(),
		Chunks:    NewChunkRepo(),
	}
}

// PutDocument inserts doc after verifying its parent library exists.
func (s *Store) PutDocument(doc *entity.Document) error {
	lib, err := s.Libraries.Get(doc.LibraryID)
	if err != nil {
		return apperrors.ParentMissing("library not found for document: " + doc.LibraryID)
	}
	if err := s.Documents.Put(doc); err != nil {
		return err
	}
	lib.DocumentIDs[doc.ID] = struct{}{}
	return nil
}

// PutChunk inserts chunk after verifying its parent document exists.
func (s *Store) PutChunk(chunk *entity.Chunk) error {
	doc, err := s.Documents.Get(chunk.DocumentID)
	if err != nil {
		return apperrors.ParentMissing("document not found for chunk: " + chunk.DocumentID)
	}
	if err := s.Chunks.Put(chunk); err != nil {
		return err
	}
	doc.ChunkIDs[chunk.ID] = struct{}{}
	return nil
}

// DeleteDocumentCascade removes a document and every chunk it owns. Returns
// the ids of the deleted chunks so the caller can remove them from the
// library's index too.
func (s *Store) DeleteDocumentCascade(documentID string) (deletedChunkIDs []string, err error) {
	doc, err := s.Documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	for chunkID := range doc.ChunkIDs {
		s.Chunks.Delete(chunkID)
		deletedChunkIDs = append(deletedChunkIDs, chunkID)
	}
	if lib, lerr := s.Libraries.Get(doc.LibraryID); lerr == nil {
		delete(lib.DocumentIDs, documentID)
	}
	s.Documents.Delete(documentID)
	return deletedChunkIDs, nil
}

// DeleteLibraryCascade removes a library, every document it owns, and every
// chunk those documents own. Returns the ids of the deleted chunks so the
// caller can discard the library's index in the same write-locked operation.
func (s *Store) DeleteLibraryCascade(libraryID string) (deletedChunkIDs []string, err error) {
	lib, err := s.Libraries.Get(libraryID)
	if err != nil {
		return nil, err
	}
	for docID := range lib.DocumentIDs {
		doc, derr := s.Documents.Get(docID)
		if derr != nil {
			continue
		}
		for chunkID := range doc.ChunkIDs {
			s.Chunks.Delete(chunkID)
			deletedChunkIDs = append(deletedChunkIDs, chunkID)
		}
		s.Documents.Delete(docID)
	}
	s.Libraries.Delete(libraryID)
	return deletedChunkIDs, nil
}

// Touch updates a library's UpdatedAt to now; called by the service layer
// after any mutation under the library's write lock.
func Touch(lib *entity.Library, now time.Time) {
	lib.UpdatedAt = now
}
