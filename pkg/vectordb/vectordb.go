// Package vectordb is the public, embeddable entry point to the vector
// search engine: construct a DB with New and call its methods directly
// from another Go program, without going through the CLI.
package vectordb

import (
	"context"
	"errors"

	"github.com/vectordb/vectordb/internal/embedder"
	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/service"
	"github.com/vectordb/vectordb/internal/snapshot"
)

// ErrNilEmbedder is returned by New when no embedder was configured.
var ErrNilEmbedder = errors.New("vectordb: no embedder configured")

// IndexKind names the index family a library uses.
type IndexKind = entity.IndexKind

// Re-exported index kind constants, so callers never need to import
// internal/entity directly.
const (
	IndexBruteForce = entity.IndexBruteForce
	IndexHNSW       = entity.IndexHNSW
	IndexLSH        = entity.IndexLSH
)

// Library, Document, Chunk, and ScoredChunk mirror the internal types
// returned by DB's methods, re-exported so callers never import
// internal packages directly.
type (
	Library     = entity.Library
	Document    = entity.Document
	Chunk       = entity.Chunk
	ScoredChunk = service.ScoredChunk
)

// Format selects a snapshot's on-disk representation.
type Format = snapshot.Format

const (
	FormatText   = snapshot.FormatText
	FormatBinary = snapshot.FormatBinary
)

// DB is an embeddable vector search engine: libraries of documents made of
// embedded chunks, searchable by cosine similarity.
type DB struct {
	svc *service.Service
}

// Option configures a DB constructed by New.
type Option func(*options)

type options struct {
	embedder  embedder.Embedder
	cacheSize int
}

// WithEmbedder sets the embedding provider DB uses for AddChunk and Search.
// Required: New returns ErrNilEmbedder without it.
func WithEmbedder(emb embedder.Embedder) Option {
	return func(o *options) { o.embedder = emb }
}

// WithQueryCache wraps the configured embedder in an LRU cache of the given
// size, so repeated identical query text is embedded once.
func WithQueryCache(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

// New constructs a DB. At minimum, WithEmbedder must be supplied.
func New(opts ...Option) (*DB, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.embedder == nil {
		return nil, ErrNilEmbedder
	}

	emb := o.embedder
	if o.cacheSize > 0 {
		emb = embedder.NewCachedEmbedder(emb, o.cacheSize)
	}

	return &DB{svc: service.New(emb)}, nil
}

// CreateLibrary creates a new library with the given index kind and
// embedding dimension.
func (db *DB) CreateLibrary(name, description string, kind IndexKind, dimension int) (*Library, error) {
	return db.svc.CreateLibrary(name, description, kind, dimension)
}

// GetLibrary returns a library's current record.
func (db *DB) GetLibrary(libraryID string) (*Library, error) {
	return db.svc.GetLibrary(libraryID)
}

// ListLibraries returns every known library.
func (db *DB) ListLibraries() []*Library {
	return db.svc.ListLibraries()
}

// DeleteLibrary removes a library and everything it owns.
func (db *DB) DeleteLibrary(libraryID string) error {
	return db.svc.DeleteLibrary(libraryID)
}

// AddDocument creates a document under libraryID.
func (db *DB) AddDocument(libraryID, name string, metadata map[string]any) (*Document, error) {
	return db.svc.AddDocument(libraryID, name, metadata)
}

// DeleteDocument removes a document and every chunk it owns.
func (db *DB) DeleteDocument(documentID string) error {
	return db.svc.DeleteDocument(documentID)
}

// AddChunk embeds text and adds it as a chunk of documentID.
func (db *DB) AddChunk(ctx context.Context, documentID, text string, metadata map[string]any) (*Chunk, error) {
	return db.svc.AddChunk(ctx, documentID, text, metadata)
}

// AddChunks embeds texts concurrently and inserts the resulting chunks
// under documentID as a single batch. If metadatas is non-nil, it must have
// the same length as texts. On any failure, no chunk from the batch is kept.
func (db *DB) AddChunks(ctx context.Context, documentID string, texts []string, metadatas []map[string]any) ([]*Chunk, error) {
	return db.svc.AddChunks(ctx, documentID, texts, metadatas)
}

// GetChunk returns a chunk by id.
func (db *DB) GetChunk(chunkID string) (*Chunk, error) {
	return db.svc.GetChunk(chunkID)
}

// DeleteChunk removes a chunk from its library.
func (db *DB) DeleteChunk(chunkID string) error {
	return db.svc.DeleteChunk(chunkID)
}

// RebuildIndex discards and reconstructs a library's index from its current
// chunks.
func (db *DB) RebuildIndex(libraryID string) error {
	return db.svc.RebuildIndex(libraryID)
}

// Search embeds queryText and returns the k nearest chunks in libraryID,
// optionally restricted by metadata filter clauses (see internal/filter's
// grammar: "key op value", conjunctively combined).
func (db *DB) Search(ctx context.Context, libraryID, queryText string, k int, filterClauses []string) ([]ScoredChunk, error) {
	return db.svc.Search(ctx, libraryID, queryText, k, filterClauses)
}

// SaveSnapshot persists every library to path in the given format.
func (db *DB) SaveSnapshot(path string, format Format) error {
	return db.svc.SaveSnapshot(path, format)
}

// LoadSnapshot replaces the DB's entire library set with the contents of
// path.
func (db *DB) LoadSnapshot(path string, format Format) error {
	return db.svc.LoadSnapshot(path, format)
}
