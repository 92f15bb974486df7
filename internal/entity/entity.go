// Package entity defines the domain model: libraries, documents, and chunks.
// Entities reference each other only by id, never by pointer, so that the
// cascade logic in internal/repository and internal/service stays simple and
// the index never holds anything but ids (see internal/vectorindex).
package entity

import "time"

// IndexKind names the index family a library uses.
type IndexKind string

const (
	IndexBruteForce IndexKind = "BRUTE_FORCE"
	IndexHNSW       IndexKind = "HNSW"
	IndexLSH        IndexKind = "LSH"
)

// HNSWParams configures an HNSW index at build/rebuild time.
type HNSWParams struct {
	M              int
	EfConstruction int
	EfSearch       int
	Seed           int64
}

// DefaultHNSWParams returns the general-purpose HNSW defaults: M=16,
// EfConstruction=200, EfSearch=64, Seed=42.
func DefaultHNSWParams() HNSWParams {
	return HNSWParams{M: 16, EfConstruction: 200, EfSearch: 64, Seed: 42}
}

// LSHParams configures an LSH index at build/rebuild time.
type LSHParams struct {
	L          int
	K          int
	Seed       int64
	MultiProbe int // bit-flip depth when the candidate set is empty; 0 disables
}

// DefaultLSHParams returns reasonable defaults for cosine LSH.
func DefaultLSHParams() LSHParams {
	return LSHParams{L: 8, K: 12, Seed: 42, MultiProbe: 0}
}

// SeedConfig carries the per-kind build parameters for a library so that
// rebuild_index can reuse or change them deterministically.
type SeedConfig struct {
	HNSW HNSWParams
	LSH  LSHParams
}

// Library is a named collection of documents sharing one embedding dimension
// and one index instance.
type Library struct {
	ID          string
	Name        string
	Description string
	IndexKind   IndexKind
	Dimension   int

	DocumentIDs map[string]struct{}

	SeedConfig SeedConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLibrary constructs a Library with an empty document set.
func NewLibrary(id, name, description string, kind IndexKind, dim int, now time.Time) *Library {
	return &Library{
		ID:          id,
		Name:        name,
		Description: description,
		IndexKind:   kind,
		Dimension:   dim,
		DocumentIDs: make(map[string]struct{}),
		SeedConfig: SeedConfig{
			HNSW: DefaultHNSWParams(),
			LSH:  DefaultLSHParams(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Document belongs to exactly one library and owns a set of chunks.
type Document struct {
	ID        string
	LibraryID string
	Name      string
	Metadata  map[string]any

	ChunkIDs map[string]struct{}

	CreatedAt time.Time
}

// NewDocument constructs a Document with an empty chunk set.
func NewDocument(id, libraryID, name string, metadata map[string]any, now time.Time) *Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Document{
		ID:        id,
		LibraryID: libraryID,
		Name:      name,
		Metadata:  metadata,
		ChunkIDs:  make(map[string]struct{}),
		CreatedAt: now,
	}
}

// Chunk belongs to exactly one document and carries the text/vector pair
// that the index ranks on. Its vector is immutable once created.
type Chunk struct {
	ID         string
	DocumentID string
	LibraryID  string
	Text       string
	Metadata   map[string]any
	Vector     []float32

	// TokenCount is a best-effort whitespace-split count, informational only
	// — never used for ranking.
	TokenCount int

	CreatedAt time.Time
}

// NewChunk constructs a Chunk, computing TokenCount from text.
func NewChunk(id, documentID, libraryID, text string, metadata map[string]any, vector []float32, now time.Time) *Chunk {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Chunk{
		ID:         id,
		DocumentID: documentID,
		LibraryID:  libraryID,
		Text:       text,
		Metadata:   metadata,
		Vector:     vector,
		TokenCount: countTokens(text),
		CreatedAt:  now,
	}
}

func countTokens(text string) int {
	count := 0
	inToken := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inToken = false
			continue
		}
		if !inToken {
			count++
			inToken = true
		}
	}
	return count
}
