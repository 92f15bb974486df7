// Package snapshot persists and restores the full set of libraries,
// documents, and chunks to disk. The index graph itself is never
// serialized: Load only decodes records, and internal/service rebuilds each
// library's index from its restored chunks via Index.Build, mirroring the teacher's HNSWStore, which persists only its
// id mappings and lets the third-party graph own its own wire format.
package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/vectordb/vectordb/internal/apperrors"
	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/repository"
)

// Format selects the on-disk representation.
type Format string

const (
	// FormatText is a human-diffable YAML document.
	FormatText Format = "text"
	// FormatBinary is a compact encoding/gob stream.
	FormatBinary Format = "binary"
)

// ChunkRecord is a chunk's persisted form: its vector as a flat array
// alongside its text and metadata.
type ChunkRecord struct {
	ID         string         `yaml:"id" json:"id"`
	DocumentID string         `yaml:"document_id" json:"document_id"`
	Text       string         `yaml:"text" json:"text"`
	Metadata   map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Vector     []float32      `yaml:"vector" json:"vector"`
	TokenCount int            `yaml:"token_count" json:"token_count"`
	CreatedAt  time.Time      `yaml:"created_at" json:"created_at"`
}

// DocumentRecord is a document's persisted form, with its chunks inlined.
type DocumentRecord struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Metadata  map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time      `yaml:"created_at" json:"created_at"`
	Chunks    []ChunkRecord  `yaml:"chunks" json:"chunks"`
}

// LibraryRecord is one library's persisted form: its kind, dimension,
// index-build parameters, and the full set of documents/chunks it owns.
type LibraryRecord struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	IndexKind   entity.IndexKind  `yaml:"kind" json:"kind"`
	Dimension   int               `yaml:"dimension" json:"dimension"`
	SeedConfig  entity.SeedConfig `yaml:"seed_config" json:"seed_config"`
	CreatedAt   time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `yaml:"updated_at" json:"updated_at"`
	Documents   []DocumentRecord  `yaml:"documents" json:"documents"`
}

// Snapshot is the full persisted state: every library and everything it
// owns.
type Snapshot struct {
	Libraries []LibraryRecord `yaml:"libraries" json:"libraries"`
}

// Save writes snap to path in the given format, using an atomic
// temp-file-then-rename and an exclusive gofrs/flock held for the duration
// of the write so two processes never interleave writes to the same path.
func Save(path string, format Format, snap Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Internal("failed to create snapshot directory", err)
	}

	fileLock := flock.New(path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return apperrors.Internal("failed to acquire snapshot lock", err)
	}
	defer func() { _ = fileLock.Unlock() }()

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return apperrors.Internal("failed to create temp snapshot file", err)
	}

	if err := encode(file, format, snap); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return apperrors.Internal("failed to close temp snapshot file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return apperrors.Internal("failed to rename snapshot file into place", err)
	}
	return nil
}

func encode(file *os.File, format Format, snap Snapshot) error {
	switch format {
	case FormatText:
		enc := yaml.NewEncoder(file)
		defer func() { _ = enc.Close() }()
		if err := enc.Encode(snap); err != nil {
			return apperrors.Internal("failed to encode yaml snapshot", err)
		}
		return nil
	case FormatBinary:
		if err := gob.NewEncoder(file).Encode(snap); err != nil {
			return apperrors.Internal("failed to encode gob snapshot", err)
		}
		return nil
	default:
		return apperrors.InvalidParameter(fmt.Sprintf("unknown snapshot format: %q", format))
	}
}

// Load reads a Snapshot from path in the given format, under a shared
// gofrs/flock so a concurrent Save on the same path can't be read
// mid-write.
func Load(path string, format Format) (Snapshot, error) {
	fileLock := flock.New(path + ".lock")
	if err := fileLock.RLock(); err != nil {
		return Snapshot{}, apperrors.Internal("failed to acquire snapshot read lock", err)
	}
	defer func() { _ = fileLock.Unlock() }()

	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, apperrors.NotFound("snapshot file not found: " + path)
	}
	defer func() { _ = file.Close() }()

	var snap Snapshot
	switch format {
	case FormatText:
		if err := yaml.NewDecoder(file).Decode(&snap); err != nil {
			return Snapshot{}, apperrors.Internal("failed to decode yaml snapshot", err)
		}
	case FormatBinary:
		if err := gob.NewDecoder(file).Decode(&snap); err != nil {
			return Snapshot{}, apperrors.Internal("failed to decode gob snapshot", err)
		}
	default:
		return Snapshot{}, apperrors.InvalidParameter(fmt.Sprintf("unknown snapshot format: %q", format))
	}
	return snap, nil
}

// Build assembles a Snapshot from a repository.Store's current contents.
// The caller must hold the read lock of every library in store for the
// duration of the call (internal/service builds one library's store at a
// time under that library's read lock, then calls snapshot.Save without
// any library lock).
func Build(store *repository.Store) Snapshot {
	var snap Snapshot
	for _, lib := range store.Libraries.List() {
		rec := LibraryRecord{
			ID:          lib.ID,
			Name:        lib.Name,
			Description: lib.Description,
			IndexKind:   lib.IndexKind,
			Dimension:   lib.Dimension,
			SeedConfig:  lib.SeedConfig,
			CreatedAt:   lib.CreatedAt,
			UpdatedAt:   lib.UpdatedAt,
		}
		for _, doc := range store.Documents.ListByLibrary(lib.ID) {
			docRec := DocumentRecord{
				ID:        doc.ID,
				Name:      doc.Name,
				Metadata:  doc.Metadata,
				CreatedAt: doc.CreatedAt,
			}
			for _, chunk := range store.Chunks.ListByDocument(doc.ID) {
				docRec.Chunks = append(docRec.Chunks, ChunkRecord{
					ID:         chunk.ID,
					DocumentID: chunk.DocumentID,
					Text:       chunk.Text,
					Metadata:   chunk.Metadata,
					Vector:     chunk.Vector,
					TokenCount: chunk.TokenCount,
					CreatedAt:  chunk.CreatedAt,
				})
			}
			rec.Documents = append(rec.Documents, docRec)
		}
		snap.Libraries = append(snap.Libraries, rec)
	}
	return snap
}

// Restore rebuilds a fresh repository.Store from snap. It does not touch
// any index: internal/service is responsible for calling Index.Build on
// each restored library's chunks afterward, since index graph state is
// never persisted.
func Restore(snap Snapshot) *repository.Store {
	store := repository.NewStore()
	for _, libRec := range snap.Libraries {
		lib := &entity.Library{
			ID:          libRec.ID,
			Name:        libRec.Name,
			Description: libRec.Description,
			IndexKind:   libRec.IndexKind,
			Dimension:   libRec.Dimension,
			DocumentIDs: make(map[string]struct{}),
			SeedConfig:  libRec.SeedConfig,
			CreatedAt:   libRec.CreatedAt,
			UpdatedAt:   libRec.UpdatedAt,
		}
		_ = store.Libraries.Put(lib)

		for _, docRec := range libRec.Documents {
			doc := entity.NewDocument(docRec.ID, libRec.ID, docRec.Name, docRec.Metadata, docRec.CreatedAt)
			_ = store.PutDocument(doc)

			for _, chunkRec := range docRec.Chunks {
				chunk := &entity.Chunk{
					ID:         chunkRec.ID,
					DocumentID: chunkRec.DocumentID,
					LibraryID:  libRec.ID,
					Text:       chunkRec.Text,
					Metadata:   chunkRec.Metadata,
					Vector:     chunkRec.Vector,
					TokenCount: chunkRec.TokenCount,
					CreatedAt:  chunkRec.CreatedAt,
				}
				_ = store.PutChunk(chunk)
			}
		}
	}
	return store
}
