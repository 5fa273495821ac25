package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// IndexStore holds documents and, per document, the ordered list of chunks
// with their vectors. It is passed to the services that need it; there is
// no ambient instance.
//
// Writes for different documents proceed concurrently. Writes for the same
// document are serialised. Readers see either the old chunk set or the new
// one, never a mix.
type IndexStore interface {
	// Dimensions returns the vector dimension of the store, or 0 when no
	// vector has been stored yet.
	Dimensions() int

	// SaveDocument inserts or updates document metadata without touching
	// its chunks. Used for status transitions.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// UpsertDocument stores doc and atomically replaces all of its chunks.
	// Every embedded chunk must match Dimensions() once that is fixed;
	// otherwise the call fails with domain.ErrDimensionMismatch and nothing
	// changes.
	UpsertDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// RemoveDocument deletes a document and its chunks.
	// Returns domain.ErrDocumentNotFound for an unknown id.
	RemoveDocument(ctx context.Context, id string) error

	// GetDocument returns a document by id.
	// Returns domain.ErrDocumentNotFound for an unknown id.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns matching documents ordered by creation time.
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// GetChunks returns every chunk of a document in sequence order,
	// including chunks that have no embedding yet.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// AllChunks lazily yields embedded chunks of documents matching filter.
	// Chunks without an embedding are never yielded. The order is document
	// creation time, then document id, then chunk sequence, and is stable
	// within one pass when no writes happen. The yielded Document may carry
	// metadata only; callers needing its text use GetDocument.
	AllChunks(ctx context.Context, filter domain.ChunkFilter) iter.Seq2[domain.IndexedChunk, error]

	// ResetVectors clears every stored embedding and fixes the dimension to
	// dims. Used before re-embedding the corpus with a different model.
	ResetVectors(ctx context.Context, dims int) error

	// Close releases resources.
	Close() error
}
