package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// IngestService manages the document lifecycle: indexing, re-indexing and
// removal.
type IngestService interface {
	// IndexDocuments runs every request through extraction, chunking,
	// embedding and storage and waits for all of them. Per-document failures
	// are reported in the outcome; an error is returned only for an empty
	// or malformed batch.
	IndexDocuments(ctx context.Context, requests []domain.IngestRequest) (domain.BatchReport, error)

	// Submit starts a batch in the background and returns its handle.
	Submit(ctx context.Context, requests []domain.IngestRequest) (IngestTask, error)

	// Remove cancels any in-flight pipeline for the document, waits for it
	// and deletes the document with its chunks.
	Remove(ctx context.Context, documentID string) error

	// Reindex re-chunks and re-embeds documents from their stored content.
	// Unknown ids are reported as failed(DocumentNotFound).
	Reindex(ctx context.Context, documentIDs []string) (domain.BatchReport, error)

	// ReindexAll re-embeds every document, resetting stored vectors first
	// when the embedder dimension changed.
	ReindexAll(ctx context.Context) (domain.BatchReport, error)

	// Get returns a document by id.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents matching filter.
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// Chunks returns every chunk of a document, embedded or not.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Stats summarises the index. An empty ownerID covers all owners.
	Stats(ctx context.Context, ownerID string) (*domain.IndexStats, error)
}

// IngestTask is the handle of a submitted batch.
type IngestTask interface {
	// ID identifies the task.
	ID() string

	// Done is closed when every document has an outcome.
	Done() <-chan struct{}

	// Wait blocks until the batch finishes or ctx is done.
	Wait(ctx context.Context) (domain.BatchReport, error)

	// Progress returns a snapshot of the batch.
	Progress() domain.Progress

	// Cancel stops documents that have not committed yet.
	Cancel()
}
