package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// recentDocuments is the number of documents listed in stats.
const recentDocuments = 5

// IngestService manages documents in the index.
type IngestService struct {
	store        driven.IndexStore
	orchestrator *Orchestrator
}

// NewIngestService creates a new ingest service.
func NewIngestService(store driven.IndexStore, orchestrator *Orchestrator) *IngestService {
	return &IngestService{store: store, orchestrator: orchestrator}
}

// IndexDocuments indexes a batch and waits for every outcome.
func (s *IngestService) IndexDocuments(ctx context.Context, requests []domain.IngestRequest) (domain.BatchReport, error) {
	return s.orchestrator.IndexDocuments(ctx, requests)
}

// Submit starts a batch in the background.
func (s *IngestService) Submit(ctx context.Context, requests []domain.IngestRequest) (driving.IngestTask, error) {
	task, err := s.orchestrator.Submit(ctx, requests)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Remove deletes a document and its chunks.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	return s.orchestrator.Remove(ctx, documentID)
}

// Reindex re-embeds the given documents.
func (s *IngestService) Reindex(ctx context.Context, documentIDs []string) (domain.BatchReport, error) {
	return s.orchestrator.Reindex(ctx, documentIDs)
}

// ReindexAll re-embeds every document.
func (s *IngestService) ReindexAll(ctx context.Context) (domain.BatchReport, error) {
	return s.orchestrator.ReindexAll(ctx)
}

// Get retrieves a document by ID.
func (s *IngestService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// List returns documents matching filter.
func (s *IngestService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx, filter)
}

// Chunks returns every chunk of a document.
func (s *IngestService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, documentID)
}

// Stats summarises the index for one owner, or all owners when ownerID is
// empty. Documents removed while the summary is built are left out.
func (s *IngestService) Stats(ctx context.Context, ownerID string) (*domain.IndexStats, error) {
	filter := domain.DocumentFilter{}
	if ownerID != "" {
		filter.OwnerIDs = []string{ownerID}
	}
	docs, err := s.store.ListDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	stats := &domain.IndexStats{
		ByFileType: make(map[domain.FileType]int),
		Dimensions: s.store.Dimensions(),
	}
	kept := docs[:0]
	for i := range docs {
		doc := &docs[i]
		chunks, err := s.store.GetChunks(ctx, doc.ID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("chunks of %s: %w", doc.ID, err)
		}
		kept = append(kept, *doc)

		switch doc.Status {
		case domain.StatusIndexed:
			stats.Indexed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusPending:
			stats.Pending++
		}
		stats.ByFileType[doc.FileType]++
		stats.EstimatedTokens += EstimateTokens(doc.Content)
		stats.Chunks += len(chunks)
		for j := range chunks {
			if chunks[j].Embedded() {
				stats.EmbeddedChunks++
			}
		}
	}
	docs = kept
	stats.Documents = len(docs)
	if stats.Documents > 0 {
		stats.IndexingRate = float64(stats.Indexed) / float64(stats.Documents) * 100
	}

	recent := slices.Clone(docs)
	slices.SortStableFunc(recent, func(a, b domain.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(recent) > recentDocuments {
		recent = recent[:recentDocuments]
	}
	for i := range recent {
		recent[i].Content = ""
	}
	stats.Recent = recent
	return stats, nil
}
