package mcp

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// mockRetrievalService is a test double for driving.RetrievalService.
type mockRetrievalService struct {
	outcome   *domain.SearchOutcome
	retrieval *driving.Retrieval
	err       error

	lastQuery  string
	lastSearch domain.SearchOptions
	lastOpts   driving.RetrieveOptions
}

func (m *mockRetrievalService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchOutcome, error) {
	m.lastQuery = query
	m.lastSearch = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome == nil {
		return &domain.SearchOutcome{}, nil
	}
	return m.outcome, nil
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	return m.retrieve(query, opts)
}

func (m *mockRetrievalService) MatchPricing(_ context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	return m.retrieve(query, opts)
}

func (m *mockRetrievalService) retrieve(query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.retrieval == nil {
		return &driving.Retrieval{Query: query, Mode: opts.Mode}, nil
	}
	return m.retrieval, nil
}

// mockIngestService is a test double for driving.IngestService.
type mockIngestService struct {
	docs   []domain.Document
	chunks map[string][]domain.Chunk
	stats  *domain.IndexStats
	err    error
}

func (m *mockIngestService) IndexDocuments(context.Context, []domain.IngestRequest) (domain.BatchReport, error) {
	return domain.BatchReport{}, m.err
}

func (m *mockIngestService) Submit(context.Context, []domain.IngestRequest) (driving.IngestTask, error) {
	return nil, m.err
}

func (m *mockIngestService) Remove(context.Context, string) error {
	return m.err
}

func (m *mockIngestService) Reindex(context.Context, []string) (domain.BatchReport, error) {
	return domain.BatchReport{}, m.err
}

func (m *mockIngestService) ReindexAll(context.Context) (domain.BatchReport, error) {
	return domain.BatchReport{}, m.err
}

func (m *mockIngestService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockIngestService) List(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockIngestService) Chunks(_ context.Context, id string) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	chunks, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return chunks, nil
}

func (m *mockIngestService) Stats(context.Context, string) (*domain.IndexStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return &domain.IndexStats{}, nil
	}
	return m.stats, nil
}
