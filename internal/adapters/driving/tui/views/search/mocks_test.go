package search

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// MockRetrievalService implements driving.RetrievalService for testing.
type MockRetrievalService struct {
	RetrieveFunc func(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error)
}

func (m *MockRetrievalService) Search(context.Context, string, domain.SearchOptions) (*domain.SearchOutcome, error) {
	return &domain.SearchOutcome{}, nil
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, query, opts)
	}
	return &driving.Retrieval{Query: query, Mode: opts.Mode}, nil
}

func (m *MockRetrievalService) MatchPricing(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	return m.Retrieve(ctx, query, opts)
}
