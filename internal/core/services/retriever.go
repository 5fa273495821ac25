package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/pricing"
)

// Retriever scores every eligible chunk in the store against a query vector.
// The scan is exact: there is no approximate index.
type Retriever struct {
	store driven.IndexStore
}

// NewRetriever creates a retriever over store.
func NewRetriever(store driven.IndexStore) *Retriever {
	return &Retriever{store: store}
}

// Search returns results sorted by descending cosine similarity, ties broken
// by earlier document creation then lower chunk sequence. Results below the
// similarity floor are dropped and the rest truncated to the limit.
//
// With a pricing focus, pricing-bearing chunks are scaled before the floor
// is applied, and with KeepPricing they survive the floor.
//
// An empty store or a filter that matches nothing yields an empty outcome.
// A query whose dimension differs from the store's fails with
// *domain.DimensionMismatchError. Malformed stored vectors are skipped and
// counted.
func (r *Retriever) Search(ctx context.Context, query []float32, opts domain.SearchOptions) (*domain.SearchOutcome, error) {
	outcome := &domain.SearchOutcome{}

	dims := r.store.Dimensions()
	if dims == 0 {
		return outcome, nil
	}
	if len(query) != dims {
		return nil, &domain.DimensionMismatchError{Expected: dims, Actual: len(query)}
	}

	floor := opts.EffectiveMinSimilarity()
	focus := opts.PricingFocus > 1
	for ic, err := range r.store.AllChunks(ctx, opts.Filter) {
		if err != nil {
			return nil, fmt.Errorf("scan chunks: %w", err)
		}
		if !wellFormed(ic.Chunk.Embedding, dims) {
			outcome.Skipped++
			continue
		}
		outcome.Scanned++

		score := dot(query, ic.Chunk.Embedding)
		focused := false
		keep := false
		if focus || opts.KeepPricing {
			if pricing.IsPricingChunk(ic.Document.Kind, ic.Chunk) {
				if focus {
					score *= opts.PricingFocus
					focused = true
				}
				keep = opts.KeepPricing
			}
		}
		if score < floor && !keep {
			continue
		}
		result := newResult(ic, score)
		result.Focused = focused
		outcome.Results = append(outcome.Results, result)
	}

	if outcome.Skipped > 0 {
		logger.Warn("Skipped %d malformed chunks during search", outcome.Skipped)
	}

	domain.SortResults(outcome.Results)
	if limit := opts.EffectiveLimit(); len(outcome.Results) > limit {
		outcome.Results = outcome.Results[:limit]
	}
	return outcome, nil
}

// newResult copies a scanned pair into a result. The vector and the full
// document text are dropped.
func newResult(ic domain.IndexedChunk, score float64) domain.SearchResult {
	doc := *ic.Document
	doc.Content = ""
	chunk := *ic.Chunk
	chunk.Embedding = nil
	return domain.SearchResult{
		Document: doc,
		Chunk:    chunk,
		Score:    score,
	}
}
