package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/pricing"
)

// Matcher cross-references product identifiers with pricing-bearing chunks
// and boosts every result that takes part in a match.
type Matcher struct {
	store driven.IndexStore
	boost float64
}

// NewMatcher creates a matcher over store. A boost below 1 falls back to
// domain.DefaultBoostFactor.
func NewMatcher(store driven.IndexStore, boost float64) *Matcher {
	if boost < 1 {
		boost = domain.DefaultBoostFactor
	}
	return &Matcher{store: store, boost: boost}
}

// BoostFactor returns the multiplier applied to participating chunks.
func (m *Matcher) BoostFactor() float64 {
	return m.boost
}

// candidate is a scanned chunk that names at least one query identifier.
type candidate struct {
	result      domain.SearchResult
	ids         []domain.IdentifierMatch
	idSet       map[string]struct{}
	pricing     bool
	inScope     bool
	participant bool
}

func chunkKey(documentID, chunkID string) string {
	return documentID + "\x00" + chunkID
}

// Match re-ranks results for query.
//
// Identifiers are extracted from the query. When there are none the results
// pass through unchanged. Otherwise one pass over the owner's chunks finds
// every chunk naming a query identifier. Each non-pricing chunk within the
// search filter is paired with pricing-bearing chunks from any file that
// name the same normalised identifier. Every chunk on either side of a pair
// is boosted once. Participants missing from results are scored against
// queryVec and added when their boosted score clears the floor.
func (m *Matcher) Match(
	ctx context.Context,
	query string,
	queryVec []float32,
	results []domain.SearchResult,
	opts domain.SearchOptions,
) (*domain.MatchOutcome, error) {
	outcome := &domain.MatchOutcome{Results: results}

	var queryIDs []domain.IdentifierMatch
	wanted := make(map[string]struct{})
	for _, id := range pricing.Extract(query) {
		if id.Class == domain.PatternPrice {
			continue
		}
		queryIDs = append(queryIDs, id)
		wanted[id.Normalized] = struct{}{}
	}
	outcome.QueryIdentifiers = queryIDs
	if len(wanted) == 0 {
		return outcome, nil
	}

	logger.Section("Product-Pricing Match")
	logger.Debug("Query identifiers: %v", pricing.Identifiers(query))

	candidates, skipped, err := m.scan(ctx, queryVec, wanted, opts.Filter)
	if err != nil {
		return nil, err
	}
	outcome.Skipped = skipped

	records := m.crossReference(candidates)
	if len(records) == 0 {
		logger.Debug("No pricing cross-references found")
		return outcome, nil
	}

	byKey := make(map[string]*candidate, len(candidates))
	for _, c := range candidates {
		if c.participant {
			byKey[chunkKey(c.result.Document.ID, c.result.Chunk.ID)] = c
		}
	}

	// Boost each participant once, whether or not retrieval returned it.
	floor := opts.EffectiveMinSimilarity()
	boosted := make([]domain.SearchResult, 0, len(results)+len(byKey))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		key := chunkKey(r.Document.ID, r.Chunk.ID)
		seen[key] = true
		if _, ok := byKey[key]; ok && !r.Boosted {
			r.Score *= m.boost
			r.Boosted = true
			outcome.Boosted++
		}
		boosted = append(boosted, r)
	}
	for key, c := range byKey {
		if seen[key] {
			continue
		}
		r := c.result
		r.Score *= m.boost
		r.Boosted = true
		if r.Score < floor {
			continue
		}
		outcome.Boosted++
		boosted = append(boosted, r)
	}

	domain.SortResults(boosted)
	if limit := opts.EffectiveLimit(); len(boosted) > limit {
		boosted = boosted[:limit]
	}
	outcome.Results = boosted

	for i := range records {
		rec := &records[i]
		rec.Pricing.Score *= m.boost
		rec.Pricing.Boosted = true
		rec.Score = (rec.Score*m.boost + rec.Pricing.Score) / 2
	}
	slices.SortStableFunc(records, func(a, b domain.MatchedPricingRecord) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	outcome.Records = records

	logger.Debug("Pricing matches: %d records, %d chunks boosted", len(records), outcome.Boosted)
	return outcome, nil
}

// scan makes the wider pass. Only the owner restriction of filter limits
// the pricing side. The full filter decides which product chunks count.
func (m *Matcher) scan(
	ctx context.Context,
	queryVec []float32,
	wanted map[string]struct{},
	filter domain.ChunkFilter,
) ([]*candidate, int, error) {
	dims := m.store.Dimensions()
	if dims == 0 {
		return nil, 0, nil
	}
	if len(queryVec) != dims {
		return nil, 0, &domain.DimensionMismatchError{Expected: dims, Actual: len(queryVec)}
	}

	var (
		candidates []*candidate
		skipped    int
	)
	for ic, err := range m.store.AllChunks(ctx, filter.OwnersOnly()) {
		if err != nil {
			return nil, 0, fmt.Errorf("scan chunks: %w", err)
		}
		if !wellFormed(ic.Chunk.Embedding, dims) {
			skipped++
			continue
		}

		var ids []domain.IdentifierMatch
		for _, id := range pricing.Extract(ic.Chunk.Content) {
			if id.Class == domain.PatternPrice {
				continue
			}
			if _, ok := wanted[id.Normalized]; !ok {
				continue
			}
			id.DocumentID = ic.Document.ID
			id.ChunkID = ic.Chunk.ID
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id.Normalized] = struct{}{}
		}
		candidates = append(candidates, &candidate{
			result:  newResult(ic, dot(queryVec, ic.Chunk.Embedding)),
			ids:     ids,
			idSet:   set,
			pricing: pricing.IsPricingChunk(ic.Document.Kind, ic.Chunk),
			inScope: filter.Matches(ic.Document),
		})
	}
	return candidates, skipped, nil
}

// crossReference pairs identifiers in non-pricing chunks with pricing chunks
// naming the same identifier and marks both sides as participants. Record
// scores hold the unboosted product-side score until Match combines them.
func (m *Matcher) crossReference(candidates []*candidate) []domain.MatchedPricingRecord {
	var pricingSide []*candidate
	for _, c := range candidates {
		if c.pricing {
			pricingSide = append(pricingSide, c)
		}
	}

	var records []domain.MatchedPricingRecord
	seen := make(map[string]bool)
	for _, product := range candidates {
		if product.pricing || !product.inScope {
			continue
		}
		productKey := chunkKey(product.result.Document.ID, product.result.Chunk.ID)
		for _, id := range product.ids {
			for _, price := range pricingSide {
				if _, ok := price.idSet[id.Normalized]; !ok {
					continue
				}
				pairKey := productKey + "\x00" + id.Normalized + "\x00" +
					chunkKey(price.result.Document.ID, price.result.Chunk.ID)
				if seen[pairKey] {
					continue
				}
				seen[pairKey] = true

				product.participant = true
				price.participant = true
				records = append(records, domain.MatchedPricingRecord{
					Identifier: id,
					Pricing:    price.result,
					Score:      product.result.Score,
				})
			}
		}
	}
	return records
}
