package domain

import "slices"

// Retrieval defaults. Both the floor and the boost are tunable.
const (
	DefaultSearchLimit   = 10
	DefaultMinSimilarity = 0.3
	DefaultBoostFactor   = 2.5
	DefaultMaxTokens     = 16000

	// DefaultPricingFocus scales pricing-bearing chunks for pricing
	// questions that name no identifier.
	DefaultPricingFocus = 1.5

	// DefaultPricingSearchBoost scales pricing-bearing chunks in the
	// pricing-specific search.
	DefaultPricingSearchBoost = 1.8
)

// ChunkFilter restricts a store scan. Empty fields match everything.
type ChunkFilter struct {
	// DocumentIDs filters to specific documents.
	DocumentIDs []string

	// FileTypes filters to specific file types.
	FileTypes []FileType

	// OwnerIDs filters to documents of specific owners.
	OwnerIDs []string
}

// Matches reports whether doc passes the filter.
func (f ChunkFilter) Matches(doc *Document) bool {
	if len(f.DocumentIDs) > 0 && !slices.Contains(f.DocumentIDs, doc.ID) {
		return false
	}
	if len(f.FileTypes) > 0 && !slices.Contains(f.FileTypes, doc.FileType) {
		return false
	}
	if len(f.OwnerIDs) > 0 && !slices.Contains(f.OwnerIDs, doc.OwnerID) {
		return false
	}
	return true
}

// OwnersOnly returns a filter that keeps only the owner restriction.
func (f ChunkFilter) OwnersOnly() ChunkFilter {
	return ChunkFilter{OwnerIDs: f.OwnerIDs}
}

// DocumentFilter restricts document listings. Empty fields match everything.
type DocumentFilter struct {
	OwnerIDs []string
	Statuses []Status
}

// Matches reports whether doc passes the filter.
func (f DocumentFilter) Matches(doc *Document) bool {
	if len(f.OwnerIDs) > 0 && !slices.Contains(f.OwnerIDs, doc.OwnerID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, doc.Status) {
		return false
	}
	return true
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Filter restricts which chunks are eligible.
	Filter ChunkFilter

	// Limit is the maximum number of results. Zero means DefaultSearchLimit.
	Limit int

	// MinSimilarity discards results below it. Nil means DefaultMinSimilarity.
	MinSimilarity *float64

	// PricingFocus multiplies the score of pricing-bearing chunks before
	// the floor is applied. Values of 1 or less leave scores unchanged.
	PricingFocus float64

	// KeepPricing keeps pricing-bearing chunks that fall below the floor.
	KeepPricing bool
}

// WithMinSimilarity returns a copy of o with the similarity floor set.
func (o SearchOptions) WithMinSimilarity(v float64) SearchOptions {
	o.MinSimilarity = &v
	return o
}

// EffectiveLimit returns Limit or the default.
func (o SearchOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultSearchLimit
	}
	return o.Limit
}

// EffectiveMinSimilarity returns MinSimilarity or the default.
func (o SearchOptions) EffectiveMinSimilarity() float64 {
	if o.MinSimilarity == nil {
		return DefaultMinSimilarity
	}
	return *o.MinSimilarity
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// Document is the matched document.
	Document Document

	// Chunk is the specific chunk that matched.
	Chunk Chunk

	// Score is the cosine similarity, multiplied by the boost factor when
	// Boosted is set.
	Score float64

	// Boosted reports whether a product-pricing boost was applied.
	Boosted bool

	// Focused reports whether the score carries a pricing-focus factor.
	Focused bool
}

// SearchOutcome is the full output of one retrieval pass.
type SearchOutcome struct {
	Results []SearchResult

	// Scanned counts eligible chunks that were scored.
	Scanned int

	// Skipped counts malformed chunks that were ignored.
	Skipped int
}

// Less orders results by descending score, then earlier document creation,
// then lower chunk sequence. Document and chunk IDs break remaining ties.
func (r *SearchResult) Less(other *SearchResult) bool {
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	if !r.Document.CreatedAt.Equal(other.Document.CreatedAt) {
		return r.Document.CreatedAt.Before(other.Document.CreatedAt)
	}
	if r.Chunk.Sequence != other.Chunk.Sequence {
		return r.Chunk.Sequence < other.Chunk.Sequence
	}
	if r.Document.ID != other.Document.ID {
		return r.Document.ID < other.Document.ID
	}
	return r.Chunk.ID < other.Chunk.ID
}

// SortResults sorts results in ranking order.
func SortResults(results []SearchResult) {
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		switch {
		case a.Less(&b):
			return -1
		case b.Less(&a):
			return 1
		}
		return 0
	})
}
