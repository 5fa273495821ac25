package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// RetrieveOptions configures a retrieve+build-context call.
type RetrieveOptions struct {
	// Search configures the similarity search.
	Search domain.SearchOptions

	// MaxTokens is the context budget. Zero means the configured default.
	MaxTokens int

	// Mode selects the retrieval path. Empty means standard.
	Mode domain.RetrievalMode
}

// Retrieval is the output of a retrieve+build-context call.
type Retrieval struct {
	Query  string
	Intent domain.QueryIntent

	// Mode is the path actually taken.
	Mode domain.RetrievalMode

	// Results are the final ranked results.
	Results []domain.SearchResult

	// Scanned and Skipped count chunks scored and malformed chunks ignored.
	Scanned int
	Skipped int

	// Match is set when the product-pricing matcher ran.
	Match *domain.MatchOutcome

	// PricingFocus is the factor applied to pricing-bearing chunks, 0 when
	// none was.
	PricingFocus float64

	Context domain.ContextBlob
}

// RetrievalService exposes search and context assembly to callers.
type RetrievalService interface {
	// Search embeds the query and returns ranked results.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchOutcome, error)

	// Retrieve searches and assembles the context blob.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) (*Retrieval, error)

	// MatchPricing runs search followed by the product-pricing matcher and
	// assembles the context from the boosted results.
	MatchPricing(ctx context.Context, query string, opts RetrieveOptions) (*Retrieval, error)
}
