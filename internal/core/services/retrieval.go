package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/metrics"
	"github.com/custodia-labs/docquery/internal/pricing"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalConfig holds the retrieval defaults applied when a call leaves
// an option unset.
type RetrievalConfig struct {
	Limit         int
	MinSimilarity float64
	MaxTokens     int

	// PricingLimit is the size of the candidate set retrieved before the
	// product-pricing matcher re-ranks it.
	PricingLimit int

	// PricingFocus scales pricing-bearing chunks for auto-mode pricing
	// questions without identifiers.
	PricingFocus float64

	// PricingSearchBoost scales pricing-bearing chunks in pricing_search mode.
	PricingSearchBoost float64
}

// DefaultRetrievalConfig returns the default retrieval settings.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Limit:         domain.DefaultSearchLimit,
		MinSimilarity: domain.DefaultMinSimilarity,
		MaxTokens:     domain.DefaultMaxTokens,
		PricingLimit:  domain.DefaultPricingLimit,

		PricingFocus:       domain.DefaultPricingFocus,
		PricingSearchBoost: domain.DefaultPricingSearchBoost,
	}
}

// RetrievalService combines embedding, search, product-pricing matching
// and context assembly.
type RetrievalService struct {
	embedder  *Embedder
	retriever *Retriever
	matcher   *Matcher
	assembler *Assembler
	cfg       RetrievalConfig
	metrics   *metrics.Metrics
}

// NewRetrievalService creates a new retrieval service. The metrics may be nil.
func NewRetrievalService(
	embedder *Embedder,
	retriever *Retriever,
	matcher *Matcher,
	assembler *Assembler,
	cfg RetrievalConfig,
	m *metrics.Metrics,
) *RetrievalService {
	if cfg.Limit <= 0 {
		cfg.Limit = domain.DefaultSearchLimit
	}
	if cfg.PricingLimit < cfg.Limit {
		cfg.PricingLimit = max(cfg.Limit, domain.DefaultPricingLimit)
	}
	if cfg.PricingFocus == 0 {
		cfg.PricingFocus = domain.DefaultPricingFocus
	}
	if cfg.PricingSearchBoost == 0 {
		cfg.PricingSearchBoost = domain.DefaultPricingSearchBoost
	}
	return &RetrievalService{
		embedder:  embedder,
		retriever: retriever,
		matcher:   matcher,
		assembler: assembler,
		cfg:       cfg,
		metrics:   m,
	}
}

func (s *RetrievalService) withDefaults(opts domain.SearchOptions) domain.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.Limit
	}
	if opts.MinSimilarity == nil {
		opts = opts.WithMinSimilarity(s.cfg.MinSimilarity)
	}
	return opts
}

// Search embeds the query and returns ranked results.
func (s *RetrievalService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchOutcome, error) {
	opts = s.withDefaults(opts)
	_, outcome, err := s.search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSearch("standard", len(outcome.Results), outcome.Skipped)
	return outcome, nil
}

func (s *RetrievalService) search(ctx context.Context, query string, opts domain.SearchOptions) ([]float32, *domain.SearchOutcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	logger.Section("Search")
	logger.Debug("Query: %q (limit %d, min similarity %.2f)", query, opts.EffectiveLimit(), opts.EffectiveMinSimilarity())

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if errors.Is(err, domain.ErrNoIndexableContent) {
		logger.Debug("Query has no indexable content")
		return nil, &domain.SearchOutcome{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	outcome, err := s.retriever.Search(ctx, vec, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Scanned %d chunks, %d results, %d skipped", outcome.Scanned, len(outcome.Results), outcome.Skipped)
	return vec, outcome, nil
}

// Retrieve searches and assembles the context. In auto mode the pricing
// path is taken when the query names identifiers and asks about pricing or
// product matching; a pricing question without identifiers runs a standard
// search with pricing-bearing chunks scaled by the pricing focus.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	mode := opts.Mode
	if mode == "" {
		mode = domain.RetrievalStandard
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, mode)
	}
	intent := pricing.DetectIntent(query)

	searchOpts := s.withDefaults(opts.Search)
	switch mode {
	case domain.RetrievalAuto:
		mode = domain.RetrievalStandard
		if pricing.PricingCandidate(query) {
			return s.MatchPricing(ctx, query, opts)
		}
		if intent == domain.IntentPricing {
			searchOpts.PricingFocus = s.cfg.PricingFocus
		}
	case domain.RetrievalPricing:
		return s.MatchPricing(ctx, query, opts)
	case domain.RetrievalPricingSearch:
		searchOpts.PricingFocus = s.cfg.PricingSearchBoost
		searchOpts.KeepPricing = true
	}

	_, outcome, err := s.search(ctx, query, searchOpts)
	if err != nil {
		return nil, err
	}
	variant := "standard"
	if mode == domain.RetrievalPricingSearch {
		variant = "pricing_search"
	}
	s.metrics.RecordSearch(variant, len(outcome.Results), outcome.Skipped)

	r := &driving.Retrieval{
		Query:   query,
		Intent:  intent,
		Mode:    mode,
		Results: outcome.Results,
		Scanned: outcome.Scanned,
		Skipped: outcome.Skipped,
	}
	if searchOpts.PricingFocus > 1 {
		r.PricingFocus = searchOpts.PricingFocus
	}
	r.Context = s.assemble(r.Results, opts.MaxTokens)
	return r, nil
}

// MatchPricing retrieves a wider candidate set, applies the product-pricing
// matcher and assembles the context from the re-ranked results.
func (s *RetrievalService) MatchPricing(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	final := s.withDefaults(opts.Search)
	wide := final
	wide.Limit = max(s.cfg.PricingLimit, final.Limit)

	vec, outcome, err := s.search(ctx, query, wide)
	if err != nil {
		return nil, err
	}

	match := &domain.MatchOutcome{Results: outcome.Results}
	if vec != nil {
		if match, err = s.matcher.Match(ctx, query, vec, outcome.Results, final); err != nil {
			return nil, fmt.Errorf("match pricing: %w", err)
		}
	}
	results := match.Results
	if len(results) > final.Limit {
		results = results[:final.Limit]
	}
	match.Results = results

	s.metrics.RecordSearch("pricing", len(results), outcome.Skipped+match.Skipped)
	s.metrics.RecordBoosts(match.Boosted)

	r := &driving.Retrieval{
		Query:   query,
		Intent:  pricing.DetectIntent(query),
		Mode:    domain.RetrievalPricing,
		Results: results,
		Scanned: outcome.Scanned,
		Skipped: outcome.Skipped + match.Skipped,
		Match:   match,
	}
	r.Context = s.assemble(results, opts.MaxTokens)
	return r, nil
}

func (s *RetrievalService) assemble(results []domain.SearchResult, maxTokens int) domain.ContextBlob {
	if maxTokens <= 0 {
		maxTokens = s.cfg.MaxTokens
	}
	blob := s.assembler.Assemble(results, maxTokens)
	s.metrics.RecordContext(blob.Tokens)
	logger.Debug("Context: %d chunks, %d tokens, %d omitted", blob.Included, blob.Tokens, blob.Omitted)
	return blob
}
