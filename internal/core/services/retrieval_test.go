package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

func indexCatalog(t *testing.T, e *testEngine) {
	t.Helper()
	report, err := e.ingest.IndexDocuments(context.Background(), []domain.IngestRequest{
		textRequest("spec", "xr200-spec.txt", "The XR-200 laptop has a long battery life and a two year warranty."),
		textRequest("prices", "prices.csv", "Model, Price\nXR 200, $1,299\nBL-900 blender, $89"),
		textRequest("faq", "faq.md", "Shipping is free for orders over fifty dollars."),
	})
	require.NoError(t, err)
	require.Equal(t, 3, report.Indexed)
}

func TestRetrievalService_Search(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	outcome, err := e.retrieval.Search(context.Background(), "battery warranty", domain.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)
	assert.Equal(t, "spec", outcome.Results[0].Document.ID)
	assert.Empty(t, outcome.Results[0].Document.Content)
	assert.Equal(t, 3, outcome.Scanned)
}

func TestRetrievalService_SearchEmptyQuery(t *testing.T) {
	e := newTestEngine(t, 1000, 200)

	_, err := e.retrieval.Search(context.Background(), "  ", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_SearchEmptyIndex(t *testing.T) {
	e := newTestEngine(t, 1000, 200)

	outcome, err := e.retrieval.Search(context.Background(), "battery", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)
}

func TestRetrievalService_RetrieveStandard(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.Retrieve(context.Background(), "battery warranty", driving.RetrieveOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalStandard, r.Mode)
	assert.Nil(t, r.Match)
	assert.Contains(t, r.Context.Text, "=== FILE: xr200-spec (xr200-spec.txt) - Type: TXT ===")
	assert.LessOrEqual(t, r.Context.Tokens, domain.DefaultMaxTokens)
}

func TestRetrievalService_RetrieveInvalidMode(t *testing.T) {
	e := newTestEngine(t, 1000, 200)

	_, err := e.retrieval.Retrieve(context.Background(), "battery", driving.RetrieveOptions{Mode: "fuzzy"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_AutoModeMatchesPricing(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.Retrieve(context.Background(), "What is the price of the XR-200 laptop?",
		driving.RetrieveOptions{Mode: domain.RetrievalAuto})
	require.NoError(t, err)

	assert.Equal(t, domain.RetrievalPricing, r.Mode)
	assert.Equal(t, domain.IntentProductMatch, r.Intent)
	require.NotNil(t, r.Match)
	require.NotEmpty(t, r.Match.Records)
	assert.Equal(t, "prices", r.Match.Records[0].Pricing.Document.ID)
	assert.Equal(t, "XR200", r.Match.Records[0].Identifier.Normalized)

	// Both sides of the match lead the ranking and reach the context.
	require.GreaterOrEqual(t, len(r.Results), 2)
	top := []string{r.Results[0].Document.ID, r.Results[1].Document.ID}
	assert.ElementsMatch(t, []string{"spec", "prices"}, top)
	assert.True(t, r.Results[0].Boosted)
	assert.True(t, r.Results[1].Boosted)
	assert.Contains(t, r.Context.Text, "(prices.csv)")
	assert.Contains(t, r.Context.Text, "(xr200-spec.txt)")
}

func TestRetrievalService_AutoModeGeneralQuery(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.Retrieve(context.Background(), "how long does the battery last",
		driving.RetrieveOptions{Mode: domain.RetrievalAuto})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalStandard, r.Mode)
}

func TestRetrievalService_MatchPricingRespectsLimit(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.MatchPricing(context.Background(), "price of XR-200",
		driving.RetrieveOptions{Search: domain.SearchOptions{Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, r.Results, 1)
	assert.True(t, r.Results[0].Boosted)
}

func TestRetrievalService_MaxTokens(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.Retrieve(context.Background(), "battery warranty",
		driving.RetrieveOptions{MaxTokens: 5, Search: domain.SearchOptions{}.WithMinSimilarity(0)})
	require.NoError(t, err)
	assert.Empty(t, r.Context.Text)
	assert.Equal(t, len(r.Results), r.Context.Omitted)
}

func TestRetrievalService_QueryWithoutIndexableContent(t *testing.T) {
	e := newHashingEngine(t)
	report, err := e.ingest.IndexDocuments(context.Background(), []domain.IngestRequest{
		textRequest("a", "a.txt", "The XR200 unit supports 4K output."),
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Indexed)

	outcome, err := e.retrieval.Search(context.Background(), "what is this?", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)

	r, err := e.retrieval.Retrieve(context.Background(), "what is this?", driving.RetrieveOptions{Mode: domain.RetrievalAuto})
	require.NoError(t, err)
	assert.Empty(t, r.Results)
	assert.Empty(t, r.Context.Text)
}

func TestRetrievalService_AutoModeFocusesPricingQuestions(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	r, err := e.retrieval.Retrieve(context.Background(), "how much does shipping cost",
		driving.RetrieveOptions{Mode: domain.RetrievalAuto, Search: domain.SearchOptions{}.WithMinSimilarity(0)})
	require.NoError(t, err)

	assert.Equal(t, domain.RetrievalStandard, r.Mode)
	assert.Equal(t, domain.IntentPricing, r.Intent)
	assert.Nil(t, r.Match)
	assert.InDelta(t, domain.DefaultPricingFocus, r.PricingFocus, 1e-9)

	focused := make(map[string]bool)
	for _, res := range r.Results {
		focused[res.Document.ID] = res.Focused
	}
	assert.Equal(t, map[string]bool{"spec": false, "prices": true, "faq": false}, focused)
}

func TestRetrievalService_PricingSearchKeepsPricingChunks(t *testing.T) {
	e := newTestEngine(t, 1000, 200)
	indexCatalog(t, e)

	standard, err := e.retrieval.Retrieve(context.Background(), "shipping",
		driving.RetrieveOptions{Mode: domain.RetrievalStandard})
	require.NoError(t, err)
	for _, res := range standard.Results {
		assert.NotEqual(t, "prices", res.Document.ID)
	}

	r, err := e.retrieval.Retrieve(context.Background(), "shipping",
		driving.RetrieveOptions{Mode: domain.RetrievalPricingSearch})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalPricingSearch, r.Mode)
	assert.InDelta(t, domain.DefaultPricingSearchBoost, r.PricingFocus, 1e-9)

	require.NotEmpty(t, r.Results)
	assert.Equal(t, "faq", r.Results[0].Document.ID)
	var kept *domain.SearchResult
	for i := range r.Results {
		if r.Results[i].Document.ID == "prices" {
			kept = &r.Results[i]
		}
	}
	require.NotNil(t, kept)
	assert.True(t, kept.Focused)
	assert.Less(t, kept.Score, domain.DefaultMinSimilarity)
}

// rawScores returns unboosted similarity per document for query.
func rawScores(t *testing.T, e *testEngine, query string) map[string]float64 {
	t.Helper()
	outcome, err := e.retrieval.Search(context.Background(), query, domain.SearchOptions{}.WithMinSimilarity(-1))
	require.NoError(t, err)
	scores := make(map[string]float64, len(outcome.Results))
	for _, res := range outcome.Results {
		scores[res.Document.ID] = res.Score
	}
	return scores
}

func TestRetrievalService_PriceOfModelRanksPricingFileFirst(t *testing.T) {
	e := newHashingEngine(t)
	report, err := e.ingest.IndexDocuments(context.Background(), []domain.IngestRequest{
		textRequest("a", "a.txt", "The XR200 unit supports 4K output."),
		textRequest("b", "b.txt", "XR200 — Price: $299.99, Model: XR200."),
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Indexed)

	query := "price of XR200"
	raw := rawScores(t, e, query)

	r, err := e.retrieval.Retrieve(context.Background(), query, driving.RetrieveOptions{Mode: domain.RetrievalAuto})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalPricing, r.Mode)

	require.NotEmpty(t, r.Results)
	top := r.Results[0]
	assert.Equal(t, "b", top.Document.ID)
	assert.True(t, top.Boosted)
	assert.Greater(t, top.Score, raw["b"])
	assert.InDelta(t, raw["b"]*domain.DefaultBoostFactor, top.Score, 1e-6)

	require.NotNil(t, r.Match)
	require.NotEmpty(t, r.Match.Records)
	assert.Equal(t, "b", r.Match.Records[0].Pricing.Document.ID)
	assert.Equal(t, "XR200", r.Match.Records[0].Identifier.Normalized)
}

func TestRetrievalService_PricingChunkBoostedAcrossFiles(t *testing.T) {
	e := newHashingEngine(t)
	report, err := e.ingest.IndexDocuments(context.Background(), []domain.IngestRequest{
		textRequest("prices", "prices.txt", "Part ABC-123 costs $45.00 each."),
		textRequest("spec", "spec.txt", "Model ABC123 specifications"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Indexed)

	query := "ABC123 pricing"
	raw := rawScores(t, e, query)

	r, err := e.retrieval.Retrieve(context.Background(), query, driving.RetrieveOptions{Mode: domain.RetrievalAuto})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalPricing, r.Mode)

	var priced *domain.SearchResult
	for i := range r.Results {
		if r.Results[i].Document.ID == "prices" {
			priced = &r.Results[i]
		}
	}
	require.NotNil(t, priced)
	assert.True(t, priced.Boosted)
	assert.Greater(t, priced.Score, raw["prices"])

	require.NotNil(t, r.Match)
	require.NotEmpty(t, r.Match.Records)
	rec := r.Match.Records[0]
	assert.Equal(t, "ABC123", rec.Identifier.Normalized)
	assert.Equal(t, "prices", rec.Pricing.Document.ID)
}
