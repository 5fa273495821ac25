package pricing

import (
	"regexp"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	currencySymbol = regexp.MustCompile(`\p{Sc}`)

	// A price word followed by a number, e.g. "Price: 299" or "total = EUR 40".
	labelBeforeNumber = regexp.MustCompile(`(?i)\b(?:price|prices|pricing|cost|costs|rate|quote|amount|total|subtotal|msrp|fee|fees|charge|discount|list\s+price|unit\s+price)\b\s*[:=\-]?\s*(?:usd|eur|gbp)?\s*\d`)

	// A number followed by a currency word, e.g. "299.99 USD".
	numberBeforeLabel = regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d+)?\s*(?:usd|eur|gbp|dollars?|euros?|per\s+unit|each)\b`)
)

// IsPricingText reports whether text contains pricing content: a currency
// symbol, or a numeric token adjacent to a price-indicating word.
func IsPricingText(text string) bool {
	return currencySymbol.MatchString(text) ||
		labelBeforeNumber.MatchString(text) ||
		numberBeforeLabel.MatchString(text)
}

// IsPricingChunk reports whether a chunk is pricing-bearing. Every chunk of
// a price list or catalog qualifies. A chunk already tagged pricing at
// ingestion qualifies without re-scanning its text.
func IsPricingChunk(kind domain.DocumentKind, chunk *domain.Chunk) bool {
	if kind.PricingSource() || chunk.HasTag(domain.TagPricing) {
		return true
	}
	return IsPricingText(chunk.Content)
}
