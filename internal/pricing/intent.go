package pricing

import (
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var productMatchPhrases = []string{
	"match", "find price for", "price of", "cost of model", "product price",
	"model pricing", "item cost", "sku price", "part number pricing",
	"product model", "find model", "pricing sheet", "price list",
	"catalog price", "product catalog", "model number", "part #",
	"sku lookup", "product lookup", "price lookup",
}

var pricingPhrases = []string{
	"price", "cost", "quote", "pricing", "how much", "discount", "markup",
	"margin", "fee", "charge", "msrp", "invoice",
}

// DetectIntent classifies a query by keyword. Product matching wins over
// plain pricing.
func DetectIntent(query string) domain.QueryIntent {
	q := strings.ToLower(query)
	for _, p := range productMatchPhrases {
		if strings.Contains(q, p) {
			return domain.IntentProductMatch
		}
	}
	for _, p := range pricingPhrases {
		if strings.Contains(q, p) {
			return domain.IntentPricing
		}
	}
	return domain.IntentGeneral
}

// PricingCandidate reports whether a query should take the product-pricing
// path: it names at least one identifier and asks about prices or products.
func PricingCandidate(query string) bool {
	if DetectIntent(query) == domain.IntentGeneral {
		return false
	}
	return len(Identifiers(query)) > 0
}
