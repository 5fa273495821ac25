package domain

// PatternClass tags how an identifier was recognised.
type PatternClass string

const (
	// PatternLabelled is a token preceded by a label such as "Model" or "SKU".
	PatternLabelled PatternClass = "labelled"
	// PatternHyphenated is a letter/digit token with internal hyphens or spaces.
	PatternHyphenated PatternClass = "hyphenated"
	// PatternAlphanumeric is a plain run mixing letters and digits.
	PatternAlphanumeric PatternClass = "alphanumeric"
	// PatternPrice is a currency-adjacent numeric token. Price tokens are
	// reported but never used for identifier equality.
	PatternPrice PatternClass = "price"
)

// Confidence returns the default confidence of the class.
func (p PatternClass) Confidence() float64 {
	switch p {
	case PatternLabelled:
		return 0.95
	case PatternHyphenated:
		return 0.8
	case PatternAlphanumeric:
		return 0.7
	case PatternPrice:
		return 0.6
	}
	return 0
}

// IdentifierMatch is a candidate product identifier found in text.
type IdentifierMatch struct {
	// Raw is the text as it appeared.
	Raw string

	// Normalized is the folded form used for equality.
	Normalized string

	// Class is the pattern class that recognised the token.
	Class PatternClass

	// Confidence is in [0, 1].
	Confidence float64

	// DocumentID and ChunkID locate the originating chunk. Both are empty
	// for matches extracted from a query.
	DocumentID string
	ChunkID    string

	// Start and End are rune offsets within the chunk text.
	Start int
	End   int
}

// MatchedPricingRecord pairs an identifier in a non-pricing chunk with a
// pricing-bearing chunk from elsewhere that names the same identifier.
type MatchedPricingRecord struct {
	Identifier IdentifierMatch
	Pricing    SearchResult

	// Score is the combined relevance of both sides.
	Score float64
}

// QueryIntent is the coarse purpose of a query.
type QueryIntent string

const (
	IntentGeneral      QueryIntent = "general"
	IntentPricing      QueryIntent = "pricing"
	IntentProductMatch QueryIntent = "product_match"
)

// MatchOutcome is the result of a product-pricing pass.
type MatchOutcome struct {
	// Results are the re-ranked results.
	Results []SearchResult

	// QueryIdentifiers are the identifiers extracted from the query.
	QueryIdentifiers []IdentifierMatch

	// Records are the cross-references found.
	Records []MatchedPricingRecord

	// Boosted counts chunks whose score was multiplied.
	Boosted int

	// Skipped counts malformed chunks ignored during the wider pass.
	Skipped int
}
