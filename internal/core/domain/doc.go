// Package domain defines the core business entities for docquery.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded file with lifecycle status
//   - Chunk: A contiguous slice of a document's text with its vector
//   - SearchResult: One scored chunk produced per query
//   - IdentifierMatch, MatchedPricingRecord: Product/pricing cross-references
//   - ContextBlob: The token-budgeted text handed to the completion service
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
