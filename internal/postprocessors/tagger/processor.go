// Package tagger attaches structural tags to chunks after chunking.
package tagger

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/pricing"
)

// NumericShare is the minimum share of digits among non-space runes for a
// chunk to be tagged numeric.
const NumericShare = 0.3

var delimiters = []string{",", "\t", "|", ";"}

// Processor tags chunks as numeric, tabular, pricing or identifier-bearing.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a new tagger processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tagger"
}

// Process sets Tags on every chunk. Existing tags are replaced.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Tags = Tags(doc.Kind, chunks[i].Content)
	}
	return chunks, nil
}

// Tags returns the tags for one chunk of a document of the given kind.
func Tags(kind domain.DocumentKind, text string) []domain.ChunkTag {
	var tags []domain.ChunkTag
	if isNumeric(text) {
		tags = append(tags, domain.TagNumeric)
	}
	if isTabular(text) {
		tags = append(tags, domain.TagTabular)
	}
	if kind.PricingSource() || pricing.IsPricingText(text) {
		tags = append(tags, domain.TagPricing)
	}
	if len(pricing.Identifiers(text)) > 0 {
		tags = append(tags, domain.TagIdentifier)
	}
	return tags
}

func isNumeric(text string) bool {
	var digits, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return total > 0 && float64(digits)/float64(total) >= NumericShare
}

// isTabular reports whether at least two non-empty lines share the same
// positive count of one delimiter.
func isTabular(text string) bool {
	lines := strings.Split(text, "\n")
	for _, d := range delimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if n := strings.Count(line, d); n > 0 {
				counts[n]++
				if counts[n] >= 2 {
					return true
				}
			}
		}
	}
	return false
}
