package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// EstimateTokens approximates the token count of s as one token per four
// characters, rounded up.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// Assembler builds the context blob handed to the completion service.
type Assembler struct {
	maxTokens int
}

// NewAssembler creates an assembler. A non-positive default budget falls
// back to domain.DefaultMaxTokens.
func NewAssembler(defaultMaxTokens int) *Assembler {
	if defaultMaxTokens <= 0 {
		defaultMaxTokens = domain.DefaultMaxTokens
	}
	return &Assembler{maxTokens: defaultMaxTokens}
}

func fileHeader(doc *domain.Document) string {
	title := doc.Title
	if title == "" {
		title = doc.Filename
	}
	return fmt.Sprintf("=== FILE: %s (%s) - Type: %s ===\n", title, doc.Filename, strings.ToUpper(string(doc.FileType)))
}

func chunkBlock(r *domain.SearchResult) string {
	return fmt.Sprintf("[Source: %s | chunk %d | relevance %.3f]\n%s\n\n",
		r.Document.Filename, r.Chunk.Sequence, r.Score, r.Chunk.Content)
}

type group struct {
	doc     *domain.Document
	results []*domain.SearchResult
}

// Assemble selects results in the given order until the next one would
// push the estimate past maxTokens, then lays the selection out grouped by
// document. Groups appear in order of each document's first selected result
// and keep relevance order inside. A chunk is either included whole or not
// at all. Headers and markers count against the budget.
func (a *Assembler) Assemble(results []domain.SearchResult, maxTokens int) domain.ContextBlob {
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}
	blob := domain.ContextBlob{MaxTokens: maxTokens}

	var (
		groups  []*group
		byDoc   = make(map[string]*group)
		seen    = make(map[string]bool)
		used    int
		stopped bool
	)
	for i := range results {
		r := &results[i]
		key := chunkKey(r.Document.ID, r.Chunk.ID)
		if seen[key] {
			continue
		}
		if stopped {
			blob.Omitted++
			continue
		}

		cost := EstimateTokens(chunkBlock(r))
		g, known := byDoc[r.Document.ID]
		if !known {
			cost += EstimateTokens(fileHeader(&r.Document))
		}
		if used+cost > maxTokens {
			stopped = true
			blob.Omitted++
			continue
		}

		seen[key] = true
		used += cost
		if !known {
			g = &group{doc: &r.Document}
			byDoc[r.Document.ID] = g
			groups = append(groups, g)
		}
		g.results = append(g.results, r)
		blob.Included++
	}

	var b strings.Builder
	for _, g := range groups {
		b.WriteString(fileHeader(g.doc))
		section := domain.ContextSection{DocumentID: g.doc.ID, Filename: g.doc.Filename}
		for _, r := range g.results {
			b.WriteString(chunkBlock(r))
			section.ChunkIDs = append(section.ChunkIDs, r.Chunk.ID)
			section.Scores = append(section.Scores, r.Score)
		}
		blob.Sections = append(blob.Sections, section)
	}

	blob.Text = strings.TrimRight(b.String(), "\n")
	blob.Tokens = EstimateTokens(blob.Text)
	return blob
}
