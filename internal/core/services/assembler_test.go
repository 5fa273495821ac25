package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func result(docID, filename string, seq int, content string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Document: domain.Document{
			ID:        docID,
			Filename:  filename,
			Title:     strings.TrimSuffix(filename, ".txt"),
			FileType:  domain.FileTypeText,
			CreatedAt: time.Unix(0, 0),
		},
		Chunk: domain.Chunk{
			ID:         fmt.Sprintf("%s#%04d", docID, seq),
			DocumentID: docID,
			Sequence:   seq,
			Content:    content,
		},
		Score: score,
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("日本語"), "counts characters, not bytes")
}

func TestAssembler_Layout(t *testing.T) {
	a := NewAssembler(0)
	blob := a.Assemble([]domain.SearchResult{
		result("doc-1", "manual.txt", 2, "Battery lasts ten hours.", 0.91),
	}, 1000)

	assert.Equal(t,
		"=== FILE: manual (manual.txt) - Type: TXT ===\n"+
			"[Source: manual.txt | chunk 2 | relevance 0.910]\n"+
			"Battery lasts ten hours.",
		blob.Text)
	assert.Equal(t, 1, blob.Included)
	assert.Equal(t, EstimateTokens(blob.Text), blob.Tokens)
	assert.Equal(t, 1000, blob.MaxTokens)
}

func TestAssembler_GroupsByDocumentInFirstAppearanceOrder(t *testing.T) {
	blob := NewAssembler(0).Assemble([]domain.SearchResult{
		result("doc-b", "b.txt", 0, "b zero", 0.9),
		result("doc-a", "a.txt", 1, "a one", 0.8),
		result("doc-b", "b.txt", 3, "b three", 0.7),
	}, 1000)

	assert.Equal(t, []string{"doc-b", "doc-a"}, blob.DocumentIDs())
	assert.Equal(t, []string{"doc-b#0000", "doc-b#0003", "doc-a#0001"}, blob.ChunkIDs())
	assert.Equal(t, 1, strings.Count(blob.Text, "=== FILE: b"))
	assert.Less(t, strings.Index(blob.Text, "b three"), strings.Index(blob.Text, "=== FILE: a"))
}

func TestAssembler_RespectsBudget(t *testing.T) {
	var results []domain.SearchResult
	for i := 0; i < 20; i++ {
		results = append(results, result("doc-1", "long.doc", i, strings.Repeat("x", 400), 0.9-float64(i)*0.01))
	}

	for _, budget := range []int{1, 50, 150, 500, 1000} {
		blob := NewAssembler(0).Assemble(results, budget)
		assert.LessOrEqual(t, blob.Tokens, budget, "budget %d", budget)
		assert.Equal(t, len(results), blob.Included+blob.Omitted, "budget %d", budget)

		// Chunks appear whole or not at all.
		for _, r := range results[:blob.Included] {
			assert.Contains(t, blob.Text, fmt.Sprintf("chunk %d |", r.Chunk.Sequence))
		}
		assert.Equal(t, blob.Included*400, strings.Count(blob.Text, "x"), "budget %d", budget)
	}
}

func TestAssembler_StopsAtFirstOverflow(t *testing.T) {
	results := []domain.SearchResult{
		result("doc-1", "a.txt", 0, strings.Repeat("a", 200), 0.9),
		result("doc-1", "a.txt", 1, strings.Repeat("b", 2000), 0.8),
		result("doc-1", "a.txt", 2, "small", 0.7),
	}
	blob := NewAssembler(0).Assemble(results, 200)

	require.Equal(t, 1, blob.Included)
	assert.Equal(t, 2, blob.Omitted)
	assert.NotContains(t, blob.Text, "small", "lower-ranked chunks are not backfilled")
}

func TestAssembler_SkipsDuplicates(t *testing.T) {
	r := result("doc-1", "a.txt", 0, "same", 0.9)
	blob := NewAssembler(0).Assemble([]domain.SearchResult{r, r}, 1000)

	assert.Equal(t, 1, blob.Included)
	assert.Equal(t, 1, strings.Count(blob.Text, "same"))
}

func TestAssembler_Empty(t *testing.T) {
	blob := NewAssembler(0).Assemble(nil, 0)
	assert.Empty(t, blob.Text)
	assert.Zero(t, blob.Tokens)
	assert.Equal(t, domain.DefaultMaxTokens, blob.MaxTokens)
}
