package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// FilterInput restricts which chunks a tool may consider.
type FilterInput struct {
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"only search these documents"`
	FileTypes   []string `json:"file_types,omitempty" jsonschema:"only search these file types (pdf, docx, csv, ...)"`
	OwnerIDs    []string `json:"owner_ids,omitempty" jsonschema:"only search documents of these owners"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query         string      `json:"query" jsonschema:"the search query to find document chunks"`
	Limit         int         `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	MinSimilarity *float64    `json:"min_similarity,omitempty" jsonschema:"discard results scoring below this cosine similarity (default 0.3)"`
	Filter        FilterInput `json:"filter,omitempty" jsonschema:"optional filter"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Scanned int                  `json:"scanned"`
	Skipped int                  `json:"skipped"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Title      string  `json:"title"`
	ChunkID    string  `json:"chunk_id"`
	Sequence   int     `json:"sequence"`
	Score      float64 `json:"score"`
	Boosted    bool    `json:"boosted,omitempty"`
	Focused    bool    `json:"focused,omitempty"`
	Content    string  `json:"content,omitempty"`
}

// ContextInput is the input schema for the build_context tool.
type ContextInput struct {
	SearchInput
	MaxTokens int    `json:"max_tokens,omitempty" jsonschema:"token budget of the assembled context (default 16000)"`
	Mode      string `json:"mode,omitempty" jsonschema:"retrieval mode: standard, pricing, pricing_search or auto (default standard)"`
}

// ContextOutput is the output schema for the build_context and match_pricing tools.
type ContextOutput struct {
	Intent    string               `json:"intent"`
	Mode      string               `json:"mode"`
	Context   string               `json:"context"`
	Tokens    int                  `json:"tokens"`
	MaxTokens int                  `json:"max_tokens"`
	Included  int                  `json:"included"`
	Omitted   int                  `json:"omitted"`
	Results   []SearchResultOutput `json:"results"`
	Matches   []PricingMatchOutput `json:"matches,omitempty"`
}

// PricingMatchOutput is one identifier cross-referenced with a pricing chunk.
type PricingMatchOutput struct {
	Identifier      string  `json:"identifier"`
	SourceDocument  string  `json:"source_document_id"`
	PricingDocument string  `json:"pricing_document_id"`
	PricingChunk    string  `json:"pricing_chunk_id"`
	Score           float64 `json:"score"`
}

// StatsInput is the input schema for the index_stats tool.
type StatsInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"restrict statistics to one owner"`
}

// StatsOutput is the output schema for the index_stats tool.
type StatsOutput struct {
	Documents       int            `json:"documents"`
	Indexed         int            `json:"indexed"`
	Failed          int            `json:"failed"`
	Pending         int            `json:"pending"`
	Chunks          int            `json:"chunks"`
	EmbeddedChunks  int            `json:"embedded_chunks"`
	EstimatedTokens int            `json:"estimated_tokens"`
	IndexingRate    float64        `json:"indexing_rate"`
	Dimensions      int            `json:"dimensions"`
	ByFileType      map[string]int `json:"by_file_type,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search across indexed document chunks",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_context",
		Description: "Retrieve relevant chunks and assemble them into a token-budgeted context",
	}, s.handleBuildContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "match_pricing",
		Description: "Cross-reference product identifiers in the results with pricing documents",
	}, s.handleMatchPricing)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_stats",
			Description: "Summarise the document index",
		}, s.handleStats)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	outcome, err := s.ports.Retrieval.Search(ctx, input.Query, input.searchOptions())
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: toResultOutputs(outcome.Results),
		Count:   len(outcome.Results),
		Scanned: outcome.Scanned,
		Skipped: outcome.Skipped,
	}, nil
}

// handleBuildContext handles the build_context tool invocation.
func (s *Server) handleBuildContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	mode := domain.RetrievalMode(input.Mode)
	if mode == "" {
		mode = domain.RetrievalStandard
	}
	if !mode.IsValid() {
		return nil, ContextOutput{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, input.Mode)
	}

	retrieval, err := s.ports.Retrieval.Retrieve(ctx, input.Query, driving.RetrieveOptions{
		Search:    input.searchOptions(),
		MaxTokens: input.MaxTokens,
		Mode:      mode,
	})
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, toContextOutput(retrieval), nil
}

// handleMatchPricing handles the match_pricing tool invocation.
func (s *Server) handleMatchPricing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	retrieval, err := s.ports.Retrieval.MatchPricing(ctx, input.Query, driving.RetrieveOptions{
		Search:    input.searchOptions(),
		MaxTokens: input.MaxTokens,
		Mode:      domain.RetrievalPricing,
	})
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, toContextOutput(retrieval), nil
}

// handleStats handles the index_stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Ingest.Stats(ctx, input.OwnerID)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	out := StatsOutput{
		Documents:       stats.Documents,
		Indexed:         stats.Indexed,
		Failed:          stats.Failed,
		Pending:         stats.Pending,
		Chunks:          stats.Chunks,
		EmbeddedChunks:  stats.EmbeddedChunks,
		EstimatedTokens: stats.EstimatedTokens,
		IndexingRate:    stats.IndexingRate,
		Dimensions:      stats.Dimensions,
	}
	if len(stats.ByFileType) > 0 {
		out.ByFileType = make(map[string]int, len(stats.ByFileType))
		for ft, n := range stats.ByFileType {
			out.ByFileType[string(ft)] = n
		}
	}
	return nil, out, nil
}

func (in SearchInput) searchOptions() domain.SearchOptions {
	opts := domain.SearchOptions{
		Limit:         in.Limit,
		MinSimilarity: in.MinSimilarity,
		Filter: domain.ChunkFilter{
			DocumentIDs: in.Filter.DocumentIDs,
			OwnerIDs:    in.Filter.OwnerIDs,
		},
	}
	for _, ft := range in.Filter.FileTypes {
		opts.Filter.FileTypes = append(opts.Filter.FileTypes, domain.FileType(ft))
	}
	return opts
}

func toResultOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i := range results {
		r := &results[i]
		out[i] = SearchResultOutput{
			DocumentID: r.Document.ID,
			Filename:   r.Document.Filename,
			Title:      r.Document.Title,
			ChunkID:    r.Chunk.ID,
			Sequence:   r.Chunk.Sequence,
			Score:      r.Score,
			Boosted:    r.Boosted,
			Focused:    r.Focused,
			Content:    r.Chunk.Content,
		}
	}
	return out
}

func toContextOutput(r *driving.Retrieval) ContextOutput {
	out := ContextOutput{
		Intent:    string(r.Intent),
		Mode:      string(r.Mode),
		Context:   r.Context.Text,
		Tokens:    r.Context.Tokens,
		MaxTokens: r.Context.MaxTokens,
		Included:  r.Context.Included,
		Omitted:   r.Context.Omitted,
		Results:   toResultOutputs(r.Results),
	}
	if r.Match != nil {
		for _, rec := range r.Match.Records {
			out.Matches = append(out.Matches, PricingMatchOutput{
				Identifier:      rec.Identifier.Normalized,
				SourceDocument:  rec.Identifier.DocumentID,
				PricingDocument: rec.Pricing.Document.ID,
				PricingChunk:    rec.Pricing.Chunk.ID,
				Score:           rec.Score,
			})
		}
	}
	return out
}
