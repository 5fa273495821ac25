package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// searchFlags are shared by search, context, price and ask.
type searchFlags struct {
	limit         int
	minSimilarity float64
	documents     []string
	fileTypes     []string
	owners        []string
	json          bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum number of results (default from config)")
	cmd.Flags().Float64Var(&f.minSimilarity, "min-similarity", 0, "discard results scoring below this (default from config)")
	cmd.Flags().StringSliceVar(&f.documents, "doc", nil, "only search these document IDs")
	cmd.Flags().StringSliceVar(&f.fileTypes, "type", nil, "only search these file types")
	cmd.Flags().StringSliceVar(&f.owners, "owner", nil, "only search documents of these owners")
	cmd.Flags().BoolVar(&f.json, "json", false, "output as JSON")
}

func (f *searchFlags) options(cmd *cobra.Command) (domain.SearchOptions, error) {
	opts := domain.SearchOptions{
		Limit: f.limit,
		Filter: domain.ChunkFilter{
			DocumentIDs: f.documents,
			OwnerIDs:    f.owners,
		},
	}
	if cmd.Flags().Changed("min-similarity") {
		opts = opts.WithMinSimilarity(f.minSimilarity)
	}
	for _, t := range f.fileTypes {
		ft, err := domain.ParseFileType(t)
		if err != nil {
			return opts, err
		}
		opts.Filter.FileTypes = append(opts.Filter.FileTypes, ft)
	}
	return opts, nil
}

func (f *searchFlags) reset() {
	*f = searchFlags{}
}

var (
	searchOpts  searchFlags
	contextOpts searchFlags
	priceOpts   searchFlags

	contextMaxTokens int
	contextMode      string
	priceMaxTokens   int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and ranks every stored chunk by cosine similarity.
Results below the similarity floor are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Build a token-budgeted context for a query",
	Long: `Retrieves the most relevant chunks and assembles them, grouped by file, into
the context that would be handed to a language model.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

var priceCmd = &cobra.Command{
	Use:   "price [query]",
	Short: "Cross-reference products with price lists",
	Long: `Runs a search, extracts product identifiers from the results and from the
query, and boosts pricing chunks from other documents that name the same
identifiers. XR-200 and XR200 match; XR-2000 does not.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrice,
}

func init() {
	searchOpts.register(searchCmd)
	contextOpts.register(contextCmd)
	contextCmd.Flags().IntVar(&contextMaxTokens, "max-tokens", 0, "context budget in tokens (default from config)")
	contextCmd.Flags().StringVar(&contextMode, "mode", string(domain.RetrievalStandard), "retrieval mode: standard, pricing, pricing_search or auto")
	priceOpts.register(priceCmd)
	priceCmd.Flags().IntVar(&priceMaxTokens, "max-tokens", 0, "context budget in tokens (default from config)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(priceCmd)
}

// searchResultJSON is the JSON shape of a result.
type searchResultJSON struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkID    string  `json:"chunk_id"`
	Sequence   int     `json:"sequence"`
	Score      float64 `json:"score"`
	Boosted    bool    `json:"boosted,omitempty"`
	Focused    bool    `json:"focused,omitempty"`
	Content    string  `json:"content"`
}

func toResultsJSON(results []domain.SearchResult) []searchResultJSON {
	out := make([]searchResultJSON, len(results))
	for i := range results {
		r := &results[i]
		out[i] = searchResultJSON{
			DocumentID: r.Document.ID,
			Filename:   r.Document.Filename,
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

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts, err := searchOpts.options(cmd)
	if err != nil {
		return err
	}

	outcome, err := retrievalService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchOpts.json {
		return printJSON(cmd, map[string]any{
			"results": toResultsJSON(outcome.Results),
			"scanned": outcome.Scanned,
			"skipped": outcome.Skipped,
		})
	}

	printResults(cmd, outcome.Results)
	cmd.Println(mutedStyle.Render(fmt.Sprintf("Scanned %d chunks, skipped %d", outcome.Scanned, outcome.Skipped)))
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	mode := domain.RetrievalMode(contextMode)
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, contextMode)
	}
	opts, err := contextOpts.options(cmd)
	if err != nil {
		return err
	}

	retrieval, err := retrievalService.Retrieve(cmd.Context(), args[0], driving.RetrieveOptions{
		Search:    opts,
		MaxTokens: contextMaxTokens,
		Mode:      mode,
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	return printRetrieval(cmd, retrieval, contextOpts.json)
}

func runPrice(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts, err := priceOpts.options(cmd)
	if err != nil {
		return err
	}

	retrieval, err := retrievalService.MatchPricing(cmd.Context(), args[0], driving.RetrieveOptions{
		Search:    opts,
		MaxTokens: priceMaxTokens,
		Mode:      domain.RetrievalPricing,
	})
	if err != nil {
		return fmt.Errorf("pricing match failed: %w", err)
	}

	if priceOpts.json {
		return printRetrieval(cmd, retrieval, true)
	}

	printResults(cmd, retrieval.Results)
	printMatches(cmd, retrieval.Match)
	return nil
}

func printMatches(cmd *cobra.Command, match *domain.MatchOutcome) {
	if match == nil {
		return
	}
	if len(match.QueryIdentifiers) > 0 {
		ids := make([]string, len(match.QueryIdentifiers))
		for i, m := range match.QueryIdentifiers {
			ids[i] = m.Raw
		}
		cmd.Printf("Query identifiers: %v\n", ids)
	}
	if len(match.Records) == 0 {
		cmd.Println("No pricing cross-references found.")
		return
	}

	cmd.Println(titleStyle.Render("Pricing matches:"))
	for _, rec := range match.Records {
		cmd.Printf("  %s  %s -> %s #%d (%.3f)\n",
			rec.Identifier.Normalized,
			rec.Identifier.DocumentID,
			documentLabel(&rec.Pricing.Document),
			rec.Pricing.Chunk.Sequence,
			rec.Score)
	}
	cmd.Println(mutedStyle.Render(fmt.Sprintf("Boosted %d chunks", match.Boosted)))
}

// retrievalJSON is the JSON shape of a retrieval.
type retrievalJSON struct {
	Intent    string             `json:"intent"`
	Mode      string             `json:"mode"`
	Context   string             `json:"context"`
	Tokens    int                `json:"tokens"`
	MaxTokens int                `json:"max_tokens"`
	Included  int                `json:"included"`
	Omitted   int                `json:"omitted"`
	Scanned   int                `json:"scanned"`
	Skipped   int                `json:"skipped"`
	Boosted   int                `json:"boosted"`
	Results   []searchResultJSON `json:"results"`
}

func printRetrieval(cmd *cobra.Command, r *driving.Retrieval, asJSON bool) error {
	if asJSON {
		out := retrievalJSON{
			Intent:    string(r.Intent),
			Mode:      string(r.Mode),
			Context:   r.Context.Text,
			Tokens:    r.Context.Tokens,
			MaxTokens: r.Context.MaxTokens,
			Included:  r.Context.Included,
			Omitted:   r.Context.Omitted,
			Scanned:   r.Scanned,
			Skipped:   r.Skipped,
			Results:   toResultsJSON(r.Results),
		}
		if r.Match != nil {
			out.Boosted = r.Match.Boosted
		}
		return printJSON(cmd, out)
	}

	if r.Context.Text == "" {
		cmd.Println("No relevant context found.")
		return nil
	}
	cmd.Println(r.Context.Text)
	cmd.Println()
	cmd.Println(mutedStyle.Render(fmt.Sprintf("%d/%d tokens, %d chunks from %d files, %d omitted (intent %s, mode %s)",
		r.Context.Tokens, r.Context.MaxTokens, r.Context.Included, len(r.Context.Sections),
		r.Context.Omitted, r.Intent, r.Mode)))
	return nil
}
