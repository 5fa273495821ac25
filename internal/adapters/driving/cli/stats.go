package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	statsOwner string
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsOwner, "owner", "", "restrict statistics to one owner")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	stats, err := ingestService.Stats(cmd.Context(), statsOwner)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		byType := make(map[string]int, len(stats.ByFileType))
		for ft, n := range stats.ByFileType {
			byType[ft.String()] = n
		}
		recent := make([]string, len(stats.Recent))
		for i := range stats.Recent {
			recent[i] = stats.Recent[i].ID
		}
		return printJSON(cmd, map[string]any{
			"documents":        stats.Documents,
			"indexed":          stats.Indexed,
			"failed":           stats.Failed,
			"pending":          stats.Pending,
			"chunks":           stats.Chunks,
			"embedded_chunks":  stats.EmbeddedChunks,
			"estimated_tokens": stats.EstimatedTokens,
			"indexing_rate":    stats.IndexingRate,
			"dimensions":       stats.Dimensions,
			"by_file_type":     byType,
			"recent":           recent,
		})
	}

	cmd.Println(titleStyle.Render("Index statistics"))
	cmd.Println()
	cmd.Printf("  Documents:   %d (%d indexed, %d failed, %d pending)\n",
		stats.Documents, stats.Indexed, stats.Failed, stats.Pending)
	cmd.Printf("  Indexed:     %.1f%%\n", stats.IndexingRate)
	cmd.Printf("  Chunks:      %d (%d embedded)\n", stats.Chunks, stats.EmbeddedChunks)
	cmd.Printf("  Tokens:      ~%d\n", stats.EstimatedTokens)
	if stats.Dimensions > 0 {
		cmd.Printf("  Dimensions:  %d\n", stats.Dimensions)
	}

	if len(stats.ByFileType) > 0 {
		types := make([]domain.FileType, 0, len(stats.ByFileType))
		for ft := range stats.ByFileType {
			types = append(types, ft)
		}
		slices.Sort(types)
		cmd.Println()
		cmd.Println("  By type:")
		for _, ft := range types {
			cmd.Printf("    %-6s %d\n", ft, stats.ByFileType[ft])
		}
	}

	if len(stats.Recent) > 0 {
		cmd.Println()
		cmd.Println("  Recent:")
		for i := range stats.Recent {
			d := &stats.Recent[i]
			cmd.Printf("    %s  %s  %s\n", d.CreatedAt.Format("2006-01-02 15:04"), documentLabel(d), statusLabel(d.Status))
		}
	}
	return nil
}
