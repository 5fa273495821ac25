package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/files"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

var (
	indexOwner string
	indexKind  string
	indexJSON  bool
	reindexAll bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index files and directories",
	Long: `Extracts text from each file, splits it into overlapping chunks, embeds the
chunks and stores them. Directories are walked recursively; hidden files and
unsupported types are skipped.

Re-indexing a file replaces its previous version. Each file succeeds or fails
on its own; one broken file never stops the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [doc-id...]",
	Short: "Re-chunk and re-embed stored documents",
	Long: `Rebuilds chunks and embeddings from the stored text of each document.
Use --all after changing the embedding model; vectors of the old dimension
are reset first.`,
	RunE: runReindex,
}

var removeCmd = &cobra.Command{
	Use:   "remove [doc-id...]",
	Short: "Remove documents from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

func init() {
	indexCmd.Flags().StringVar(&indexOwner, "owner", "", "owner (user or project) the documents belong to")
	indexCmd.Flags().StringVar(&indexKind, "kind", "", "document kind: general, price_list or catalog (default from filename)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the report as JSON")
	reindexCmd.Flags().BoolVar(&reindexAll, "all", false, "re-index every document")
	reindexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the report as JSON")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(removeCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	kind := domain.DocumentKind(indexKind)
	if indexKind != "" && !kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, indexKind)
	}

	ctx := cmd.Context()
	paths, err := files.Collect(ctx, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	requests, report := buildRequests(paths, indexOwner, kind)
	if len(requests) > 0 {
		task, err := ingestService.Submit(ctx, requests)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		batch, err := waitWithProgress(ctx, cmd, task, !indexJSON)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		for _, o := range batch.Outcomes {
			report.Add(o)
		}
		report.Duration = batch.Duration
	}

	if indexJSON {
		return printJSON(cmd, toReportJSON(report))
	}
	printReport(cmd, report)
	return nil
}

// buildRequests reads each path. Unreadable files are reported as failed
// without reaching the orchestrator.
func buildRequests(paths []string, owner string, kind domain.DocumentKind) ([]domain.IngestRequest, domain.BatchReport) {
	var (
		requests []domain.IngestRequest
		report   domain.BatchReport
	)
	for _, path := range paths {
		raw, err := files.Read(path)
		if err != nil {
			report.Add(domain.Outcome{
				Filename: path,
				Status:   domain.OutcomeFailed,
				Reason:   domain.FailureReason(err),
				Err:      err,
			})
			continue
		}
		requests = append(requests, domain.IngestRequest{
			Document: domain.Document{
				ID:      files.DocumentID(raw.URI),
				OwnerID: owner,
				Kind:    kind,
			},
			Raw: raw,
		})
	}
	return requests, report
}

// waitWithProgress waits for task while printing progress updates.
func waitWithProgress(ctx context.Context, cmd *cobra.Command, task driving.IngestTask, show bool) (domain.BatchReport, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-task.Done():
			if show && last >= 0 {
				cmd.Println()
			}
			return task.Wait(ctx)
		case <-ctx.Done():
			task.Cancel()
			<-task.Done()
			return task.Wait(context.WithoutCancel(ctx))
		case <-ticker.C:
			p := task.Progress()
			if show && p.Completed != last {
				cmd.Printf("\rIndexing... %d/%d (%d failed)", p.Completed, p.Total, p.Failed)
				last = p.Completed
			}
		}
	}
}

func runReindex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	var (
		report domain.BatchReport
		err    error
	)
	switch {
	case reindexAll && len(args) > 0:
		return errors.New("pass document IDs or --all, not both")
	case reindexAll:
		report, err = ingestService.ReindexAll(cmd.Context())
	case len(args) == 0:
		return errors.New("pass document IDs or --all")
	default:
		report, err = ingestService.Reindex(cmd.Context(), args)
	}
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	if indexJSON {
		return printJSON(cmd, toReportJSON(report))
	}
	if len(report.Outcomes) == 0 {
		cmd.Println("No documents to re-index.")
		return nil
	}
	printReport(cmd, report)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	var errs []error
	for _, id := range args {
		if err := ingestService.Remove(cmd.Context(), id); err != nil {
			errs = append(errs, err)
			cmd.Printf("  %s %s: %v\n", errorStyle.Render("✗"), id, err)
			continue
		}
		cmd.Printf("  %s removed %s\n", successStyle.Render("✓"), id)
	}
	return errors.Join(errs...)
}
