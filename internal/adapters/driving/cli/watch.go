package cli

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/files"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/logger"
)

var (
	watchOwner   string
	watchInitial bool
	watchDelay   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory indexed",
	Long: `Indexes a directory and then watches it. Created and modified files are
re-indexed, deleted files are removed from the index. Bursts of events for
the same file are coalesced.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "owner the documents belong to")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "index existing files before watching")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 500*time.Millisecond, "quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	root := args[0]

	changes, err := files.Watch(ctx, root)
	if err != nil {
		return err
	}

	if watchInitial {
		paths, err := files.Collect(ctx, []string{root})
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			requests, report := buildRequests(paths, watchOwner, "")
			if len(requests) > 0 {
				batch, err := ingestService.IndexDocuments(ctx, requests)
				if err != nil {
					return err
				}
				for _, o := range batch.Outcomes {
					report.Add(o)
				}
			}
			printReport(cmd, report)
		}
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", root)
	return consumeChanges(ctx, cmd, changes, watchDelay)
}

// consumeChanges applies changes once a path has been quiet for delay.
// The latest change for a path wins.
func consumeChanges(ctx context.Context, cmd *cobra.Command, changes <-chan domain.FileChange, delay time.Duration) error {
	pending := make(map[string]domain.FileChange)
	due := make(map[string]time.Time)

	tick := delay / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				flushChanges(ctx, cmd, pending)
				return nil
			}
			pending[change.Path] = change
			due[change.Path] = time.Now().Add(delay)
		case now := <-ticker.C:
			ready := make(map[string]domain.FileChange)
			for path, at := range due {
				if now.After(at) {
					ready[path] = pending[path]
					delete(pending, path)
					delete(due, path)
				}
			}
			flushChanges(ctx, cmd, ready)
		}
	}
}

func flushChanges(ctx context.Context, cmd *cobra.Command, changes map[string]domain.FileChange) {
	if len(changes) == 0 {
		return
	}

	var upserts []string
	for path, change := range changes {
		if change.Type != domain.ChangeDeleted {
			upserts = append(upserts, path)
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		err = ingestService.Remove(ctx, files.DocumentID("file://"+abs))
		switch {
		case err == nil:
			cmd.Printf("  %s removed %s\n", successStyle.Render("✓"), path)
		case errors.Is(err, domain.ErrDocumentNotFound):
		default:
			logger.Warn("removing %s: %v", path, err)
		}
	}

	if len(upserts) == 0 {
		return
	}
	requests, report := buildRequests(upserts, watchOwner, "")
	if len(requests) > 0 {
		batch, err := ingestService.IndexDocuments(ctx, requests)
		if err != nil {
			logger.Warn("indexing changes: %v", err)
			return
		}
		for _, o := range batch.Outcomes {
			report.Add(o)
		}
	}
	printReport(cmd, report)
}
