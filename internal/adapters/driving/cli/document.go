package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect indexed documents",
	Long:  `List documents, show their metadata, print their extracted text or their chunks.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print extracted text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var (
	documentOwners   []string
	documentStatuses []string
	documentJSON     bool
)

func init() {
	documentListCmd.Flags().StringSliceVar(&documentOwners, "owner", nil, "only documents of these owners")
	documentListCmd.Flags().StringSliceVar(&documentStatuses, "status", nil, "only documents with these statuses (pending, indexed, failed)")
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentChunksCmd)
	rootCmd.AddCommand(documentCmd)
}

// documentJSONView is the JSON shape of a listed document.
type documentJSONView struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Title         string `json:"title"`
	FileType      string `json:"file_type"`
	Kind          string `json:"kind"`
	OwnerID       string `json:"owner_id,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	filter := domain.DocumentFilter{OwnerIDs: documentOwners}
	for _, s := range documentStatuses {
		status := domain.Status(strings.ToLower(s))
		if !status.IsValid() {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	docs, err := ingestService.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		views := make([]documentJSONView, len(docs))
		for i := range docs {
			d := &docs[i]
			views[i] = documentJSONView{
				ID:            d.ID,
				Filename:      d.Filename,
				Title:         d.Title,
				FileType:      d.FileType.String(),
				Kind:          string(d.Kind),
				OwnerID:       d.OwnerID,
				Status:        d.Status.String(),
				FailureReason: d.FailureReason,
				CreatedAt:     d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		return printJSON(cmd, views)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println(titleStyle.Render("Documents:"))
	cmd.Println()
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.ID)
		cmd.Printf("    File:   %s (%s)\n", d.Filename, d.FileType)
		cmd.Printf("    Status: %s", statusLabel(d.Status))
		if d.FailureReason != "" {
			cmd.Printf(" %s", mutedStyle.Render(d.FailureReason))
		}
		cmd.Println()
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	doc, err := ingestService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.FileType)
	cmd.Printf("  Kind:     %s\n", doc.Kind)
	if doc.OwnerID != "" {
		cmd.Printf("  Owner:    %s\n", doc.OwnerID)
	}
	cmd.Printf("  Status:   %s\n", statusLabel(doc.Status))
	if doc.FailureReason != "" {
		cmd.Printf("  Reason:   %s\n", doc.FailureReason)
	}
	cmd.Printf("  Length:   %d characters\n", len([]rune(doc.Content)))
	if details := describeDetails(doc.Details); details != "" {
		cmd.Printf("  Details:  %s\n", details)
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func describeDetails(details domain.FileDetails) string {
	switch d := details.(type) {
	case domain.TextDetails:
		return fmt.Sprintf("%d lines", d.Lines)
	case domain.PagedDetails:
		return fmt.Sprintf("%d pages", d.Pages)
	case domain.TableDetails:
		s := fmt.Sprintf("%d rows, %d columns", d.Rows, d.Columns)
		if len(d.Sheets) > 0 {
			s += ", sheets " + strings.Join(d.Sheets, ", ")
		}
		return s
	case domain.StructuredDetails:
		return "keys " + strings.Join(d.TopLevelKeys, ", ")
	case domain.MarkupDetails:
		if d.Root != "" {
			return "root <" + d.Root + ">"
		}
	}
	return ""
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	doc, err := ingestService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get content: %w", err)
	}
	cmd.Println(doc.Content)
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	chunks, err := ingestService.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		cmd.Println("No chunks.")
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		tags := make([]string, len(c.Tags))
		for j, t := range c.Tags {
			tags[j] = string(t)
		}
		embedded := "no vector"
		if c.Embedded() {
			embedded = fmt.Sprintf("%d dims", len(c.Embedding))
		}
		cmd.Printf("  #%d %s [%d:%d] %s %s\n", c.Sequence, c.ID, c.Start, c.End,
			mutedStyle.Render(embedded), strings.Join(tags, ","))
		cmd.Printf("      %s\n", snippet(c.Content, 120))
	}
	return nil
}
