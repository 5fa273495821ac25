package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).Padding(0, 1)
)

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet shortens s to n runes on one line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func documentLabel(doc *domain.Document) string {
	if doc.Filename != "" {
		return doc.Filename
	}
	return doc.ID
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusIndexed:
		return successStyle.Render(s.String())
	case domain.StatusFailed:
		return errorStyle.Render(s.String())
	}
	return warningStyle.Render(s.String())
}

func printResults(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		boost := ""
		switch {
		case r.Boosted:
			boost = warningStyle.Render(" boosted")
		case r.Focused:
			boost = warningStyle.Render(" pricing")
		}
		cmd.Printf("  [%d] %s #%d (%.3f)%s\n", i+1, documentLabel(&r.Document), r.Chunk.Sequence, r.Score, boost)
		cmd.Printf("      %s\n", mutedStyle.Render(snippet(r.Chunk.Content, 160)))
		cmd.Println()
	}
}

func printReport(cmd *cobra.Command, report domain.BatchReport) {
	for _, o := range report.Outcomes {
		name := o.Filename
		if name == "" {
			name = o.DocumentID
		}
		switch o.Status {
		case domain.OutcomeIndexed:
			cmd.Printf("  %s %s (%d chunks)\n", successStyle.Render("✓"), name, o.Chunks)
		default:
			detail := o.Reason
			if o.Err != nil {
				detail += ": " + o.Err.Error()
			}
			cmd.Printf("  %s %s %s\n", errorStyle.Render("✗"), name, mutedStyle.Render(detail))
		}
	}
	cmd.Printf("\nIndexed %d, failed %d in %s\n", report.Indexed, report.Failed, report.Duration.Round(time.Millisecond))
}

// reportJSON is the JSON shape of a batch report.
type reportJSON struct {
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Duration string        `json:"duration"`
	Outcomes []outcomeJSON `json:"outcomes"`
}

type outcomeJSON struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Chunks     int    `json:"chunks"`
}

func toReportJSON(report domain.BatchReport) reportJSON {
	out := reportJSON{
		Indexed:  report.Indexed,
		Failed:   report.Failed,
		Duration: report.Duration.String(),
		Outcomes: make([]outcomeJSON, len(report.Outcomes)),
	}
	for i, o := range report.Outcomes {
		out.Outcomes[i] = outcomeJSON{
			DocumentID: o.DocumentID,
			Filename:   o.Filename,
			Status:     string(o.Status),
			Reason:     o.Reason,
			Chunks:     o.Chunks,
		}
		if o.Err != nil {
			out.Outcomes[i].Error = o.Err.Error()
		}
	}
	return out
}
