// Package documents provides the document list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// ErrNoIngestService is returned when the view has no ingest service.
var ErrNoIngestService = errors.New("ingest service not available")

// View lists indexed documents.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	ingest driving.IngestService
	ctx    context.Context

	documents    []domain.Document
	selected     int
	scrollOffset int
	loading      bool
	status       string
	err          error

	width  int
	height int
	ready  bool
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, ingest driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		ingest: ingest,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	svc, ctx := v.ingest, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoIngestService}
		}
		docs, err := svc.List(ctx, domain.DocumentFilter{})
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) remove(id string) tea.Cmd {
	svc, ctx := v.ingest, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentRemoved{DocumentID: id, Err: ErrNoIngestService}
		}
		return messages.DocumentRemoved{DocumentID: id, Err: svc.Remove(ctx, id)}
	}
}

func (v *View) reindex(id string) tea.Cmd {
	svc, ctx := v.ingest, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentReindexed{DocumentID: id, Err: ErrNoIngestService}
		}
		report, err := svc.Reindex(ctx, []string{id})
		return messages.DocumentReindexed{DocumentID: id, Report: report, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			if v.selected >= len(v.documents) {
				v.selected = max(len(v.documents)-1, 0)
			}
			v.adjustScroll()
		}
		return v, nil

	case messages.DocumentRemoved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.status = "Removed " + msg.DocumentID
		return v, v.load()

	case messages.DocumentReindexed:
		switch {
		case msg.Err != nil:
			v.err = msg.Err
		case msg.Report.Failed > 0 && len(msg.Report.Outcomes) > 0:
			v.status = fmt.Sprintf("Re-index of %s failed: %s", msg.DocumentID, msg.Report.Outcomes[0].Reason)
		default:
			v.status = "Re-indexed " + msg.DocumentID
		}
		return v, v.load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if doc := v.SelectedDocument(); doc != nil {
			selected := *doc
			return v, func() tea.Msg {
				return messages.DocumentSelected{Document: selected}
			}
		}
	case "d":
		if doc := v.SelectedDocument(); doc != nil {
			v.status = "Removing " + doc.ID + "..."
			return v, v.remove(doc.ID)
		}
	case "x":
		if doc := v.SelectedDocument(); doc != nil {
			v.status = "Re-indexing " + doc.ID + "..."
			return v, v.reindex(doc.ID)
		}
	case "r":
		v.loading = true
		v.err = nil
		return v, v.load()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n")
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents indexed. Run `docquery index <path>` first."))
		b.WriteString("\n")
	default:
		visible := v.visibleItemCount()
		for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visible; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, min(v.scrollOffset+visible, len(v.documents)), len(v.documents))))
			b.WriteString("\n")
		}
	}

	if v.status != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(v.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(v.keymap.DocumentsHelp())))
	return b.String()
}

func (v *View) renderDocument(i int, doc *domain.Document) string {
	name := doc.Filename
	if name == "" {
		name = doc.ID
	}
	width := max(v.width/2-4, 10)
	if r := []rune(name); len(r) > width {
		name = string(r[:width-3]) + "..."
	}

	line := fmt.Sprintf("%-*s  %-5s %-10s", width, name, doc.FileType, doc.Kind)
	status := doc.Status.String()
	if doc.FailureReason != "" {
		status += " (" + doc.FailureReason + ")"
	}

	if i == v.selected {
		return v.styles.Selected.Render("> "+line) + "  " + v.styles.Muted.Render(status)
	}
	statusStyle := v.styles.Muted
	switch doc.Status {
	case domain.StatusFailed:
		statusStyle = v.styles.Error
	case domain.StatusIndexed:
		statusStyle = v.styles.Success
	}
	return v.styles.Normal.Render("  "+line) + "  " + statusStyle.Render(status)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the selected document or nil.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Status returns the last action status line.
func (v *View) Status() string {
	return v.status
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
