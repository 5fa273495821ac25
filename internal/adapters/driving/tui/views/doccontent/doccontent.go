// Package doccontent provides the document content view for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// ErrNoIngestService is returned when the view has no ingest service.
var ErrNoIngestService = errors.New("ingest service not available")

// View shows a document's extracted text in a scrollable viewport.
type View struct {
	styles   *styles.Styles
	ingest   driving.IngestService
	ctx      context.Context
	viewport viewport.Model

	document *domain.Document
	chunks   int
	loading  bool
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, ingest driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		ingest:   ingest,
		ctx:      context.Background(),
		viewport: viewport.New(76, 18),
		width:    80,
		height:   24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetDocument shows doc and loads its content and chunk count.
func (v *View) SetDocument(doc domain.Document) tea.Cmd {
	v.document = &doc
	v.chunks = 0
	v.err = nil
	v.loading = true
	v.viewport.SetContent("")
	v.viewport.GotoTop()

	svc, ctx, id := v.ingest, v.ctx, doc.ID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentContentLoaded{Err: ErrNoIngestService}
		}
		full, err := svc.Get(ctx, id)
		if err != nil {
			return messages.DocumentContentLoaded{Err: err}
		}
		chunks, err := svc.Chunks(ctx, id)
		if err != nil {
			return messages.DocumentContentLoaded{Document: full, Err: err}
		}
		return messages.DocumentContentLoaded{Document: full, Chunks: len(chunks)}
	}
}

// Update handles messages for the content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewDocuments}
			}
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case messages.DocumentContentLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Document != nil {
			v.document = msg.Document
			v.chunks = msg.Chunks
			v.viewport.SetContent(v.wrap(msg.Document.Content))
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

func (v *View) wrap(content string) string {
	return lipgloss.NewStyle().Width(v.viewport.Width).Render(content)
}

// View renders the content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document"
	if v.document != nil {
		title = v.document.Title
		if title == "" {
			title = v.document.Filename
		}
		if title == "" {
			title = v.document.ID
		}
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	if v.document != nil && !v.loading {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s | %s | %s | %d chunks",
			v.document.FileType, v.document.Kind, v.document.Status, v.chunks)))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 1)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.document == nil || v.document.Content == "":
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		b.WriteString(v.viewport.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%3.f%%]", v.viewport.ScrollPercent()*100)))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = max(width-4, 20)
	v.viewport.Height = max(height-8, 3)
	if v.document != nil {
		v.viewport.SetContent(v.wrap(v.document.Content))
	}
}

// Document returns the shown document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Chunks returns the document's chunk count.
func (v *View) Chunks() int {
	return v.chunks
}

// AtTop reports whether the viewport is scrolled to the top.
func (v *View) AtTop() bool {
	return v.viewport.AtTop()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
