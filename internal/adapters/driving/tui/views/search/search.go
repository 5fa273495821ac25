// Package search provides the retrieval view for the TUI.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// ErrNoRetrievalService is returned when searching without a service.
var ErrNoRetrievalService = errors.New("retrieval service not available")

// modes are cycled with the mode key.
var modes = []domain.RetrievalMode{domain.RetrievalAuto, domain.RetrievalStandard, domain.RetrievalPricing, domain.RetrievalPricingSearch}

// View is the search input, mode selector and results list.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     textinput.Model
	retrieval driving.RetrievalService
	ctx       context.Context

	mode       int
	result     *driving.Retrieval
	selected   int
	searching  bool
	focusInput bool
	err        error

	width  int
	height int
	ready  bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	ti := textinput.New()
	ti.Placeholder = "What are you looking for?"
	ti.CharLimit = 512
	ti.Width = 50
	ti.Focus()

	return &View{
		styles:     s,
		keymap:     km,
		input:      ti,
		retrieval:  retrieval,
		ctx:        context.Background(),
		focusInput: true,
		width:      80,
		height:     24,
	}
}

// WithContext sets the context used for retrieval calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrievalCompleted:
		v.searching = false
		v.err = msg.Err
		v.selected = 0
		if msg.Err == nil {
			v.result = msg.Retrieval
			v.focusInput = false
			v.input.Blur()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.searching = false
		v.err = msg.Err
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case tea.KeyTab:
		v.mode = (v.mode + 1) % len(modes)
		return v, nil
	case tea.KeyEnter:
		if !v.focusInput {
			return v, nil
		}
		query := strings.TrimSpace(v.input.Value())
		if query == "" {
			return v, nil
		}
		v.searching = true
		v.err = nil
		return v, v.performRetrieval(query, modes[v.mode])
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.result != nil && v.selected < len(v.result.Results)-1 {
			v.selected++
		}
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

// performRetrieval runs the retrieval in a command.
func (v *View) performRetrieval(query string, mode domain.RetrievalMode) tea.Cmd {
	svc, ctx := v.retrieval, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		r, err := svc.Retrieve(ctx, query, driving.RetrieveOptions{Mode: mode})
		return messages.RetrievalCompleted{Retrieval: r, Err: err}
	}
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Search"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			v.styles.InputField.Render(v.input.View()),
			"  ",
			v.styles.Muted.Render("mode: ")+v.styles.Subtitle.Render(string(modes[v.mode]))),
		"",
	}

	switch {
	case v.searching:
		sections = append(sections, v.styles.Muted.Render("Searching..."))
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.result != nil:
		sections = append(sections, v.renderResults())
	}

	sections = append(sections, "", v.styles.Help.Render(keymap.HelpLine(v.keymap.SearchHelp())))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderResults() string {
	r := v.result
	if len(r.Results) == 0 {
		return v.styles.Muted.Render("No results")
	}

	lines := []string{
		v.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.Results))) +
			v.styles.Muted.Render(fmt.Sprintf("  intent %s, mode %s, %d/%d tokens",
				r.Intent, r.Mode, r.Context.Tokens, r.Context.MaxTokens)),
		"",
	}

	visible := (v.height - 12) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(r.Results))

	for i := start; i < end; i++ {
		lines = append(lines, v.renderResult(i, &r.Results[i]))
	}

	if r.Match != nil && len(r.Match.Records) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render("Pricing matches"))
		for _, rec := range r.Match.Records {
			lines = append(lines, v.styles.Normal.Render(fmt.Sprintf("  %s -> %s #%d (%.2f)",
				rec.Identifier.Normalized, label(&rec.Pricing.Document), rec.Pricing.Chunk.Sequence, rec.Score)))
		}
	}
	return strings.Join(lines, "\n")
}

func (v *View) renderResult(i int, r *domain.SearchResult) string {
	head := fmt.Sprintf("%s #%d  %.3f", label(&r.Document), r.Chunk.Sequence, r.Score)
	if r.Boosted {
		head += " boosted"
	} else if r.Focused {
		head += " pricing"
	}
	if i == v.selected {
		head = v.styles.Selected.Render("> " + head)
	} else {
		head = v.styles.Normal.Render("  " + head)
	}
	return head + "\n" + v.styles.Muted.Render("    "+preview(r.Chunk.Content, v.width-6))
}

func label(doc *domain.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	if doc.Filename != "" {
		return doc.Filename
	}
	return doc.ID
}

// preview returns the first n runes of s on one line.
func preview(s string, n int) string {
	if n < 20 {
		n = 20
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.Width = max(width-30, 20)
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() {
	v.focusInput = true
	v.input.SetValue("")
	v.input.Focus()
	v.result = nil
	v.selected = 0
	v.searching = false
	v.err = nil
}

// Query returns the current input.
func (v *View) Query() string {
	return v.input.Value()
}

// Mode returns the selected retrieval mode.
func (v *View) Mode() domain.RetrievalMode {
	return modes[v.mode]
}

// Result returns the last retrieval.
func (v *View) Result() *driving.Retrieval {
	return v.result
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.selected
}

// InputFocused reports whether typing goes to the input.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
