// Package ask provides the question answering view for the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// ErrNoAnswerService is returned when asking without a service.
var ErrNoAnswerService = errors.New("answer service not available")

// View is a conversation with the answer service. Prior turns are sent as
// history with every question.
type View struct {
	styles  *styles.Styles
	input   textinput.Model
	output  viewport.Model
	answers driving.AnswerService
	ctx     context.Context

	history  []domain.ChatTurn
	pending  string
	lastMeta string
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, answers driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents"
	ti.CharLimit = 1024
	ti.Width = 60
	ti.Focus()

	return &View{
		styles:  s,
		input:   ti,
		output:  viewport.New(80, 14),
		answers: answers,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context used for answer calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case tea.KeyEnter:
			return v, v.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			v.output, cmd = v.output.Update(msg)
			return v, cmd
		}

	case messages.AnswerReceived:
		v.pending = ""
		v.err = msg.Err
		if msg.Err == nil {
			v.history = append(v.history,
				domain.ChatTurn{Role: domain.RoleUser, Content: msg.Question},
				domain.ChatTurn{Role: domain.RoleAssistant, Content: msg.Answer.Response},
			)
			v.lastMeta = meta(msg.Answer)
		}
		v.refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.pending = ""
		v.err = msg.Err
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.pending != "" {
		return nil
	}
	v.pending = question
	v.err = nil
	v.input.SetValue("")
	v.refresh()

	svc, ctx := v.answers, v.ctx
	history := append([]domain.ChatTurn(nil), v.history...)
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		answer, err := svc.Ask(ctx, question, driving.AskOptions{
			Retrieve: driving.RetrieveOptions{Mode: domain.RetrievalAuto},
			History:  history,
		})
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func meta(a *domain.Answer) string {
	files := "no files"
	if len(a.FilesUsed) > 0 {
		files = strings.Join(a.FilesUsed, ", ")
	}
	return fmt.Sprintf("%s | %d chunks searched | %s", files, a.ChunksSearched, a.Model)
}

// refresh rebuilds the transcript and scrolls to its end.
func (v *View) refresh() {
	var b strings.Builder
	for _, turn := range v.history {
		switch turn.Role {
		case domain.RoleUser:
			b.WriteString(v.styles.Subtitle.Render("You: "))
			b.WriteString(turn.Content)
		default:
			b.WriteString(v.styles.Title.Render("docquery: "))
			b.WriteString(v.styles.Normal.Render(turn.Content))
		}
		b.WriteString("\n\n")
	}
	if v.pending != "" {
		b.WriteString(v.styles.Subtitle.Render("You: "))
		b.WriteString(v.pending)
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render("Thinking..."))
	}
	v.output.SetContent(b.String())
	v.output.GotoBottom()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Ask"))
	b.WriteString("\n\n")
	if len(v.history) == 0 && v.pending == "" {
		b.WriteString(v.styles.Muted.Render("Answers come only from the indexed documents."))
		b.WriteString("\n")
	} else {
		b.WriteString(v.output.View())
		b.WriteString("\n")
	}
	if v.err != nil {
		msg := "Error: " + v.err.Error()
		if errors.Is(v.err, domain.ErrLLMUnavailable) {
			msg += " (configure [llm] in the config file)"
		}
		b.WriteString(v.styles.Error.Render(msg))
		b.WriteString("\n")
	} else if v.lastMeta != "" {
		b.WriteString(v.styles.Muted.Render(v.lastMeta))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.InputField.Render(v.input.View()))
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[enter] ask  [pgup/pgdn] scroll  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.Width = max(width-8, 20)
	v.output.Width = width
	v.output.Height = max(height-10, 3)
	v.refresh()
}

// History returns the conversation so far.
func (v *View) History() []domain.ChatTurn {
	return v.history
}

// Pending returns the question awaiting an answer.
func (v *View) Pending() string {
	return v.pending
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
