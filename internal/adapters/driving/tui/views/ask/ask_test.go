package ask

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	Calls []driving.AskOptions
	Err   error
}

func (m *MockAnswerService) Ask(_ context.Context, query string, opts driving.AskOptions) (*domain.Answer, error) {
	m.Calls = append(m.Calls, opts)
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Answer{Response: "Answer to: " + query, Model: "test-model", FilesUsed: []string{"manual.pdf"}}, nil
}

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// ask types a question, submits it and feeds the result back.
func ask(t *testing.T, v *View, question string) {
	t.Helper()
	typeText(v, question)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.Empty(t, view.History())
	assert.NotNil(t, view.Init())
}

func TestView_AskKeepsHistory(t *testing.T) {
	mock := &MockAnswerService{}
	view := NewView(nil, mock)
	view.SetDimensions(80, 30)

	ask(t, view, "first")
	ask(t, view, "second")

	require.Len(t, mock.Calls, 2)
	assert.Empty(t, mock.Calls[0].History)
	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "Answer to: first"},
	}, mock.Calls[1].History)
	assert.Equal(t, domain.RetrievalAuto, mock.Calls[0].Retrieve.Mode)
	assert.Len(t, view.History(), 4)

	out := view.View()
	assert.Contains(t, out, "Answer to: second")
	assert.Contains(t, out, "manual.pdf")
}

func TestView_SubmitClearsInputAndShowsPending(t *testing.T) {
	view := NewView(nil, &MockAnswerService{})
	view.SetDimensions(80, 30)
	typeText(view, "battery?")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, "battery?", view.Pending())
	assert.Contains(t, view.View(), "Thinking...")

	_, again := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again, "no second question while one is pending")
}

func TestView_EmptyQuestion(t *testing.T) {
	view := NewView(nil, &MockAnswerService{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_LLMUnavailable(t *testing.T) {
	view := NewView(nil, &MockAnswerService{Err: domain.ErrLLMUnavailable})
	view.SetDimensions(80, 30)

	ask(t, view, "q")

	assert.ErrorIs(t, view.Err(), domain.ErrLLMUnavailable)
	assert.Empty(t, view.History())
	assert.Empty(t, view.Pending())
	assert.Contains(t, view.View(), "configure [llm]")
}

func TestView_NoService(t *testing.T) {
	view := NewView(nil, nil)
	view.SetDimensions(80, 30)

	ask(t, view, "q")

	assert.ErrorIs(t, view.Err(), ErrNoAnswerService)
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_NotReady(t *testing.T) {
	assert.Equal(t, "Initialising...", NewView(nil, nil).View())
}
