package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
)

func labels(v *View) []string {
	out := make([]string, len(v.Items()))
	for i, item := range v.Items() {
		out[i] = item.Label
	}
	return out
}

func TestNewView(t *testing.T) {
	view := NewView(nil, true)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, []string{"Search", "Ask", "Documents", "Help", "Quit"}, labels(view))
	assert.Equal(t, 0, view.Selected())
}

func TestNewView_WithoutAsk(t *testing.T) {
	view := NewView(nil, false)

	assert.Equal(t, []string{"Search", "Documents", "Help", "Quit"}, labels(view))
}

func TestView_Init(t *testing.T) {
	assert.Nil(t, NewView(nil, true).Init())
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, true)

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
}

func TestView_Update_Navigate(t *testing.T) {
	view := NewView(nil, true)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, view.Selected())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, view.Selected())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.Selected(), "selection stops at the top")

	for range 10 {
		view.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, len(view.Items())-1, view.Selected(), "selection stops at the bottom")
}

func TestView_Update_EnterChangesView(t *testing.T) {
	view := NewView(nil, true)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewAsk}, cmd())
}

func TestView_Update_EnterOnQuit(t *testing.T) {
	view := NewView(nil, false)
	view.selected = len(view.Items()) - 1

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_View(t *testing.T) {
	view := NewView(nil, true)
	assert.Equal(t, "Initialising...", view.View())

	view.SetDimensions(80, 24)
	out := view.View()

	assert.Contains(t, out, "docquery")
	assert.Contains(t, out, "> Search")
	assert.Contains(t, out, "Documents")
	assert.Contains(t, out, "[q] quit")
}
