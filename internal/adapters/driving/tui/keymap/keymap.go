// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit   key.Binding
	Back   key.Binding
	Submit key.Binding
	Up     key.Binding
	Down   key.Binding

	// Mode cycles the retrieval mode in the search view.
	Mode key.Binding

	// NewQuery clears the input from the results list.
	NewQuery key.Binding

	// Reload re-reads the document list.
	Reload key.Binding

	// Remove deletes the selected document.
	Remove key.Binding

	// Reindex re-chunks and re-embeds the selected document.
	Reindex key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Mode:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
		NewQuery: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new query")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		Reindex:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reindex")),
	}
}

// SearchHelp returns the bindings shown in the search view.
func (k *KeyMap) SearchHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Mode, k.Up, k.Down, k.NewQuery, k.Back}
}

// DocumentsHelp returns the bindings shown in the documents view.
func (k *KeyMap) DocumentsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Submit, k.Reindex, k.Remove, k.Reload, k.Back}
}

// HelpLine renders bindings as "key: desc | key: desc".
func HelpLine(bindings []key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += " | "
		}
		h := b.Help()
		out += h.Key + ": " + h.Desc
	}
	return out
}
