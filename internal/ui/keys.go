package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the view.
type KeyMap struct {
	Cancel key.Binding
	Hide   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel operation"),
		),
		Hide: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "hide dialog"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
