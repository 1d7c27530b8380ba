package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Today   key.Binding
	Month   key.Binding
	Week    key.Binding
	Day     key.Binding
	List    key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Delete  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Today:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Month:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
		Week:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week")),
		Day:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day")),
		List:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "agenda")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select down")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Delete:  key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete visit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Today, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Today},
		{k.Month, k.Week, k.Day, k.List},
		{k.Up, k.Down, k.Delete},
		{k.Refresh, k.Help, k.Quit},
	}
}
