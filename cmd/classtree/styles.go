package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title  lipgloss.Style
	code   lipgloss.Style
	path   lipgloss.Style
	key    lipgloss.Style
	index  lipgloss.Style
	warn   lipgloss.Style
	prompt lipgloss.Style
}

// newStyles binds styles to w so that colour is dropped for non-terminals.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		code:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")),
		path:   r.NewStyle().Faint(true),
		key:    r.NewStyle().Width(14),
		index:  r.NewStyle().Foreground(lipgloss.Color("#FFC107")).Width(4).Align(lipgloss.Right),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#e53935")),
		prompt: r.NewStyle().Bold(true),
	}
}
