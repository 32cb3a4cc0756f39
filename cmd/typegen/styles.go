package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	heading  lipgloss.Style
	fn       lipgloss.Style
	typ      lipgloss.Style
	selected lipgloss.Style
	result   lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func newStyles(colored bool) styles {
	if !colored {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")),
		fn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")),
		typ: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")),
		result: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
	}
}
