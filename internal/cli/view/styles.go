package view

import "github.com/charmbracelet/lipgloss"

// Styles used by the story view.
type Styles struct {
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Strong   lipgloss.Style
	Emphasis lipgloss.Style
	Code     lipgloss.Style
	Quote    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Spinner  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).MarginBottom(1),
		Heading:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Strong:   lipgloss.NewStyle().Bold(true),
		Emphasis: lipgloss.NewStyle().Italic(true),
		Code:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Quote:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginTop(1),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// PlainStyles renders without any decoration.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title: plain, Heading: plain, Strong: plain, Emphasis: plain,
		Code: plain, Quote: plain, Status: plain, Error: plain, Spinner: plain,
	}
}
