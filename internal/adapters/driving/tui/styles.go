package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the progress view.
type Styles struct {
	Title    lipgloss.Style
	State    lipgloss.Style
	Terminal lipgloss.Style
	Counter  lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the default colour scheme.
func DefaultStyles() *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		State:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Terminal: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Counter:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
