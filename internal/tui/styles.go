package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the title above the steps.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	optionStyle   = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("1")).Strikethrough(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 1)

	stepStyles = map[string]lipgloss.Style{
		"done":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"active":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"waiting": lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// StepStyle returns the lipgloss style for the given step state.
func StepStyle(state string) lipgloss.Style {
	if s, ok := stepStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
