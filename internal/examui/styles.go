package examui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the exam view.
type Styles struct {
	Header   lipgloss.Style
	Question lipgloss.Style
	Choice   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Banner   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Question: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Choice:   lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("212")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1),
	}
}
