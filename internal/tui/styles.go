package tui

import "github.com/charmbracelet/lipgloss"

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onlineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	busyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
)
