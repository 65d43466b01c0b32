package viewer

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)

	headerCellStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	customTagStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	customCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("151"))

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("255"))
	selectedCellStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(lipgloss.Color("0"))

	liveBadge    = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	pollingBadge = lipgloss.NewStyle().Foreground(warningColor).Bold(true)

	currentPageStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	statusOKStyle  = lipgloss.NewStyle().Foreground(successColor)
	statusErrStyle = lipgloss.NewStyle().Foreground(errorColor)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(1, 2)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)
