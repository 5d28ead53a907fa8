package shell

import "github.com/charmbracelet/lipgloss"

// Styles applied when Options.Styled is set.
var (
	promptStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	bannerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	traceStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))            // magenta
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // dim gray
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)

	errorStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1"))
)

const treeCorner = "└ "
