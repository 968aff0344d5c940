package monitor

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - reconnecting
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 40
	DefaultHeight    = 24
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			PaddingLeft(1)

	addrStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	connectedStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	reconnectingStyle = lipgloss.NewStyle().
				Foreground(WarningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.Border{Bottom: "─"}).
			BorderForeground(PrimaryColor)

	footerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.Border{Top: "─"}).
			BorderForeground(PrimaryColor).
			PaddingLeft(1)
)

// Styles used by the command line output outside the TUI
var (
	KeyStyle     = mutedStyle.Width(10)
	ValueStyle   = addrStyle
	HeadingStyle = titleStyle
	ErrorStyle   = errorStyle.Bold(true)
	SuccessStyle = connectedStyle.Bold(true)
)

// IsTerminal reports whether stdout is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, DefaultHeight
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return width, height
}
