package console

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - online, LED on
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - connecting, access point
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// TitleStyle is for the console title
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(1)

	// SubtitleStyle is for the line under the title
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	// KeyStyle is for field names
	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(14)

	// ValueStyle is for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// SectionTitleStyle is for section headings
	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true).
				MarginTop(1)

	// LEDOnStyle renders a lit status LED
	LEDOnStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	// LEDOffStyle renders a dark status LED
	LEDOffStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// SpinnerStyle is for the activity spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// ErrorMessageStyle is for error message text
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)
)

// LED markers
const (
	LEDOnMarker  = "●"
	LEDOffMarker = "○"
)

// StateStyle returns the style for a provisioning state name.
func StateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch state {
	case "Online":
		return base.Foreground(SuccessColor)
	case "Connecting", "ApMode", "NotConfigured":
		return base.Foreground(WarningColor)
	default:
		return base.Foreground(TextColor)
	}
}

// BoxStyle returns the border style for the console frame
func BoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-2).
		Padding(0, 1)
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
