package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a command banner with a title, the command line and a list
// of parameters. Params keep their order.
type Header struct {
	Title   string      // e.g., "CONFIG REGION"
	Command string      // e.g., "apportal-cfg dump"
	Params  [][2]string // e.g., {{"Region", "/var/lib/apportal/region.bin"}}
	Width   int
}

// NewHeader creates a header sized to the terminal
func NewHeader(title, command string, params ...[2]string) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(strings.ToUpper(h.Title)),
		SubtitleStyle.Render(h.Command),
	)
	if len(h.Params) == 0 {
		return BoxStyle(width).Render(top)
	}

	dividerWidth := width - 6
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", dividerWidth))

	lines := make([]string, 0, len(h.Params))
	for _, kv := range h.Params {
		lines = append(lines, KeyStyle.Render(kv[0]+":")+" "+ValueStyle.Render(kv[1]))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	return BoxStyle(width).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
