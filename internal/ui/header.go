package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string // Version string (e.g., "v0.4.0")
	Tagline string // Optional tagline
	Target  string // Optional server address
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the title line, optional tagline and target, and a
// divider.
func RenderHeader(info HeaderInfo) string {
	var output strings.Builder

	output.WriteString(TitleStyle().Render("radar"))
	if info.Version != "" {
		output.WriteString(" ")
		output.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Version))
	}
	output.WriteString("\n")

	if info.Tagline != "" {
		output.WriteString(info.Tagline)
		output.WriteString("\n")
	}
	if info.Target != "" {
		output.WriteString(MutedStyle().Render(info.Target))
		output.WriteString("\n")
	}

	output.WriteString(MutedStyle().Render(strings.Repeat("━", HeaderWidth)))
	output.WriteString("\n")
	return output.String()
}
