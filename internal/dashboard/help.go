package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/radarmon/radar/internal/ui"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Refresh now"},
	{Key: "up / k", Desc: "Select previous check"},
	{Key: "down / j", Desc: "Select next check"},
	{Key: "Home", Desc: "Select first check"},
	{Key: "End", Desc: "Select last check"},
	{Key: "Space", Desc: "Enable / disable selected check"},
	{Key: "t", Desc: "Run selected check now"},
	{Key: "?", Desc: "Toggle this help"},
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorInfo).
			Padding(1, 2)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true).
			Width(14)
)

func (m Model) renderHelpOverlay() string {
	lines := []string{ui.TitleStyle().Render("Keyboard Shortcuts"), ""}
	for _, b := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(b.Key)+ui.MutedStyle().Render(b.Desc))
	}
	lines = append(lines, "", ui.MutedStyle().Render("Press ? to close"))

	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
