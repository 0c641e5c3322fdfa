package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/radarmon/radar/internal/ui"
)

var (
	headerStyle   = lipgloss.NewStyle().MarginBottom(1)
	monitorStyle  = ui.TitleStyle()
	clientStyle   = lipgloss.NewStyle().Foreground(ui.ColorSecondary)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	footerStyle   = ui.MutedStyle().MarginTop(1)
)

const statusWidth = 11

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	clients, checks := 0, len(m.rows)
	for _, mv := range m.monitors {
		clients += len(mv.Clients)
	}

	update := "never"
	if !m.lastUpdate.IsZero() {
		update = fmt.Sprintf("%ds ago", int(time.Since(m.lastUpdate).Seconds()))
	}

	title := ui.TitleStyle().Render("radar watch")
	stats := ui.MutedStyle().Render(fmt.Sprintf(" | %s | %d monitors | %d clients | %d checks | last update %s",
		m.target, len(m.monitors), clients, checks, update))
	return headerStyle.Render(title + stats)
}

func (m Model) renderBody() string {
	if !m.loaded {
		if m.lastErr != "" {
			return ui.ErrorStyle().Render(m.lastErr)
		}
		return m.spinner.View() + " Waiting for the server..."
	}
	if len(m.monitors) == 0 {
		return ui.MutedStyle().Render("No monitors configured")
	}

	var lines []string
	i := 0
	for mi, mv := range m.monitors {
		title := monitorStyle.Render(fmt.Sprintf("%s (id %d)", mv.Name, mv.ID))
		if d := ui.RenderEnabled(mv.Enabled); d != "" {
			title += " " + d
		}
		lines = append(lines, title)

		if len(mv.Clients) == 0 {
			lines = append(lines, "  "+ui.MutedStyle().Render("no clients connected"))
		}
		for ci, cv := range mv.Clients {
			lines = append(lines, "  "+clientStyle.Render(fmt.Sprintf("%s:%d", cv.Address, cv.Port)))
			for ; i < len(m.rows) && m.rows[i].monitor == mi && m.rows[i].client == ci; i++ {
				lines = append(lines, m.renderRow(i))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i int) string {
	c := m.rows[i].check
	cursor := " "
	if i == m.selected {
		cursor = ui.SymbolSelected
	}

	name := fmt.Sprintf("%s [%d]", c.Name, c.ID)
	if i == m.selected {
		name = selectedStyle.Render(name)
	}
	line := fmt.Sprintf("   %s %s %s", cursor, ui.PadRight(ui.RenderStatus(c.CurrentStatus), statusWidth), ui.PadRight(name, 28))
	if d := ui.RenderEnabled(c.Enabled); d != "" {
		line += " " + d
	}
	if c.Details != "" {
		line += " " + ui.MutedStyle().Render(c.Details)
	}
	return line
}

// renderFooter renders the keyboard help footer, the last action reply and
// the last error.
func (m Model) renderFooter() string {
	var parts []string
	if m.notice != "" {
		parts = append(parts, ui.InfoStyle().Render(m.notice))
	}
	if m.lastErr != "" && m.loaded {
		parts = append(parts, ui.ErrorStyle().Render(m.lastErr))
	}
	hints := []string{"q quit", "r refresh", "↑↓ select", "space toggle", "t test", "? help"}
	parts = append(parts, footerStyle.Render(strings.Join(hints, " | ")))
	return strings.Join(parts, "\n")
}
