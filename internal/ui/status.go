package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/radarmon/radar/internal/check"
)

// StatusSymbol returns the symbol drawn next to a status.
func StatusSymbol(s check.Status) string {
	switch s {
	case check.StatusOK:
		return SymbolOK
	case check.StatusWarning:
		return SymbolWarning
	case check.StatusSevere:
		return SymbolSevere
	case check.StatusError:
		return SymbolError
	case check.StatusTimeout:
		return SymbolTimeout
	default:
		return SymbolUnknown
	}
}

// StatusStyle returns the style used for a status.
func StatusStyle(s check.Status) lipgloss.Style {
	switch s {
	case check.StatusOK:
		return SuccessStyle()
	case check.StatusWarning:
		return WarningStyle()
	case check.StatusSevere, check.StatusError:
		return ErrorStyle().Bold(true)
	case check.StatusTimeout:
		return lipgloss.NewStyle().Foreground(ColorTimeout)
	default:
		return MutedStyle()
	}
}

// RenderStatus renders "<symbol> <NAME>" in the status style.
func RenderStatus(s check.Status) string {
	return StatusStyle(s).Render(StatusSymbol(s) + " " + s.String())
}

// RenderEnabled renders a disabled marker, or the empty string when enabled.
func RenderEnabled(enabled bool) string {
	if enabled {
		return ""
	}
	return MutedStyle().Render(SymbolDisabled + " disabled")
}
