package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/radarmon/radar/internal/check"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorSuccess,
		ColorError,
		ColorWarning,
		ColorInfo,
		ColorTimeout,
		ColorPrimary,
		ColorSecondary,
		ColorMuted,
	}

	seen := map[lipgloss.Color]bool{}
	for _, c := range colors {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "color %s used twice", c)
		seen[c] = true
	}
}

func TestStylesAreFunctional(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Success", SuccessStyle()},
		{"Error", ErrorStyle()},
		{"Warning", WarningStyle()},
		{"Info", InfoStyle()},
		{"Muted", MutedStyle()},
		{"Title", TitleStyle()},
	}

	for _, tt := range styles {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.style.Render("test text"), "test text")
		})
	}
}

func TestDisableColors(t *testing.T) {
	DisableColors()
	assert.False(t, ColorsEnabled())
	assert.Equal(t, "● OK", RenderStatus(check.StatusOK))
}

func TestStatusSymbol(t *testing.T) {
	tests := []struct {
		status check.Status
		want   string
	}{
		{check.StatusOK, SymbolOK},
		{check.StatusWarning, SymbolWarning},
		{check.StatusSevere, SymbolSevere},
		{check.StatusError, SymbolError},
		{check.StatusUnknown, SymbolUnknown},
		{check.StatusTimeout, SymbolTimeout},
		{check.Status(42), SymbolUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusSymbol(tt.status))
			assert.Contains(t, RenderStatus(tt.status), tt.status.String())
		})
	}
}

func TestRenderEnabled(t *testing.T) {
	assert.Empty(t, RenderEnabled(true))
	assert.Contains(t, RenderEnabled(false), "disabled")
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader(HeaderInfo{Version: "v1.2.0", Target: "127.0.0.1:3334"})
	assert.Contains(t, out, "radar")
	assert.Contains(t, out, "v1.2.0")
	assert.Contains(t, out, "127.0.0.1:3334")
}
