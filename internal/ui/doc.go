// Package ui holds the terminal styling shared by Radar's console, dashboard
// and setup wizard.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - OK
//	ColorWarning   (yellow) - WARNING
//	ColorError     (red)    - SEVERE and ERROR
//	ColorTimeout   (magenta) - TIMEOUT
//	ColorMuted     (gray)   - UNKNOWN, disabled items, secondary text
//	ColorInfo      (cyan)   - headers and informational text
//
// Use DisableColors() to switch to monochrome output (for --no-color).
//
// # Status Rendering
//
// Every check status has a symbol and a style:
//
//	ui.RenderStatus(check.StatusOK)      // "● OK" in green
//	ui.RenderStatus(check.StatusTimeout) // "◷ TIMEOUT" in magenta
//
// # Bubble Tea Components
//
// NewSpinner returns a bubbles spinner using SpinnerFrames for the dashboard
// while it waits for the first reply from the console.
package ui
