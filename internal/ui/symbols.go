package ui

// Unicode symbols for status indicators.
const (
	SymbolOK       = "●" // Check passed
	SymbolWarning  = "▲" // Check warned
	SymbolSevere   = "✗" // Check failed
	SymbolError    = "!" // Check could not run
	SymbolUnknown  = "○" // No result yet
	SymbolTimeout  = "◷" // Check was killed
	SymbolDisabled = "⊘" // Check or monitor disabled
	SymbolSelected = "›" // Current row in the dashboard
)
