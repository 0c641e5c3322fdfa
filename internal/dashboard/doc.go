// Package dashboard implements `radar watch`, a live TUI over the console's
// list() action.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: the last snapshot, the flattened check rows and the selection
//   - Update: keystrokes, refresh ticks and snapshots from the console
//   - View: monitors, their clients and each client's checks
//
// # Message Flow
//
//  1. tickMsg fires at the configured interval
//  2. fetchCmd queries list() through the console client
//  3. snapshotMsg arrives and replaces the rows
//  4. View() re-renders
//
// Only one query is in flight at a time since the console client owns a
// single connection.
package dashboard
