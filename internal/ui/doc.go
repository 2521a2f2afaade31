// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for likes migration:
//  1. [ConfirmView] : Confirm the migration before any network calls
//  2. [MigrateView] : Monitor real-time per-track resolution progress
//  3. [ResultView] : Display match counters and unmatched tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the MigrationEngine, providing
// non-blocking status reporting while the run is in flight.
//
// Keyboard bindings (y/n, r, q) are displayed contextually via charmbracelet/bubbles/help.
package ui
