// Package tui provides a bubbletea-backed progress sink for interactive
// terminals. It renders the same single line as ui.Bar, with a gradient bar
// that resizes with the window.
package tui
