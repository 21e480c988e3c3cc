// Package ui provides rendering functions for the shove terminal UI.
//
// It contains the Render function which takes RenderParams and produces
// the terminal output, and the Theme holding the lipgloss styles. Rendering
// is pure (no side effects) and separated from state management.
package ui
