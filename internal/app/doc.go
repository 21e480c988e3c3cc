// Package app provides the main Bubble Tea application model for shove.
//
// It manages the UI state machine, handles user input, and coordinates
// between git operations, the background push engine and UI rendering. The
// list of local branches can be filtered and navigated; pushing a branch
// opens the push popup from the components package, which stays on top
// until the push ends or is closed.
//
// Engine notifications and status events arrive on channels. The model
// waits on each with a command that is re-armed after every message.
package app
