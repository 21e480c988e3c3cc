// Package components contains the popups shove draws over the branch list:
// the push progress popup and the credential prompt it opens on demand.
//
// Components are owned by the bubbletea model and only touched from its
// Update goroutine. They receive keys through Event, report their commands
// for the command bar through Commands and render through View.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// CommandBlocking tells the caller whether commands of components below
// the one asked should still be shown.
type CommandBlocking int

const (
	// PassingOn: keep collecting commands.
	PassingOn CommandBlocking = iota
	// Blocking: this component is modal, stop here.
	Blocking
)

// VisibilityBlocking returns Blocking for visible components.
func VisibilityBlocking(visible bool) CommandBlocking {
	if visible {
		return Blocking
	}
	return PassingOn
}

// CommandInfo is one entry of the command bar.
type CommandInfo struct {
	Text string

	// Enabled commands can be triggered right now.
	Enabled bool

	// Available commands belong to a visible component. Unavailable ones
	// are only listed when all commands are requested.
	Available bool
}

// NewCommandInfo creates a CommandInfo.
func NewCommandInfo(text string, enabled, available bool) CommandInfo {
	return CommandInfo{Text: text, Enabled: enabled, Available: available}
}

// KeyConfig holds the keys the popups react to.
type KeyConfig struct {
	Confirm   key.Binding
	Close     key.Binding
	NextField key.Binding
}

// DefaultKeyConfig returns the default popup keys.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
	}
}

// commandText renders "close [esc]".
func commandText(name string, b key.Binding) string {
	return fmt.Sprintf("%s [%s]", name, b.Help().Key)
}
