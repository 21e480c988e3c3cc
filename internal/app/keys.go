package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/henri123lemoine/shove/internal/components"
	"github.com/henri123lemoine/shove/internal/config"
	"github.com/henri123lemoine/shove/internal/ui"
)

// KeyMap defines all keybindings.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Actions
	Push        key.Binding
	PushCurrent key.Binding
	Filter      key.Binding
	Refresh     key.Binding

	// Popups
	Confirm   key.Binding
	Close     key.Binding
	NextField key.Binding

	// General
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMapFromConfig(&config.DefaultConfig().Keys)
}

// KeyMapFromConfig creates a KeyMap from config settings. Empty settings
// keep the default keys.
func KeyMapFromConfig(cfg *config.KeysConfig) KeyMap {
	def := config.DefaultConfig().Keys
	bind := func(keys, fallback, desc string) key.Binding {
		if keys == "" {
			keys = fallback
		}
		parsed := config.ParseKeys(keys)
		help := keys
		if len(parsed) > 0 {
			help = parsed[0]
		}
		return key.NewBinding(
			key.WithKeys(parsed...),
			key.WithHelp(help, desc),
		)
	}

	return KeyMap{
		Up:          bind(cfg.Up, def.Up, "up"),
		Down:        bind(cfg.Down, def.Down, "down"),
		Home:        bind(cfg.Home, def.Home, "first"),
		End:         bind(cfg.End, def.End, "last"),
		Push:        bind(cfg.Push, def.Push, "push"),
		PushCurrent: bind(cfg.PushCurrent, def.PushCurrent, "push current"),
		Filter:      bind(cfg.Filter, def.Filter, "filter"),
		Refresh:     bind(cfg.Refresh, def.Refresh, "refresh"),
		Confirm:     bind(cfg.Confirm, def.Confirm, "confirm"),
		Close:       bind(cfg.Close, def.Close, "close"),
		NextField:   bind(cfg.NextField, def.NextField, "next field"),
		Quit:        bind(cfg.Quit, def.Quit, "quit"),
		Help:        bind(cfg.Help, def.Help, "help"),
	}
}

// Popup returns the keys used by the popups.
func (k KeyMap) Popup() components.KeyConfig {
	return components.KeyConfig{
		Confirm:   k.Confirm,
		Close:     k.Close,
		NextField: k.NextField,
	}
}

// listCommands returns the command bar entries of the branch list.
func (k KeyMap) listCommands(hasBranches bool) []components.CommandInfo {
	entry := func(b key.Binding, enabled bool) components.CommandInfo {
		return components.NewCommandInfo(b.Help().Desc+" ["+b.Help().Key+"]", enabled, true)
	}
	return []components.CommandInfo{
		entry(k.Push, hasBranches),
		entry(k.PushCurrent, hasBranches),
		entry(k.Filter, true),
		entry(k.Refresh, true),
		entry(k.Help, true),
		entry(k.Quit, true),
	}
}

// helpSections returns the bindings listed on the help screen.
func (k KeyMap) helpSections() []ui.HelpSection {
	row := func(b key.Binding) ui.HelpBinding {
		return ui.HelpBinding{Keys: strings.Join(b.Keys(), "/"), Desc: b.Help().Desc}
	}
	return []ui.HelpSection{
		{Title: "Navigation", Bindings: []ui.HelpBinding{row(k.Up), row(k.Down), row(k.Home), row(k.End)}},
		{Title: "Branches", Bindings: []ui.HelpBinding{row(k.Push), row(k.PushCurrent), row(k.Filter), row(k.Refresh)}},
		{Title: "Push popup", Bindings: []ui.HelpBinding{row(k.Confirm), row(k.Close), row(k.NextField)}},
		{Title: "General", Bindings: []ui.HelpBinding{row(k.Help), row(k.Quit)}},
	}
}
