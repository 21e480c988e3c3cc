package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/henri123lemoine/shove/internal/config"
)

// Theme holds the styles of the UI. It is built once at startup and never
// changed afterwards.
type Theme struct {
	primary   lipgloss.Color
	secondary lipgloss.Color
	success   lipgloss.Color
	warning   lipgloss.Color
	danger    lipgloss.Color
	muted     lipgloss.Color
	highlight lipgloss.Color
	text      lipgloss.Color
	selection lipgloss.Color
}

// NewTheme builds a theme from a resolved palette.
func NewTheme(p config.ThemeConfig) *Theme {
	return &Theme{
		primary:   lipgloss.Color(p.Primary),
		secondary: lipgloss.Color(p.Secondary),
		success:   lipgloss.Color(p.Success),
		warning:   lipgloss.Color(p.Warning),
		danger:    lipgloss.Color(p.Danger),
		muted:     lipgloss.Color(p.Muted),
		highlight: lipgloss.Color(p.Highlight),
		text:      lipgloss.Color(p.Text),
		selection: lipgloss.Color(p.Selection),
	}
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return NewTheme(config.DefaultTheme())
}

// Block is the border style of a box.
func (t *Theme) Block(focus bool) lipgloss.Style {
	s := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	if focus {
		return s.BorderForeground(t.primary)
	}
	return s.BorderForeground(t.secondary)
}

// Popup is the thick-bordered box used for popups.
func (t *Theme) Popup(focus bool) lipgloss.Style {
	s := lipgloss.NewStyle().Border(lipgloss.ThickBorder()).Padding(0, 1)
	if focus {
		return s.BorderForeground(t.primary)
	}
	return s.BorderForeground(t.secondary)
}

// Title styles box titles.
func (t *Theme) Title(focus bool) lipgloss.Style {
	if focus {
		return lipgloss.NewStyle().Bold(true).Foreground(t.primary)
	}
	return lipgloss.NewStyle().Foreground(t.muted)
}

// Header styles section headers.
func (t *Theme) Header() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.muted)
}

// Text styles plain text.
func (t *Theme) Text(enabled, selected bool) lipgloss.Style {
	switch {
	case !enabled:
		return lipgloss.NewStyle().Foreground(t.secondary)
	case selected:
		return lipgloss.NewStyle().Foreground(t.highlight).Background(t.selection)
	default:
		return lipgloss.NewStyle().Foreground(t.text)
	}
}

// Branch styles a branch name. The checked-out branch is bold.
func (t *Theme) Branch(selected, head bool) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(t.text)
	if head {
		s = s.Bold(true)
	}
	if selected {
		s = s.Foreground(t.highlight).Background(t.selection).Bold(true)
	}
	return s
}

// Remote styles remote-tracking branch names.
func (t *Theme) Remote() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.muted)
}

// Ahead styles ahead/behind counts.
func (t *Theme) Ahead() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.warning)
}

// InSync styles the marker of branches with nothing to push.
func (t *Theme) InSync() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.success)
}

// CommandBar styles one entry of the command bar.
func (t *Theme) CommandBar(enabled bool) lipgloss.Style {
	if enabled {
		return lipgloss.NewStyle().Foreground(t.text)
	}
	return lipgloss.NewStyle().Foreground(t.secondary)
}

// Muted styles secondary information.
func (t *Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.muted)
}

// Divider styles horizontal rules.
func (t *Theme) Divider() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.secondary)
}

// Danger styles errors.
func (t *Theme) Danger() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.danger)
}

// Cursor styles the list cursor.
func (t *Theme) Cursor() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.highlight).Bold(true)
}

// GaugeColor is the fill color of progress bars.
func (t *Theme) GaugeColor() string {
	return string(t.primary)
}

// Symbols
const (
	SymbolCursor  = "›"
	SymbolCurrent = "•"
	SymbolAhead   = "↑"
	SymbolBehind  = "↓"
	SymbolInSync  = "✓"
	SymbolNew     = "+"
	SymbolGone    = "✗"
	SymbolDivider = "─"
)
