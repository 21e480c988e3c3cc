// Package config handles shove configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents shove configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Push    PushConfig    `toml:"push"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
	Theme   ThemeConfig   `toml:"theme"`
	Keys    KeysConfig    `toml:"keys"`
}

// GeneralConfig contains general settings.
type GeneralConfig struct {
	// Remote to push to (empty = auto-detect)
	Remote string `toml:"remote"`

	// Branch selected when shove starts (empty = current branch)
	DefaultBranch string `toml:"default_branch"`
}

// PushConfig contains push settings.
type PushConfig struct {
	// Hold a file lock in the git dir while pushing so two shove
	// instances never push the same repository at once
	Lock bool `toml:"lock"`

	// Minimum gap between two progress redraws, in milliseconds
	ProgressThrottleMs int `toml:"progress_throttle_ms"`

	// Record remote/branch as upstream after pushing a branch without one
	SetUpstream bool `toml:"set_upstream"`
}

// WatchConfig contains repository watching settings.
type WatchConfig struct {
	// Reload the branch list when refs change on disk
	Enabled bool `toml:"enabled"`

	// Quiet period before reloading, in milliseconds
	DebounceMs int `toml:"debounce_ms"`
}

// LogConfig contains debug log settings.
type LogConfig struct {
	// Log file (empty = logging disabled unless --debug is given)
	File string `toml:"file"`

	// debug, info, warn or error
	Level string `toml:"level"`
}

// UIConfig contains UI settings.
type UIConfig struct {
	// Color theme: auto, dark, light
	Theme string `toml:"theme"`

	// List remote-tracking branches under the local ones
	ShowRemoteBranches bool `toml:"show_remote_branches"`

	// Show ahead/behind counts
	ShowUpstream bool `toml:"show_upstream"`
}

// ThemeConfig holds color overrides. Values are ANSI color numbers
// ("4", "245") or hex colors ("#5f87ff"); empty keeps the palette color.
type ThemeConfig struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
	Success   string `toml:"success"`
	Warning   string `toml:"warning"`
	Danger    string `toml:"danger"`
	Muted     string `toml:"muted"`
	Highlight string `toml:"highlight"`
	Text      string `toml:"text"`
	Selection string `toml:"selection"`
}

// KeysConfig contains keybinding settings.
type KeysConfig struct {
	Up          string `toml:"up"`
	Down        string `toml:"down"`
	Home        string `toml:"home"`
	End         string `toml:"end"`
	Push        string `toml:"push"`
	PushCurrent string `toml:"push_current"`
	Filter      string `toml:"filter"`
	Refresh     string `toml:"refresh"`
	Help        string `toml:"help"`
	Quit        string `toml:"quit"`
	Confirm     string `toml:"confirm"`
	Close       string `toml:"close"`
	NextField   string `toml:"next_field"`
}

// DefaultTheme returns the default dark palette.
func DefaultTheme() ThemeConfig {
	return ThemeConfig{
		Primary:   "4",
		Secondary: "8",
		Success:   "2",
		Warning:   "3",
		Danger:    "1",
		Muted:     "245",
		Highlight: "6",
		Text:      "252",
		Selection: "237",
	}
}

// LightTheme returns the palette used with ui.theme = "light".
func LightTheme() ThemeConfig {
	t := DefaultTheme()
	t.Muted = "242"
	t.Text = "235"
	t.Selection = "254"
	return t
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Remote:        "",
			DefaultBranch: "",
		},
		Push: PushConfig{
			Lock:               true,
			ProgressThrottleMs: 50,
			SetUpstream:        true,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 350,
		},
		Log: LogConfig{
			File:  "",
			Level: "debug",
		},
		UI: UIConfig{
			Theme:              "auto",
			ShowRemoteBranches: false,
			ShowUpstream:       true,
		},
		Theme: ThemeConfig{},
		Keys: KeysConfig{
			Up:          "up,k",
			Down:        "down,j",
			Home:        "home,g",
			End:         "end,G",
			Push:        "p,enter",
			PushCurrent: "P",
			Filter:      "/",
			Refresh:     "r",
			Help:        "?",
			Quit:        "q,ctrl+c",
			Confirm:     "enter",
			Close:       "esc",
			NextField:   "tab,shift+tab",
		},
	}
}

// ResolvedTheme returns the palette for the configured ui.theme with the
// [theme] overrides applied. darkBackground decides "auto".
func (c *Config) ResolvedTheme(darkBackground bool) ThemeConfig {
	base := DefaultTheme()
	if c.UI.Theme == "light" || (c.UI.Theme != "dark" && !darkBackground) {
		base = LightTheme()
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&base.Primary, c.Theme.Primary)
	override(&base.Secondary, c.Theme.Secondary)
	override(&base.Success, c.Theme.Success)
	override(&base.Warning, c.Theme.Warning)
	override(&base.Danger, c.Theme.Danger)
	override(&base.Muted, c.Theme.Muted)
	override(&base.Highlight, c.Theme.Highlight)
	override(&base.Text, c.Theme.Text)
	override(&base.Selection, c.Theme.Selection)
	return base
}

// ConfigPath returns the path to the config file.
// Uses ~/.config/shove/config.toml (XDG style) on all Unix systems.
func ConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "shove", "config.toml")
	}
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", "shove", "config.toml")
	}
	// Fallback to os.UserConfigDir() for Windows
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "shove", "config.toml")
	}
	return filepath.Join(configDir, "shove", "config.toml")
}

// IsFirstRun returns true if no config file exists.
func IsFirstRun() bool {
	_, err := os.Stat(ConfigPath())
	return os.IsNotExist(err)
}

// Load loads configuration from the config file.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath loads configuration from a specific path. A missing file
// yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// go-toml/v2 only overwrites fields present in the file, so defaults
	// (including booleans) survive.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the config file.
func Save(cfg *Config) error {
	return SaveToPath(cfg, ConfigPath())
}

// SaveToPath saves configuration to path, creating its directory.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// CreateDefaultConfigFile creates a default config file with comments.
func CreateDefaultConfigFile() error {
	path := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(generateDefaultConfigContent()), 0644)
}

// generateDefaultConfigContent generates a commented config file.
func generateDefaultConfigContent() string {
	var b strings.Builder
	cfg := DefaultConfig()

	b.WriteString("# shove configuration\n\n")

	b.WriteString("[general]\n")
	b.WriteString("# Remote to push to (empty = auto-detect, prefers \"origin\")\n")
	fmt.Fprintf(&b, "remote = %q\n", cfg.General.Remote)
	b.WriteString("# Branch selected at startup (empty = current branch)\n")
	fmt.Fprintf(&b, "default_branch = %q\n\n", cfg.General.DefaultBranch)

	b.WriteString("[push]\n")
	b.WriteString("# Lock the repository while pushing\n")
	fmt.Fprintf(&b, "lock = %v\n", cfg.Push.Lock)
	b.WriteString("# Minimum gap between progress updates (ms)\n")
	fmt.Fprintf(&b, "progress_throttle_ms = %d\n", cfg.Push.ProgressThrottleMs)
	b.WriteString("# Set the upstream of branches pushed for the first time\n")
	fmt.Fprintf(&b, "set_upstream = %v\n\n", cfg.Push.SetUpstream)

	b.WriteString("[watch]\n")
	b.WriteString("# Reload branches when refs change on disk\n")
	fmt.Fprintf(&b, "enabled = %v\n", cfg.Watch.Enabled)
	fmt.Fprintf(&b, "debounce_ms = %d\n\n", cfg.Watch.DebounceMs)

	b.WriteString("[log]\n")
	b.WriteString("# Debug log file (rotated). Empty disables logging.\n")
	b.WriteString("# file = \"/tmp/shove.log\"\n")
	b.WriteString("# Level: \"debug\", \"info\", \"warn\" or \"error\"\n")
	fmt.Fprintf(&b, "level = %q\n\n", cfg.Log.Level)

	b.WriteString("[ui]\n")
	b.WriteString("# Color theme: \"auto\", \"dark\", or \"light\"\n")
	fmt.Fprintf(&b, "theme = %q\n", cfg.UI.Theme)
	fmt.Fprintf(&b, "show_remote_branches = %v\n", cfg.UI.ShowRemoteBranches)
	fmt.Fprintf(&b, "show_upstream = %v\n\n", cfg.UI.ShowUpstream)

	b.WriteString("[theme]\n")
	b.WriteString("# ANSI color numbers or hex colors\n")
	def := DefaultTheme()
	fmt.Fprintf(&b, "# primary = %q\n", def.Primary)
	fmt.Fprintf(&b, "# danger = %q\n", def.Danger)
	fmt.Fprintf(&b, "# selection = %q\n\n", def.Selection)

	b.WriteString("[keys]\n")
	b.WriteString("# Keybindings (comma-separated for multiple keys)\n")
	fmt.Fprintf(&b, "# up = %q\n", cfg.Keys.Up)
	fmt.Fprintf(&b, "# down = %q\n", cfg.Keys.Down)
	fmt.Fprintf(&b, "# push = %q\n", cfg.Keys.Push)
	fmt.Fprintf(&b, "# push_current = %q\n", cfg.Keys.PushCurrent)
	fmt.Fprintf(&b, "# filter = %q\n", cfg.Keys.Filter)
	fmt.Fprintf(&b, "# refresh = %q\n", cfg.Keys.Refresh)
	fmt.Fprintf(&b, "# help = %q\n", cfg.Keys.Help)
	fmt.Fprintf(&b, "# quit = %q\n", cfg.Keys.Quit)
	fmt.Fprintf(&b, "# confirm = %q\n", cfg.Keys.Confirm)
	fmt.Fprintf(&b, "# close = %q\n", cfg.Keys.Close)
	fmt.Fprintf(&b, "# next_field = %q\n", cfg.Keys.NextField)

	return b.String()
}

var hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validColor accepts "", ANSI 0-255 and #rgb/#rrggbb.
func validColor(s string) bool {
	if s == "" || hexColorRe.MatchString(s) {
		return true
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}

// Validate validates the configuration and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if strings.ContainsAny(c.General.Remote, " \t") {
		warnings = append(warnings, fmt.Sprintf("Invalid value for general.remote: %q", c.General.Remote))
	}

	if c.Push.ProgressThrottleMs < 0 {
		warnings = append(warnings, fmt.Sprintf("push.progress_throttle_ms must not be negative, got %d", c.Push.ProgressThrottleMs))
	}
	if c.Watch.DebounceMs < 0 {
		warnings = append(warnings, fmt.Sprintf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs))
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("Invalid value for log.level: %s (expected debug, info, warn, or error)", c.Log.Level))
	}

	if c.UI.Theme != "" &&
		c.UI.Theme != "auto" &&
		c.UI.Theme != "dark" &&
		c.UI.Theme != "light" {
		warnings = append(warnings, fmt.Sprintf("Invalid value for ui.theme: %s (expected auto, dark, or light)", c.UI.Theme))
	}

	colors := []struct {
		name, value string
	}{
		{"primary", c.Theme.Primary},
		{"secondary", c.Theme.Secondary},
		{"success", c.Theme.Success},
		{"warning", c.Theme.Warning},
		{"danger", c.Theme.Danger},
		{"muted", c.Theme.Muted},
		{"highlight", c.Theme.Highlight},
		{"text", c.Theme.Text},
		{"selection", c.Theme.Selection},
	}
	for _, col := range colors {
		if !validColor(col.value) {
			warnings = append(warnings, fmt.Sprintf("Invalid color for theme.%s: %s", col.name, col.value))
		}
	}

	warnings = append(warnings, c.Keys.conflicts()...)

	return warnings
}

// conflicts reports keys bound to two actions of the branch list.
// Popup keys (confirm, close, next_field) are only active in popups and
// may overlap with list keys.
func (k KeysConfig) conflicts() []string {
	actions := []struct {
		name, keys string
	}{
		{"up", k.Up},
		{"down", k.Down},
		{"home", k.Home},
		{"end", k.End},
		{"push", k.Push},
		{"push_current", k.PushCurrent},
		{"filter", k.Filter},
		{"refresh", k.Refresh},
		{"help", k.Help},
		{"quit", k.Quit},
	}

	var warnings []string
	owner := make(map[string]string)
	for _, a := range actions {
		for _, key := range ParseKeys(a.keys) {
			if prev, ok := owner[key]; ok && prev != a.name {
				warnings = append(warnings, fmt.Sprintf("Key %q is bound to both keys.%s and keys.%s", key, prev, a.name))
				continue
			}
			owner[key] = a.name
		}
	}
	return warnings
}

// ParseKeys parses a comma-separated list of keys.
func ParseKeys(s string) []string {
	var keys []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
