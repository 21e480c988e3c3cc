package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/ui"
)

const (
	fieldUsername = iota
	fieldPassword
)

// CredComponent prompts for a username and password.
type CredComponent struct {
	visible  bool
	focus    int
	username textinput.Model
	password textinput.Model

	theme *ui.Theme
	keys  KeyConfig
}

// NewCredComponent creates a hidden, empty prompt.
func NewCredComponent(theme *ui.Theme, keys KeyConfig) *CredComponent {
	if theme == nil {
		theme = ui.DefaultTheme()
	}

	username := textinput.New()
	username.Prompt = "username: "
	username.Placeholder = "user"
	username.CharLimit = 256
	username.Width = 30
	username.Cursor.SetMode(cursor.CursorStatic)

	password := textinput.New()
	password.Prompt = "password: "
	password.Placeholder = "password or token"
	password.CharLimit = 1024
	password.Width = 30
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.Cursor.SetMode(cursor.CursorStatic)

	return &CredComponent{
		username: username,
		password: password,
		theme:    theme,
		keys:     keys,
	}
}

// SetCred primes the inputs with cred.
func (c *CredComponent) SetCred(cred git.BasicAuthCredential) {
	c.username.SetValue(cred.Username)
	c.password.SetValue(cred.Password)
	c.username.CursorEnd()
	c.password.CursorEnd()
	if cred.Username == "" {
		c.setFocus(fieldUsername)
	} else {
		c.setFocus(fieldPassword)
	}
}

// GetCred returns the entered credential.
func (c *CredComponent) GetCred() git.BasicAuthCredential {
	return git.BasicAuthCredential{
		Username: c.username.Value(),
		Password: c.password.Value(),
	}
}

// IsComplete reports whether both fields are filled.
func (c *CredComponent) IsComplete() bool {
	return c.GetCred().IsComplete()
}

// IsVisible reports whether the prompt is shown.
func (c *CredComponent) IsVisible() bool {
	return c.visible
}

// Show shows the prompt.
func (c *CredComponent) Show() error {
	c.visible = true
	c.setFocus(c.focus)
	return nil
}

// Hide hides the prompt. The entered values are kept until the next
// SetCred.
func (c *CredComponent) Hide() {
	c.visible = false
	c.username.Blur()
	c.password.Blur()
}

func (c *CredComponent) setFocus(field int) {
	c.focus = field
	if field == fieldUsername {
		c.username.Focus()
		c.password.Blur()
	} else {
		c.password.Focus()
		c.username.Blur()
	}
}

// Event handles a key while visible. The close key hides the prompt. The
// confirm key moves from an empty password to it, and is otherwise left to
// the caller. Every other key edits the focused field.
func (c *CredComponent) Event(msg tea.KeyMsg) (bool, error) {
	if !c.visible {
		return false, nil
	}

	switch {
	case key.Matches(msg, c.keys.Close):
		c.Hide()
		return true, nil
	case key.Matches(msg, c.keys.NextField):
		c.setFocus(1 - c.focus)
		return true, nil
	case key.Matches(msg, c.keys.Confirm):
		if c.focus == fieldUsername && c.password.Value() == "" {
			c.setFocus(fieldPassword)
			return true, nil
		}
		return false, nil
	}

	if c.focus == fieldUsername {
		c.username, _ = c.username.Update(msg)
	} else {
		c.password, _ = c.password.Update(msg)
	}
	return true, nil
}

// Commands appends the prompt's commands.
func (c *CredComponent) Commands(out []CommandInfo, forceAll bool) ([]CommandInfo, CommandBlocking) {
	if c.visible || forceAll {
		out = append(out,
			NewCommandInfo(commandText("next field", c.keys.NextField), true, c.visible),
			NewCommandInfo(commandText("confirm", c.keys.Confirm), c.IsComplete(), c.visible),
			NewCommandInfo(commandText("close", c.keys.Close), true, c.visible),
		)
	}
	return out, VisibilityBlocking(c.visible)
}

// View renders the prompt, or "" when hidden.
func (c *CredComponent) View() string {
	if !c.visible {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.theme.Title(true).Render("Credentials") + "\n\n")
	b.WriteString(c.username.View() + "\n")
	b.WriteString(c.password.View())
	return c.theme.Popup(true).Render(b.String())
}
