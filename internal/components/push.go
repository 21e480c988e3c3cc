package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/debug"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
	"github.com/henri123lemoine/shove/internal/ui"
)

// CredentialSource answers credential questions about a remote.
// git.Credentials implements it.
type CredentialSource interface {
	NeedUsernamePassword(remote string) (bool, error)
	ExtractUsernamePassword(remote string) (git.BasicAuthCredential, error)
}

// PushEngine runs pushes in the background. *asyncgit.AsyncPush
// implements it.
type PushEngine interface {
	Request(req asyncgit.PushRequest) error
	IsPending() (bool, error)
	Progress() (*git.PushProgress, error)
	LastResult() (string, error)
}

// EventSink receives messages for the status bar. *queue.Queue
// implements it.
type EventSink interface {
	Push(ev queue.InternalEvent)
}

const gaugeWidth = 28

// PushComponent is the push popup. It asks for credentials when the remote
// needs them, starts the push and follows its progress until it ends.
type PushComponent struct {
	visible   bool
	pending   bool
	branch    string
	remote    string
	requestID string
	progress  *git.PushProgress
	inputCred *CredComponent

	engine PushEngine
	creds  CredentialSource
	queue  EventSink
	theme  *ui.Theme
	keys   KeyConfig
	gauge  progress.Model
	newID  func() string
}

// NewPushComponent creates a hidden push popup pushing to remote.
func NewPushComponent(q EventSink, engine PushEngine, creds CredentialSource, remote string, theme *ui.Theme, keys KeyConfig) *PushComponent {
	if theme == nil {
		theme = ui.DefaultTheme()
	}
	if remote == "" {
		remote = git.DefaultRemoteName
	}
	return &PushComponent{
		remote:    remote,
		inputCred: NewCredComponent(theme, keys),
		engine:    engine,
		creds:     creds,
		queue:     q,
		theme:     theme,
		keys:      keys,
		gauge: progress.New(
			progress.WithSolidFill(theme.GaugeColor()),
			progress.WithWidth(gaugeWidth),
			progress.WithoutPercentage(),
		),
		newID: uuid.NewString,
	}
}

// Push starts pushing branch. When the remote needs a username and
// password that cannot be found, the credential prompt is shown instead and
// the push starts once it is confirmed.
func (c *PushComponent) Push(branch string) error {
	c.branch = branch
	c.pending = false
	c.progress = nil
	c.requestID = ""
	c.inputCred.Hide()
	if err := c.Show(); err != nil {
		return err
	}

	need, err := c.creds.NeedUsernamePassword(c.remote)
	if err != nil {
		return err
	}
	if !need {
		return c.pushToRemote(nil)
	}

	cred, err := c.creds.ExtractUsernamePassword(c.remote)
	if err != nil {
		debug.Logger().Debug().Err(err).Str("remote", c.remote).Msg("credential extraction failed")
		cred = git.BasicAuthCredential{}
	}
	if cred.IsComplete() {
		return c.pushToRemote(&cred)
	}

	c.inputCred.SetCred(cred)
	return c.inputCred.Show()
}

func (c *PushComponent) pushToRemote(cred *git.BasicAuthCredential) error {
	id := c.newID()
	c.pending = true
	c.progress = nil
	c.requestID = id

	var reqCred *git.BasicAuthCredential
	if cred != nil {
		cp := *cred
		reqCred = &cp
	}
	err := c.engine.Request(asyncgit.PushRequest{
		ID:              id,
		Remote:          c.remote,
		Branch:          c.branch,
		BasicCredential: reqCred,
	})
	if err != nil {
		c.pending = false
		c.requestID = ""
		return fmt.Errorf("push %s: %w", c.branch, err)
	}
	return nil
}

// UpdateGit reacts to an engine notification. Only push notifications of
// the current request are handled while visible.
func (c *PushComponent) UpdateGit(n asyncgit.Notification) error {
	if !c.visible || n.Kind != asyncgit.NotificationPush {
		return nil
	}
	if n.RequestID != "" && n.RequestID != c.requestID {
		debug.Logger().Debug().
			Str("request", n.RequestID).
			Str("current", c.requestID).
			Msg("ignoring stale push notification")
		return nil
	}
	return c.update()
}

func (c *PushComponent) update() error {
	pending, err := c.engine.IsPending()
	if err != nil {
		return err
	}
	prog, err := c.engine.Progress()
	if err != nil {
		return err
	}
	c.pending = pending
	c.progress = prog

	if !c.pending {
		msg, err := c.engine.LastResult()
		if err != nil {
			return err
		}
		if msg != "" {
			c.queue.Push(queue.InternalEvent{
				Kind:    queue.EventPushFailed,
				Message: "push failed:\n" + msg,
			})
		}
		c.Hide()
	}
	return nil
}

// Event handles a key. While visible every key is consumed.
func (c *PushComponent) Event(msg tea.KeyMsg) (bool, error) {
	if !c.visible {
		return false, nil
	}

	if key.Matches(msg, c.keys.Close) {
		c.Hide()
	}
	consumed, err := c.inputCred.Event(msg)
	if err != nil {
		return true, err
	}
	if consumed {
		return true, nil
	}
	if key.Matches(msg, c.keys.Confirm) {
		if c.inputCred.IsVisible() && c.inputCred.IsComplete() {
			cred := c.inputCred.GetCred()
			if err := c.pushToRemote(&cred); err != nil {
				return true, err
			}
			c.inputCred.Hide()
		} else {
			c.Hide()
		}
	}
	return true, nil
}

// Commands returns out extended with the popup's commands. While visible
// the commands of other components are dropped.
func (c *PushComponent) Commands(out []CommandInfo, forceAll bool) ([]CommandInfo, CommandBlocking) {
	if c.visible {
		out = out[:0]
		if c.inputCred.IsVisible() {
			return c.inputCred.Commands(out, forceAll)
		}
	}
	out = append(out, NewCommandInfo(commandText("close", c.keys.Close), !c.pending, c.visible))
	return out, VisibilityBlocking(c.visible)
}

// IsVisible reports whether the popup is shown.
func (c *PushComponent) IsVisible() bool {
	return c.visible
}

// IsPending reports whether a push was started and has not ended yet.
func (c *PushComponent) IsPending() bool {
	return c.pending
}

// Branch returns the branch of the last Push.
func (c *PushComponent) Branch() string {
	return c.branch
}

// Remote returns the remote pushed to.
func (c *PushComponent) Remote() string {
	return c.remote
}

// RequestID returns the ID of the last request issued, or "".
func (c *PushComponent) RequestID() string {
	return c.requestID
}

// Progress returns the last progress snapshot seen.
func (c *PushComponent) Progress() *git.PushProgress {
	return c.progress
}

// Cred returns the credential prompt.
func (c *PushComponent) Cred() *CredComponent {
	return c.inputCred
}

// Show shows the popup.
func (c *PushComponent) Show() error {
	c.visible = true
	return nil
}

// Hide hides the popup and its credential prompt. A running push goes on
// in the background.
func (c *PushComponent) Hide() {
	c.visible = false
	c.inputCred.Hide()
}

// View renders the popup, or "" when hidden.
func (c *PushComponent) View() string {
	if !c.visible {
		return ""
	}

	label, pct := ProgressLabel(c.progress)
	title := c.theme.Title(true).Render(fmt.Sprintf("Push %s → %s", c.branch, c.remote))
	status := c.theme.Text(true, false).Render(fmt.Sprintf("%s %3d%%", label, pct))
	gauge := c.theme.Popup(true).Render(title + "\n" + status + "\n" + c.gauge.ViewAs(float64(pct)/100))

	if c.inputCred.IsVisible() {
		return lipgloss.JoinVertical(lipgloss.Center, gauge, c.inputCred.View())
	}
	return gauge
}
