package components

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
)

type fakeEngine struct {
	requests   []asyncgit.PushRequest
	requestErr error
	pending    bool
	progress   *git.PushProgress
	lastResult string
	queryErr   error
}

func (f *fakeEngine) Request(req asyncgit.PushRequest) error {
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requests = append(f.requests, req)
	f.pending = true
	return nil
}

func (f *fakeEngine) IsPending() (bool, error) { return f.pending, f.queryErr }

func (f *fakeEngine) Progress() (*git.PushProgress, error) { return f.progress, f.queryErr }

func (f *fakeEngine) LastResult() (string, error) { return f.lastResult, f.queryErr }

type fakeCreds struct {
	need       bool
	needErr    error
	cred       git.BasicAuthCredential
	extractErr error
	asked      []string
}

func (f *fakeCreds) NeedUsernamePassword(remote string) (bool, error) {
	f.asked = append(f.asked, remote)
	return f.need, f.needErr
}

func (f *fakeCreds) ExtractUsernamePassword(string) (git.BasicAuthCredential, error) {
	return f.cred, f.extractErr
}

type fixture struct {
	comp   *PushComponent
	engine *fakeEngine
	creds  *fakeCreds
	queue  *queue.Queue
}

func newFixture() *fixture {
	f := &fixture{
		engine: &fakeEngine{},
		creds:  &fakeCreds{},
		queue:  queue.New(16),
	}
	f.comp = NewPushComponent(f.queue, f.engine, f.creds, "origin", nil, DefaultKeyConfig())
	n := 0
	f.comp.newID = func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	return f
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func pushNotification(id string) asyncgit.Notification {
	return asyncgit.Notification{Kind: asyncgit.NotificationPush, RequestID: id}
}

func TestPushWithoutAuthentication(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.comp.Push("main"))

	require.Len(t, f.engine.requests, 1)
	req := f.engine.requests[0]
	assert.Equal(t, "origin", req.Remote)
	assert.Equal(t, "main", req.Branch)
	assert.Nil(t, req.BasicCredential)
	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, []string{"origin"}, f.creds.asked)

	assert.True(t, f.comp.IsVisible())
	assert.True(t, f.comp.IsPending())
	assert.Nil(t, f.comp.Progress())
	assert.False(t, f.comp.Cred().IsVisible())
}

func TestPushWithStoredCompleteCredential(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	f.creds.cred = git.BasicAuthCredential{Username: "u", Password: "p"}

	require.NoError(t, f.comp.Push("main"))

	require.Len(t, f.engine.requests, 1)
	require.NotNil(t, f.engine.requests[0].BasicCredential)
	assert.Equal(t, f.creds.cred, *f.engine.requests[0].BasicCredential)
	assert.True(t, f.comp.IsPending())
	assert.False(t, f.comp.Cred().IsVisible())
}

func TestPushPromptsForIncompleteCredential(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	f.creds.cred = git.BasicAuthCredential{Username: "alice"}

	require.NoError(t, f.comp.Push("main"))

	assert.True(t, f.comp.IsVisible())
	assert.False(t, f.comp.IsPending())
	assert.Empty(t, f.engine.requests)
	assert.True(t, f.comp.Cred().IsVisible())
	assert.Equal(t, git.BasicAuthCredential{Username: "alice"}, f.comp.Cred().GetCred())
}

func TestPushExtractionFailureShowsEmptyPrompt(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	f.creds.cred = git.BasicAuthCredential{Username: "ignored"}
	f.creds.extractErr = errors.New("no helper")

	require.NoError(t, f.comp.Push("main"))

	assert.True(t, f.comp.Cred().IsVisible())
	assert.Equal(t, git.BasicAuthCredential{}, f.comp.Cred().GetCred())
	assert.False(t, f.comp.IsPending())
	assert.Empty(t, f.engine.requests)
}

func TestConfirmCompleteCredentialStartsPush(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	f.creds.extractErr = errors.New("no helper")
	require.NoError(t, f.comp.Push("main"))

	for _, k := range []string{"b", "o", "b"} {
		consumed, err := f.comp.Event(keyMsg(k))
		require.NoError(t, err)
		assert.True(t, consumed)
	}
	// enter on the username field moves to the empty password
	consumed, err := f.comp.Event(keyMsg("enter"))
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Empty(t, f.engine.requests)

	_, err = f.comp.Event(keyMsg("s3cret"))
	require.NoError(t, err)
	assert.True(t, f.comp.Cred().IsComplete())

	consumed, err = f.comp.Event(keyMsg("enter"))
	require.NoError(t, err)
	assert.True(t, consumed)

	require.Len(t, f.engine.requests, 1)
	require.NotNil(t, f.engine.requests[0].BasicCredential)
	assert.Equal(t, git.BasicAuthCredential{Username: "bob", Password: "s3cret"}, *f.engine.requests[0].BasicCredential)
	assert.False(t, f.comp.Cred().IsVisible())
	assert.True(t, f.comp.IsVisible())
	assert.True(t, f.comp.IsPending())
}

func TestConfirmPrimedCredential(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	require.NoError(t, f.comp.Push("main"))

	f.comp.Cred().SetCred(git.BasicAuthCredential{Username: "u", Password: "p"})
	_, err := f.comp.Event(keyMsg("enter"))
	require.NoError(t, err)

	require.Len(t, f.engine.requests, 1)
	assert.False(t, f.comp.Cred().IsVisible())
	assert.True(t, f.comp.IsVisible())
}

func TestConfirmIncompleteCredentialHides(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	f.creds.cred = git.BasicAuthCredential{Username: "u"}
	require.NoError(t, f.comp.Push("main"))

	// focus is on the empty password, enter is left to the popup
	consumed, err := f.comp.Event(keyMsg("enter"))
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, f.comp.IsVisible())
	assert.False(t, f.comp.Cred().IsVisible())
	assert.Empty(t, f.engine.requests)

	// the list gets its keys and commands back
	list := []CommandInfo{NewCommandInfo("push [p]", true, true)}
	cmds, blocking := f.comp.Commands(append([]CommandInfo(nil), list...), false)
	assert.Equal(t, PassingOn, blocking)
	require.Len(t, cmds, 2)
	assert.Equal(t, list[0], cmds[0])
	assert.Equal(t, "close [esc]", cmds[1].Text)
	assert.False(t, cmds[1].Available)
}

func TestNeedUsernamePasswordErrorPropagates(t *testing.T) {
	f := newFixture()
	f.creds.needErr = git.ErrRemoteNotFound

	err := f.comp.Push("main")
	require.ErrorIs(t, err, git.ErrRemoteNotFound)

	assert.True(t, f.comp.IsVisible())
	assert.False(t, f.comp.IsPending())
	assert.False(t, f.comp.Cred().IsVisible())
	assert.Empty(t, f.engine.requests)
}

func TestSubmissionFailureRollsBackPending(t *testing.T) {
	f := newFixture()
	f.engine.requestErr = asyncgit.ErrBusy

	err := f.comp.Push("main")
	require.ErrorIs(t, err, asyncgit.ErrBusy)
	assert.False(t, f.comp.IsPending())
	assert.Empty(t, f.comp.RequestID())

	// also from a pending state
	f.engine.requestErr = nil
	require.NoError(t, f.comp.Push("main"))
	require.True(t, f.comp.IsPending())

	f.engine.requestErr = errors.New("spawn failed")
	err = f.comp.pushToRemote(nil)
	require.Error(t, err)
	assert.False(t, f.comp.IsPending())
}

func TestNonPushNotificationIgnored(t *testing.T) {
	f := newFixture()
	f.engine.lastResult = "should not be read"

	require.NoError(t, f.comp.UpdateGit(asyncgit.Notification{Kind: asyncgit.NotificationStatus}))
	assert.False(t, f.comp.IsVisible())
	assert.False(t, f.comp.IsPending())
	assert.Nil(t, f.comp.Progress())

	require.NoError(t, f.comp.Push("main"))
	f.engine.pending = false
	require.NoError(t, f.comp.UpdateGit(asyncgit.Notification{Kind: asyncgit.NotificationStatus}))
	assert.True(t, f.comp.IsVisible())
	assert.True(t, f.comp.IsPending())
	assert.Zero(t, f.queue.Len())
}

func TestNotificationIgnoredWhileHidden(t *testing.T) {
	f := newFixture()
	f.engine.lastResult = "boom"
	require.NoError(t, f.comp.UpdateGit(pushNotification("")))
	assert.Zero(t, f.queue.Len())
	assert.False(t, f.comp.IsVisible())
}

func TestStaleNotificationIgnored(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	f.engine.pending = false
	f.engine.lastResult = "from an old push"
	require.NoError(t, f.comp.UpdateGit(pushNotification("req-0")))

	assert.True(t, f.comp.IsVisible())
	assert.True(t, f.comp.IsPending())
	assert.Zero(t, f.queue.Len())
}

func TestProgressNotification(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	f.engine.progress = &git.PushProgress{State: git.PushProgressDeltas, Progress: 42}
	require.NoError(t, f.comp.UpdateGit(pushNotification(f.comp.RequestID())))

	assert.True(t, f.comp.IsVisible())
	assert.True(t, f.comp.IsPending())
	label, pct := ProgressLabel(f.comp.Progress())
	assert.Equal(t, "computing deltas", label)
	assert.Equal(t, uint8(42), pct)
	assert.Contains(t, f.comp.View(), "computing deltas")
}

func TestTerminalSuccessIsSilent(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	f.engine.pending = false
	f.engine.lastResult = ""
	require.NoError(t, f.comp.UpdateGit(pushNotification(f.comp.RequestID())))

	assert.False(t, f.comp.IsVisible())
	assert.False(t, f.comp.IsPending())
	assert.Zero(t, f.queue.Len())
}

func TestTerminalFailureReported(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	f.engine.pending = false
	f.engine.lastResult = "connection reset"
	require.NoError(t, f.comp.UpdateGit(pushNotification(f.comp.RequestID())))

	assert.False(t, f.comp.IsVisible())
	events := f.queue.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, queue.EventPushFailed, events[0].Kind)
	assert.Equal(t, "push failed:\nconnection reset", events[0].Message)
}

func TestQueryErrorPropagates(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	f.engine.queryErr = errors.New("poisoned")
	require.Error(t, f.comp.UpdateGit(pushNotification(f.comp.RequestID())))
	assert.True(t, f.comp.IsVisible())
}

func TestEventWhenHidden(t *testing.T) {
	f := newFixture()
	consumed, err := f.comp.Event(keyMsg("enter"))
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestCloseDoesNotCancel(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	consumed, err := f.comp.Event(keyMsg("esc"))
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, f.comp.IsVisible())
	assert.True(t, f.engine.pending)
}

func TestCloseHidesPrompt(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	require.NoError(t, f.comp.Push("main"))

	consumed, err := f.comp.Event(keyMsg("esc"))
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, f.comp.IsVisible())
	assert.False(t, f.comp.Cred().IsVisible())
}

func TestEveryKeyConsumedWhileVisible(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.comp.Push("main"))

	consumed, err := f.comp.Event(keyMsg("x"))
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.True(t, f.comp.IsVisible())
}

func TestPushResetsPromptLeftOpen(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	require.NoError(t, f.comp.Push("main"))
	require.True(t, f.comp.Cred().IsVisible())
	f.comp.Hide()

	f.creds.need = false
	require.NoError(t, f.comp.Push("feature"))
	assert.False(t, f.comp.Cred().IsVisible())
	require.Len(t, f.engine.requests, 1)
	assert.Equal(t, "feature", f.engine.requests[0].Branch)
}

func TestCommands(t *testing.T) {
	f := newFixture()
	prior := []CommandInfo{NewCommandInfo("push [p]", true, true)}

	out, blocking := f.comp.Commands(append([]CommandInfo(nil), prior...), false)
	assert.Equal(t, PassingOn, blocking)
	require.Len(t, out, 2)
	assert.Equal(t, prior[0], out[0])
	assert.False(t, out[1].Available)

	require.NoError(t, f.comp.Push("main"))
	out, blocking = f.comp.Commands(append([]CommandInfo(nil), prior...), false)
	assert.Equal(t, Blocking, blocking)
	require.Len(t, out, 1)
	assert.Equal(t, "close [esc]", out[0].Text)
	assert.False(t, out[0].Enabled, "close is disabled while pending")

	f.engine.pending = false
	f.engine.progress = &git.PushProgress{State: git.PushProgressPushing, Progress: 100}
	f.comp.pending = false
	out, _ = f.comp.Commands(nil, false)
	require.Len(t, out, 1)
	assert.True(t, out[0].Enabled)
}

func TestCommandsWithPrompt(t *testing.T) {
	f := newFixture()
	f.creds.need = true
	require.NoError(t, f.comp.Push("main"))

	out, blocking := f.comp.Commands(nil, false)
	assert.Equal(t, Blocking, blocking)
	require.Len(t, out, 3)
	assert.Equal(t, "confirm [enter]", out[1].Text)
	assert.False(t, out[1].Enabled)

	f.comp.Cred().SetCred(git.BasicAuthCredential{Username: "u", Password: "p"})
	out, _ = f.comp.Commands(nil, false)
	assert.True(t, out[1].Enabled)
}

func TestViewHidden(t *testing.T) {
	f := newFixture()
	assert.Empty(t, f.comp.View())

	require.NoError(t, f.comp.Push("main"))
	view := f.comp.View()
	assert.Contains(t, view, "preparing...")
	assert.Contains(t, view, "main")
}

func TestDefaultRemote(t *testing.T) {
	c := NewPushComponent(queue.New(1), &fakeEngine{}, &fakeCreds{}, "", nil, DefaultKeyConfig())
	assert.Equal(t, git.DefaultRemoteName, c.Remote())
}
