package app

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/config"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
)

type fakeEngine struct {
	requests   []asyncgit.PushRequest
	requestErr error
	pending    bool
	lastResult string
}

func (f *fakeEngine) Request(req asyncgit.PushRequest) error {
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requests = append(f.requests, req)
	f.pending = true
	return nil
}

func (f *fakeEngine) IsPending() (bool, error)             { return f.pending, nil }
func (f *fakeEngine) Progress() (*git.PushProgress, error) { return nil, nil }
func (f *fakeEngine) LastResult() (string, error)          { return f.lastResult, nil }

type fakeCreds struct {
	need bool
}

func (f fakeCreds) NeedUsernamePassword(string) (bool, error) { return f.need, nil }
func (f fakeCreds) ExtractUsernamePassword(string) (git.BasicAuthCredential, error) {
	return git.BasicAuthCredential{}, nil
}

func testRepo() *git.Repo {
	return &git.Repo{
		Root:          "/test/repo",
		GitDir:        "/test/repo/.git",
		DefaultBranch: "main",
	}
}

func testModel(t *testing.T) (Model, *fakeEngine, *queue.Queue) {
	t.Helper()
	engine := &fakeEngine{}
	q := queue.New(8)
	model := New(config.DefaultConfig(), testRepo(), Services{
		Remote: "origin",
		Engine: engine,
		Creds:  fakeCreds{},
		Queue:  q,
	})
	model.loading = false
	model.setBranches([]git.Branch{
		{Name: "main", IsCurrent: true, Upstream: "origin/main"},
		{Name: "feature1"},
		{Name: "feature2", Upstream: "origin/feature2", Ahead: 2},
	})
	return model, engine, q
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	cfg := config.DefaultConfig()
	repo := testRepo()

	model := New(cfg, repo, Services{Remote: "origin"})

	if model.state != StateList {
		t.Errorf("Expected initial state StateList, got %d", model.state)
	}

	if !model.loading {
		t.Error("Expected loading to be true initially")
	}

	if model.config != cfg {
		t.Error("Config not set correctly")
	}

	if model.repo != repo {
		t.Error("Repo not set correctly")
	}

	if model.push == nil || model.push.Remote() != "origin" {
		t.Error("Push popup not configured for origin")
	}
}

func TestStateTransitions(t *testing.T) {
	m, _, _ := testModel(t)

	m, _ = update(t, m, runes("?"))
	if m.state != StateHelp {
		t.Errorf("Expected StateHelp after '?', got %d", m.state)
	}

	// Any key closes help
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateList {
		t.Errorf("Expected StateList after closing help, got %d", m.state)
	}

	m, _ = update(t, m, runes("/"))
	if m.state != StateFilter {
		t.Errorf("Expected StateFilter after '/', got %d", m.state)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != StateList {
		t.Errorf("Expected StateList after exiting filter, got %d", m.state)
	}
}

func TestCursorNavigation(t *testing.T) {
	m, _, _ := testModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Errorf("Expected cursor 1 after down, got %d", m.cursor)
	}

	m, _ = update(t, m, runes("j"))
	if m.cursor != 2 {
		t.Errorf("Expected cursor 2 after 'j', got %d", m.cursor)
	}

	// Can't move down past last item
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("Expected cursor 2 (clamped), got %d", m.cursor)
	}

	m, _ = update(t, m, runes("g"))
	if m.cursor != 0 {
		t.Errorf("Expected cursor 0 after 'g', got %d", m.cursor)
	}

	m, _ = update(t, m, runes("G"))
	if m.cursor != 2 {
		t.Errorf("Expected cursor 2 after 'G', got %d", m.cursor)
	}

	m, _ = update(t, m, runes("k"))
	if m.cursor != 1 {
		t.Errorf("Expected cursor 1 after 'k', got %d", m.cursor)
	}
}

func TestFilter(t *testing.T) {
	m, _, _ := testModel(t)

	m, _ = update(t, m, runes("/"))
	for _, r := range "feat2" {
		m, _ = update(t, m, runes(string(r)))
	}

	if len(m.filteredBranches) != 1 || m.filteredBranches[0].Name != "feature2" {
		t.Fatalf("Expected only feature2, got %v", m.filteredBranches)
	}

	// enter keeps the filter
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateList || len(m.filteredBranches) != 1 {
		t.Errorf("Expected filtered list after enter, got state %d, %d branches", m.state, len(m.filteredBranches))
	}
}

func TestPushSelectedBranch(t *testing.T) {
	m, engine, _ := testModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, runes("p"))

	if len(engine.requests) != 1 {
		t.Fatalf("Expected one push request, got %d", len(engine.requests))
	}
	req := engine.requests[0]
	if req.Branch != "feature1" || req.Remote != "origin" || req.BasicCredential != nil {
		t.Errorf("Unexpected request %+v", req)
	}
	if !m.push.IsVisible() {
		t.Error("Expected push popup to be visible")
	}

	// The popup is modal: q does not quit
	m, cmd := update(t, m, runes("q"))
	if m.shouldQuit || cmd != nil {
		t.Error("Expected q to be consumed by the push popup")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.push.IsVisible() {
		t.Error("Expected esc to close the push popup")
	}
}

func TestPushCurrentBranch(t *testing.T) {
	m, engine, _ := testModel(t)
	m, _ = update(t, m, runes("G"))

	m, _ = update(t, m, runes("P"))

	if len(engine.requests) != 1 || engine.requests[0].Branch != "main" {
		t.Fatalf("Expected push of main, got %+v", engine.requests)
	}
}

func TestIncompleteCredentialClosesPopup(t *testing.T) {
	engine := &fakeEngine{}
	m := New(config.DefaultConfig(), testRepo(), Services{
		Remote: "origin",
		Engine: engine,
		Creds:  fakeCreds{need: true},
		Queue:  queue.New(8),
	})
	m.loading = false
	m.setBranches([]git.Branch{{Name: "main", IsCurrent: true}})

	m, _ = update(t, m, runes("p"))
	if !m.push.Cred().IsVisible() {
		t.Fatal("Expected credential prompt")
	}

	// enter moves to the password, a second enter with nothing typed closes
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.push.IsVisible() || m.push.Cred().IsVisible() {
		t.Fatal("Expected popup and prompt closed")
	}
	if len(engine.requests) != 0 {
		t.Errorf("Expected no push request, got %d", len(engine.requests))
	}

	for _, c := range m.commands() {
		if c.Text == "confirm [enter]" || c.Text == "next field [tab]" {
			t.Errorf("Unexpected prompt command %q on the list", c.Text)
		}
	}
	if cmds := m.commands(); len(cmds) == 0 || cmds[0].Text != "push [p]" {
		t.Errorf("Expected list commands, got %v", cmds)
	}
}

func TestPushBusy(t *testing.T) {
	m, engine, _ := testModel(t)
	engine.requestErr = asyncgit.ErrBusy

	m, _ = update(t, m, runes("p"))

	if !m.statusIsError || !strings.Contains(m.status, "still running") {
		t.Errorf("Expected busy status, got %q", m.status)
	}
	if m.push.IsPending() || m.push.IsVisible() {
		t.Error("Expected popup closed after rejected request")
	}
}

func TestPushFailureReachesStatusLine(t *testing.T) {
	m, engine, q := testModel(t)
	m, _ = update(t, m, runes("p"))
	id := m.push.RequestID()

	engine.pending = false
	engine.lastResult = "authentication required"
	m, cmd := update(t, m, NotificationMsg{Notification: asyncgit.Notification{Kind: asyncgit.NotificationPush, RequestID: id}})
	if cmd == nil {
		t.Error("Expected a reload command after the push ended")
	}
	if m.push.IsVisible() {
		t.Error("Expected push popup hidden after the push ended")
	}

	events := q.Drain()
	if len(events) != 1 {
		t.Fatalf("Expected one queued event, got %d", len(events))
	}
	m, _ = update(t, m, QueueEventMsg{Event: events[0]})
	if !m.statusIsError || !strings.Contains(m.status, "authentication required") {
		t.Errorf("Expected failure on the status line, got %q", m.status)
	}
}

func TestPushProgressKeepsPopup(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, runes("p"))

	m, _ = update(t, m, NotificationMsg{Notification: asyncgit.Notification{Kind: asyncgit.NotificationPush, RequestID: m.push.RequestID()}})
	if !m.push.IsVisible() || !m.push.IsPending() {
		t.Error("Expected popup to stay while the push runs")
	}
}

func TestStatusNotificationReloads(t *testing.T) {
	m, _, _ := testModel(t)
	_, cmd := update(t, m, NotificationMsg{Notification: asyncgit.Notification{Kind: asyncgit.NotificationStatus}})
	if cmd == nil {
		t.Error("Expected reload command on status notification")
	}
}

func TestClosedChannelsStopWaiting(t *testing.T) {
	m, _, _ := testModel(t)
	if _, cmd := update(t, m, NotificationMsg{Closed: true}); cmd != nil {
		t.Error("Expected no command for a closed notification channel")
	}
	if _, cmd := update(t, m, QueueEventMsg{Closed: true}); cmd != nil {
		t.Error("Expected no command for a closed queue")
	}
}

func TestBranchesLoadedKeepsSelection(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, runes("G")) // feature2

	m, _ = update(t, m, BranchesLoadedMsg{Branches: []git.Branch{
		{Name: "main", IsCurrent: true},
		{Name: "aaa"},
		{Name: "feature1"},
		{Name: "feature2"},
	}})
	if got := m.filteredBranches[m.cursor].Name; got != "feature2" {
		t.Errorf("Expected feature2 to stay selected, got %s", got)
	}
}

func TestDefaultBranchSelectedOnFirstLoad(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.DefaultBranch = "feature1"
	m := New(cfg, testRepo(), Services{Remote: "origin"})

	m, _ = update(t, m, BranchesLoadedMsg{Branches: []git.Branch{
		{Name: "main", IsCurrent: true},
		{Name: "feature1"},
	}})
	if m.loading {
		t.Error("Expected loading to be false")
	}
	if got := m.filteredBranches[m.cursor].Name; got != "feature1" {
		t.Errorf("Expected feature1 selected, got %s", got)
	}
}

func TestBranchesLoadError(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, BranchesLoadedMsg{Err: errors.New("not a git repository")})
	if m.err == nil {
		t.Error("Expected error to be set")
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := testModel(t)
	m, cmd := update(t, m, runes("q"))
	if !m.ShouldQuit() || cmd == nil {
		t.Error("Expected q to quit from the list")
	}
}

func TestKeyMapFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Keys
	cfg.Push = "x"
	cfg.Help = ""

	km := KeyMapFromConfig(&cfg)
	if got := km.Push.Keys(); len(got) != 1 || got[0] != "x" {
		t.Errorf("Expected push bound to x, got %v", got)
	}
	if got := km.Help.Keys(); len(got) != 1 || got[0] != "?" {
		t.Errorf("Expected default help key, got %v", got)
	}
	if km.Popup().Close.Help().Key != "esc" {
		t.Errorf("Expected popup close on esc, got %q", km.Popup().Close.Help().Key)
	}
}

func TestView(t *testing.T) {
	m, _, _ := testModel(t)
	m.width = 80
	m.height = 30

	view := m.View()
	for _, want := range []string{"feature1", "feature2", "push [p]"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}

	m, _ = update(t, m, runes("p"))
	view = m.View()
	if !strings.Contains(view, "preparing...") {
		t.Error("Expected push popup in view")
	}
	cmds := m.commands()
	if len(cmds) != 1 || cmds[0].Text != "close [esc]" {
		t.Errorf("Expected only the close command while the popup is shown, got %v", cmds)
	}
}
