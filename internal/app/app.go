package app

import (
	"errors"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/components"
	"github.com/henri123lemoine/shove/internal/config"
	"github.com/henri123lemoine/shove/internal/debug"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
	"github.com/henri123lemoine/shove/internal/ui"
)

// State represents the current UI state.
type State int

const (
	StateList State = iota
	StateFilter
	StateHelp
)

// listChrome is the number of lines around the branch list (box, header,
// dividers, command bar, status).
const listChrome = 12

// Services are the collaborators of the model.
type Services struct {
	// Remote is the remote pushes go to.
	Remote string

	Engine components.PushEngine
	Creds  components.CredentialSource
	Queue  *queue.Queue

	// Notifications receives engine and watcher notifications.
	Notifications <-chan asyncgit.Notification

	Theme *ui.Theme
}

// Model is the main application model.
type Model struct {
	// Configuration
	config *config.Config
	repo   *git.Repo

	// Data
	branches         []git.Branch
	filteredBranches []git.Branch
	remoteBranches   []git.Branch
	cursor           int
	viewOffset       int
	selectedOnce     bool

	// State
	state   State
	loading bool
	err     error

	// Status line, fed by the event queue
	status        string
	statusIsError bool

	// Filter
	filterInput textinput.Model

	// Push
	push          *components.PushComponent
	engine        components.PushEngine
	queue         *queue.Queue
	notifications <-chan asyncgit.Notification

	// UI
	width   int
	height  int
	keys    KeyMap
	theme   *ui.Theme
	spinner spinner.Model

	shouldQuit bool
}

// New creates a new Model.
func New(cfg *config.Config, repo *git.Repo, svc Services) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	theme := svc.Theme
	if theme == nil {
		theme = ui.DefaultTheme()
	}
	q := svc.Queue
	if q == nil {
		q = queue.New(0)
	}
	keys := KeyMapFromConfig(&cfg.Keys)

	filterInput := textinput.New()
	filterInput.Placeholder = "filter..."
	filterInput.CharLimit = 50

	return Model{
		config:        cfg,
		repo:          repo,
		filterInput:   filterInput,
		push:          components.NewPushComponent(q, svc.Engine, svc.Creds, svc.Remote, theme, keys.Popup()),
		engine:        svc.Engine,
		queue:         q,
		notifications: svc.Notifications,
		keys:          keys,
		theme:         theme,
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		state:         StateList,
		loading:       true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadBranches(),
		waitForNotification(m.notifications),
		waitForEvent(m.queue),
		m.spinner.Tick,
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.shouldQuit = true
			return m, tea.Quit
		}

		// The push popup is modal
		if m.push.IsVisible() {
			if _, err := m.push.Event(msg); err != nil {
				m.setError(err)
			}
			return m, nil
		}

		if key.Matches(msg, m.keys.Quit) && m.state == StateList {
			m.shouldQuit = true
			return m, tea.Quit
		}

		return m.handleKeyPress(msg)

	case BranchesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.setBranches(msg.Branches)
		m.remoteBranches = msg.RemoteBranches
		return m, nil

	case NotificationMsg:
		if msg.Closed {
			return m, nil
		}
		return m, tea.Batch(m.handleNotification(msg.Notification), waitForNotification(m.notifications))

	case QueueEventMsg:
		if msg.Closed {
			return m, nil
		}
		m.status = msg.Event.Message
		m.statusIsError = msg.Event.IsError()
		return m, waitForEvent(m.queue)

	case ErrorMsg:
		m.setError(msg.Err)
		return m, nil
	}

	return m, nil
}

// handleNotification routes a notification and returns a reload command
// when the branch list may have changed.
func (m *Model) handleNotification(n asyncgit.Notification) tea.Cmd {
	debug.Log("notification %s %s", n.Kind, n.RequestID)
	switch n.Kind {
	case asyncgit.NotificationPush:
		if err := m.push.UpdateGit(n); err != nil {
			m.setError(err)
		}
		// A finished push moves the remote-tracking ref, even when the
		// popup was closed before it ended.
		if m.engine == nil {
			return nil
		}
		if pending, err := m.engine.IsPending(); err == nil && !pending {
			return m.loadBranches()
		}
	case asyncgit.NotificationStatus:
		return m.loadBranches()
	}
	return nil
}

// handleKeyPress handles key presses based on current state.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateList:
		return m.handleListKeys(msg)
	case StateFilter:
		return m.handleFilterKeys(msg)
	case StateHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

// handleListKeys handles key presses in the list view.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.filteredBranches)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.filteredBranches) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.Push):
		if b := m.selectedBranch(); b != nil {
			m.startPush(b.Name)
		}
	case key.Matches(msg, m.keys.PushCurrent):
		for _, b := range m.branches {
			if b.IsCurrent {
				m.startPush(b.Name)
				break
			}
		}
	case key.Matches(msg, m.keys.Filter):
		m.state = StateFilter
		m.filterInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, tea.Batch(m.loadBranches(), m.spinner.Tick)
	case key.Matches(msg, m.keys.Help):
		m.state = StateHelp
		return m, nil
	}
	m.ensureCursorVisible()
	return m, nil
}

// handleHelpKeys handles key presses in the help view.
func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	m.state = StateList
	return m, nil
}

// handleFilterKeys handles key presses in filter mode.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateList
		m.filterInput.Reset()
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.state = StateList
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// startPush opens the push popup for branch.
func (m *Model) startPush(branch string) {
	m.status = ""
	m.statusIsError = false
	debug.Logger().Info().Str("branch", branch).Str("remote", m.push.Remote()).Msg("push")
	if err := m.push.Push(branch); err != nil {
		m.push.Hide()
		m.setError(err)
	}
}

// setError shows err on the status line.
func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	debug.Logger().Error().Err(err).Msg("error")
	m.status = err.Error()
	m.statusIsError = true
	if errors.Is(err, asyncgit.ErrBusy) {
		m.status = "a push is still running, wait for it to finish"
	}
}

// setBranches replaces the branch list, keeping the selected branch.
func (m *Model) setBranches(branches []git.Branch) {
	selected := ""
	if b := m.selectedBranch(); b != nil {
		selected = b.Name
	} else if !m.selectedOnce {
		selected = m.config.General.DefaultBranch
	}
	m.selectedOnce = true

	m.branches = branches
	m.applyFilter()

	for i, b := range m.filteredBranches {
		if b.Name == selected {
			m.cursor = i
			break
		}
	}
	m.ensureCursorVisible()
}

func (m *Model) selectedBranch() *git.Branch {
	if m.cursor < 0 || m.cursor >= len(m.filteredBranches) {
		return nil
	}
	return &m.filteredBranches[m.cursor]
}

// branchSource implements fuzzy.Source for branch fuzzy matching.
type branchSource []git.Branch

func (b branchSource) String(i int) string {
	return b[i].Name
}

func (b branchSource) Len() int {
	return len(b)
}

// applyFilter filters branches based on current filter input using fuzzy matching.
func (m *Model) applyFilter() {
	filter := m.filterInput.Value()
	if filter == "" {
		m.filteredBranches = m.branches
	} else {
		matches := fuzzy.FindFrom(filter, branchSource(m.branches))

		m.filteredBranches = nil
		for _, match := range matches {
			m.filteredBranches = append(m.filteredBranches, m.branches[match.Index])
		}
	}

	// Ensure cursor is in bounds
	if m.cursor >= len(m.filteredBranches) {
		m.cursor = len(m.filteredBranches) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// visibleCount returns how many branches fit on screen.
func (m Model) visibleCount() int {
	if m.height == 0 {
		return len(m.filteredBranches)
	}
	n := m.height - listChrome
	if len(m.remoteBranches) > 0 {
		n -= len(m.remoteBranches) + 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ensureCursorVisible scrolls the list so the cursor is shown.
func (m *Model) ensureCursorVisible() {
	count := m.visibleCount()
	if m.cursor < m.viewOffset {
		m.viewOffset = m.cursor
	}
	if count > 0 && m.cursor >= m.viewOffset+count {
		m.viewOffset = m.cursor - count + 1
	}
	if m.viewOffset < 0 {
		m.viewOffset = 0
	}
}

// commands returns the command bar entries.
func (m Model) commands() []ui.Command {
	cmds := m.keys.listCommands(len(m.filteredBranches) > 0)
	cmds, _ = m.push.Commands(cmds, false)

	var out []ui.Command
	for _, c := range cmds {
		if !c.Available {
			continue
		}
		out = append(out, ui.Command{Text: c.Text, Enabled: c.Enabled})
	}
	return out
}

// View renders the UI.
func (m Model) View() string {
	repoName := ""
	if m.repo != nil {
		repoName = filepath.Base(m.repo.Root)
	}
	var remoteBranches []git.Branch
	if m.config.UI.ShowRemoteBranches {
		remoteBranches = m.remoteBranches
	}

	return ui.Render(ui.RenderParams{
		State:          int(m.state),
		Theme:          m.theme,
		Branches:       m.filteredBranches,
		RemoteBranches: remoteBranches,
		Cursor:         m.cursor,
		ViewOffset:     m.viewOffset,
		VisibleCount:   m.visibleCount(),
		Width:          m.width,
		Height:         m.height,
		Loading:        m.loading,
		Err:            m.err,
		RepoName:       repoName,
		Remote:         m.push.Remote(),
		FilterInput:    m.filterInput.View(),
		ShowUpstream:   m.config.UI.ShowUpstream,
		SpinnerFrame:   m.spinner.View(),
		HelpSections:   m.keys.helpSections(),
		Commands:       m.commands(),
		Status:         m.status,
		StatusIsError:  m.statusIsError,
		Popup:          m.push.View(),
	})
}

// ShouldQuit returns true if the app should quit.
func (m Model) ShouldQuit() bool {
	return m.shouldQuit
}

// Commands

func (m Model) loadBranches() tea.Cmd {
	dir := ""
	if m.repo != nil {
		dir = m.repo.Root
	}
	withRemote := m.config.UI.ShowRemoteBranches
	return func() tea.Msg {
		defer debug.Timed("load branches")()
		branches, err := git.ListBranches(dir)
		if err != nil {
			return BranchesLoadedMsg{Err: err}
		}
		msg := BranchesLoadedMsg{Branches: branches}
		if withRemote {
			// Non-fatal, the local list is still useful
			remote, err := git.ListRemoteBranches(dir)
			if err != nil {
				debug.Logger().Warn().Err(err).Msg("list remote branches")
			}
			msg.RemoteBranches = remote
		}
		return msg
	}
}

func waitForNotification(ch <-chan asyncgit.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		return NotificationMsg{Notification: n, Closed: !ok}
	}
}

func waitForEvent(q *queue.Queue) tea.Cmd {
	if q == nil {
		return nil
	}
	events := q.Events()
	return func() tea.Msg {
		ev, ok := <-events
		return QueueEventMsg{Event: ev, Closed: !ok}
	}
}
