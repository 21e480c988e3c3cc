package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/henri123lemoine/shove/internal/git"
)

// State constants (matching app.State)
const (
	StateList = iota
	StateFilter
	StateHelp
)

// HelpBinding represents a keybinding for help display.
type HelpBinding struct {
	Keys string
	Desc string
}

// HelpSection represents a section of help bindings.
type HelpSection struct {
	Title    string
	Bindings []HelpBinding
}

// Command is one entry of the command bar.
type Command struct {
	Text    string
	Enabled bool
}

// RenderParams contains all parameters needed for rendering.
type RenderParams struct {
	State          int
	Theme          *Theme
	Branches       []git.Branch
	RemoteBranches []git.Branch
	Cursor         int
	ViewOffset     int
	VisibleCount   int
	Width          int
	Height         int
	Loading        bool
	Err            error
	RepoName       string
	Remote         string
	FilterInput    string
	ShowUpstream   bool
	SpinnerFrame   string
	HelpSections   []HelpSection
	Commands       []Command

	// Status is the last message from the event queue.
	Status        string
	StatusIsError bool

	// Popup, when set, is drawn centered instead of the list.
	Popup string
}

// MinWidth is the absolute minimum terminal width we try to support.
const MinWidth = 30

// MinHeight is the absolute minimum terminal height we try to support.
const MinHeight = 8

// Render renders the full UI.
func Render(p RenderParams) string {
	if p.Width < MinWidth {
		p.Width = MinWidth
	}
	if p.Height < MinHeight {
		p.Height = MinHeight
	}
	if p.Theme == nil {
		p.Theme = DefaultTheme()
	}

	if p.Popup != "" {
		return lipgloss.Place(p.Width, p.Height, lipgloss.Center, lipgloss.Center, p.Popup)
	}

	switch p.State {
	case StateFilter:
		return renderFilter(p)
	case StateHelp:
		return renderHelp(p)
	default:
		return renderList(p)
	}
}

// renderList renders the main branch list.
func renderList(p RenderParams) string {
	t := p.Theme
	var b strings.Builder
	contentWidth := p.Width - 4

	header := t.Header().Render("BRANCHES") + "  " + t.Muted().Render(p.RepoName)
	if p.Remote != "" {
		header += t.Muted().Render(" → " + p.Remote)
	}
	b.WriteString(header + "\n")
	b.WriteString(divider(t, contentWidth) + "\n")

	if p.Err != nil {
		b.WriteString(t.Danger().Render("Error: "+p.Err.Error()) + "\n\n")
	}

	if p.Loading {
		b.WriteString("\n" + p.SpinnerFrame + " Loading branches...\n")
		return wrapInBox(t, b.String(), p.Width)
	}

	if len(p.Branches) == 0 {
		b.WriteString("\n" + t.Muted().Render("No local branches.") + "\n")
	} else {
		writeBranches(&b, p)
	}

	if len(p.RemoteBranches) > 0 {
		b.WriteString("\n\n" + t.Header().Render("REMOTE") + "\n")
		for _, rb := range p.RemoteBranches {
			b.WriteString("  " + t.Remote().Render(rb.Name) + "\n")
		}
	}

	writeFooter(&b, p, contentWidth)
	return wrapInBox(t, b.String(), p.Width)
}

// writeBranches writes the visible window of p.Branches.
func writeBranches(b *strings.Builder, p RenderParams) {
	t := p.Theme
	startIdx, endIdx := visibleRange(p.ViewOffset, p.VisibleCount, len(p.Branches))

	if startIdx > 0 {
		b.WriteString(t.Muted().Render(fmt.Sprintf("  ↑ %d more above", startIdx)) + "\n")
	}

	for i := startIdx; i < endIdx; i++ {
		b.WriteString(renderBranchEntry(t, p.Branches[i], i == p.Cursor, p.ShowUpstream))
		if i < endIdx-1 {
			b.WriteString("\n")
		}
	}

	if endIdx < len(p.Branches) {
		b.WriteString("\n" + t.Muted().Render(fmt.Sprintf("  ↓ %d more below", len(p.Branches)-endIdx)))
	}
}

// visibleRange clamps [offset, offset+count) to n items.
func visibleRange(offset, count, n int) (int, int) {
	if count <= 0 {
		count = n
	}
	start := offset
	if start >= n || start < 0 {
		start = 0
	}
	end := start + count
	if end > n {
		end = n
	}
	return start, end
}

// renderBranchEntry renders a single branch line.
func renderBranchEntry(t *Theme, br git.Branch, selected, showUpstream bool) string {
	cursor := "  "
	if selected {
		cursor = t.Cursor().Render(SymbolCursor + " ")
	} else if br.IsCurrent {
		cursor = t.Title(true).Render(SymbolCurrent + " ")
	}

	line := cursor + t.Branch(selected, br.IsCurrent).Render(br.Name)
	if !showUpstream {
		return line
	}
	return line + "  " + upstreamStatus(t, br)
}

// upstreamStatus describes what pushing br would do.
func upstreamStatus(t *Theme, br git.Branch) string {
	switch {
	case br.UpstreamGone:
		return t.Danger().Render(SymbolGone + " " + br.Upstream + " gone")
	case !br.HasUpstream():
		return t.Ahead().Render(SymbolNew + " not pushed")
	case br.Ahead == 0 && br.Behind == 0:
		return t.InSync().Render(SymbolInSync) + " " + t.Muted().Render(br.Upstream)
	}

	var parts []string
	if br.Behind > 0 {
		parts = append(parts, fmt.Sprintf("%s%d", SymbolBehind, br.Behind))
	}
	if br.Ahead > 0 {
		parts = append(parts, fmt.Sprintf("%s%d", SymbolAhead, br.Ahead))
	}
	return t.Ahead().Render(strings.Join(parts, " ")) + " " + t.Muted().Render(br.Upstream)
}

// renderFilter renders the filter mode.
func renderFilter(p RenderParams) string {
	t := p.Theme
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(t.Header().Render("FILTER") + "  ")
	b.WriteString(p.FilterInput + "\n")
	b.WriteString(divider(t, contentWidth) + "\n")

	if len(p.Branches) == 0 {
		b.WriteString("\n" + t.Muted().Render("No matches found.") + "\n")
	} else {
		writeBranches(&b, p)
	}

	b.WriteString("\n" + divider(t, contentWidth) + "\n")
	b.WriteString(t.Muted().Render("enter select • esc clear"))

	return wrapInBox(t, b.String(), p.Width)
}

// renderHelp renders the help screen.
func renderHelp(p RenderParams) string {
	t := p.Theme
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(t.Header().Render("HELP") + "\n")
	b.WriteString(divider(t, contentWidth) + "\n\n")

	for i, section := range p.HelpSections {
		b.WriteString(t.Branch(false, true).Render(section.Title) + "\n")
		b.WriteString(divider(t, 40) + "\n")
		for _, binding := range section.Bindings {
			keys := binding.Keys
			if len(keys) < 12 {
				keys = keys + strings.Repeat(" ", 12-len(keys))
			}
			b.WriteString(t.Muted().Render("  "+keys) + " " + binding.Desc + "\n")
		}
		if i < len(p.HelpSections)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + divider(t, contentWidth) + "\n")
	b.WriteString(t.Muted().Render("Press any key to close"))

	return wrapInBox(t, b.String(), p.Width)
}

// writeFooter writes the command bar and the status line.
func writeFooter(b *strings.Builder, p RenderParams, contentWidth int) {
	t := p.Theme
	b.WriteString("\n" + divider(t, contentWidth) + "\n")
	b.WriteString(RenderCommands(t, p.Commands, p.Width))
	if p.Status != "" {
		style := t.Muted()
		if p.StatusIsError {
			style = t.Danger()
		}
		b.WriteString("\n" + style.Render(firstLines(p.Status, 3)))
	}
}

// RenderCommands renders the command bar. Commands that do not fit are
// dropped from the end.
func RenderCommands(t *Theme, cmds []Command, width int) string {
	if t == nil {
		t = DefaultTheme()
	}
	var parts []string
	used := 0
	for _, c := range cmds {
		w := lipgloss.Width(c.Text) + 3
		if width > 0 && used+w > width-4 && len(parts) > 0 {
			break
		}
		used += w
		parts = append(parts, t.CommandBar(c.Enabled).Render(c.Text))
	}
	return strings.Join(parts, t.Muted().Render(" • "))
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = append(lines[:n], "…")
	}
	return strings.Join(lines, "\n")
}

func divider(t *Theme, width int) string {
	if width < 1 {
		width = 1
	}
	return t.Divider().Render(strings.Repeat(SymbolDivider, width))
}

// wrapInBox wraps content in a box.
func wrapInBox(t *Theme, content string, width int) string {
	boxWidth := width - 2
	if boxWidth < MinWidth-2 {
		boxWidth = MinWidth - 2
	}

	return t.Block(true).Padding(1, 2).Width(boxWidth).Render(content)
}
