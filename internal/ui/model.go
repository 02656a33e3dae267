// Package ui is the terminal view of a running session. It renders the
// state store and turns key presses into session effects.
package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/state"
	"github.com/beamline-remote/hwr-client/internal/supervisor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	visibleMessages = 5
	visibleChat     = 4
	refreshInterval = time.Second
)

// Controller is the part of the session the view drives.
type Controller interface {
	Perform(e state.Effect)
	Apply(ms ...state.Mutation)
	Status(ch protocol.Channel) supervisor.Handle
}

// Snapshotter supplies the state to render.
type Snapshotter interface {
	Snapshot() state.Data
}

// ChangedMsg reports that the store applied at least one mutation.
type ChangedMsg struct{}

// DoneMsg reports that the session ended.
type DoneMsg struct{ Err error }

type refreshMsg struct{}

// Options configures the view.
type Options struct {
	// MarkdownStyle is a glamour standard style name.
	MarkdownStyle string
}

// Model is the root Bubble Tea model.
type Model struct {
	store Snapshotter
	ctl   Controller
	keys  KeyMap
	opts  Options

	width  int
	height int

	data     state.Data
	channels []supervisor.Handle
	spinner  spinner.Model
	bar      progress.Model

	renderer   *glamour.TermRenderer
	wrapWidth  int
	chatKey    string
	chatView   string
	done       bool
	doneReason string
}

// New creates the root model.
func New(store Snapshotter, ctl Controller, opts Options) Model {
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "dark"
	}
	m := Model{
		store:   store,
		ctl:     ctl,
		keys:    DefaultKeyMap(),
		opts:    opts,
		width:   80,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithWidth(16), progress.WithoutPercentage()),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshCmd())
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChangedMsg:
		m.refresh()
		return m, nil

	case refreshMsg:
		m.channels = channelHandles(m.ctl.Status)
		return m, refreshCmd()

	case DoneMsg:
		m.done = true
		if msg.Err != nil {
			m.doneReason = msg.Err.Error()
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		d := m.data.WaitDialog
		if d == nil || !d.Cancellable {
			return m, nil
		}
		m.ctl.Perform(d.CancelAction)
		m.ctl.Apply(state.HideWaitDialog{})
		return m, nil

	case key.Matches(msg, m.keys.Hide):
		if m.data.WaitDialog != nil {
			m.ctl.Apply(state.HideWaitDialog{})
		}
		return m, nil
	}
	return m, nil
}

// refresh copies the store and re-renders chat when it changed.
func (m *Model) refresh() {
	m.data = m.store.Snapshot()
	m.channels = channelHandles(m.ctl.Status)

	chat := m.data.Chat
	if len(chat) > visibleChat {
		chat = chat[len(chat)-visibleChat:]
	}
	k := fmt.Sprintf("%d/%d/%d", len(m.data.Chat), m.data.UnreadChat, m.width)
	if k == m.chatKey {
		return
	}
	m.chatKey = k
	m.chatView = m.renderMarkdown(strings.Join(chat, "\n\n"))
}

func (m *Model) renderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	wrap := max(m.width-4, 20)
	if m.renderer == nil || m.wrapWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.opts.MarkdownStyle),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return md
		}
		m.renderer = r
		m.wrapWidth = wrap
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) View() string {
	var sections []string

	bar := statusBar{
		channels: m.channels,
		login:    m.data.Login,
		lost:     m.data.ConnectionLost,
		width:    m.width - 2,
	}
	sections = append(sections, bar.View())

	if m.done {
		reason := "session ended"
		if m.doneReason != "" {
			reason += ": " + m.doneReason
		}
		sections = append(sections, styleDimmed.Render(reason))
	}

	if d := m.data.WaitDialog; d != nil {
		sections = append(sections, m.dialogView(*d))
	}

	sections = append(sections,
		m.motorsView(),
		m.tasksView(),
		m.messagesView(),
		m.helpView(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) dialogView(d state.WaitDialogRequest) string {
	body := m.spinner.View() + " " + styleHeader.Render(d.Title)
	if d.Message != "" {
		body += "\n" + d.Message
	}
	hint := "esc: hide"
	if d.Cancellable {
		hint = "x: cancel  " + hint
	}
	body += "\n" + styleDimmed.Render(hint)
	return styleDialog.Render(body)
}

func (m Model) motorsView() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Motors"))
	if len(m.data.Motors) == 0 {
		b.WriteString("\n" + styleDimmed.Render("  no positions yet"))
		return b.String()
	}
	names := make([]string, 0, len(m.data.Motors))
	for name := range m.data.Motors {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		mo := m.data.Motors[name]
		fmt.Fprintf(&b, "\n  %-16s %10.3f  %s", name, mo.Position, styleDimmed.Render(mo.State))
	}
	return b.String()
}

func (m Model) tasksView() string {
	var b strings.Builder
	header := "Queue"
	if m.data.QueueStatus != "" {
		header += " [" + m.data.QueueStatus + "]"
	}
	b.WriteString(styleHeader.Render(header))
	if m.data.CurrentSample != "" {
		b.WriteString(styleDimmed.Render("  sample " + m.data.CurrentSample))
	}
	if len(m.data.Tasks) == 0 {
		b.WriteString("\n" + styleDimmed.Render("  no task results"))
		return b.String()
	}
	ids := make([]string, 0, len(m.data.Tasks))
	for id := range m.data.Tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		t := m.data.Tasks[id]
		glyph, color := taskGlyph(t.State)
		fold := ""
		if d, ok := m.data.Display[id]; ok && d.Collapsed {
			fold = " (collapsed)"
		}
		// Progress is reported as a fraction.
		done := min(max(t.Progress, 0), 1)
		fmt.Fprintf(&b, "\n  %s %s task %d  %s %3.0f%%%s",
			lipgloss.NewStyle().Foreground(color).Render(glyph),
			t.Sample, t.TaskIndex, m.bar.ViewAs(done), done*100, styleDimmed.Render(fold))
	}
	return b.String()
}

func (m Model) messagesView() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Messages"))
	msgs := m.data.UserMessages
	if len(msgs) > visibleMessages {
		msgs = msgs[len(msgs)-visibleMessages:]
	}
	for _, e := range msgs {
		sev := lipgloss.NewStyle().Foreground(severityColor(e.Severity)).Render(fmt.Sprintf("%-8s", e.Severity))
		fmt.Fprintf(&b, "\n  %s %s", sev, e.Message())
	}
	if m.chatView != "" {
		title := "Chat"
		if m.data.UnreadChat > 0 {
			title = fmt.Sprintf("Chat (%d unread)", m.data.UnreadChat)
		}
		b.WriteString("\n" + styleHeader.Render(title) + "\n" + m.chatView)
	}
	return b.String()
}

func (m Model) helpView() string {
	parts := []string{}
	for _, k := range []key.Binding{m.keys.Cancel, m.keys.Hide, m.keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return styleDimmed.Render(strings.Join(parts, "  "))
}
