// Package tui implements the live session feed shown by `concord watch`.
// The model renders the persisted workspace document and refreshes whenever
// the file watcher reports another process rewriting it.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/concordhq/concord/internal/workspace"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	senderStyle   = lipgloss.NewStyle().Bold(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	ackStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// documentChangedMsg reports an external rewrite of the workspace document.
type documentChangedMsg struct{}

// watchErrMsg carries a watcher failure into the update loop.
type watchErrMsg struct{ err error }

// Model is the bubbletea model for the watch feed.
type Model struct {
	sessionDir string
	store      *workspace.Store
	watcher    *workspace.Watcher
	changes    chan struct{}

	viewport viewport.Model
	ready    bool
	doc      workspace.Document
	err      error
}

// NewModel creates a watch model over the session directory.
func NewModel(sessionDir string) *Model {
	return &Model{
		sessionDir: sessionDir,
		store:      workspace.NewStore(sessionDir),
		changes:    make(chan struct{}, 1),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	watcher, err := workspace.NewWatcher(m.sessionDir)
	if err != nil {
		return func() tea.Msg { return watchErrMsg{err: err} }
	}
	m.watcher = watcher
	m.watcher.SetChangeCallback(func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	if err := m.watcher.Start(); err != nil {
		return func() tea.Msg { return watchErrMsg{err: err} }
	}
	return tea.Batch(m.reload, m.waitForChange)
}

// reload reads the document from disk.
func (m *Model) reload() tea.Msg {
	doc, err := m.store.Load()
	if err != nil {
		return watchErrMsg{err: err}
	}
	m.doc = doc
	return documentChangedMsg{}
}

// waitForChange blocks until the watcher reports a rewrite.
func (m *Model) waitForChange() tea.Msg {
	<-m.changes
	doc, err := m.store.Load()
	if err != nil {
		return watchErrMsg{err: err}
	}
	m.doc = doc
	return documentChangedMsg{}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.watcher != nil {
				m.watcher.Stop()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.viewport.SetContent(m.renderFeed())

	case documentChangedMsg:
		atBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.renderFeed())
		if atBottom {
			m.viewport.GotoBottom()
		}
		return m, m.waitForChange

	case watchErrMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("watch failed: %v\n\npress q to quit", m.err)
	}
	if !m.ready {
		return "loading session feed..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m *Model) headerView() string {
	return headerStyle.Render(fmt.Sprintf("concord watch %s", m.sessionDir))
}

func (m *Model) footerView() string {
	return footerStyle.Render(fmt.Sprintf(
		"%d broadcast(s) lifetime | q to quit", m.doc.Metadata.TotalBroadcasts))
}

func (m *Model) renderFeed() string {
	if len(m.doc.Broadcasts) == 0 {
		return "no broadcasts yet"
	}

	var b strings.Builder
	for _, entry := range m.doc.Broadcasts {
		category := string(entry.Category)
		switch entry.Category {
		case workspace.CategoryConflict, workspace.CategoryArbitration:
			category = conflictStyle.Render(category)
		}

		fmt.Fprintf(&b, "[%s] %s %s (L%d): %s\n",
			entry.Timestamp.Format("15:04:05"), category,
			senderStyle.Render(entry.Sender), entry.SenderLevel, entry.Message)
		if entry.RequiresAck {
			fmt.Fprintf(&b, "         %s\n",
				ackStyle.Render(fmt.Sprintf("requires ack (%d so far)", len(entry.Acknowledgments))))
		}
	}
	return b.String()
}
