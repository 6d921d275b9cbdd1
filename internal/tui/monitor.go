// Package tui implements the interactive lock monitor shown by "weft locks
// --watch". It renders the currently held locks as a live table, refreshing
// when the lock directory changes on disk and on a periodic tick as a
// fallback.
package tui

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/weftlabs/weft/internal/filelock"
	"github.com/weftlabs/weft/internal/util"
)

// refreshInterval is the fallback poll cadence when no filesystem event
// arrives.
const refreshInterval = 2 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// locksMsg delivers a fresh snapshot of held locks to the model.
type locksMsg struct {
	locks []filelock.Lock
	err   error
}

// tickMsg triggers a periodic refresh.
type tickMsg time.Time

// fsEventMsg reports a change in the lock directory.
type fsEventMsg struct{}

// Model is the Bubbletea model for the lock monitor.
type Model struct {
	manager *filelock.Manager
	table   table.Model
	watcher *fsnotify.Watcher
	err     error
	width   int
}

// NewModel creates a lock monitor over the given manager. The watcher may be
// nil, in which case the monitor refreshes on ticks alone.
func NewModel(manager *filelock.Manager) Model {
	columns := []table.Column{
		{Title: "Path", Width: 40},
		{Title: "Owner", Width: 20},
		{Title: "Age", Width: 10},
		{Title: "PID", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(manager.Dir()); err != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	return Model{
		manager: manager,
		table:   t,
		watcher: watcher,
	}
}

// Init starts the initial load, the tick loop, and the watcher pump.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadLocks, tick()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForEvent)
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.close()
			return m, tea.Quit
		case "r":
			return m, m.loadLocks
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case locksMsg:
		m.err = msg.err
		m.table.SetRows(lockRows(msg.locks))

	case tickMsg:
		return m, tea.Batch(m.loadLocks, tick())

	case fsEventMsg:
		return m, tea.Batch(m.loadLocks, m.waitForEvent)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the monitor.
func (m Model) View() string {
	title := titleStyle.Render("weft locks")
	body := baseStyle.Render(m.table.View())

	status := statusStyle.Render(fmt.Sprintf("%s  •  q quit, r refresh", m.manager.Dir()))
	if m.err != nil {
		status = staleStyle.Render(fmt.Sprintf("error: %v", m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, body, status) + "\n"
}

// loadLocks snapshots the currently held locks.
func (m Model) loadLocks() tea.Msg {
	locks, err := m.manager.Status()
	return locksMsg{locks: locks, err: err}
}

// waitForEvent blocks on the next lock-directory change.
func (m Model) waitForEvent() tea.Msg {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				return fsEventMsg{}
			}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (m Model) close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func lockRows(locks []filelock.Lock) []table.Row {
	rows := make([]table.Row, 0, len(locks))
	for _, lock := range locks {
		rows = append(rows, table.Row{
			util.TruncateANSI(lock.Path, 40),
			util.TruncateANSI(lock.Owner, 20),
			lock.Age().Round(time.Second).String(),
			fmt.Sprintf("%d", lock.PID),
		})
	}
	return rows
}

// Run starts the monitor and blocks until the user quits.
func Run(manager *filelock.Manager) error {
	model := NewModel(manager)

	program := tea.NewProgram(model, tea.WithAltScreen())

	// Preserve terminal state when the process is terminated
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		program.Send(tea.Quit())
	}()

	_, err := program.Run()
	return err
}
