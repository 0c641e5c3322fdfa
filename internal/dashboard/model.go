package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/console"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/registry"
	"github.com/radarmon/radar/internal/ui"
)

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 5 * time.Second

// row is one check of one client, in display order.
type row struct {
	monitor int
	client  int
	check   check.Check
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	source   console.Querier
	interval time.Duration
	timeout  time.Duration
	target   string

	monitors   []registry.MonitorView
	rows       []row
	selected   int
	lastUpdate time.Time
	lastErr    string
	notice     string

	fetching bool
	loaded   bool
	spinner  spinner.Model

	width    int
	height   int
	showHelp bool
	quitting bool
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// snapshotMsg carries the result of a list() query.
type snapshotMsg struct {
	monitors []registry.MonitorView
	err      error
	time     time.Time
}

// actionMsg carries the reply of an enable/disable/test query.
type actionMsg struct {
	message string
	err     error
}

// NewModel creates a dashboard reading from source. target is only shown in
// the header.
func NewModel(source console.Querier, interval time.Duration, target string) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Model{
		source:   source,
		interval: interval,
		timeout:  console.DefaultReplyTimeout,
		target:   target,
		fetching: true,
		spinner:  ui.NewSpinner(),
	}
}

// Init starts the tick timer and the first query. NewModel already counts
// that query as in flight.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.fetchCmd(), m.spinner.Tick)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.refresh())

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.fetching = false
		if msg.err != nil {
			m.lastErr = errors.Brief(msg.err)
			return m, nil
		}
		m.lastErr = ""
		m.loaded = true
		m.lastUpdate = msg.time
		m.setMonitors(msg.monitors)

	case actionMsg:
		m.fetching = false
		if msg.err != nil {
			m.lastErr = errors.Brief(msg.err)
			return m, nil
		}
		m.notice = msg.message
		return m, m.refresh()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Selected returns the check under the cursor.
func (m Model) Selected() (check.Check, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return check.Check{}, false
	}
	return m.rows[m.selected].check, true
}

func (m *Model) setMonitors(views []registry.MonitorView) {
	var current *check.Check
	if c, ok := m.Selected(); ok {
		current = &c
	}

	m.monitors = views
	m.rows = m.rows[:0]
	for mi, mv := range views {
		for ci, cv := range mv.Clients {
			for _, c := range cv.Checks {
				m.rows = append(m.rows, row{monitor: mi, client: ci, check: c})
			}
		}
	}

	// Keep the cursor on the same check id when it survived the refresh.
	m.selected = 0
	if current != nil {
		for i, r := range m.rows {
			if r.check.ID == current.ID {
				m.selected = i
				break
			}
		}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh starts a query unless one is already running.
func (m *Model) refresh() tea.Cmd {
	if m.fetching {
		return nil
	}
	m.fetching = true
	return m.fetchCmd()
}

func (m Model) fetchCmd() tea.Cmd {
	source, timeout := m.source, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		reply, err := source.Query(ctx, "list()")
		if err != nil {
			return snapshotMsg{err: err, time: time.Now()}
		}
		if reply.Message != "" {
			return snapshotMsg{err: errors.New(errors.ErrConsole, reply.Message, ""), time: time.Now()}
		}
		var views []registry.MonitorView
		if err := json.Unmarshal(reply.Data, &views); err != nil {
			return snapshotMsg{err: errors.WrapWithCode(err, errors.ErrConsole, "Malformed list() reply", ""), time: time.Now()}
		}
		return snapshotMsg{monitors: views, time: time.Now()}
	}
}

// actionCmd sends name(id) for the selected check.
func (m *Model) actionCmd(name string) tea.Cmd {
	c, ok := m.Selected()
	if !ok || m.fetching {
		return nil
	}
	m.fetching = true
	source, timeout := m.source, m.timeout
	action := fmt.Sprintf("%s(%d)", name, c.ID)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := source.Query(ctx, action)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: reply.Message}
	}
}
