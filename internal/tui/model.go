// Package tui renders the vitals dashboard with Bubble Tea. The model is a
// thin presentation layer: all monitoring state lives in the app session,
// and every frame is rendered from the session's current view.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitals-sh/vitals/internal/app"
	"github.com/vitals-sh/vitals/internal/config"
	"github.com/vitals-sh/vitals/internal/kill"
	"github.com/vitals-sh/vitals/internal/metrics"
	"github.com/vitals-sh/vitals/internal/procview"
	"github.com/vitals-sh/vitals/internal/query"
	"github.com/vitals-sh/vitals/internal/util"
)

// row is one selectable line of the process table.
type row struct {
	sel   kill.Selection
	depth int
	rec   *metrics.ProcessRecord
	grp   *procview.Grouped
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	session *app.Session
	cfg     *config.Config
	host    metrics.HostInfo

	width  int
	height int

	view     app.View
	rows     []row
	selected int

	search       textinput.Model
	searching    bool
	searchErr    string
	searchErrPos int

	detail     viewport.Model
	showDetail bool
	detailPID  int

	pendingKill   bool
	confirming    bool
	confirmTarget kill.Selection
	confirmLabel  string
	confirmForce  bool

	notice   string
	showHelp bool
	quitting bool
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// NewModel builds the dashboard model around a started session.
func NewModel(session *app.Session, cfg *config.Config) Model {
	search := textinput.New()
	search.Placeholder = `filter: name, "quoted", cpu > 50, mem > 1g, or ...`
	search.Prompt = "/ "
	search.CharLimit = 256

	m := Model{
		session: session,
		cfg:     cfg,
		host:    metrics.CollectHostInfo(),
		search:  search,
		detail:  viewport.New(0, 0),
	}

	if cfg.Tree {
		session.SetMode(app.ModeTree)
	} else if cfg.Group {
		session.SetMode(app.ModeGrouped)
	}

	return m
}

// Init starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), textinput.Blink)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 2
		return m, nil

	case tickMsg:
		if m.session.Advance() {
			m.rebuildRows()
			m.refreshDetail()
		}
		// Staleness is wall-clock based, so it must be refreshed even on
		// ticks where no snapshot arrived.
		m.view.Stale = m.session.Stale()
		return m, m.tickCmd()

	case tea.KeyMsg:
		if m.showDetail {
			switch msg.String() {
			case KeyCancel, KeyDetail, KeyQuit:
				m.showDetail = false
				return m, nil
			}
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.confirming {
			m.updateConfirm(msg)
			return m, nil
		}
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// tickCmd schedules the next frame at the collection rate.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Rate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// updateSearch routes keys to the filter input until it is committed or
// cancelled. A rejected expression keeps the input open with the error
// shown inline; the previous filter stays active underneath.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := m.session.SetQuery(m.search.Value()); err != nil {
			m.searchErr = err.Error()
			m.searchErrPos = -1
			var perr *query.ParseError
			if errors.As(err, &perr) {
				m.searchErrPos = perr.Position
			}
			return m, nil
		}
		m.searching = false
		m.searchErr = ""
		m.search.Blur()
		m.rebuildRows()
		return m, nil

	case "esc":
		m.searching = false
		m.searchErr = ""
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// beginKill opens the confirm prompt for the selected row.
func (m *Model) beginKill(force bool) {
	r, ok := m.selectedRow()
	if !ok {
		return
	}

	m.confirming = true
	m.confirmTarget = r.sel
	m.confirmForce = force
	if r.grp != nil {
		m.confirmLabel = fmt.Sprintf("%s (%d %s)", r.grp.Name, r.grp.Count,
			util.Pluralize(r.grp.Count, "process", "processes"))
	} else {
		m.confirmLabel = fmt.Sprintf("%s (pid %d)", r.rec.Name, r.rec.PID)
	}
}

// updateConfirm handles the kill confirmation prompt.
func (m *Model) updateConfirm(msg tea.KeyMsg) {
	switch msg.String() {
	case "y", "enter":
		report, err := m.session.SubmitKill(m.confirmTarget, m.confirmForce)
		if err != nil {
			m.notice = strings.Join(strings.Fields(err.Error()), " ")
		} else {
			m.notice = killNotice(report)
		}
		m.confirming = false
		m.rebuildRows()

	case "n", "esc", "q":
		m.confirming = false
	}
}

// killNotice summarizes a termination report in one footer line.
func killNotice(report kill.Report) string {
	if report.AllSucceeded() {
		n := len(report.Succeeded)
		return fmt.Sprintf("signalled %d %s", n, util.Pluralize(n, "process", "processes"))
	}

	pids := make([]int, 0, len(report.Failed))
	for pid := range report.Failed {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	parts := fmt.Sprintf("signalled %d, failed %d:", len(report.Succeeded), len(report.Failed))
	for _, pid := range pids {
		parts += fmt.Sprintf(" pid %d %s;", pid, report.Failed[pid])
	}
	return parts
}

// rebuildRows flattens the session's current view into selectable rows and
// keeps the selection in range.
func (m *Model) rebuildRows() {
	m.view = m.session.CurrentView()
	m.rows = m.rows[:0]

	switch m.view.Mode {
	case app.ModeTree:
		if m.view.Tree != nil {
			m.view.Tree.Walk(func(n *procview.Node, depth int) {
				m.rows = append(m.rows, row{
					sel:   kill.Selection{PID: n.PID()},
					depth: depth,
					rec:   n.Record,
				})
			})
		}
	case app.ModeGrouped:
		for i := range m.view.Groups {
			g := &m.view.Groups[i]
			m.rows = append(m.rows, row{
				sel: kill.Selection{GroupName: g.Name},
				grp: g,
			})
		}
	default:
		for i := range m.view.Flat {
			rec := &m.view.Flat[i]
			m.rows = append(m.rows, row{
				sel: kill.Selection{PID: rec.PID},
				rec: rec,
			})
		}
	}

	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) selectedRow() (row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.selected], true
}
