package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitals-sh/vitals/internal/app"
	"github.com/vitals-sh/vitals/internal/procview"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeySearch      = "/"
	KeyTree        = "t"
	KeyTreeAlt     = "f5"
	KeyGroup       = "g"
	KeyCycleSort   = "s"
	KeyCycleAlt    = "f6"
	KeyFlipSort    = "S"
	KeyFreeze      = "f"
	KeyKill        = "d"
	KeyForceKill   = "f9"
	KeyZoomIn      = "+"
	KeyZoomInAlt   = "="
	KeyZoomOut     = "-"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyCancel      = "esc"
	KeyDetail      = "enter"
	KeyToggleHelp  = "?"
)

// sortCycle is the order the sort column steps through. Count only applies
// in grouped view; the sort engine falls back for the others.
var sortCycle = []procview.Column{
	procview.ColCPU,
	procview.ColMem,
	procview.ColPID,
	procview.ColName,
	procview.ColRead,
	procview.ColWrite,
	procview.ColUser,
	procview.ColState,
	procview.ColCount,
}

// nextSortColumn steps the cycle, skipping count outside grouped view.
func nextSortColumn(current procview.Column, grouped bool) procview.Column {
	for i, col := range sortCycle {
		if col == current {
			next := sortCycle[(i+1)%len(sortCycle)]
			if next == procview.ColCount && !grouped {
				next = sortCycle[0]
			}
			return next
		}
	}
	return sortCycle[0]
}

// handleKey processes keyboard input outside the search and confirm
// overlays. It reports whether the key was handled.
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp {
		if key == KeyCancel || key == KeyQuit {
			m.showHelp = false
		}
		return true, nil
	}

	// A pending "d" either completes the dd kill chord or is dropped.
	if m.pendingKill {
		m.pendingKill = false
		if key == KeyKill {
			m.beginKill(false)
			return true, nil
		}
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeySearch:
		m.searching = true
		m.search.SetValue(m.session.Query())
		m.search.CursorEnd()
		m.search.Focus()
		return true, nil

	case KeyTree, KeyTreeAlt:
		if m.session.Mode() == app.ModeTree {
			m.session.SetMode(app.ModeFlat)
		} else {
			m.session.SetMode(app.ModeTree)
		}
		m.rebuildRows()
		return true, nil

	case KeyGroup:
		if m.session.Mode() == app.ModeGrouped {
			m.session.SetMode(app.ModeFlat)
		} else {
			m.session.SetMode(app.ModeGrouped)
		}
		m.rebuildRows()
		return true, nil

	case KeyCycleSort, KeyCycleAlt:
		grouped := m.session.Mode() == app.ModeGrouped
		m.session.SetSort(nextSortColumn(m.session.Sort().Column, grouped))
		m.rebuildRows()
		return true, nil

	case KeyFlipSort:
		m.session.SetSort(m.session.Sort().Column)
		m.rebuildRows()
		return true, nil

	case KeyFreeze:
		m.session.ToggleFreeze()
		return true, nil

	case KeyKill:
		m.pendingKill = true
		return true, nil

	case KeyForceKill:
		m.beginKill(true)
		return true, nil

	case KeyZoomIn, KeyZoomInAlt:
		m.session.SetWindow(m.session.Window() / 2)
		return true, nil

	case KeyZoomOut:
		m.session.SetWindow(m.session.Window() * 2)
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if len(m.rows) > 0 {
			m.selected = len(m.rows) - 1
		}
		return true, nil

	case KeyDetail:
		m.openDetail()
		return true, nil

	case KeyCancel:
		m.notice = ""
		return true, nil
	}

	return false, nil
}
