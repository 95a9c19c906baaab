package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitals-sh/vitals/internal/app"
	"github.com/vitals-sh/vitals/internal/kill"
	"github.com/vitals-sh/vitals/internal/metrics"
	"github.com/vitals-sh/vitals/internal/procview"
)

func fixtureSnapshot() *metrics.Snapshot {
	return &metrics.Snapshot{
		Timestamp: time.Now(),
		Processes: []metrics.ProcessRecord{
			{PID: 100, Name: "firefox", Command: "/usr/bin/firefox", User: "alice",
				State: metrics.StateRunning, CPUPercent: 42.0, MemBytes: 512 * 1024 * 1024},
			{PID: 200, Name: "sshd", Command: "/usr/sbin/sshd", User: "root",
				State: metrics.StateSleeping, CPUPercent: 0.1, MemBytes: 8 * 1024 * 1024},
		},
		CPUs:   []metrics.CPUReading{{Core: 0, Percent: 30}, {Core: 1, Percent: 55}},
		CPUAvg: metrics.CPUReading{Core: -1, Percent: 42.5},
		Memory: metrics.MemoryReading{Total: 16 << 30, Used: 4 << 30, SwapTotal: 8 << 30, SwapUsed: 1 << 30},
		Disks:  []metrics.DiskReading{{Name: "nvme0n1", ReadBytesTotal: 1 << 20, WriteBytesTotal: 2 << 20}},
		Temps:  []metrics.TemperatureReading{{Sensor: "coretemp", Celsius: 55}},
	}
}

func renderedModel(t *testing.T) *Model {
	t.Helper()
	m := testModel(t)
	m.width = 120
	m.height = 40
	m.view = app.View{Mode: app.ModeFlat, Snapshot: fixtureSnapshot()}
	m.view.Flat = m.view.Snapshot.Processes
	m.rows = []row{
		{sel: kill.Selection{PID: 100}, rec: &m.view.Flat[0]},
		{sel: kill.Selection{PID: 200}, rec: &m.view.Flat[1]},
	}
	return m
}

func TestRenderWaitingForFirstSample(t *testing.T) {
	m := testModel(t)
	m.width = 80
	m.height = 24
	out := m.render()
	assert.Contains(t, out, "waiting for first sample")
}

func TestRenderFlatFrame(t *testing.T) {
	m := renderedModel(t)
	out := m.render()

	assert.Contains(t, out, "vitals")
	assert.Contains(t, out, "CPU")
	assert.Contains(t, out, "Memory")
	assert.Contains(t, out, "Network")
	assert.Contains(t, out, "Disk I/O")
	assert.Contains(t, out, "nvme0n1")
	assert.Contains(t, out, "coretemp")
	assert.Contains(t, out, "55°C")
	assert.Contains(t, out, "firefox")
	assert.Contains(t, out, "sshd")
	assert.Contains(t, out, "Processes · flat · cpu↓")
	assert.Contains(t, out, "dd kill")
}

func TestRenderFrozenAndStale(t *testing.T) {
	m := renderedModel(t)
	m.session.ToggleFreeze()
	m.view.Stale = true
	out := m.render()
	assert.Contains(t, out, "FROZEN")
	assert.Contains(t, out, "STALE")
}

func TestRenderActiveFilterShown(t *testing.T) {
	m := renderedModel(t)
	require.NoError(t, m.session.SetQuery("cpu > 10"))
	out := m.render()
	assert.Contains(t, out, "filter:")
	assert.Contains(t, out, "cpu > 10")
}

func TestRenderSearchError(t *testing.T) {
	m := renderedModel(t)
	m.searching = true
	m.searchErr = "parse error at position 4: unknown field `cup`"
	out := m.render()
	assert.Contains(t, out, "unknown field `cup`")
}

func TestRenderConfirmPrompt(t *testing.T) {
	m := renderedModel(t)
	m.beginKill(false)
	require.True(t, m.confirming)
	out := m.render()
	assert.Contains(t, out, "kill firefox (pid 100)?")
	assert.Contains(t, out, "[y]es / [n]o")

	m.confirming = false
	m.beginKill(true)
	out = m.render()
	assert.Contains(t, out, "force kill firefox (pid 100)?")
}

func TestRenderGroupedRows(t *testing.T) {
	m := renderedModel(t)
	m.view.Mode = app.ModeGrouped
	grp := procview.Grouped{Name: "firefox", Count: 3, CPUPercent: 50,
		MemBytes: 1 << 30, MemberPIDs: []int{100, 101, 102}}
	m.view.Groups = []procview.Grouped{grp}
	m.rows = []row{{sel: kill.Selection{GroupName: "firefox"}, grp: &m.view.Groups[0]}}

	out := m.render()
	assert.Contains(t, out, "COUNT")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "grouped")
}

func TestRenderTreeIndentation(t *testing.T) {
	m := renderedModel(t)
	m.view.Mode = app.ModeTree
	m.rows = []row{
		{sel: kill.Selection{PID: 100}, depth: 0, rec: &m.view.Flat[0]},
		{sel: kill.Selection{PID: 200}, depth: 2, rec: &m.view.Flat[1]},
	}

	child := m.renderRow(m.rows[1], 100)
	assert.Contains(t, child, "    sshd")
}

func TestRenderRowNaNCPU(t *testing.T) {
	m := renderedModel(t)
	rec := m.view.Flat[0]
	rec.CPUPercent = math.NaN()
	line := m.renderRow(row{rec: &rec}, 100)
	assert.Contains(t, line, "-")
}

func TestRenderNotice(t *testing.T) {
	m := renderedModel(t)
	m.notice = "signalled 2 processes"
	out := m.render()
	assert.Contains(t, out, "signalled 2 processes")
}

func TestRenderHelpOverlayReplacesFrame(t *testing.T) {
	m := renderedModel(t)
	m.showHelp = true
	out := m.render()
	assert.Contains(t, out, "Keyboard Shortcuts")
	assert.NotContains(t, out, "Disk I/O")
}

func TestScrollStartFollowsSelection(t *testing.T) {
	m := testModel(t)
	m.selected = 0
	assert.Equal(t, 0, m.scrollStart(10))
	m.selected = 9
	assert.Equal(t, 0, m.scrollStart(10))
	m.selected = 25
	assert.Equal(t, 16, m.scrollStart(10))
}

func TestVisibleRowCountFloor(t *testing.T) {
	m := testModel(t)
	m.height = 10
	assert.Equal(t, 5, m.visibleRowCount())
	m.height = 50
	assert.Equal(t, 28, m.visibleRowCount())
}

func TestColumnHeaderPerMode(t *testing.T) {
	m := renderedModel(t)
	assert.Contains(t, m.columnHeader(), "PID")

	m.view.Mode = app.ModeGrouped
	assert.Contains(t, m.columnHeader(), "COUNT")
}

func TestKillNotice(t *testing.T) {
	ok := kill.Report{Succeeded: []int{1, 2}}
	assert.Equal(t, "signalled 2 processes", killNotice(ok))

	one := kill.Report{Succeeded: []int{1}}
	assert.Equal(t, "signalled 1 process", killNotice(one))

	mixed := kill.Report{Succeeded: []int{1}, Failed: map[int]string{9: "permission denied"}}
	notice := killNotice(mixed)
	assert.Contains(t, notice, "signalled 1, failed 1:")
	assert.Contains(t, notice, "pid 9 permission denied")
}

func TestKillNoticeOrdersFailuresByPID(t *testing.T) {
	report := kill.Report{
		Succeeded: []int{1},
		Failed: map[int]string{
			30: "no such process",
			7:  "permission denied",
			12: "permission denied",
		},
	}

	want := "signalled 1, failed 3: pid 7 permission denied; pid 12 permission denied; pid 30 no such process;"
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, killNotice(report))
	}
}

func TestRenderFlatSortIndicatorDirection(t *testing.T) {
	m := renderedModel(t)
	m.session.SetSort(procview.ColPID)
	out := m.render()
	assert.True(t, strings.Contains(out, "pid↑"), "identity columns start ascending")
}
