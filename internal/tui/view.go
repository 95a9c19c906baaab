package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vitals-sh/vitals/internal/app"
	"github.com/vitals-sh/vitals/internal/util"
)

// graphHeight is the braille row count for the main CPU graph.
const graphHeight = 4

// render draws the full dashboard frame.
func (m Model) render() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.showDetail {
		return m.detail.View()
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))

	if m.view.Snapshot == nil {
		sections = append(sections, LabelStyle.Render("waiting for first sample..."))
		return strings.Join(sections, "\n")
	}

	sections = append(sections, m.renderCPU(width))
	sections = append(sections, m.renderMemory(width))
	sections = append(sections, m.renderNetwork(width))
	if disks := m.renderDisks(width); disks != "" {
		sections = append(sections, disks)
	}
	if temps := m.renderTemps(width); temps != "" {
		sections = append(sections, temps)
	}
	sections = append(sections, m.renderProcessTable(width))
	sections = append(sections, m.renderFooter(width))

	return strings.Join(sections, "\n")
}

// renderHeader shows the title, host identity, and freeze/staleness state.
func (m Model) renderHeader(width int) string {
	title := "vitals"
	if m.host.Hostname != "" {
		title += " · " + m.host.Hostname
		if m.host.Kernel != "" {
			title += " (" + m.host.Kernel + " " + m.host.Arch + ")"
		}
	}

	var flags []string
	if m.session.Frozen() {
		flags = append(flags, FrozenStyle.Render("FROZEN"))
	}
	if m.view.Stale {
		flags = append(flags, StaleStyle.Render("STALE"))
	}
	flags = append(flags, LabelStyle.Render("window "+util.FormatWindow(m.session.Window())))

	left := HeaderStyle.Render(title)
	right := strings.Join(flags, " ")
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderCPU draws the average CPU braille graph plus per-core sparklines.
func (m Model) renderCPU(width int) string {
	avg := m.view.Snapshot.CPUAvg.Percent
	header := SectionHeader("CPU", util.FormatPercent(avg), width)

	lower, upper, _ := m.session.GraphBounds(app.MetricCPUAvg)
	graph := BrailleGraph(m.session.HistorySlice(app.MetricCPUAvg),
		lower, upper, width-4, graphHeight, ColorGraph, true)

	var lines []string
	lines = append(lines, header)
	for _, gl := range strings.Split(graph, "\n") {
		lines = append(lines, SectionContentLine(gl, width))
	}

	if !m.cfg.AvgCPU {
		sparkWidth := width - 24
		if sparkWidth < 8 {
			sparkWidth = 8
		}
		for _, cpu := range m.view.Snapshot.CPUs {
			metric := app.MetricCPUCore(cpu.Core)
			lo, hi, _ := m.session.GraphBounds(metric)
			spark := MiniSparkline(m.session.HistorySlice(metric), lo, hi, sparkWidth, MetricColor(cpu.Percent))
			label := LabelStyle.Render(util.PadRight(fmt.Sprintf("core %d", cpu.Core), 8))
			value := MetricStyle(cpu.Percent).Render(fmt.Sprintf("%6s", util.FormatPercent(cpu.Percent)))
			lines = append(lines, SectionContentLine(label+" "+value+" "+spark, width))
		}
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderMemory draws RAM and swap usage bars with history sparklines.
func (m Model) renderMemory(width int) string {
	mem := m.view.Snapshot.Memory
	usedPct := 0.0
	if mem.Total > 0 {
		usedPct = float64(mem.Used) / float64(mem.Total) * 100
	}

	header := SectionHeader("Memory",
		fmt.Sprintf("%s / %s", util.FormatBytes(mem.Used), util.FormatBytes(mem.Total)), width)

	barWidth := width / 4
	sparkWidth := width - barWidth - 24
	if sparkWidth < 8 {
		sparkWidth = 8
	}

	lo, hi, _ := m.session.GraphBounds(app.MetricMemUsed)
	ramSpark := MiniSparkline(m.session.HistorySlice(app.MetricMemUsed), lo, hi, sparkWidth, MetricColor(usedPct))
	ramLine := LabelStyle.Render("RAM  ") + ProgressBar(barWidth, usedPct) + " " +
		MetricStyle(usedPct).Render(fmt.Sprintf("%6s", util.FormatPercent(usedPct))) + " " + ramSpark

	lines := []string{header, SectionContentLine(ramLine, width)}

	if mem.SwapTotal > 0 {
		swapPct := float64(mem.SwapUsed) / float64(mem.SwapTotal) * 100
		slo, shi, _ := m.session.GraphBounds(app.MetricMemSwap)
		swapSpark := MiniSparkline(m.session.HistorySlice(app.MetricMemSwap), slo, shi, sparkWidth, MetricColor(swapPct))
		swapLine := LabelStyle.Render("Swap ") + ProgressBar(barWidth, swapPct) + " " +
			MetricStyle(swapPct).Render(fmt.Sprintf("%6s", util.FormatPercent(swapPct))) + " " + swapSpark
		lines = append(lines, SectionContentLine(swapLine, width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderNetwork draws rx/tx throughput sparklines with scaler-fit axes.
func (m Model) renderNetwork(width int) string {
	rx := m.session.HistorySlice(app.MetricNetRx)
	tx := m.session.HistorySlice(app.MetricNetTx)

	rxNow, txNow := 0.0, 0.0
	if len(rx) > 0 {
		rxNow = rx[len(rx)-1]
	}
	if len(tx) > 0 {
		txNow = tx[len(tx)-1]
	}

	header := SectionHeader("Network",
		fmt.Sprintf("↓ %s  ↑ %s", util.FormatRate(rxNow), util.FormatRate(txNow)), width)

	sparkWidth := width - 26
	if sparkWidth < 8 {
		sparkWidth = 8
	}

	rlo, rhi, _ := m.session.GraphBounds(app.MetricNetRx)
	tlo, thi, _ := m.session.GraphBounds(app.MetricNetTx)

	rxLine := LabelStyle.Render("rx ") + ValueStyle.Render(fmt.Sprintf("%12s", util.FormatRate(rxNow))) +
		" " + MiniSparkline(rx, rlo, rhi, sparkWidth, ColorGraph) +
		LabelStyle.Render(fmt.Sprintf(" ≤%s", util.FormatRate(rhi)))
	txLine := LabelStyle.Render("tx ") + ValueStyle.Render(fmt.Sprintf("%12s", util.FormatRate(txNow))) +
		" " + MiniSparkline(tx, tlo, thi, sparkWidth, ColorAccent) +
		LabelStyle.Render(fmt.Sprintf(" ≤%s", util.FormatRate(thi)))

	return strings.Join([]string{
		header,
		SectionContentLine(rxLine, width),
		SectionContentLine(txLine, width),
		SectionFooter(width),
	}, "\n")
}

// renderDisks shows per-device read and write throughput.
func (m Model) renderDisks(width int) string {
	disks := m.view.Snapshot.Disks
	if len(disks) == 0 {
		return ""
	}

	sparkWidth := (width - 44) / 2
	if sparkWidth < 6 {
		sparkWidth = 6
	}

	lines := []string{SectionHeader("Disk I/O", fmt.Sprintf("%d", len(disks)), width)}
	for _, d := range disks {
		readMetric := app.MetricDisk(d.Name, "read")
		writeMetric := app.MetricDisk(d.Name, "write")

		read := m.session.HistorySlice(readMetric)
		write := m.session.HistorySlice(writeMetric)
		readNow, writeNow := 0.0, 0.0
		if len(read) > 0 {
			readNow = read[len(read)-1]
		}
		if len(write) > 0 {
			writeNow = write[len(write)-1]
		}

		rlo, rhi, _ := m.session.GraphBounds(readMetric)
		wlo, whi, _ := m.session.GraphBounds(writeMetric)

		line := LabelStyle.Render(util.PadRight(d.Name, 10)) +
			ValueStyle.Render(fmt.Sprintf("R %11s ", util.FormatRate(readNow))) +
			MiniSparkline(read, rlo, rhi, sparkWidth, ColorGraph) +
			ValueStyle.Render(fmt.Sprintf("  W %11s ", util.FormatRate(writeNow))) +
			MiniSparkline(write, wlo, whi, sparkWidth, ColorAccent)
		lines = append(lines, SectionContentLine(line, width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderTemps shows sensor readings in the configured unit, when any exist.
func (m Model) renderTemps(width int) string {
	temps := m.view.Snapshot.Temps
	if len(temps) == 0 {
		return ""
	}

	var parts []string
	for _, t := range temps {
		v, suffix := m.cfg.ConvertTemp(t.Celsius)
		parts = append(parts, LabelStyle.Render(t.Sensor)+" "+
			ValueStyle.Render(fmt.Sprintf("%.0f%s", v, suffix)))
	}

	return strings.Join([]string{
		SectionHeader("Sensors", fmt.Sprintf("%d", len(temps)), width),
		SectionContentLine(strings.Join(parts, "   "), width),
		SectionFooter(width),
	}, "\n")
}

// renderProcessTable draws the flat, tree, or grouped process rows.
func (m Model) renderProcessTable(width int) string {
	sort := m.session.Sort()
	dir := "↓"
	if !sort.Descending {
		dir = "↑"
	}

	mode := "flat"
	switch m.view.Mode {
	case app.ModeTree:
		mode = "tree"
	case app.ModeGrouped:
		mode = "grouped"
	}

	title := fmt.Sprintf("Processes · %s · %s%s", mode, sort.Column, dir)
	header := SectionHeader(title, fmt.Sprintf("%d", len(m.rows)), width)

	lines := []string{header}

	if m.searching || m.session.Query() != "" {
		lines = append(lines, SectionContentLine(m.renderSearchBar(), width))
	}
	if m.searchErr != "" {
		if m.searching && m.searchErrPos >= 0 {
			// Point at the byte the parser rejected, offset past the "/ " prompt.
			caret := strings.Repeat(" ", len(m.search.Prompt)+m.searchErrPos) + "^"
			lines = append(lines, SectionContentLine(ErrorStyle.Render(caret), width))
		}
		lines = append(lines, SectionContentLine(ErrorStyle.Render(m.searchErr), width))
	}

	lines = append(lines, SectionContentLine(m.columnHeader(), width))

	visible := m.visibleRowCount()
	start := m.scrollStart(visible)
	for i := start; i < len(m.rows) && i < start+visible; i++ {
		line := m.renderRow(m.rows[i], width-4)
		if i == m.selected {
			line = SelectedRowStyle.Render(line)
		}
		lines = append(lines, SectionContentLine(line, width))
	}

	if m.confirming {
		prompt := ErrorStyle.Render(fmt.Sprintf("kill %s? ", m.confirmLabel)) +
			LabelStyle.Render("[y]es / [n]o")
		if m.confirmForce {
			prompt = ErrorStyle.Render(fmt.Sprintf("force kill %s? ", m.confirmLabel)) +
				LabelStyle.Render("[y]es / [n]o")
		}
		lines = append(lines, SectionContentLine(prompt, width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderSearchBar shows the active filter text or the live input.
func (m Model) renderSearchBar() string {
	if m.searching {
		return m.search.View()
	}
	return LabelStyle.Render("filter: ") + ValueStyle.Render(m.session.Query())
}

// columnHeader renders the table column labels for the current mode.
func (m Model) columnHeader() string {
	if m.view.Mode == app.ModeGrouped {
		return LabelStyle.Render(fmt.Sprintf("%-24s %6s %7s %10s %12s %12s",
			"NAME", "COUNT", "CPU%", "MEM", "READ", "WRITE"))
	}
	return LabelStyle.Render(fmt.Sprintf("%7s %-24s %7s %10s %-10s %-8s",
		"PID", "NAME", "CPU%", "MEM", "USER", "STATE"))
}

// renderRow renders one process or group row.
func (m Model) renderRow(r row, width int) string {
	if r.grp != nil {
		return fmt.Sprintf("%-24s %6d %7s %10s %12s %12s",
			util.Truncate(r.grp.Name, 24),
			r.grp.Count,
			util.FormatPercent(r.grp.CPUPercent),
			util.FormatBytes(r.grp.MemBytes),
			util.FormatBytes(r.grp.ReadBytesTotal),
			util.FormatBytes(r.grp.WriteBytesTotal))
	}

	name := r.rec.Name
	if m.view.Mode == app.ModeTree {
		name = strings.Repeat("  ", r.depth) + name
	}
	return fmt.Sprintf("%7d %-24s %7s %10s %-10s %-8s",
		r.rec.PID,
		util.Truncate(name, 24),
		util.FormatPercent(r.rec.CPUPercent),
		util.FormatBytes(r.rec.MemBytes),
		util.Truncate(r.rec.User, 10),
		r.rec.State)
}

// visibleRowCount derives how many table rows fit the remaining height.
func (m Model) visibleRowCount() int {
	// Header, three metric sections, table chrome, footer.
	reserved := 22
	visible := m.height - reserved
	if visible < 5 {
		visible = 5
	}
	return visible
}

// scrollStart keeps the selection on screen.
func (m Model) scrollStart(visible int) int {
	if m.selected < visible {
		return 0
	}
	return m.selected - visible + 1
}

// renderFooter renders the keyboard hint line plus any transient notice.
func (m Model) renderFooter(width int) string {
	hints := []string{
		"q quit",
		"/ filter",
		"t tree",
		"g group",
		"s sort",
		"enter detail",
		"dd kill",
		"f freeze",
		"+/- zoom",
		"? help",
	}
	footer := FooterStyle.Render(strings.Join(hints, " | "))
	if m.notice != "" {
		footer += "\n" + StaleStyle.Render(util.Truncate(m.notice, width))
	}
	return footer
}
