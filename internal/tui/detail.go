package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vitals-sh/vitals/internal/metrics"
	"github.com/vitals-sh/vitals/internal/util"
)

// Detail view styles
var (
	detailContainerStyle = lipgloss.NewStyle().
				Padding(1, 2)

	detailSectionStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1).
				MarginBottom(1)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(ColorTextPrimary)
)

// openDetail fills the viewport with the selected process and shows it.
func (m *Model) openDetail() {
	r, ok := m.selectedRow()
	if !ok || r.rec == nil {
		return
	}

	m.detailPID = r.rec.PID
	m.detail.Width = m.width
	m.detail.Height = m.height - 2
	m.detail.SetContent(m.renderDetail(r.rec))
	m.detail.GotoTop()
	m.showDetail = true
}

// refreshDetail re-renders the detail content from the newest snapshot, or
// closes the pane when the process has exited.
func (m *Model) refreshDetail() {
	if !m.showDetail {
		return
	}
	snap := m.session.Latest()
	if snap == nil {
		return
	}
	rec := snap.FindProcess(m.detailPID)
	if rec == nil {
		m.showDetail = false
		m.notice = fmt.Sprintf("pid %d exited", m.detailPID)
		return
	}
	m.detail.SetContent(m.renderDetail(rec))
}

// renderDetail builds the full detail text for one process.
func (m Model) renderDetail(rec *metrics.ProcessRecord) string {
	contentWidth := m.width - 6
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder

	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(rec.Name)
	b.WriteString(fmt.Sprintf("%s  %s\n\n", title, LabelStyle.Render(fmt.Sprintf("pid %d", rec.PID))))

	ident := []string{
		detailLine("Command", rec.Command),
		detailLine("User", rec.User),
		detailLine("State", rec.State.String()),
		detailLine("Parent PID", fmt.Sprintf("%d", rec.ParentPID)),
	}
	if !rec.StartTime.IsZero() {
		ident = append(ident, detailLine("Started", rec.StartTime.Format("2006-01-02 15:04:05")))
	}
	b.WriteString(detailSectionStyle.Width(contentWidth).Render(strings.Join(ident, "\n")))
	b.WriteString("\n")

	usage := []string{
		detailLine("CPU", util.FormatPercent(rec.CPUPercent)),
		detailLine("Memory", util.FormatBytes(rec.MemBytes)),
		detailLine("Read total", util.FormatBytes(rec.ReadBytesTotal)),
		detailLine("Write total", util.FormatBytes(rec.WriteBytesTotal)),
	}
	b.WriteString(detailSectionStyle.Width(contentWidth).Render(strings.Join(usage, "\n")))
	b.WriteString("\n")

	b.WriteString(FooterStyle.Render("enter/esc close | up/down scroll"))

	return detailContainerStyle.Render(b.String())
}

func detailLine(label, value string) string {
	return LabelStyle.Render(util.PadRight(label, 12)) + detailValueStyle.Render(value)
}
