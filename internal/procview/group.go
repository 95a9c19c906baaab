package procview

import (
	"math"
	"sort"

	"github.com/vitals-sh/vitals/internal/metrics"
)

// Grouped aggregates every live process sharing a name into one row.
type Grouped struct {
	Name            string
	Count           int
	CPUPercent      float64
	MemBytes        int64
	ReadBytesTotal  int64
	WriteBytesTotal int64
	// MemberPIDs are the live pids this tick, ascending. Kill resolution
	// re-reads these from the current grouped state, never a cached copy.
	MemberPIDs []int
}

// Group sums processes by name in a single pass. Rows come back sorted by
// name so the pre-sort order is deterministic.
func Group(recs []metrics.ProcessRecord) []Grouped {
	byName := make(map[string]*Grouped, len(recs))
	for i := range recs {
		rec := &recs[i]
		g, ok := byName[rec.Name]
		if !ok {
			g = &Grouped{Name: rec.Name}
			byName[rec.Name] = g
		}
		g.Count++
		if !math.IsNaN(rec.CPUPercent) {
			g.CPUPercent += rec.CPUPercent
		}
		g.MemBytes += rec.MemBytes
		g.ReadBytesTotal += rec.ReadBytesTotal
		g.WriteBytesTotal += rec.WriteBytesTotal
		g.MemberPIDs = append(g.MemberPIDs, rec.PID)
	}

	out := make([]Grouped, 0, len(byName))
	for _, g := range byName {
		sort.Ints(g.MemberPIDs)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FirstMemberPID returns the lowest live pid, used as the grouped-view
// secondary tie-break.
func (g *Grouped) FirstMemberPID() int {
	if len(g.MemberPIDs) == 0 {
		return 0
	}
	return g.MemberPIDs[0]
}
