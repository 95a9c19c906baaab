package procview

import (
	"math"
	"sort"
	"strings"

	"github.com/vitals-sh/vitals/internal/metrics"
)

// Column is a sortable process table column.
type Column int

const (
	ColCPU Column = iota
	ColMem
	ColPID
	ColName
	ColRead
	ColWrite
	ColUser
	ColState
	// ColCount is only meaningful in the grouped view.
	ColCount
)

var columnNames = map[Column]string{
	ColCPU:   "cpu",
	ColMem:   "mem",
	ColPID:   "pid",
	ColName:  "name",
	ColRead:  "read",
	ColWrite: "write",
	ColUser:  "user",
	ColState: "state",
	ColCount: "count",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "cpu"
}

// ParseColumn maps a column name to its Column, defaulting to cpu.
func ParseColumn(name string) Column {
	for col, n := range columnNames {
		if strings.EqualFold(name, n) {
			return col
		}
	}
	return ColCPU
}

// SortState is the user's current ordering choice.
type SortState struct {
	Column     Column
	Descending bool
}

// DefaultSort is the ordering used at startup and as the fallback when a
// column does not apply to the current view.
var DefaultSort = SortState{Column: ColCPU, Descending: true}

// numericLess orders floats totally, with NaN below every number so an
// unmeasured value can never destabilize a sort.
func numericLess(a, b float64) bool {
	if math.IsNaN(a) {
		return !math.IsNaN(b)
	}
	if math.IsNaN(b) {
		return false
	}
	return a < b
}

// numericEqual pairs with numericLess; two NaNs order equal.
func numericEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// SortFlat orders process records in place. Ties break by pid ascending
// regardless of direction, and the sort is stable.
func SortFlat(recs []metrics.ProcessRecord, state SortState) {
	if state.Column == ColCount {
		state = DefaultSort
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := &recs[i], &recs[j]
		if less, eq := flatLess(a, b, state.Column); !eq {
			if state.Descending {
				return !less
			}
			return less
		}
		return a.PID < b.PID
	})
}

// flatLess compares one column, reporting equality so callers can apply
// direction to the primary key only and keep tie-breaks ascending.
func flatLess(a, b *metrics.ProcessRecord, col Column) (less, equal bool) {
	switch col {
	case ColPID:
		return a.PID < b.PID, a.PID == b.PID
	case ColName:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		return an < bn, an == bn
	case ColMem:
		return a.MemBytes < b.MemBytes, a.MemBytes == b.MemBytes
	case ColRead:
		return a.ReadBytesTotal < b.ReadBytesTotal, a.ReadBytesTotal == b.ReadBytesTotal
	case ColWrite:
		return a.WriteBytesTotal < b.WriteBytesTotal, a.WriteBytesTotal == b.WriteBytesTotal
	case ColUser:
		au, bu := strings.ToLower(a.User), strings.ToLower(b.User)
		return au < bu, au == bu
	case ColState:
		as, bs := a.State.String(), b.State.String()
		return as < bs, as == bs
	default:
		return numericLess(a.CPUPercent, b.CPUPercent), numericEqual(a.CPUPercent, b.CPUPercent)
	}
}

// SortGrouped orders grouped rows in place. Count compares numerically, pid
// has no meaning for a group and falls back to the default ordering, and
// ties break by name then first member pid.
func SortGrouped(groups []Grouped, state SortState) {
	if state.Column == ColPID || state.Column == ColUser || state.Column == ColState {
		state = DefaultSort
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := &groups[i], &groups[j]
		if less, eq := groupedLess(a, b, state.Column); !eq {
			if state.Descending {
				return !less
			}
			return less
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.FirstMemberPID() < b.FirstMemberPID()
	})
}

func groupedLess(a, b *Grouped, col Column) (less, equal bool) {
	switch col {
	case ColName:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		return an < bn, an == bn
	case ColCount:
		return a.Count < b.Count, a.Count == b.Count
	case ColMem:
		return a.MemBytes < b.MemBytes, a.MemBytes == b.MemBytes
	case ColRead:
		return a.ReadBytesTotal < b.ReadBytesTotal, a.ReadBytesTotal == b.ReadBytesTotal
	case ColWrite:
		return a.WriteBytesTotal < b.WriteBytesTotal, a.WriteBytesTotal == b.WriteBytesTotal
	default:
		return numericLess(a.CPUPercent, b.CPUPercent), numericEqual(a.CPUPercent, b.CPUPercent)
	}
}

// SortTree orders each node's children in place with the flat comparator,
// recursively. Children never move across levels, so a child can never
// displace its parent's siblings.
func SortTree(t *Tree, state SortState) {
	if state.Column == ColCount {
		state = DefaultSort
	}
	sortChildren(t.Root, state)
}

func sortChildren(n *Node, state SortState) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i].Record, n.Children[j].Record
		if less, eq := flatLess(a, b, state.Column); !eq {
			if state.Descending {
				return !less
			}
			return less
		}
		return a.PID < b.PID
	})
	for _, child := range n.Children {
		sortChildren(child, state)
	}
}
