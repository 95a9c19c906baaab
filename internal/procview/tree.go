// Package procview builds the presentable views of a process snapshot: the
// parent/child tree, the grouped-by-name aggregation, and the sort orders
// applied to both. Views are rebuilt from scratch every tick; nothing here
// is patched incrementally.
package procview

import (
	"github.com/vitals-sh/vitals/internal/metrics"
	"github.com/vitals-sh/vitals/internal/query"
)

// SyntheticRootPID is the pid of the tree root that adopts orphaned
// processes. It is not a real process: it never participates in pid
// tie-breaks and is never a kill target.
const SyntheticRootPID = -1

// Node is one process in the tree. Record is nil only on the synthetic root.
type Node struct {
	Record   *metrics.ProcessRecord
	Children []*Node
}

// PID returns the node's pid, or SyntheticRootPID for the root.
func (n *Node) PID() int {
	if n.Record == nil {
		return SyntheticRootPID
	}
	return n.Record.PID
}

// Tree is the full parent/child hierarchy of one snapshot.
type Tree struct {
	Root *Node
	// Size counts real processes in the tree, excluding the root.
	Size int
}

// BuildTree arranges a snapshot's processes under their parents in one pass
// over a pid index. A process whose parent is absent from the snapshot, or
// which claims itself as parent, attaches to the synthetic root so nothing
// is ever hidden.
func BuildTree(snap *metrics.Snapshot) *Tree {
	root := &Node{}
	if snap == nil || len(snap.Processes) == 0 {
		return &Tree{Root: root}
	}

	index := make(map[int]*Node, len(snap.Processes))
	for i := range snap.Processes {
		rec := &snap.Processes[i]
		index[rec.PID] = &Node{Record: rec}
	}

	for i := range snap.Processes {
		rec := &snap.Processes[i]
		node := index[rec.PID]
		parent, ok := index[rec.ParentPID]
		if !ok || rec.ParentPID == rec.PID {
			parent = root
		}
		parent.Children = append(parent.Children, node)
	}

	return &Tree{Root: root, Size: len(snap.Processes)}
}

// Filter prunes the tree to nodes that match the query or have a matching
// descendant, so every match stays connected to the root through its
// ancestors. A nil query returns the tree unchanged.
func (t *Tree) Filter(q query.Node) *Tree {
	if q == nil {
		return t
	}
	root, size := filterNode(t.Root, q)
	if root == nil {
		root = &Node{}
	}
	return &Tree{Root: root, Size: size}
}

// filterNode returns a filtered copy of n, or nil if neither n nor any
// descendant matches. The synthetic root survives whenever any child does.
func filterNode(n *Node, q query.Node) (*Node, int) {
	var kept []*Node
	size := 0
	for _, child := range n.Children {
		if fc, cnt := filterNode(child, q); fc != nil {
			kept = append(kept, fc)
			size += cnt
		}
	}

	selfMatch := n.Record != nil && q.Eval(n.Record)
	if n.Record == nil {
		if kept == nil {
			return nil, 0
		}
		return &Node{Children: kept}, size
	}
	if !selfMatch && kept == nil {
		return nil, 0
	}
	return &Node{Record: n.Record, Children: kept}, size + 1
}

// Walk visits every real process node depth-first in display order,
// reporting its depth below the root. The synthetic root is skipped.
func (t *Tree) Walk(visit func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, child := range n.Children {
			visit(child, depth)
			walk(child, depth+1)
		}
	}
	walk(t.Root, 0)
}

// FilterRecords returns the records matching the query, preserving input
// order. A nil query keeps everything.
func FilterRecords(recs []metrics.ProcessRecord, q query.Node) []metrics.ProcessRecord {
	if q == nil {
		return recs
	}
	out := make([]metrics.ProcessRecord, 0, len(recs))
	for i := range recs {
		if q.Eval(&recs[i]) {
			out = append(out, recs[i])
		}
	}
	return out
}
