package query

import (
	"math"
	"strings"

	"github.com/vitals-sh/vitals/internal/metrics"
)

// Field identifies the process attribute a comparison reads.
type Field int

const (
	FieldPID Field = iota
	FieldName
	FieldCmd
	FieldUser
	FieldState
	FieldCPU
	FieldMem
	FieldRead
	FieldWrite
)

var fieldNames = map[string]Field{
	"pid":   FieldPID,
	"name":  FieldName,
	"cmd":   FieldCmd,
	"user":  FieldUser,
	"state": FieldState,
	"cpu":   FieldCPU,
	"mem":   FieldMem,
	"read":  FieldRead,
	"write": FieldWrite,
}

// numeric reports whether the field compares as a number. The rest match as
// case-folded substrings.
func (f Field) numeric() bool {
	switch f {
	case FieldPID, FieldCPU, FieldMem, FieldRead, FieldWrite:
		return true
	}
	return false
}

// bytes reports whether numeric literals for the field accept unit suffixes.
func (f Field) bytes() bool {
	return f == FieldMem || f == FieldRead || f == FieldWrite
}

// Op is a comparison operator.
type Op int

const (
	OpGT Op = iota
	OpLT
	OpGTE
	OpLTE
	OpEQ
	OpNEQ
)

var opSymbols = map[string]Op{
	">":  OpGT,
	"<":  OpLT,
	">=": OpGTE,
	"<=": OpLTE,
	"=":  OpEQ,
	"==": OpEQ,
	"!=": OpNEQ,
}

// Node is one node of a parsed filter expression. Evaluation is pure and
// never fails; records missing a value simply do not match.
type Node interface {
	Eval(rec *metrics.ProcessRecord) bool
}

// And matches when both sides match.
type And struct {
	L, R Node
}

func (n And) Eval(rec *metrics.ProcessRecord) bool {
	return n.L.Eval(rec) && n.R.Eval(rec)
}

// Or matches when either side matches.
type Or struct {
	L, R Node
}

func (n Or) Eval(rec *metrics.ProcessRecord) bool {
	return n.L.Eval(rec) || n.R.Eval(rec)
}

// Match is a bare or quoted pattern matched as a substring against the
// process name and command line.
type Match struct {
	Pattern       string
	CaseSensitive bool
}

func (n Match) Eval(rec *metrics.ProcessRecord) bool {
	return containsFold(rec.Name, n.Pattern, n.CaseSensitive) ||
		containsFold(rec.Command, n.Pattern, n.CaseSensitive)
}

// Comparison is a `field op value` term. Numeric fields use Num; string
// fields use Str with OpEQ/OpNEQ as substring / negated substring.
type Comparison struct {
	Field         Field
	Op            Op
	Num           float64
	Str           string
	CaseSensitive bool
}

func (n Comparison) Eval(rec *metrics.ProcessRecord) bool {
	if n.Field.numeric() {
		return compareNumeric(n.Op, numericValue(n.Field, rec), n.Num)
	}
	hit := containsFold(stringValue(n.Field, rec), n.Str, n.CaseSensitive)
	if n.Op == OpNEQ {
		return !hit
	}
	return hit
}

func numericValue(f Field, rec *metrics.ProcessRecord) float64 {
	switch f {
	case FieldPID:
		return float64(rec.PID)
	case FieldCPU:
		return rec.CPUPercent
	case FieldMem:
		return float64(rec.MemBytes)
	case FieldRead:
		return float64(rec.ReadBytesTotal)
	case FieldWrite:
		return float64(rec.WriteBytesTotal)
	}
	return math.NaN()
}

func stringValue(f Field, rec *metrics.ProcessRecord) string {
	switch f {
	case FieldName:
		return rec.Name
	case FieldCmd:
		return rec.Command
	case FieldUser:
		return rec.User
	case FieldState:
		return rec.State.String()
	}
	return ""
}

// compareNumeric applies op with NaN treated as an unknown value: a record
// with no measurement never matches, not even !=.
func compareNumeric(op Op, lhs, rhs float64) bool {
	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return false
	}
	switch op {
	case OpGT:
		return lhs > rhs
	case OpLT:
		return lhs < rhs
	case OpGTE:
		return lhs >= rhs
	case OpLTE:
		return lhs <= rhs
	case OpEQ:
		return lhs == rhs
	case OpNEQ:
		return lhs != rhs
	}
	return false
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
