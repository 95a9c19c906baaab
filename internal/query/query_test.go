package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitals-sh/vitals/internal/metrics"
)

func rec(mod func(r *metrics.ProcessRecord)) *metrics.ProcessRecord {
	r := &metrics.ProcessRecord{
		PID:             1234,
		ParentPID:       1,
		Name:            "firefox",
		Command:         "/usr/lib/firefox/firefox --new-window",
		User:            "alice",
		State:           metrics.StateRunning,
		CPUPercent:      12.5,
		MemBytes:        512 * 1024 * 1024,
		ReadBytesTotal:  4096,
		WriteBytesTotal: 8192,
	}
	if mod != nil {
		mod(r)
	}
	return r
}

func mustParse(t *testing.T, input string) Node {
	t.Helper()
	node, err := Parse(input)
	require.NoError(t, err)
	require.NotNil(t, node)
	return node
}

func TestEmptyInputMeansNoFilter(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		node, err := Parse(input)
		assert.NoError(t, err)
		assert.Nil(t, node, "input %q", input)
	}
}

func TestBareWordMatchesNameAndCommand(t *testing.T) {
	node := mustParse(t, "firefox")
	assert.True(t, node.Eval(rec(nil)))

	// Substring of the command line also matches.
	node = mustParse(t, "new-window")
	assert.True(t, node.Eval(rec(nil)))

	node = mustParse(t, "chromium")
	assert.False(t, node.Eval(rec(nil)))
}

func TestMatchingIsCaseInsensitiveByDefault(t *testing.T) {
	node := mustParse(t, "FIREFOX")
	assert.True(t, node.Eval(rec(nil)))

	node, err := ParseWith("FIREFOX", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.False(t, node.Eval(rec(nil)))
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"cpu > 10", true},
		{"cpu > 12.5", false},
		{"cpu >= 12.5", true},
		{"cpu < 50", true},
		{"cpu <= 12", false},
		{"cpu != 12.5", false},
		{"cpu = 12.5", true},
		{"pid = 1234", true},
		{"pid != 1234", false},
		{"mem > 256m", true},
		{"mem > 1g", false},
		{"mem = 512mib", true},
		{"read >= 4k", true},
		{"write < 4kb", false},
		{"name = fire", true},
		{"name != fire", false},
		{"name = chrome", false},
		{"user = ALICE", true},
		{"user != bob", true},
		{"state = run", true},
		{"state = zombie", false},
		{"cmd = new-window", true},
	}

	r := rec(nil)
	for _, tt := range tests {
		node := mustParse(t, tt.expr)
		assert.Equal(t, tt.want, node.Eval(r), "expr %q", tt.expr)
	}
}

func TestWhitespaceIsAnd(t *testing.T) {
	r := rec(nil)

	node := mustParse(t, "firefox cpu > 0 mem > 0")
	assert.True(t, node.Eval(r))

	node = mustParse(t, "firefox cpu > 90")
	assert.False(t, node.Eval(r), "one false term fails the whole AND group")
}

func TestParenthesizedGroupsJoinAsAnd(t *testing.T) {
	// Adjacent parenthesized groups are a conjunction, same as bare terms.
	// Bare words match name and command, so "usr" hits the command path.
	node := mustParse(t, "(firefox cpu > 0) (usr mem > 0)")
	assert.True(t, node.Eval(rec(nil)))

	// Matching a user needs the explicit field; a bare word never checks it.
	node = mustParse(t, "(firefox cpu > 0) (alice mem > 0)")
	assert.False(t, node.Eval(rec(nil)))
	node = mustParse(t, "(firefox cpu > 0) (user = alice)")
	assert.True(t, node.Eval(rec(nil)))

	node = mustParse(t, "(firefox cpu > 0) (discord mem > 0)")
	assert.False(t, node.Eval(rec(nil)))

	// Equivalent fully-parenthesized form agrees with the bare form.
	bare := mustParse(t, "firefox cpu > 0 mem > 0")
	paren := mustParse(t, "((firefox) (cpu > 0) (mem > 0))")
	assert.Equal(t, bare.Eval(rec(nil)), paren.Eval(rec(nil)))
}

func TestOrSeparatesAndGroups(t *testing.T) {
	r := rec(nil)

	node := mustParse(t, "chromium or firefox")
	assert.True(t, node.Eval(r))

	// AND binds tighter: (chromium AND cpu>0) OR (firefox AND mem>0).
	node = mustParse(t, "chromium cpu > 0 or firefox mem > 0")
	assert.True(t, node.Eval(r))

	node = mustParse(t, "chromium cpu > 0 or discord mem > 0")
	assert.False(t, node.Eval(r))

	// Parentheses override the default grouping.
	node = mustParse(t, "(chromium or firefox) cpu > 90")
	assert.False(t, node.Eval(r))
}

func TestOrKeywordIsCaseInsensitive(t *testing.T) {
	node := mustParse(t, "chromium OR firefox")
	assert.True(t, node.Eval(rec(nil)))
}

func TestQuotedPatterns(t *testing.T) {
	r := rec(func(r *metrics.ProcessRecord) {
		r.Name = "my server"
		r.Command = "/opt/my server --port 80"
	})

	node := mustParse(t, `"my server"`)
	assert.True(t, node.Eval(r))

	node = mustParse(t, `'--port 80'`)
	assert.True(t, node.Eval(r))

	// Quoted "or" is a pattern, not the keyword.
	node = mustParse(t, `"or"`)
	assert.True(t, node.Eval(rec(func(r *metrics.ProcessRecord) { r.Name = "oracle-ordb" })))
}

func TestNaNNeverMatches(t *testing.T) {
	r := rec(func(r *metrics.ProcessRecord) { r.CPUPercent = math.NaN() })

	for _, expr := range []string{"cpu > 0", "cpu < 100", "cpu = 0", "cpu != 0"} {
		node := mustParse(t, expr)
		assert.False(t, node.Eval(r), "expr %q", expr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		pos    int
		reason string
	}{
		{"(firefox", 0, "unbalanced parentheses"},
		{"firefox)", 7, "unmatched closing parenthesis"},
		{"()", 0, "empty parentheses"},
		{`"unterminated`, 0, "unterminated quoted string"},
		{"bogus > 3", 0, `unknown field "bogus"`},
		{"cpu >< 3", 4, `unknown operator "><"`},
		{"name > x", 5, `operator ">" not valid for text field "name"`},
		{"cpu > abc", 6, `bad number "abc"`},
		{"cpu > 5g", 6, `bad number "5g"`},
		{"cpu >", 5, `missing value for field "cpu"`},
		{"or firefox", 0, "expression cannot start with `or`"},
		{"firefox or", 8, "dangling `or`"},
		{"firefox or or chrome", 8, "dangling `or`"},
		{"> 5", 0, `unexpected operator ">"`},
	}

	for _, tt := range tests {
		node, err := Parse(tt.input)
		require.Error(t, err, "input %q", tt.input)
		assert.Nil(t, node)

		var perr *ParseError
		require.ErrorAs(t, err, &perr, "input %q", tt.input)
		assert.Equal(t, tt.pos, perr.Position, "input %q", tt.input)
		assert.Equal(t, tt.reason, perr.Reason, "input %q", tt.input)
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Position: 4, Reason: "unbalanced parentheses"}
	assert.Equal(t, "parse error at position 4: unbalanced parentheses", err.Error())
}

func TestUnitSuffixes(t *testing.T) {
	r := rec(func(r *metrics.ProcessRecord) { r.MemBytes = 3 * 1024 * 1024 * 1024 })

	for _, expr := range []string{"mem = 3g", "mem = 3gb", "mem = 3GiB", "mem > 2g", "mem < 4T"} {
		node := mustParse(t, expr)
		assert.True(t, node.Eval(r), "expr %q", expr)
	}
}

func TestOperatorsWithoutSpaces(t *testing.T) {
	r := rec(nil)

	node := mustParse(t, "cpu>10")
	assert.True(t, node.Eval(r))

	node = mustParse(t, "mem>=256m pid=1234")
	assert.True(t, node.Eval(r))
}
