// Package query implements the process filter expression language. Terms
// separated by whitespace combine as AND, the keyword `or` separates
// AND-groups, and parentheses group and nest. A term is a bare or quoted
// substring pattern, or a typed `field op value` comparison.
//
// Parsing reports positioned errors and never panics; callers keep their
// previous filter and show the error inline rather than aborting.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a malformed filter expression. Position is the byte
// offset of the offending token in the input.
type ParseError struct {
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Reason)
}

// Options controls parse-time matching behavior.
type Options struct {
	// CaseSensitive disables the default case folding of substring matches.
	CaseSensitive bool
}

// Parse compiles a filter expression with default options. An empty or
// all-whitespace input yields a nil Node, meaning no filter.
func Parse(input string) (Node, error) {
	return ParseWith(input, Options{})
}

// ParseWith compiles a filter expression. Errors are always *ParseError.
func ParseWith(input string, opts Options) (Node, error) {
	toks, lerr := lex(input)
	if lerr != nil {
		return nil, lerr
	}
	if len(toks) == 1 {
		return nil, nil
	}

	p := &parser{toks: toks, opts: opts}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokRParen {
			return nil, &ParseError{Position: tok.pos, Reason: "unmatched closing parenthesis"}
		}
		return nil, &ParseError{Position: tok.pos, Reason: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return node, nil
}

type parser struct {
	toks []token
	pos  int
	opts Options
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// isOrKeyword reports whether tok is the disjunction keyword. Quoted "or"
// is always a pattern, never the keyword.
func isOrKeyword(tok token) bool {
	return tok.kind == tokWord && strings.EqualFold(tok.text, "or")
}

// parseExpr := andGroup ( "or" andGroup )*
func (p *parser) parseExpr() (Node, error) {
	if isOrKeyword(p.peek()) {
		return nil, &ParseError{Position: p.peek().pos, Reason: "expression cannot start with `or`"}
	}

	left, err := p.parseAndGroup()
	if err != nil {
		return nil, err
	}

	for isOrKeyword(p.peek()) {
		or := p.next()
		if !p.startsTerm(p.peek()) || isOrKeyword(p.peek()) {
			return nil, &ParseError{Position: or.pos, Reason: "dangling `or`"}
		}
		right, err := p.parseAndGroup()
		if err != nil {
			return nil, err
		}
		left = Or{L: left, R: right}
	}
	return left, nil
}

// parseAndGroup folds adjacent terms into left-associated ANDs.
func (p *parser) parseAndGroup() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.startsTerm(p.peek()) && !isOrKeyword(p.peek()) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{L: left, R: right}
	}
	return left, nil
}

func (p *parser) startsTerm(tok token) bool {
	return tok.kind == tokWord || tok.kind == tokQuoted || tok.kind == tokLParen
}

// parseUnary := "(" expr ")" | term
func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		open := p.next()
		if p.peek().kind == tokRParen {
			return nil, &ParseError{Position: open.pos, Reason: "empty parentheses"}
		}
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, &ParseError{Position: open.pos, Reason: "unbalanced parentheses"}
		}
		p.next()
		return node, nil
	case tokQuoted:
		p.next()
		return Match{Pattern: tok.text, CaseSensitive: p.opts.CaseSensitive}, nil
	case tokWord:
		return p.parseTerm()
	case tokOp:
		return nil, &ParseError{Position: tok.pos, Reason: fmt.Sprintf("unexpected operator %q", tok.text)}
	default:
		return nil, &ParseError{Position: tok.pos, Reason: "unexpected end of expression"}
	}
}

// parseTerm handles a bare word, which is a substring pattern unless it is
// a known field name followed by an operator.
func (p *parser) parseTerm() (Node, error) {
	word := p.next()

	field, isField := fieldNames[strings.ToLower(word.text)]
	if p.peek().kind != tokOp {
		return Match{Pattern: word.text, CaseSensitive: p.opts.CaseSensitive}, nil
	}

	opTok := p.next()
	if !isField {
		return nil, &ParseError{Position: word.pos, Reason: fmt.Sprintf("unknown field %q", word.text)}
	}
	op, ok := opSymbols[opTok.text]
	if !ok {
		return nil, &ParseError{Position: opTok.pos, Reason: fmt.Sprintf("unknown operator %q", opTok.text)}
	}
	if !field.numeric() && op != OpEQ && op != OpNEQ {
		return nil, &ParseError{
			Position: opTok.pos,
			Reason:   fmt.Sprintf("operator %q not valid for text field %q", opTok.text, strings.ToLower(word.text)),
		}
	}

	val := p.next()
	if val.kind != tokWord && val.kind != tokQuoted {
		return nil, &ParseError{Position: val.pos, Reason: fmt.Sprintf("missing value for field %q", strings.ToLower(word.text))}
	}

	cmp := Comparison{Field: field, Op: op, CaseSensitive: p.opts.CaseSensitive}
	if field.numeric() {
		num, err := parseNumber(field, val)
		if err != nil {
			return nil, err
		}
		cmp.Num = num
	} else {
		cmp.Str = val.text
	}
	return cmp, nil
}

// unitMultipliers covers the byte suffixes, all powers of 1024.
var unitMultipliers = map[string]float64{
	"k": 1 << 10, "kb": 1 << 10, "kib": 1 << 10,
	"m": 1 << 20, "mb": 1 << 20, "mib": 1 << 20,
	"g": 1 << 30, "gb": 1 << 30, "gib": 1 << 30,
	"t": 1 << 40, "tb": 1 << 40, "tib": 1 << 40,
}

// parseNumber parses a numeric literal, honoring unit suffixes on byte
// fields only.
func parseNumber(field Field, tok token) (float64, *ParseError) {
	text := tok.text
	mult := 1.0

	cut := len(text)
	for cut > 0 && isAlpha(text[cut-1]) {
		cut--
	}
	if suffix := text[cut:]; suffix != "" {
		m, ok := unitMultipliers[strings.ToLower(suffix)]
		if !ok || !field.bytes() {
			return 0, &ParseError{Position: tok.pos, Reason: fmt.Sprintf("bad number %q", text)}
		}
		mult = m
		text = text[:cut]
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ParseError{Position: tok.pos, Reason: fmt.Sprintf("bad number %q", tok.text)}
	}
	return n * mult, nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
