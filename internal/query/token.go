package query

import (
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokLParen
	tokRParen
	tokOp
	tokEOF
)

// token is one lexeme of a filter expression. pos is the byte offset of its
// first character in the original input, used for ParseError positions.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// isOpChar reports whether c can start or continue an operator run.
func isOpChar(c byte) bool {
	return c == '>' || c == '<' || c == '=' || c == '!'
}

// lex splits a filter expression into tokens. Words break on whitespace,
// parentheses, quotes, and operator characters. Quoted strings keep their
// content verbatim with no escape processing.
func lex(input string) ([]token, *ParseError) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, &ParseError{Position: i, Reason: "unterminated quoted string"}
			}
			toks = append(toks, token{kind: tokQuoted, text: input[i+1 : i+1+end], pos: i})
			i += end + 2
		case isOpChar(c):
			start := i
			for i < len(input) && isOpChar(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokOp, text: input[start:i], pos: start})
		default:
			start := i
			for i < len(input) && !isWordBreak(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: input[start:i], pos: start})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func isWordBreak(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '(' || c == ')' ||
		c == '"' || c == '\'' || isOpChar(c)
}
