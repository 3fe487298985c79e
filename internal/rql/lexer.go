// Package rql implements the RQL pipeline language front end of spec.md
// §4.6: a hand-written tokenizer and Pratt-style parser producing an
// AST, later lowered to a logical plan. Grounded on the teacher's
// internal/engine/lexer.go (single-pass rune-based scanner, fixed
// keyword allow-list) and internal/engine/parser.go, generalized from
// tinySQL's statement grammar to RQL's `|`-separated pipeline stages.
package rql

import (
	"strings"
)

// TokenKind discriminates what a Token is.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokInt
	TokFloat
	TokString
	TokBool
	TokDuration // e.g. 5m, 30s, 1h — a bare number followed by a duration unit
	TokOperator
	TokSymbol // | { } ( ) [ ] : , . ; newline
)

// Token is one lexical unit with its source position for diagnostics
// (§6.3: "the source fragment (text + line + column)").
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

// keywords is the fixed allow-list of §6.2's reserved words.
var keywords = map[string]bool{
	"from": true, "filter": true, "map": true, "extend": true, "sort": true,
	"take": true, "distinct": true, "window": true, "with": true, "by": true,
	"join": true, "inner": true, "left": true, "natural": true, "using": true,
	"on": true, "merge": true, "insert": true, "update": true, "delete": true,
	"create": true, "alter": true, "drop": true, "if": true, "else": true,
	"loop": true, "for": true, "break": true, "continue": true, "let": true,
	"def": true, "return": true, "as": true, "and": true, "or": true,
	"not": true, "xor": true, "in": true, "between": true,
	"true": true, "false": true, "null": true,
}

// Lexer is a single-pass byte-based scanner over RQL source text.
type Lexer struct {
	src    string
	pos    int
	line   int
	column int
}

// NewLexer builds a Lexer over src, ready to emit tokens from the start.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	p := l.pos + n
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) advance() byte {
	c := l.peek()
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

// skipInsignificant consumes spaces/tabs and `//`/`/* */` comments, but
// stops at a newline: in RQL a newline is itself a statement-boundary
// token (§6.2) and must be emitted, not swallowed as whitespace.
func (l *Lexer) skipInsignificant() {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() Token {
	l.skipInsignificant()
	line, col := l.line, l.column
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Line: line, Column: col}
	}

	c := l.peek()
	switch {
	case c == '\n':
		l.advance()
		return Token{Kind: TokSymbol, Text: "\n", Line: line, Column: col}
	case isIdentStart(c):
		return l.scanIdentOrKeyword(line, col)
	case c >= '0' && c <= '9':
		return l.scanNumber(line, col)
	case c == '"' || c == '\'':
		return l.scanString(line, col)
	default:
		return l.scanOperatorOrSymbol(line, col)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *Lexer) scanIdentOrKeyword(line, col int) Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	lower := strings.ToLower(text)
	if lower == "true" || lower == "false" {
		return Token{Kind: TokBool, Text: lower, Line: line, Column: col}
	}
	if keywords[lower] {
		return Token{Kind: TokKeyword, Text: lower, Line: line, Column: col}
	}
	return Token{Kind: TokIdent, Text: text, Line: line, Column: col}
}

func (l *Lexer) scanNumber(line, col int) Token {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	if (l.peek() == 'e' || l.peek() == 'E') && (isDigit(l.peekAt(1)) || ((l.peekAt(1) == '+' || l.peekAt(1) == '-') && isDigit(l.peekAt(2)))) {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	// Bare duration suffix: ns, us, ms, s, m, h, d, w.
	if unit := l.durationUnitAt(l.pos); unit != "" {
		l.pos += len(unit)
		l.column += len(unit)
		return Token{Kind: TokDuration, Text: l.src[start:l.pos], Line: line, Column: col}
	}
	if isFloat {
		return Token{Kind: TokFloat, Text: l.src[start:l.pos], Line: line, Column: col}
	}
	return Token{Kind: TokInt, Text: l.src[start:l.pos], Line: line, Column: col}
}

func (l *Lexer) durationUnitAt(pos int) string {
	for _, u := range []string{"ns", "us", "ms", "s", "m", "h", "d", "w"} {
		if pos+len(u) <= len(l.src) && l.src[pos:pos+len(u)] == u {
			// Don't swallow the start of a longer identifier, e.g. "5s_total".
			if pos+len(u) < len(l.src) && isIdentCont(l.src[pos+len(u)]) {
				continue
			}
			return u
		}
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) scanString(line, col int) Token {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.src) && l.peek() != quote {
		c := l.advance()
		if c == '\\' && l.pos < len(l.src) {
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteByte(esc)
			default:
				b.WriteByte(esc)
			}
			continue
		}
		b.WriteByte(c)
	}
	if l.pos < len(l.src) {
		l.advance() // closing quote
	}
	return Token{Kind: TokString, Text: b.String(), Line: line, Column: col}
}

var multiCharOperators = []string{"==", "!=", "<=", ">=", "::", "..", "&&", "||"}

func (l *Lexer) scanOperatorOrSymbol(line, col int) Token {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			for range op {
				l.advance()
			}
			return Token{Kind: TokOperator, Text: op, Line: line, Column: col}
		}
	}
	c := l.advance()
	switch c {
	case '|', '{', '}', '(', ')', '[', ']', ':', ',', '.', ';':
		return Token{Kind: TokSymbol, Text: string(c), Line: line, Column: col}
	default:
		return Token{Kind: TokOperator, Text: string(c), Line: line, Column: col}
	}
}
