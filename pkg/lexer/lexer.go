// Package lexer turns source text into a token stream with INDENT/DEDENT
// tokens synthesized from leading whitespace, so the parser can treat
// block structure like ordinary delimiters.
package lexer

import (
	"strings"

	"github.com/chazu/slither/pkg/fault"
)

// Lexer scans one source text. Tokenize consumes the whole input at once;
// the scanner is line-oriented because indentation is only meaningful at
// the start of a physical line.
type Lexer struct {
	src    string
	pos    int
	line   int
	col    int
	indent []int // indentation stack, always starts with 0
	tokens []Token

	// parenDepth suppresses NEWLINE/indent handling inside brackets so
	// multi-line collection literals lex as a single logical line.
	parenDepth int
}

// New creates a lexer for the given source text.
func New(src string) *Lexer {
	return &Lexer{
		src:    src,
		line:   1,
		col:    1,
		indent: []int{0},
	}
}

// Tokenize scans the entire input and returns the token stream, terminated
// by any pending DEDENTs and a final EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	atLineStart := true
	for l.pos < len(l.src) {
		if atLineStart && l.parenDepth == 0 {
			if err := l.scanIndent(); err != nil {
				return nil, err
			}
			atLineStart = false
			// A line that was all whitespace/comment produced no tokens;
			// scanIndent leaves us at the newline in that case.
			if l.pos < len(l.src) && l.src[l.pos] == '\n' {
				l.advance()
				atLineStart = true
				continue
			}
			if l.pos >= len(l.src) {
				break
			}
		}

		ch := l.src[l.pos]
		switch {
		case ch == '\n':
			if l.parenDepth == 0 {
				l.emit(NEWLINE, "")
				atLineStart = true
			}
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case isDigit(ch):
			l.scanNumber()
		case ch == '"' || ch == '\'':
			if err := l.scanString(ch); err != nil {
				return nil, err
			}
		case isIdentStart(ch):
			l.scanIdent()
		default:
			if err := l.scanOperator(); err != nil {
				return nil, err
			}
		}
	}

	// Close any open block at end of input.
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Type != NEWLINE {
		l.emit(NEWLINE, "")
	}
	for len(l.indent) > 1 {
		l.indent = l.indent[:len(l.indent)-1]
		l.emit(DEDENT, "")
	}
	l.emit(EOF, "")
	return l.tokens, nil
}

// scanIndent measures the leading whitespace of the current line and emits
// INDENT/DEDENT tokens against the indentation stack. A tab counts as one
// indentation unit, same as a space; a dedent that does not land on a level
// already on the stack is an indentation fault.
func (l *Lexer) scanIndent() error {
	width := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t':
			width++
			l.advance()
		case '\r':
			l.advance()
		default:
			goto measured
		}
	}
measured:
	// Blank lines and comment-only lines do not affect the indent stack.
	if l.pos >= len(l.src) || l.src[l.pos] == '\n' || l.src[l.pos] == '#' {
		if l.pos < len(l.src) && l.src[l.pos] == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		}
		return nil
	}

	top := l.indent[len(l.indent)-1]
	switch {
	case width > top:
		l.indent = append(l.indent, width)
		l.emit(INDENT, "")
	case width < top:
		for len(l.indent) > 1 && l.indent[len(l.indent)-1] > width {
			l.indent = l.indent[:len(l.indent)-1]
			l.emit(DEDENT, "")
		}
		if l.indent[len(l.indent)-1] != width {
			return fault.Errorf(fault.IndentationError,
				"line %d: unindent does not match any outer indentation level", l.line)
		}
	}
	return nil
}

func (l *Lexer) scanNumber() {
	start := l.pos
	startCol := l.col
	isFloat := false
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance()
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		isFloat = true
		l.advance()
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
	}
	lit := l.src[start:l.pos]
	if isFloat {
		l.emitAt(FLOAT, lit, startCol)
	} else {
		l.emitAt(INT, lit, startCol)
	}
}

func (l *Lexer) scanString(quote byte) error {
	startLine := l.line
	startCol := l.col
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return fault.Errorf(fault.SyntaxError, "line %d: unterminated string literal", startLine)
		}
		ch := l.src[l.pos]
		if ch == quote {
			l.advance()
			break
		}
		if ch == '\\' && l.pos+1 < len(l.src) {
			l.advance()
			switch l.src[l.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case quote:
				sb.WriteByte(quote)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(l.src[l.pos])
			}
			l.advance()
			continue
		}
		sb.WriteByte(ch)
		l.advance()
	}
	l.emitAt(STRING, sb.String(), startCol)
	return nil
}

func (l *Lexer) scanIdent() {
	start := l.pos
	startCol := l.col
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.advance()
	}
	lit := l.src[start:l.pos]
	if kw, ok := keywords[lit]; ok {
		l.emitAt(kw, lit, startCol)
		return
	}
	l.emitAt(IDENT, lit, startCol)
}

func (l *Lexer) scanOperator() error {
	startCol := l.col
	ch := l.src[l.pos]
	var next byte
	if l.pos+1 < len(l.src) {
		next = l.src[l.pos+1]
	}

	two := func(t TokenType, lit string) {
		l.advance()
		l.advance()
		l.emitAt(t, lit, startCol)
	}
	one := func(t TokenType, lit string) {
		l.advance()
		l.emitAt(t, lit, startCol)
	}

	switch ch {
	case '+':
		if next == '=' {
			two(PLUSEQ, "+=")
		} else {
			one(PLUS, "+")
		}
	case '-':
		if next == '=' {
			two(MINUSEQ, "-=")
		} else {
			one(MINUS, "-")
		}
	case '*':
		if next == '=' {
			two(STAREQ, "*=")
		} else {
			one(STAR, "*")
		}
	case '/':
		if next == '=' {
			two(SLASHEQ, "/=")
		} else {
			one(SLASH, "/")
		}
	case '=':
		if next == '=' {
			two(EQ, "==")
		} else {
			one(ASSIGN, "=")
		}
	case '!':
		if next == '=' {
			two(NEQ, "!=")
		} else {
			return fault.Errorf(fault.SyntaxError, "line %d: unexpected character %q", l.line, string(ch))
		}
	case '<':
		if next == '=' {
			two(LTE, "<=")
		} else {
			one(LT, "<")
		}
	case '>':
		if next == '=' {
			two(GTE, ">=")
		} else {
			one(GT, ">")
		}
	case '.':
		one(DOT, ".")
	case ',':
		one(COMMA, ",")
	case ':':
		one(COLON, ":")
	case '(':
		l.parenDepth++
		one(LPAREN, "(")
	case ')':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		one(RPAREN, ")")
	case '[':
		l.parenDepth++
		one(LBRACKET, "[")
	case ']':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		one(RBRACKET, "]")
	case '{':
		l.parenDepth++
		one(LBRACE, "{")
	case '}':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		one(RBRACE, "}")
	default:
		return fault.Errorf(fault.SyntaxError, "line %d: unexpected character %q", l.line, string(ch))
	}
	return nil
}

func (l *Lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) emit(t TokenType, lit string) {
	l.tokens = append(l.tokens, Token{Type: t, Literal: lit, Line: l.line, Col: l.col})
}

func (l *Lexer) emitAt(t TokenType, lit string, col int) {
	l.tokens = append(l.tokens, Token{Type: t, Literal: lit, Line: l.line, Col: col})
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
