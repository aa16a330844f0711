// Package lexer implements the Aether language tokenizer.
//
// Besides ordinary tokens the lexer synthesizes NEWLINE at the end of every
// logical line and INDENT/DEDENT when the leading whitespace of a line
// opens or closes a block, so the parser never looks at raw whitespace.
package lexer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
)

// DefaultTabWidth is the tab stop used when measuring indentation.
const DefaultTabWidth = 4

// Options configures tokenization.
type Options struct {
	// TabWidth is the tab stop for leading whitespace. Zero means DefaultTabWidth.
	TabWidth int
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	tabWidth int

	indents     *IndentStack
	parenDepth  int
	atLineStart bool
	lineHasToks bool
	tokens      []Token
}

func newScanner(source, filename string, opts Options) *scanner {
	tw := opts.TabWidth
	if tw <= 0 {
		tw = DefaultTabWidth
	}
	return &scanner{
		source:      source,
		filename:    filename,
		pos:         0,
		line:        1,
		col:         1,
		tabWidth:    tw,
		indents:     NewIndentStack(),
		atLineStart: true,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) point() ast.Span {
	return s.span(s.line, s.col)
}

func (s *scanner) emit(tok Token) {
	s.tokens = append(s.tokens, tok)
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) skipComment() {
	for !s.atEnd() && s.peek() != '\n' {
		s.advance()
	}
}

// skipInlineWhitespace skips spaces, tabs, carriage returns, and a trailing comment.
func (s *scanner) skipInlineWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '#':
			s.skipComment()
		default:
			return
		}
	}
}

// beginLine measures the indentation of the next non-blank line and emits
// INDENT/DEDENT tokens for it. Blank and comment-only lines are consumed
// without touching the indentation stack.
func (s *scanner) beginLine() error {
	for !s.atEnd() {
		width := 0
		for !s.atEnd() {
			ch := s.peek()
			if ch == ' ' {
				width++
			} else if ch == '\t' {
				width = (width/s.tabWidth + 1) * s.tabWidth
			} else if ch != '\r' {
				break
			}
			s.advance()
		}

		ch := s.peek()
		switch {
		case s.atEnd():
			return nil
		case ch == '\n':
			s.advance()
			continue
		case ch == '#':
			s.skipComment()
			continue
		}

		indent, dedents, err := s.indents.Resolve(width)
		if err != nil {
			if errors.Is(err, ErrInconsistentIndent) {
				return s.lexError(s.line, s.col,
					fmt.Sprintf("inconsistent indentation: width %d does not match any enclosing block (open levels %v)", width, s.indents.Levels()))
			}
			return err
		}
		if indent {
			s.emit(Token{Type: TokIndent, Span: ast.Span{File: s.filename, StartLine: s.line, StartCol: 1, EndLine: s.line, EndCol: s.col}})
		}
		for i := 0; i < dedents; i++ {
			s.emit(Token{Type: TokDedent, Span: s.point()})
		}
		s.atLineStart = false
		return nil
	}
	return nil
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokString,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(startLine, startCol, "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			default:
				return Token{}, s.lexError(s.line, s.col-2, fmt.Sprintf("invalid escape character: \\%c", esc))
			}
		} else if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		} else {
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(s.line, s.col, "invalid UTF-8 character in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Exponent only when digits follow, so "2else" stays two tokens.
	if e := s.peek(); e == 'e' || e == 'E' {
		off := 1
		if sign := s.peekAt(1); sign == '+' || sign == '-' {
			off = 2
		}
		if isDigit(s.peekAt(off)) {
			for i := 0; i < off; i++ {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	return Token{
		Type:  TokNumber,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	if tokType, ok := keywords[text]; ok {
		return Token{Type: tokType, Value: text, Span: s.span(startLine, startCol)}
	}
	return Token{Type: TokIdent, Value: text, Span: s.span(startLine, startCol)}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return diagnostics.FormatDiagnostic(e.Diag, false)
}

func (s *scanner) single(typ TokenType, text string) Token {
	startLine, startCol := s.line, s.col
	for range text {
		s.advance()
	}
	return Token{Type: typ, Value: text, Span: s.span(startLine, startCol)}
}

// pair scans a one- or two-character operator: second is tried first.
func (s *scanner) pair(next byte, two TokenType, one TokenType) Token {
	if s.peekAt(1) == next {
		return s.single(two, s.source[s.pos:s.pos+2])
	}
	return s.single(one, s.source[s.pos:s.pos+1])
}

func (s *scanner) nextToken() (Token, error) {
	ch := s.peek()

	switch ch {
	case '(':
		s.parenDepth++
		return s.single(TokLParen, "("), nil
	case ')':
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return s.single(TokRParen, ")"), nil
	case ',':
		return s.single(TokComma, ","), nil
	case '+':
		return s.single(TokPlus, "+"), nil
	case '-':
		return s.single(TokMinus, "-"), nil
	case '*':
		return s.single(TokStar, "*"), nil
	case '/':
		return s.single(TokSlash, "/"), nil
	case '%':
		return s.single(TokPercent, "%"), nil
	case ':':
		return s.pair('=', TokDeclare, TokColon), nil
	case '=':
		return s.pair('=', TokEqEq, TokAssign), nil
	case '<':
		return s.pair('=', TokLtEq, TokLt), nil
	case '>':
		return s.pair('=', TokGtEq, TokGt), nil
	case '!':
		if s.peekAt(1) == '=' {
			return s.single(TokBangEq, "!="), nil
		}
		return Token{}, s.lexError(s.line, s.col, "unexpected character '!' (use 'not' for negation)")
	case '"':
		return s.scanString()
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}
	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return Token{}, s.lexError(s.line, s.col, fmt.Sprintf("unexpected character %q", r))
}

func (s *scanner) run() ([]Token, error) {
	for {
		if s.atLineStart {
			if err := s.beginLine(); err != nil {
				return nil, err
			}
		}
		s.skipInlineWhitespace()
		if s.atEnd() {
			break
		}

		if s.peek() == '\n' {
			if s.parenDepth > 0 {
				// implicit line joining inside parentheses
				s.advance()
				continue
			}
			if s.lineHasToks {
				startLine, startCol := s.line, s.col
				s.advance()
				s.emit(Token{Type: TokNewline, Value: "\n", Span: ast.Span{File: s.filename, StartLine: startLine, StartCol: startCol, EndLine: startLine, EndCol: startCol + 1}})
			} else {
				s.advance()
			}
			s.lineHasToks = false
			s.atLineStart = true
			continue
		}

		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		s.emit(tok)
		s.lineHasToks = true
	}

	if s.lineHasToks {
		s.emit(Token{Type: TokNewline, Value: "", Span: s.point()})
	}
	for s.indents.Depth() > 0 {
		s.indents.Pop()
		s.emit(Token{Type: TokDedent, Span: s.point()})
	}
	s.emit(Token{Type: TokEOF, Value: "", Span: s.point()})
	return s.tokens, nil
}

// Tokenize breaks source code into a slice of tokens using default options.
func Tokenize(source, filename string) ([]Token, error) {
	return TokenizeWith(source, filename, Options{})
}

// TokenizeWith breaks source code into a slice of tokens ending in EOF.
// The first lexical error stops tokenization; no partial slice is returned.
func TokenizeWith(source, filename string, opts Options) ([]Token, error) {
	return newScanner(source, filename, opts).run()
}
