package lexer

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/aether/pkg/ast"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokElse
	TokWhile
	TokPrint
	TokTrue
	TokFalse
	TokNil
	TokAnd
	TokOr
	TokNot

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Binding operators
	TokDeclare // :=
	TokAssign  // =

	// Punctuation
	TokLParen // (
	TokRParen // )
	TokColon  // :
	TokComma  // ,

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokLt     // <
	TokLtEq   // <=
	TokGt     // >
	TokGtEq   // >=

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Structure
	TokNewline
	TokIndent
	TokDedent
	TokEOF
)

var tokenNames = [...]string{
	TokIf:      "if",
	TokElse:    "else",
	TokWhile:   "while",
	TokPrint:   "print",
	TokTrue:    "true",
	TokFalse:   "false",
	TokNil:     "nil",
	TokAnd:     "and",
	TokOr:      "or",
	TokNot:     "not",
	TokNumber:  "NUMBER",
	TokString:  "STRING",
	TokIdent:   "IDENTIFIER",
	TokDeclare: ":=",
	TokAssign:  "=",
	TokLParen:  "(",
	TokRParen:  ")",
	TokColon:   ":",
	TokComma:   ",",
	TokEqEq:    "==",
	TokBangEq:  "!=",
	TokLt:      "<",
	TokLtEq:    "<=",
	TokGt:      ">",
	TokGtEq:    ">=",
	TokPlus:    "+",
	TokMinus:   "-",
	TokStar:    "*",
	TokSlash:   "/",
	TokPercent: "%",
	TokNewline: "NEWLINE",
	TokIndent:  "INDENT",
	TokDedent:  "DEDENT",
	TokEOF:     "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Class groups token types into the coarse kinds used in listings:
// KEYWORD, NUMBER, STRING, IDENTIFIER, DECLARE_OP, ASSIGN_OP, OPERATOR,
// PUNCTUATION, INDENT, DEDENT, NEWLINE, EOF.
func (t TokenType) Class() string {
	switch {
	case IsKeyword(t):
		return "KEYWORD"
	case t == TokNumber, t == TokString, t == TokIdent,
		t == TokNewline, t == TokIndent, t == TokDedent, t == TokEOF:
		return t.String()
	case t == TokDeclare:
		return "DECLARE_OP"
	case t == TokAssign:
		return "ASSIGN_OP"
	case t >= TokLParen && t <= TokComma:
		return "PUNCTUATION"
	default:
		return "OPERATOR"
	}
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= TokIf && t <= TokNot
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// Line returns the 1-based line the token starts on.
func (t Token) Line() int { return t.Span.StartLine }

// Col returns the 1-based column the token starts at.
func (t Token) Col() int { return t.Span.StartCol }

func (t Token) String() string {
	switch t.Type {
	case TokNewline, TokIndent, TokDedent, TokEOF:
		return fmt.Sprintf("%d:%d %s", t.Span.StartLine, t.Span.StartCol, t.Type.Class())
	case TokString:
		return fmt.Sprintf("%d:%d %s %q", t.Span.StartLine, t.Span.StartCol, t.Type.Class(), t.Value)
	}
	return fmt.Sprintf("%d:%d %s %s", t.Span.StartLine, t.Span.StartCol, t.Type.Class(), t.Value)
}

var keywords = map[string]TokenType{
	"if":    TokIf,
	"else":  TokElse,
	"while": TokWhile,
	"print": TokPrint,
	"true":  TokTrue,
	"false": TokFalse,
	"nil":   TokNil,
	"and":   TokAnd,
	"or":    TokOr,
	"not":   TokNot,
}
