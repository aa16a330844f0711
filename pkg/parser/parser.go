// Package parser implements the Aether language parser.
//
// Statements are parsed by recursive descent over the token stream produced
// by the lexer; blocks are delimited by the synthesized INDENT/DEDENT tokens.
// Expressions use precedence climbing driven by the operator table in
// package ast.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// binaryTokens maps operator tokens to their AST operator.
var binaryTokens = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokOr:      ast.OpOr,
	lexer.TokAnd:     ast.OpAnd,
	lexer.TokEqEq:    ast.OpEqEq,
	lexer.TokBangEq:  ast.OpNeq,
	lexer.TokLt:      ast.OpLt,
	lexer.TokLtEq:    ast.OpLtEq,
	lexer.TokGt:      ast.OpGt,
	lexer.TokGtEq:    ast.OpGtEq,
	lexer.TokPlus:    ast.OpAdd,
	lexer.TokMinus:   ast.OpSub,
	lexer.TokStar:    ast.OpMul,
	lexer.TokSlash:   ast.OpDiv,
	lexer.TokPercent: ast.OpMod,
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	return ParseWith(source, filename, lexer.Options{})
}

// ParseWith is Parse with explicit lexer options.
func ParseWith(source, filename string, opts lexer.Options) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.TokenizeWith(source, filename, opts)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}
	return ParseTokens(tokens, filename)
}

// ParseTokens parses an already tokenized program. Parsing stops at the
// first error; no partial program is returned.
func ParseTokens(tokens []lexer.Token, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		eof := lexer.Token{Type: lexer.TokEOF, Span: ast.Span{File: filename, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}}
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1].Span
			eof.Span = ast.Span{File: last.File, StartLine: last.EndLine, StartCol: last.EndCol, EndLine: last.EndLine, EndCol: last.EndCol}
		}
		tokens = append(append([]lexer.Token(nil), tokens...), eof)
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType, context string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		msg := fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok))
		if context != "" {
			msg = fmt.Sprintf("expected %s %s, got %s", tokenName(typ), context, describe(tok))
		}
		p.addError(msg, &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) errorAt(tok lexer.Token, msg string) {
	span := tok.Span
	p.addError(msg, &span)
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokNumber:
		return "number"
	case lexer.TokString:
		return "string"
	case lexer.TokNewline:
		return "end of line"
	case lexer.TokIndent:
		return "an indented block"
	case lexer.TokDedent:
		return "end of block"
	case lexer.TokEOF:
		return "end of file"
	default:
		return "'" + t.String() + "'"
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokNewline, lexer.TokEOF, lexer.TokDedent:
		return tokenName(tok.Type)
	case lexer.TokIndent:
		return "an indented line"
	case lexer.TokString:
		return strconv.Quote(tok.Value)
	}
	return "'" + tok.Value + "'"
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span:       spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIf:
		if s := p.parseIf(); s != nil {
			return s
		}
		return nil
	case lexer.TokWhile:
		if s := p.parseWhile(); s != nil {
			return s
		}
		return nil
	case lexer.TokPrint:
		if s := p.parsePrint(); s != nil {
			return s
		}
		return nil
	case lexer.TokElse:
		p.errorAt(tok, "'else' without a matching 'if'")
		return nil
	case lexer.TokIndent:
		p.errorAt(tok, "unexpected indent")
		return nil
	case lexer.TokDedent:
		p.errorAt(tok, "unexpected end of block")
		return nil
	case lexer.TokIdent:
		switch p.peekAt(1) {
		case lexer.TokDeclare:
			if s := p.parseDeclaration(); s != nil {
				return s
			}
			return nil
		case lexer.TokAssign:
			if s := p.parseAssignment(); s != nil {
				return s
			}
			return nil
		}
	}

	if s := p.parseExprStmt(); s != nil {
		return s
	}
	return nil
}

// endStatement consumes the NEWLINE that closes a simple statement.
func (p *parser) endStatement() bool {
	tok := p.current()
	switch tok.Type {
	case lexer.TokNewline:
		p.advance()
		return true
	case lexer.TokEOF:
		return true
	case lexer.TokDeclare, lexer.TokAssign:
		p.errorAt(tok, fmt.Sprintf("cannot use '%s' here: the left-hand side must be a bare identifier", tok.Value))
		return false
	}
	p.errorAt(tok, fmt.Sprintf("expected end of line, got %s", describe(tok)))
	return false
}

func (p *parser) parseDeclaration() *ast.Declaration {
	nameTok := p.advance()
	p.advance() // consume ':='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if !p.endStatement() {
		return nil
	}
	return &ast.Declaration{
		Span:     spanFromTo(nameTok.Span, value.NodeSpan()),
		Name:     nameTok.Value,
		NameSpan: nameTok.Span,
		Value:    value,
	}
}

func (p *parser) parseAssignment() *ast.Assignment {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if !p.endStatement() {
		return nil
	}
	return &ast.Assignment{
		Span:     spanFromTo(nameTok.Span, value.NodeSpan()),
		Name:     nameTok.Value,
		NameSpan: nameTok.Span,
		Value:    value,
	}
}

func (p *parser) parsePrint() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	end := start.Span

	var args []ast.Expr
	if p.peek() != lexer.TokNewline && p.peek() != lexer.TokEOF {
		for {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			end = arg.NodeSpan()
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance() // consume ','
		}
	}
	if !p.endStatement() {
		return nil
	}
	return &ast.PrintStmt{
		Span: spanFromTo(start.Span, end),
		Args: args,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if !p.endStatement() {
		return nil
	}
	return &ast.ExprStmt{
		Span: expr.NodeSpan(),
		Expr: expr,
	}
}

func (p *parser) parseIf() *ast.IfStmt {
	start := p.advance() // consume 'if'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	thenBlock := p.parseBlock("'if'")
	if thenBlock == nil {
		return nil
	}

	end := thenBlock.Span
	var elseBlock *ast.Block
	if p.peek() == lexer.TokElse {
		p.advance() // consume 'else'
		elseBlock = p.parseBlock("'else'")
		if elseBlock == nil {
			return nil
		}
		end = elseBlock.Span
	}

	return &ast.IfStmt{
		Span: spanFromTo(start.Span, end),
		Cond: cond,
		Then: thenBlock,
		Else: elseBlock,
	}
}

func (p *parser) parseWhile() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	body := p.parseBlock("'while'")
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: spanFromTo(start.Span, body.Span),
		Cond: cond,
		Body: body,
	}
}

// --- Block ---

// parseBlock parses ':' NEWLINE INDENT stmt+ DEDENT.
func (p *parser) parseBlock(header string) *ast.Block {
	if _, ok := p.expect(lexer.TokColon, "after "+header+" header"); !ok {
		return nil
	}
	if tok := p.current(); tok.Type != lexer.TokNewline {
		p.errorAt(tok, fmt.Sprintf("expected end of line after ':', got %s (block bodies go on their own indented lines)", describe(tok)))
		return nil
	}
	p.advance()

	indentTok := p.current()
	if indentTok.Type != lexer.TokIndent {
		p.errorAt(indentTok, fmt.Sprintf("expected an indented block after %s, got %s", header, describe(indentTok)))
		return nil
	}
	p.advance()

	var stmts []ast.Stmt
	for p.peek() != lexer.TokDedent && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) == 0 {
		p.errorAt(p.current(), fmt.Sprintf("expected an indented block after %s", header))
		return nil
	}
	if _, ok := p.expect(lexer.TokDedent, "to close the "+header+" block"); !ok {
		return nil
	}

	return &ast.Block{
		Span:       spanFromTo(stmts[0].NodeSpan(), stmts[len(stmts)-1].NodeSpan()),
		Statements: stmts,
	}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseBinary(ast.PrecOr)
}

// parseBinary implements precedence climbing: it parses an operand and then
// folds in every following binary operator that binds at least as tightly
// as minPrec.
func (p *parser) parseBinary(minPrec int) ast.Expr {
	left := p.parsePrefix(minPrec)
	if left == nil {
		return nil
	}

	for {
		op, ok := binaryTokens[p.peek()]
		if !ok {
			break
		}
		info, _ := op.Info()
		if info.Prec < minPrec {
			break
		}
		p.advance() // consume operator

		next := info.Prec + 1
		if info.Assoc == ast.AssocRight {
			next = info.Prec
		}
		right := p.parseBinary(next)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
	return left
}

// parsePrefix handles 'not', which binds looser than comparisons.
func (p *parser) parsePrefix(minPrec int) ast.Expr {
	if p.peek() == lexer.TokNot && minPrec <= ast.PrecNot {
		start := p.advance()
		operand := p.parseBinary(ast.PrecNot)
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			Span:    spanFromTo(start.Span, operand.NodeSpan()),
			Op:      ast.OpNot,
			Operand: operand,
		}
	}
	return p.parseUnary()
}

func (p *parser) parseUnary() ast.Expr {
	if p.peek() == lexer.TokMinus {
		start := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			Span:    spanFromTo(start.Span, operand.NodeSpan()),
			Op:      ast.OpNeg,
			Operand: operand,
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()

	switch tok.Type {
	case lexer.TokNumber:
		p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok, fmt.Sprintf("invalid number literal '%s'", tok.Value))
			return nil
		}
		return &ast.NumberLiteral{Span: tok.Span, Value: val, Raw: tok.Value}

	case lexer.TokString:
		p.advance()
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokNil:
		p.advance()
		return &ast.NilLiteral{Span: tok.Span}

	case lexer.TokIdent:
		p.advance()
		return &ast.Identifier{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		p.advance() // consume '('
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen, "to close '('"); !ok {
			return nil
		}
		return inner

	case lexer.TokNot:
		p.errorAt(tok, "'not' cannot appear here; wrap the negated expression in parentheses")
		return nil

	case lexer.TokDeclare, lexer.TokAssign:
		p.errorAt(tok, fmt.Sprintf("unexpected '%s': expected an expression", tok.Value))
		return nil

	case lexer.TokIndent:
		p.errorAt(tok, "unexpected indent")
		return nil
	}

	p.errorAt(tok, fmt.Sprintf("expected an expression, got %s", describe(tok)))
	return nil
}
