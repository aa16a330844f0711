// Package formatter implements the Aether source code formatter.
//
// Output uses four-space indentation and the minimal parentheses needed to
// preserve the tree under the operator table in package ast, so formatting
// the result of parsing formatted code yields the same text.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/aether/pkg/ast"
)

const indent = "    "

// precedenceOf returns the binding strength of an expression when it appears
// as an operand. Atoms bind tightest.
func precedenceOf(e ast.Expr) int {
	switch expr := e.(type) {
	case *ast.BinaryExpr:
		return expr.Op.Precedence()
	case *ast.UnaryExpr:
		return expr.Op.Precedence()
	}
	return ast.PrecUnary + 1
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	childPrec := precedenceOf(child)
	parentPrec := parentOp.Precedence()
	if childPrec < parentPrec {
		return true
	}
	// Left-associativity: same precedence on the right side needs parens
	if _, ok := child.(*ast.BinaryExpr); ok && childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints an Aether AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	var lines []string
	for _, s := range program.Statements {
		lines = append(lines, formatStmt(s, 0)...)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains comments, which the
// formatter does not preserve.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		inString := false
		for i := 0; i < len(line); i++ {
			switch {
			case inString && line[i] == '\\':
				i++ // skip the escaped character
			case line[i] == '"':
				inString = !inString
			case !inString && line[i] == '#':
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) []string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.Declaration:
		return []string{prefix + stmt.Name + " := " + formatExpr(stmt.Value)}
	case *ast.Assignment:
		return []string{prefix + stmt.Name + " = " + formatExpr(stmt.Value)}
	case *ast.ExprStmt:
		return []string{prefix + formatExpr(stmt.Expr)}
	case *ast.PrintStmt:
		if len(stmt.Args) == 0 {
			return []string{prefix + "print"}
		}
		args := make([]string, len(stmt.Args))
		for i, a := range stmt.Args {
			args[i] = formatExpr(a)
		}
		return []string{prefix + "print " + strings.Join(args, ", ")}
	case *ast.IfStmt:
		lines := []string{prefix + "if " + formatExpr(stmt.Cond) + ":"}
		lines = append(lines, formatBlock(stmt.Then, depth)...)
		if stmt.Else != nil {
			lines = append(lines, prefix+"else:")
			lines = append(lines, formatBlock(stmt.Else, depth)...)
		}
		return lines
	case *ast.WhileStmt:
		lines := []string{prefix + "while " + formatExpr(stmt.Cond) + ":"}
		return append(lines, formatBlock(stmt.Body, depth)...)
	case *ast.Block:
		var lines []string
		for _, inner := range stmt.Statements {
			lines = append(lines, formatStmt(inner, depth)...)
		}
		return lines
	}
	return nil
}

func formatBlock(block *ast.Block, depth int) []string {
	var lines []string
	for _, s := range block.Statements {
		lines = append(lines, formatStmt(s, depth+1)...)
	}
	return lines
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		if expr.Raw != "" {
			return expr.Raw
		}
		return strconv.FormatFloat(expr.Value, 'g', -1, 64)
	case *ast.StringLiteral:
		return quote(expr.Value)
	case *ast.BoolLiteral:
		return strconv.FormatBool(expr.Value)
	case *ast.NilLiteral:
		return "nil"
	case *ast.Identifier:
		return expr.Name
	case *ast.UnaryExpr:
		return formatUnary(expr)
	case *ast.BinaryExpr:
		left := formatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	}
	return ""
}

func formatUnary(expr *ast.UnaryExpr) string {
	operand := formatExpr(expr.Operand)
	if expr.Op == ast.OpNot {
		// 'not' takes comparisons and tighter without parens.
		if precedenceOf(expr.Operand) < ast.PrecNot {
			operand = "(" + operand + ")"
		}
		return "not " + operand
	}
	if precedenceOf(expr.Operand) < ast.PrecUnary {
		operand = "(" + operand + ")"
	}
	return "-" + operand
}

// quote renders s as a string literal using only the escapes the lexer accepts.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
