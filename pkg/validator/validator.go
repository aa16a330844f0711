// Package validator implements static checks of Aether programs.
//
// The checks mirror the evaluator's scoping rules without running anything,
// so every finding is reported as a warning: the program may still be run.
package validator

import (
	"fmt"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

func (s *scope) hasLocal(name string) bool {
	return s.bindings[name]
}

type validator struct {
	diags []diagnostics.Diagnostic
}

// Validate analyzes a program and returns warnings for statements that are
// certain to fail or are suspicious when reached.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	return ValidateIn(program, nil)
}

// ValidateIn is Validate for a program that runs in a scope where the given
// names are already declared (a REPL session).
func ValidateIn(program *ast.Program, predeclared []string) []diagnostics.Diagnostic {
	v := &validator{}
	global := newScope(nil)
	for _, name := range predeclared {
		global.add(name)
	}
	v.validateStatements(program.Statements, global)
	return v.diags
}

func (v *validator) warn(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeWarning(code, msg, span, hint))
}

func (v *validator) validateStatements(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, sc)
	}
}

func (v *validator) validateBlock(block *ast.Block, sc *scope) {
	if block == nil {
		return
	}
	v.validateStatements(block.Statements, newScope(sc))
}

func (v *validator) validateStmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.Declaration:
		v.validateExpr(s.Value, sc)
		if sc.hasLocal(s.Name) {
			span := s.NameSpan
			v.warn(diagnostics.ERedeclared,
				fmt.Sprintf("variable '%s' is already declared in this scope", s.Name),
				&span, "use = to update an existing variable")
			return
		}
		sc.add(s.Name)

	case *ast.Assignment:
		v.validateExpr(s.Value, sc)
		if !sc.has(s.Name) {
			span := s.NameSpan
			v.warn(diagnostics.EUndefined,
				fmt.Sprintf("assignment to undeclared variable '%s'", s.Name),
				&span, "declare it first with :=")
		}

	case *ast.ExprStmt:
		v.validateExpr(s.Expr, sc)

	case *ast.PrintStmt:
		for _, arg := range s.Args {
			v.validateExpr(arg, sc)
		}

	case *ast.IfStmt:
		v.validateCondition(s.Cond, "if", sc)
		v.validateBlock(s.Then, sc)
		v.validateBlock(s.Else, sc)

	case *ast.WhileStmt:
		v.validateCondition(s.Cond, "while", sc)
		v.validateBlock(s.Body, sc)

	case *ast.Block:
		v.validateBlock(s, sc)
	}
}

func (v *validator) validateCondition(cond ast.Expr, keyword string, sc *scope) {
	v.validateExpr(cond, sc)
	if kind, ok := literalKind(cond); ok && kind != "bool" {
		span := cond.NodeSpan()
		v.warn(diagnostics.EType,
			fmt.Sprintf("'%s' condition is a %s literal; conditions must be bool", keyword, kind),
			&span, "")
	}
}

func (v *validator) validateExpr(expr ast.Expr, sc *scope) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if !sc.has(e.Name) {
			span := e.Span
			v.warn(diagnostics.EUndefined,
				fmt.Sprintf("variable '%s' is not declared in any enclosing scope", e.Name),
				&span, "")
		}

	case *ast.UnaryExpr:
		v.validateExpr(e.Operand, sc)

	case *ast.BinaryExpr:
		v.validateExpr(e.Left, sc)
		v.validateExpr(e.Right, sc)
		if e.Op == ast.OpDiv || e.Op == ast.OpMod {
			if num, ok := e.Right.(*ast.NumberLiteral); ok && num.Value == 0 {
				span := e.Span
				v.warn(diagnostics.EArithmetic, fmt.Sprintf("'%s' by literal zero", e.Op), &span, "")
			}
		}
		v.validateOperandKinds(e)
	}
}

// validateOperandKinds flags operators applied to literals of the wrong kind.
// Only literal operands are judged; anything else is left to run time.
func (v *validator) validateOperandKinds(e *ast.BinaryExpr) {
	lk, lok := literalKind(e.Left)
	rk, rok := literalKind(e.Right)
	if !lok || !rok {
		return
	}

	var bad bool
	switch {
	case e.Op.IsLogical():
		bad = lk != "bool" || rk != "bool"
	case e.Op == ast.OpAdd:
		bad = lk != rk || (lk != "number" && lk != "string")
	case e.Op == ast.OpSub, e.Op == ast.OpMul, e.Op == ast.OpDiv, e.Op == ast.OpMod:
		bad = lk != "number" || rk != "number"
	case e.Op == ast.OpEqEq, e.Op == ast.OpNeq:
		bad = false
	case e.Op.IsComparison():
		bad = lk != rk || (lk != "number" && lk != "string")
	}
	if bad {
		span := e.Span
		v.warn(diagnostics.EType,
			fmt.Sprintf("'%s' cannot be applied to %s and %s", e.Op, lk, rk),
			&span, "")
	}
}

func literalKind(expr ast.Expr) (string, bool) {
	switch expr.(type) {
	case *ast.NumberLiteral:
		return "number", true
	case *ast.StringLiteral:
		return "string", true
	case *ast.BoolLiteral:
		return "bool", true
	case *ast.NilLiteral:
		return "nil", true
	}
	return "", false
}
