package ast_test

import (
	"testing"

	"github.com/thomasrohde/aether/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.NumberLiteral{Value: 42},
		&ast.StringLiteral{Value: "hello"},
		&ast.BoolLiteral{Value: true},
		&ast.NilLiteral{},
		&ast.Identifier{Name: "x"},
		&ast.BinaryExpr{Op: ast.OpAdd},
		&ast.UnaryExpr{Op: ast.OpNeg},
		&ast.Declaration{Name: "x"},
		&ast.Assignment{Name: "x"},
		&ast.IfStmt{},
		&ast.WhileStmt{},
		&ast.PrintStmt{},
		&ast.ExprStmt{},
		&ast.Block{},
		&ast.Program{},
	}

	expected := []string{
		"NumberLiteral", "StringLiteral", "BoolLiteral", "NilLiteral",
		"Identifier", "BinaryExpr", "UnaryExpr", "Declaration", "Assignment",
		"IfStmt", "WhileStmt", "PrintStmt", "ExprStmt", "Block", "Program",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestOperatorPrecedenceOrdering(t *testing.T) {
	// lowest to highest
	chain := []int{
		ast.OpOr.Precedence(),
		ast.OpAnd.Precedence(),
		ast.OpNot.Precedence(),
		ast.OpLt.Precedence(),
		ast.OpAdd.Precedence(),
		ast.OpMul.Precedence(),
		ast.OpNeg.Precedence(),
	}
	for i := 1; i < len(chain); i++ {
		if chain[i-1] >= chain[i] {
			t.Errorf("precedence level %d (%d) should be below level %d (%d)", i-1, chain[i-1], i, chain[i])
		}
	}
}

func TestOperatorTableIsLeftAssociative(t *testing.T) {
	ops := []ast.BinaryOp{
		ast.OpOr, ast.OpAnd, ast.OpEqEq, ast.OpNeq, ast.OpLt, ast.OpLtEq,
		ast.OpGt, ast.OpGtEq, ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
	}
	for _, op := range ops {
		info, ok := op.Info()
		if !ok {
			t.Errorf("operator %q missing from table", op)
			continue
		}
		if info.Assoc != ast.AssocLeft {
			t.Errorf("operator %q: want left associative", op)
		}
	}
	if _, ok := ast.BinaryOp("**").Info(); ok {
		t.Error("unexpected entry for '**'")
	}
}

func TestOperatorClassification(t *testing.T) {
	if !ast.OpLtEq.IsComparison() || ast.OpAdd.IsComparison() {
		t.Error("IsComparison misclassified")
	}
	if !ast.OpAnd.IsLogical() || !ast.OpOr.IsLogical() || ast.OpEqEq.IsLogical() {
		t.Error("IsLogical misclassified")
	}
}
