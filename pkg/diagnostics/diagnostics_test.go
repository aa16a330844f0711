package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.ae", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", span, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Kind != "ParseError" {
		t.Errorf("got Kind = %q, want %q", d.Kind, "ParseError")
	}
	if d.Severity != diagnostics.SeverityError {
		t.Errorf("got Severity = %q, want error", d.Severity)
	}
}

func TestFormatDiagnosticPlain(t *testing.T) {
	span := &ast.Span{File: "test.ae", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 10}
	d := diagnostics.MakeDiag(diagnostics.EUndefined, "undefined variable 'mana'", span, "")

	got := diagnostics.FormatDiagnostic(d, false)
	want := "UndefinedVariableError: undefined variable 'mana' (line 3, column 5)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDiagnosticHintAndWarning(t *testing.T) {
	d := diagnostics.MakeWarning(diagnostics.ERedeclared, "'x' already declared", nil, "use '=' to update")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.HasPrefix(out, "warning: RedeclarationError:") {
		t.Errorf("expected warning prefix, got: %s", out)
	}
	if !strings.Contains(out, "hint: use '=' to update") {
		t.Errorf("expected hint in output, got: %s", out)
	}
	if strings.Contains(out, "(line") {
		t.Errorf("no position expected without span, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if !strings.Contains(out, `"kind":"LexError"`) {
		t.Errorf("expected JSON kind in output, got: %s", out)
	}
}

func TestFormatDiagnosticsEmptyJSON(t *testing.T) {
	if got := diagnostics.FormatDiagnostics(nil, true); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestKindNames(t *testing.T) {
	tests := map[string]string{
		diagnostics.ELex:        "LexError",
		diagnostics.EParse:      "ParseError",
		diagnostics.ERedeclared: "RedeclarationError",
		diagnostics.EUndefined:  "UndefinedVariableError",
		diagnostics.EType:       "TypeError",
		diagnostics.EArithmetic: "ArithmeticError",
		diagnostics.EBudget:     "BudgetError",
		"E_SOMETHING":           "Error",
	}
	for code, want := range tests {
		if got := diagnostics.KindName(code); got != want {
			t.Errorf("KindName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestIsCompileTime(t *testing.T) {
	if !diagnostics.IsCompileTime(diagnostics.ELex) || !diagnostics.IsCompileTime(diagnostics.EParse) {
		t.Error("lex and parse errors are compile-time")
	}
	if diagnostics.IsCompileTime(diagnostics.EType) {
		t.Error("type errors are runtime")
	}
}

func TestHasErrors(t *testing.T) {
	warn := diagnostics.MakeWarning(diagnostics.EUndefined, "w", nil, "")
	if diagnostics.HasErrors([]diagnostics.Diagnostic{warn}) {
		t.Error("warnings alone are not errors")
	}
	if !diagnostics.HasErrors([]diagnostics.Diagnostic{warn, diagnostics.MakeDiag(diagnostics.EParse, "e", nil, "")}) {
		t.Error("expected HasErrors to find the parse error")
	}
}
