package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/aether/pkg/config"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
	"github.com/thomasrohde/aether/pkg/runtime"
)

func TestRunPrintsAndReturnsGlobals(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	res, err := rt.Run(context.Background(), "mana := 100\npower := mana * 2 + 5\nprint power\n", "game.ae")
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "205\n" {
		t.Errorf("output = %q", out.String())
	}
	val, err := res.Globals.Lookup("mana")
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := val.(evaluator.Number); !ok || n.Value != 100 {
		t.Errorf("mana = %v", val)
	}
}

func TestStatusOf(t *testing.T) {
	rt := runtime.New(runtime.WithStdout(&bytes.Buffer{}))
	tests := []struct {
		name string
		src  string
		want runtime.Status
	}{
		{"ok", "x := 1", runtime.StatusOK},
		{"lex", "x := 1 ! 2", runtime.StatusCompileError},
		{"indent", "if true:\n    x := 1\n  y := 2", runtime.StatusCompileError},
		{"parse", "x := (1", runtime.StatusCompileError},
		{"undefined", "x = 1", runtime.StatusRuntimeError},
		{"type", `x := 1 + "a"`, runtime.StatusRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Run(context.Background(), tt.src, "t.ae")
			if got := runtime.StatusOf(err); got != tt.want {
				t.Errorf("StatusOf = %s, want %s (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestCompileErrorStopsBeforeOutput(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	_, err := rt.Run(context.Background(), "print 1\nprint (2\n", "t.ae")
	var diagErr *runtime.DiagnosticError
	if !errors.As(err, &diagErr) {
		t.Fatalf("expected DiagnosticError, got %T", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should run on a parse error, got %q", out.String())
	}
}

func TestRuntimeErrorKeepsEarlierEffects(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	res, err := rt.Run(context.Background(), "a := 1\nprint a\nb := c\n", "t.ae")
	if runtime.StatusOf(err) != runtime.StatusRuntimeError {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q", out.String())
	}
	if _, lookupErr := res.Globals.Lookup("a"); lookupErr != nil {
		t.Error("a should remain bound")
	}
}

func TestDiagnosticsOfRendersStandardFormat(t *testing.T) {
	rt := runtime.New(runtime.WithStdout(&bytes.Buffer{}))
	_, err := rt.Run(context.Background(), "mana := 1\nmana = mana + 1\nmana = ghost\n", "t.ae")
	diags := runtime.DiagnosticsOf(err)
	if len(diags) != 1 {
		t.Fatalf("diags = %v", diags)
	}
	got := diagnostics.FormatDiagnostic(diags[0], false)
	want := "UndefinedVariableError: undefined variable: ghost (line 3, column 8)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfigTabWidth(t *testing.T) {
	cfg := config.Default()
	cfg.Lexer.TabWidth = 8
	rt := runtime.New(runtime.WithConfig(cfg), runtime.WithStdout(&bytes.Buffer{}))
	src := "if true:\n\tx := 1\n        y := 2\n"
	if _, err := rt.Run(context.Background(), src, "t.ae"); err != nil {
		t.Errorf("tab width 8 should accept mixed indentation: %v", err)
	}
	if _, err := runtime.New().Parse(src, "t.ae"); err == nil {
		t.Error("default tab width should reject it")
	}
}

func TestConfigBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Budget.MaxIterations = 5
	rt := runtime.New(runtime.WithConfig(cfg), runtime.WithStdout(&bytes.Buffer{}))
	_, err := rt.Run(context.Background(), "while true:\n    x := 1\n", "t.ae")
	diags := runtime.DiagnosticsOf(err)
	if len(diags) != 1 || diags[0].Code != diagnostics.EBudget {
		t.Errorf("expected budget error, got %v", err)
	}
}

func TestCheckReturnsWarnings(t *testing.T) {
	rt := runtime.New()
	diags := rt.Check("x := 1\nx := 2\n", "t.ae")
	if len(diags) != 1 || diags[0].Severity != diagnostics.SeverityWarning {
		t.Fatalf("diags = %v", diags)
	}
	if diagnostics.HasErrors(diags) {
		t.Error("warnings must not count as errors")
	}

	diags = rt.Check("x := (", "t.ae")
	if !diagnostics.HasErrors(diags) {
		t.Errorf("parse failure should be an error: %v", diags)
	}
}

func TestFormatAndTokens(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format("x:=1+2", "t.ae")
	if err != nil {
		t.Fatal(err)
	}
	if out != "x := 1 + 2\n" {
		t.Errorf("format = %q", out)
	}

	tokens, err := rt.Tokens("x := 1", "t.ae")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 5 { // IDENT DECLARE NUMBER NEWLINE EOF
		t.Errorf("got %d tokens", len(tokens))
	}

	_, err = rt.Tokens(`"open`, "t.ae")
	if runtime.StatusOf(err) != runtime.StatusCompileError {
		t.Errorf("lex failure should be a compile error: %v", err)
	}
}

func TestTraceAndRunID(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithStdout(&bytes.Buffer{}),
		runtime.WithRunID("abc"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
	)
	if _, err := rt.Run(context.Background(), "x := 1", "t.ae"); err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 || events[0].RunID != "abc" || events[0].Event != evaluator.TraceRunStart {
		t.Errorf("events = %+v", events)
	}
}

func TestDiagnosticErrorMessage(t *testing.T) {
	_, err := runtime.New().Parse("x :=", "t.ae")
	if err == nil || !strings.HasPrefix(err.Error(), "ParseError: ") {
		t.Errorf("err = %v", err)
	}
}
