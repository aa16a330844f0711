package aether_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/aether/internal/testutil"
	"github.com/thomasrohde/aether/pkg/config"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
	"github.com/thomasrohde/aether/pkg/repl"
	"github.com/thomasrohde/aether/pkg/runtime"
)

func TestConformance(t *testing.T) {
	files, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("listing scenarios: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, file := range files {
		scenario, err := testutil.LoadScenario(file)
		if err != nil {
			t.Fatalf("failed to load scenario: %v", err)
		}
		t.Run(scenario.Name, func(t *testing.T) {
			switch scenario.Mode {
			case "run":
				runRunScenario(t, scenario)
			case "check":
				runCheckScenario(t, scenario)
			case "repl":
				runREPLScenario(t, scenario)
			default:
				t.Skipf("unsupported mode: %s", scenario.Mode)
			}
		})
	}
}

func scenarioConfig(s *testutil.Scenario) *config.Config {
	cfg := config.Default()
	cfg.Budget.MaxIterations = s.Budget.MaxIterations
	cfg.Budget.TimeMs = s.Budget.TimeMs
	return cfg
}

func runRunScenario(t *testing.T, s *testutil.Scenario) {
	t.Helper()

	var stdout bytes.Buffer
	rt := runtime.New(runtime.WithConfig(scenarioConfig(s)), runtime.WithStdout(&stdout))
	result, execErr := rt.Run(context.Background(), s.Source, s.Name+".ae")

	if got := runtime.StatusOf(execErr).String(); got != s.Expect.Status {
		t.Fatalf("status: got %s, want %s (error: %v)", got, s.Expect.Status, execErr)
	}

	if s.Expect.Stdout != nil && stdout.String() != *s.Expect.Stdout {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", stdout.String(), *s.Expect.Stdout)
	}

	if execErr != nil {
		checkDiagnostic(t, runtime.DiagnosticsOf(execErr), s)
	}

	if result != nil {
		checkGlobals(t, result.Globals, s)
	}
}

func runCheckScenario(t *testing.T, s *testutil.Scenario) {
	t.Helper()

	rt := runtime.New(runtime.WithConfig(scenarioConfig(s)))
	diags := rt.Check(s.Source, s.Name+".ae")

	if diagnostics.HasErrors(diags) {
		if s.Expect.Status != "compile_error" {
			t.Fatalf("unexpected errors: %s", diagnostics.FormatDiagnostics(diags, false))
		}
		checkDiagnostic(t, diags, s)
		return
	}
	if s.Expect.Status != "ok" {
		t.Fatalf("status: got ok, want %s", s.Expect.Status)
	}

	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	if diff := cmp.Diff(s.Expect.Warnings, codes); diff != "" {
		t.Errorf("warning codes mismatch (-want +got):\n%s", diff)
	}
}

func runREPLScenario(t *testing.T, s *testutil.Scenario) {
	t.Helper()

	cfg := scenarioConfig(s)
	var stdout, stderr bytes.Buffer
	session := repl.New(&stdout, &stderr, repl.WithConfig(cfg))
	if err := session.Run(context.Background(), strings.NewReader(s.Source)); err != nil {
		t.Fatalf("session: %v", err)
	}

	// Prompts are not part of the expected output.
	out := strings.ReplaceAll(stdout.String(), config.Default().REPL.Prompt, "")
	out = strings.ReplaceAll(out, repl.ContinuationPrompt, "")
	if s.Expect.Stdout != nil && out != *s.Expect.Stdout {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", out, *s.Expect.Stdout)
	}
	if s.Expect.Message != "" && !strings.Contains(stderr.String(), s.Expect.Message) {
		t.Errorf("stderr should contain %q, got %q", s.Expect.Message, stderr.String())
	}
	if s.Expect.Message == "" && stderr.Len() > 0 {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}
	checkGlobals(t, session.Env(), s)
}

func checkDiagnostic(t *testing.T, diags []diagnostics.Diagnostic, s *testutil.Scenario) {
	t.Helper()

	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
	d := diags[0]
	if s.Expect.Kind != "" && d.Kind != s.Expect.Kind {
		t.Errorf("kind: got %s, want %s (%s)", d.Kind, s.Expect.Kind, d.Message)
	}
	if s.Expect.Message != "" && !strings.Contains(d.Message, s.Expect.Message) {
		t.Errorf("message should contain %q, got %q", s.Expect.Message, d.Message)
	}
	if s.Expect.Line != 0 {
		if d.Span == nil || d.Span.StartLine != s.Expect.Line {
			t.Errorf("line: got %+v, want %d", d.Span, s.Expect.Line)
		}
	}
	if s.Expect.Column != 0 {
		if d.Span == nil || d.Span.StartCol != s.Expect.Column {
			t.Errorf("column: got %+v, want %d", d.Span, s.Expect.Column)
		}
	}
}

func checkGlobals(t *testing.T, env *evaluator.Env, s *testutil.Scenario) {
	t.Helper()

	if env == nil {
		return
	}
	for _, name := range s.Expect.Absent {
		if _, ok := env.Local(name); ok {
			t.Errorf("%s should not be bound globally", name)
		}
	}

	want, err := s.Expect.GlobalsJSON()
	if err != nil {
		t.Fatalf("expected globals: %v", err)
	}
	if want == nil {
		return
	}
	data, err := evaluator.BindingsToJSON(env)
	if err != nil {
		t.Fatalf("serializing globals: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding globals %s: %v", data, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("globals mismatch (-want +got):\n%s", diff)
	}
}
