// Package runtime provides the top-level Aether runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/config"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
	"github.com/thomasrohde/aether/pkg/formatter"
	"github.com/thomasrohde/aether/pkg/lexer"
	"github.com/thomasrohde/aether/pkg/parser"
	"github.com/thomasrohde/aether/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value   evaluator.Value
	Globals *evaluator.Env
}

// Runtime wires together all Aether components for program execution.
type Runtime struct {
	cfg    *config.Config
	stdout io.Writer
	runID  string
	trace  func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithConfig sets the configuration (tab width, budget).
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg != nil {
			rt.cfg = cfg
		}
	}
}

// WithStdout sets where print statements write.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default it uses the built-in configuration and writes to os.Stdout.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		cfg:    config.Default(),
		stdout: os.Stdout,
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Config returns the configuration in effect.
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// LexerOptions returns the lexer settings derived from the configuration.
func (rt *Runtime) LexerOptions() lexer.Options {
	return lexer.Options{TabWidth: rt.cfg.Lexer.TabWidth}
}

// Tokens tokenizes source.
func (rt *Runtime) Tokens(source, filename string) ([]lexer.Token, error) {
	tokens, err := lexer.TokenizeWith(source, filename, rt.LexerOptions())
	if err != nil {
		var lexErr *lexer.LexError
		if errors.As(err, &lexErr) {
			return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lexErr.Diag}}
		}
		return nil, err
	}
	return tokens, nil
}

// Parse tokenizes and parses source.
func (rt *Runtime) Parse(source, filename string) (*ast.Program, error) {
	program, diags := parser.ParseWith(source, filename, rt.LexerOptions())
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return program, nil
}

// Run parses and executes an Aether program in a fresh global scope.
// Static warnings are not consulted.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	return rt.RunIn(ctx, source, filename, evaluator.NewEnv(nil))
}

// RunIn parses and executes source with env as its global scope. On a
// runtime failure the returned Result still carries the global scope.
func (rt *Runtime) RunIn(ctx context.Context, source, filename string, env *evaluator.Env) (*Result, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return nil, err
	}

	result, err := evaluator.ExecuteIn(ctx, program, env, rt.ExecOptions())
	if err != nil {
		return &Result{Value: evaluator.NewNil(), Globals: env}, err
	}
	return &Result{Value: result.Value, Globals: result.Env}, nil
}

// Check parses an Aether program and runs the static checks without
// executing it. Parse failures are returned as error diagnostics, static
// findings as warnings.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return DiagnosticsOf(err)
	}
	return validator.Validate(program)
}

// Format parses and formats an Aether program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// ExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) ExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdout: rt.stdout,
		Trace:  rt.trace,
		RunID:  rt.runID,
		Budget: evaluator.NewBudget(rt.cfg.Budget.MaxIterations, rt.cfg.Budget.TimeMs),
	}
}

// DiagnosticError wraps compile-time diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = diagnostics.FormatDiagnostic(d, false)
	}
	return strings.Join(msgs, "\n")
}

// Status classifies the outcome of a run.
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCompileError:
		return "compile_error"
	case StatusRuntimeError:
		return "runtime_error"
	}
	return "unknown"
}

// StatusOf classifies err: lex and parse failures are compile errors,
// everything raised during evaluation is a runtime error.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		for _, d := range diagErr.Diagnostics {
			if d.Severity != diagnostics.SeverityWarning && diagnostics.IsCompileTime(d.Code) {
				return StatusCompileError
			}
		}
		return StatusRuntimeError
	}
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return StatusCompileError
	}
	return StatusRuntimeError
}

// DiagnosticsOf extracts renderable diagnostics from any error returned by
// the runtime.
func DiagnosticsOf(err error) []diagnostics.Diagnostic {
	if err == nil {
		return nil
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return diagErr.Diagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return []diagnostics.Diagnostic{rtErr.Diagnostic()}
	}
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return []diagnostics.Diagnostic{lexErr.Diag}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}
