// Package repl implements the interactive Aether session.
//
// A session owns one global scope for its whole lifetime, so declarations
// made on one line are visible on the next. Errors are reported and the
// session carries on.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/config"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
	"github.com/thomasrohde/aether/pkg/runtime"
	"github.com/thomasrohde/aether/pkg/validator"
)

// Filename is the name used in diagnostics for REPL input.
const Filename = "<repl>"

// ContinuationPrompt is shown while a multi-line entry is open.
const ContinuationPrompt = "... "

const commandHelp = `:env            list global bindings
:check <code>   run the static checks on code against the session scope
:reset          discard all global bindings
:help           show this list
exit            leave the session
`

// Session is an interactive read-eval-print loop with a persistent scope.
type Session struct {
	rt     *runtime.Runtime
	env    *evaluator.Env
	out    io.Writer
	errOut io.Writer
	prompt string
	banner string
}

// Option configures a Session.
type Option func(*Session)

// WithConfig applies tab width, budget, and prompt settings.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		if cfg == nil {
			return
		}
		s.rt = runtime.New(
			runtime.WithConfig(cfg),
			runtime.WithStdout(s.out),
			runtime.WithRunID("repl"),
		)
		if cfg.REPL.Prompt != "" {
			s.prompt = cfg.REPL.Prompt
		}
	}
}

// WithBanner prints text once when the session starts.
func WithBanner(text string) Option {
	return func(s *Session) {
		s.banner = text
	}
}

// New creates a session writing program output and echoes to out and
// diagnostics to errOut.
func New(out, errOut io.Writer, opts ...Option) *Session {
	s := &Session{
		env:    evaluator.NewEnv(nil),
		out:    out,
		errOut: errOut,
		prompt: config.Default().REPL.Prompt,
	}
	s.rt = runtime.New(runtime.WithStdout(out), runtime.WithRunID("repl"))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Env returns the session's global scope.
func (s *Session) Env() *evaluator.Env {
	return s.env
}

// Run reads entries from in until `exit` or end of input. It only returns
// an error when reading fails.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	if s.banner != "" {
		fmt.Fprintln(s.out, s.banner)
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, s.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case trimmed == "exit":
			return nil
		case strings.HasPrefix(trimmed, ":") && !strings.HasPrefix(trimmed, ":="):
			s.command(trimmed)
			continue
		}

		entry := []string{line}
		if strings.HasSuffix(trimmed, ":") {
			for {
				fmt.Fprint(s.out, ContinuationPrompt)
				if !scanner.Scan() {
					break
				}
				next := scanner.Text()
				if strings.TrimSpace(next) == "" {
					break
				}
				entry = append(entry, next)
			}
			if err := scanner.Err(); err != nil {
				return err
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Eval(ctx, strings.Join(entry, "\n")+"\n")
	}
}

// Eval executes one entry in the session scope. The value of a trailing
// expression statement is echoed; errors are written to the error stream.
// It reports whether the entry ran without error.
func (s *Session) Eval(ctx context.Context, source string) bool {
	program, err := s.rt.Parse(source, Filename)
	if err != nil {
		s.report(err)
		return false
	}

	result, err := evaluator.ExecuteIn(ctx, program, s.env, s.rt.ExecOptions())
	if err != nil {
		s.report(err)
		return false
	}

	if n := len(program.Statements); n > 0 {
		if _, ok := program.Statements[n-1].(*ast.ExprStmt); ok {
			fmt.Fprintln(s.out, evaluator.Inspect(result.Value))
		}
	}
	return true
}

func (s *Session) report(err error) {
	fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(runtime.DiagnosticsOf(err), false))
}

func (s *Session) command(line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":env":
		names := s.env.Names()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "(no bindings)")
			return
		}
		for _, n := range names {
			v, _ := s.env.Local(n)
			fmt.Fprintf(s.out, "%s = %s\n", n, evaluator.Inspect(v))
		}

	case ":check":
		if arg == "" {
			fmt.Fprintln(s.errOut, "usage: :check <code>")
			return
		}
		program, err := s.rt.Parse(arg+"\n", Filename)
		if err != nil {
			s.report(err)
			return
		}
		diags := validator.ValidateIn(program, s.env.Names())
		if len(diags) == 0 {
			fmt.Fprintln(s.out, "ok")
			return
		}
		fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(diags, false))

	case ":reset":
		s.env = evaluator.NewEnv(nil)

	case ":help":
		fmt.Fprint(s.out, commandHelp)

	default:
		fmt.Fprintf(s.errOut, "unknown command %s (try :help)\n", name)
	}
}
