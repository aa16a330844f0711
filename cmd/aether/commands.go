package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kr/pretty"

	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
	"github.com/thomasrohde/aether/pkg/formatter"
	"github.com/thomasrohde/aether/pkg/help"
	"github.com/thomasrohde/aether/pkg/repl"
	"github.com/thomasrohde/aether/pkg/runtime"
)

// runOutput is the --json result of `aether run`.
type runOutput struct {
	OK      bool            `json:"ok"`
	Value   json.RawMessage `json:"value"`
	Globals json.RawMessage `json:"globals"`
}

func (c *cli) cmdRun(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	var file string
	asJSON := cfg.Run.JSON
	tracePath := cfg.Run.Trace

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			asJSON = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--max-iterations", "--time-ms":
			if i+1 >= len(args) {
				fmt.Fprintf(c.stderr, "%s requires a value\n", args[i])
				return exitUsage
			}
			n, err := parseCount(args[i], args[i+1])
			if err != nil {
				fmt.Fprintln(c.stderr, err)
				return exitUsage
			}
			if args[i] == "--max-iterations" {
				cfg.Budget.MaxIterations = n
			} else {
				cfg.Budget.TimeMs = n
			}
			i++
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether run <file> [--json] [--trace <path>] [--max-iterations N] [--time-ms N]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, asJSON)
	if code != exitOK {
		return code
	}

	opts := []runtime.Option{runtime.WithConfig(cfg), runtime.WithStdout(c.stdout)}
	var tw *traceWriter
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot create trace file: %s", tracePath), nil, "")
			fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, asJSON))
			return exitUsage
		}
		defer f.Close()
		tw = newTraceWriter(f)
		opts = append(opts, runtime.WithTrace(tw.write))
	}

	rt := runtime.New(opts...)
	result, execErr := rt.Run(context.Background(), source, filename)

	if tw != nil && tw.err != nil {
		fmt.Fprintf(c.stderr, "warning: trace incomplete: %s\n", tw.err)
	}

	if execErr != nil {
		return c.reportError(execErr, asJSON)
	}

	if asJSON {
		globals, err := evaluator.BindingsToJSON(result.Globals)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
			return exitRuntimeError
		}
		out := runOutput{
			OK:      true,
			Value:   json.RawMessage(evaluator.ValueToJSONString(result.Value)),
			Globals: globals,
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(c.stdout, string(b))
	}
	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	asJSON := cfg.Run.JSON
	for _, a := range args {
		if a == "--json" {
			asJSON = true
		}
	}
	file := positional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether check <file> [--json]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, asJSON)
	if code != exitOK {
		return code
	}

	rt := runtime.New(runtime.WithConfig(cfg))
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, asJSON))
		if diagnostics.HasErrors(diags) {
			return exitCompileError
		}
		return exitOK
	}

	if asJSON {
		fmt.Fprintln(c.stdout, "[]")
	} else {
		fmt.Fprintln(c.stdout, "No problems found.")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	write := false
	for _, a := range args {
		if a == "--write" {
			write = true
		}
	}
	file := positional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether fmt <file> [--write]")
		return exitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(c.stderr, "error: --write cannot be used with stdin")
		return exitUsage
	}

	source, filename, code := c.readSource(file, false)
	if code != exitOK {
		return code
	}

	rt := runtime.New(runtime.WithConfig(cfg))
	formatted, err := rt.Format(source, filename)
	if err != nil {
		return c.reportError(err, false)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return exitOK
}

// tokenOutput is one element of `aether tokens --json`.
type tokenOutput struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Line  int    `json:"line"`
	Col   int    `json:"col"`
}

func (c *cli) cmdTokens(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	asJSON := false
	for _, a := range args {
		if a == "--json" {
			asJSON = true
		}
	}
	file := positional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether tokens <file> [--json]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, asJSON)
	if code != exitOK {
		return code
	}

	rt := runtime.New(runtime.WithConfig(cfg))
	tokens, err := rt.Tokens(source, filename)
	if err != nil {
		return c.reportError(err, asJSON)
	}

	if asJSON {
		out := make([]tokenOutput, len(tokens))
		for i, tok := range tokens {
			out[i] = tokenOutput{Type: tok.Type.Class(), Value: tok.Value, Line: tok.Line(), Col: tok.Col()}
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(c.stdout, string(b))
		return exitOK
	}
	for _, tok := range tokens {
		fmt.Fprintln(c.stdout, tok.String())
	}
	return exitOK
}

func (c *cli) cmdAST(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	file := positional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether ast <file>")
		return exitUsage
	}

	source, filename, code := c.readSource(file, false)
	if code != exitOK {
		return code
	}

	rt := runtime.New(runtime.WithConfig(cfg))
	program, err := rt.Parse(source, filename)
	if err != nil {
		return c.reportError(err, false)
	}
	fmt.Fprintf(c.stdout, "%# v\n", pretty.Formatter(program))
	return exitOK
}

func (c *cli) cmdREPL(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	opts := []repl.Option{repl.WithConfig(cfg)}
	quiet := false
	for _, a := range args {
		if a == "--quiet" || a == "-q" {
			quiet = true
		}
	}
	if !quiet {
		opts = append(opts, repl.WithBanner(fmt.Sprintf("Aether v%s - type 'exit' to quit, ':help' for commands", help.Version)))
	}

	session := repl.New(c.stdout, c.stderr, opts...)
	if err := session.Run(context.Background(), c.stdin); err != nil {
		fmt.Fprintf(c.stderr, "error reading input: %s\n", err)
		return exitUsage
	}
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
	cfg, code := c.loadConfig()
	if code != exitOK {
		return code
	}

	if cfg.Path != "" {
		fmt.Fprintf(c.stdout, "# loaded from %s\n", cfg.Path)
	} else {
		fmt.Fprintln(c.stdout, "# defaults (no config file found)")
	}
	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing config: %s\n", err)
		return exitUsage
	}
	fmt.Fprint(c.stdout, string(data))
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	topic := positional(args)
	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}

func (c *cli) cmdVersion(args []string) int {
	fmt.Fprintf(c.stdout, "aether %s\n", help.Version)
	return exitOK
}
