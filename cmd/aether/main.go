// Command aether is the Aether CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thomasrohde/aether/pkg/config"
	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/runtime"
)

// Exit codes.
const (
	exitOK           = 0
	exitUsage        = 1
	exitCompileError = 2
	exitRuntimeError = 4
)

// cli carries the process streams so commands can be driven from tests.
type cli struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	projectDir string
	homeDir    string
}

func main() {
	home, _ := os.UserHomeDir()
	c := &cli{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		projectDir: ".",
		homeDir:    home,
	}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "usage: aether <command> [options]")
		fmt.Fprintln(c.stderr, "commands: run, check, fmt, tokens, ast, repl, trace, config, help, version")
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return c.cmdRun(rest)
	case "check":
		return c.cmdCheck(rest)
	case "fmt":
		return c.cmdFmt(rest)
	case "tokens":
		return c.cmdTokens(rest)
	case "ast":
		return c.cmdAST(rest)
	case "repl":
		return c.cmdREPL(rest)
	case "trace":
		return c.cmdTrace(rest)
	case "config":
		return c.cmdConfig(rest)
	case "help", "--help", "-h":
		return c.cmdHelp(rest)
	case "version", "--version":
		return c.cmdVersion(rest)
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", cmd)
		return exitUsage
	}
}

// loadConfig resolves settings from the project and user config files.
func (c *cli) loadConfig() (*config.Config, int) {
	cfg, err := config.LoadFrom(c.projectDir, c.homeDir)
	if err != nil {
		fmt.Fprintf(c.stderr, "error loading config: %s\n", err)
		return nil, exitUsage
	}
	return cfg, exitOK
}

// readSource reads a program from file, or from stdin when file is "-".
func (c *cli) readSource(file string, asJSON bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, asJSON))
		return "", "", exitUsage
	}
	return string(source), file, exitOK
}

// reportError prints the diagnostics carried by err and returns the exit
// code for its phase.
func (c *cli) reportError(err error, asJSON bool) int {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(runtime.DiagnosticsOf(err), asJSON))
	switch runtime.StatusOf(err) {
	case runtime.StatusCompileError:
		return exitCompileError
	case runtime.StatusRuntimeError:
		return exitRuntimeError
	}
	return exitOK
}

// positional returns the first argument that is not a flag. A lone "-"
// counts as positional (stdin).
func positional(args []string) string {
	for _, a := range args {
		if a == "-" || !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

func parseCount(flag, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s expects a non-negative integer, got %q", flag, value)
	}
	return n, nil
}
