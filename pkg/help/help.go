// Package help holds the text shown by `aether help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the Aether release reported by the CLI and the REPL banner.
const Version = "1.0.0"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "scopes", "diagnostics", "repl", "config", "examples"}

// QUICKREF is printed by `aether help` with no topic.
var QUICKREF = `Aether v` + Version + ` - quick reference

  x := expr            declare x in the current scope
  x = expr             update an existing x (nearest enclosing scope)
  print a, b           write values separated by spaces
  if cond: / else:     conditional, blocks are indented
  while cond:          loop while cond is true

Operators (lowest to highest):
  or   and   not   == != < <= > >=   + -   * / %   unary -

Commands:
  aether run <file> [--json] [--trace <path>]
  aether check <file> [--json]
  aether fmt <file> [--write]
  aether tokens <file>
  aether ast <file>
  aether repl
  aether trace <file.jsonl> [--text]
  aether config
  aether help [topic]
  aether version

Topics: syntax, types, scopes, diagnostics, repl, config, examples
`

// Topics maps topic names to their help text.
var Topics = map[string]string{
	"syntax": `Syntax

One statement per line. A line ending in ':' opens a block; the block is the
following run of lines indented deeper than the header. Tabs advance to the
next multiple of the tab width (4 unless configured).

  declaration   name := expr
  assignment    name = expr
  print         print [expr {, expr}]
  if            if expr: block [else: block]
  while         while expr: block
  expression    expr

Comments start with '#' and run to the end of the line. Parentheses may
span lines. Strings use double quotes with escapes \" \\ \n \t \r.
`,

	"types": `Types

  number   64-bit float; whole numbers print without a fraction
  string   "double quoted"
  bool     true, false
  nil      nil

'+' adds numbers or joins strings. '- * / %' need numbers; dividing or
taking the modulo by zero is an ArithmeticError. '< <= > >=' compare two
numbers or two strings. '==' and '!=' accept any values; values of
different types are never equal. 'and', 'or', 'not' and conditions of
'if' and 'while' require bools. There is no implicit conversion.
`,

	"scopes": `Scopes

The program runs in a global scope. Every if branch, else branch, and
while iteration gets a fresh child scope that is dropped when it ends.

  :=  binds a new name in the current scope. Declaring a name twice in the
      same scope is a RedeclarationError; an inner scope may shadow an
      outer name.
  =   updates the nearest enclosing binding. Assigning to a name that was
      never declared is an UndefinedVariableError and creates nothing.
`,

	"diagnostics": `Diagnostics

Errors print as
  <Kind>: <message> (line L, column C)

  E_LEX          LexError                 bad character, string, or indentation
  E_PARSE        ParseError               malformed statement or expression
  E_REDECLARED   RedeclarationError       := on a name already in this scope
  E_UNDEFINED    UndefinedVariableError   use of or = to an unknown name
  E_TYPE         TypeError                operator or condition on the wrong type
  E_ARITHMETIC   ArithmeticError          division or modulo by zero
  E_BUDGET       BudgetError              iteration or time budget exhausted
  E_IO           IOError                  unreadable file or failed output

Exit codes: 0 ok, 1 usage or I/O, 2 lex/parse error, 4 runtime error.
'aether check' reports static findings as warnings without running code.
Pass --json for machine-readable diagnostics.
`,

	"repl": `REPL

  aether repl

Each line runs in one session-wide global scope. The value of an
expression is echoed (strings quoted). A line ending in ':' starts a
multi-line entry that ends at the first blank line. Errors are printed and
the session continues.

  :env            list global bindings
  :check <code>   static checks against the session scope
  :reset          discard all global bindings
  :help           list commands
  exit            leave
`,

	"config": `Configuration

Settings come from ./aether.yml, else ~/.aether/config.yml, else defaults.
'aether config' prints the settings in effect.

  lexer:
    tab_width: 4
  run:
    json: false
    trace: ""
  budget:
    max_iterations: 0   # 0 = unlimited
    time_ms: 0
  repl:
    prompt: "ae> "
`,

	"examples": `Examples

  mana := 100
  power := mana * 2 + 5
  print power                  # 205

  i := 0
  while i < 3:
      if i % 2 == 0:
          print i, "even"
      else:
          print i, "odd"
      i = i + 1
`,
}

// MatchTopic resolves name to a topic, accepting an unambiguous prefix.
func MatchTopic(name string) (string, string, error) {
	if content, ok := Topics[name]; ok {
		return name, content, nil
	}

	var matches []string
	for _, topic := range TopicList {
		if strings.HasPrefix(topic, name) {
			matches = append(matches, topic)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic: %s", name)
	}
	sort.Strings(matches)
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", name, strings.Join(matches, ", "))
}
