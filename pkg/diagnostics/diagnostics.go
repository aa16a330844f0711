// Package diagnostics defines Aether diagnostic types for lex, parse, and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/aether/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex        = "E_LEX"
	EParse      = "E_PARSE"
	ERedeclared = "E_REDECLARED"
	EUndefined  = "E_UNDEFINED"
	EType       = "E_TYPE"
	EArithmetic = "E_ARITHMETIC"
	EBudget     = "E_BUDGET"
	EIO         = "E_IO"
)

// Severity levels. Errors halt; warnings come from static checks only.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

var kindNames = map[string]string{
	ELex:        "LexError",
	EParse:      "ParseError",
	ERedeclared: "RedeclarationError",
	EUndefined:  "UndefinedVariableError",
	EType:       "TypeError",
	EArithmetic: "ArithmeticError",
	EBudget:     "BudgetError",
	EIO:         "IOError",
}

// KindName returns the user-facing error kind for a diagnostic code.
func KindName(code string) string {
	if name, ok := kindNames[code]; ok {
		return name
	}
	return "Error"
}

// IsCompileTime reports whether code is raised before evaluation starts.
func IsCompileTime(code string) bool {
	return code == ELex || code == EParse
}

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code     string    `json:"code"`
	Kind     string    `json:"kind"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	Span     *ast.Span `json:"span,omitempty"`
	Hint     string    `json:"hint,omitempty"`
}

// MakeDiag creates a new error Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Kind:     KindName(code),
		Severity: SeverityError,
		Message:  message,
		Span:     span,
		Hint:     hint,
	}
}

// MakeWarning creates a warning Diagnostic.
func MakeWarning(code, message string, span *ast.Span, hint string) Diagnostic {
	d := MakeDiag(code, message, span, hint)
	d.Severity = SeverityWarning
	return d
}

// FormatDiagnostic formats a single diagnostic for display.
// The plain form is "<Kind>: <message> (line L, column C)"; json selects
// the machine-readable form.
func FormatDiagnostic(d Diagnostic, asJSON bool) string {
	if asJSON {
		b, _ := json.Marshal(d)
		return string(b)
	}
	kind := d.Kind
	if kind == "" {
		kind = KindName(d.Code)
	}
	out := kind + ": " + d.Message
	if d.Severity == SeverityWarning {
		out = "warning: " + out
	}
	if d.Span != nil {
		out += fmt.Sprintf(" (line %d, column %d)", d.Span.StartLine, d.Span.StartCol)
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, asJSON bool) string {
	if asJSON {
		if diags == nil {
			diags = []Diagnostic{}
		}
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, false)
	}
	return strings.Join(parts, "\n")
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity != SeverityWarning {
			return true
		}
	}
	return false
}
