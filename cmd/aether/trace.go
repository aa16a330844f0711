package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/thomasrohde/aether/pkg/diagnostics"
	"github.com/thomasrohde/aether/pkg/evaluator"
)

// traceWriter serializes trace events as NDJSON. The first write error is
// kept and later events are dropped.
type traceWriter struct {
	enc *json.Encoder
	err error
}

func newTraceWriter(w io.Writer) *traceWriter {
	return &traceWriter{enc: json.NewEncoder(w)}
}

func (t *traceWriter) write(event evaluator.TraceEvent) {
	if t.err != nil {
		return
	}
	t.err = t.enc.Encode(event)
}

// TraceSummary aggregates an NDJSON trace file.
type TraceSummary struct {
	RunID        string         `json:"runId"`
	TotalEvents  int            `json:"totalEvents"`
	Statements   int            `json:"statements"`
	Declarations int            `json:"declarations"`
	Assignments  int            `json:"assignments"`
	Blocks       int            `json:"blocks"`
	MaxDepth     int            `json:"maxDepth"`
	Errors       int            `json:"errors"`
	ErrorsByKind map[string]int `json:"errorsByKind"`
	OK           *bool          `json:"ok,omitempty"`
	StartTime    string         `json:"startTime,omitempty"`
	EndTime      string         `json:"endTime,omitempty"`
	DurationMs   float64        `json:"durationMs"`
}

type traceLine struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func (c *cli) cmdTrace(args []string) int {
	textOutput := false
	for _, a := range args {
		if a == "--text" {
			textOutput = true
		}
	}
	file := positional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: aether trace <file.jsonl> [--json|--text]")
		return exitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return exitUsage
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		fmt.Fprintf(c.stderr, "error reading trace: %s\n", err)
		return exitUsage
	}

	if textOutput {
		printTraceSummaryText(c.stdout, summary)
		return exitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(c.stdout, string(b))
	return exitOK
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{ErrorsByKind: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceLine
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.OK = &ok
			}
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TraceDeclare:
			summary.Declarations++
		case evaluator.TraceAssign:
			summary.Assignments++
		case evaluator.TraceBlockEnter:
			summary.Blocks++
			// JSON numbers decode as float64.
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceError:
			summary.Errors++
			if kind, ok := event.Data["kind"].(string); ok {
				summary.ErrorsByKind[kind]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Declarations: %d, assignments: %d\n", s.Declarations, s.Assignments)
	fmt.Fprintf(w, "Blocks: %d (max depth %d)\n", s.Blocks, s.MaxDepth)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	kinds := make([]string, 0, len(s.ErrorsByKind))
	for k := range s.ErrorsByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, s.ErrorsByKind[k])
	}
	if s.OK != nil {
		fmt.Fprintf(w, "Result: %s\n", map[bool]string{true: "ok", false: "failed"}[*s.OK])
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
