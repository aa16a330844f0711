package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/aether/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	if cfg.Lexer.TabWidth != 4 {
		t.Errorf("tab width = %d, want 4", cfg.Lexer.TabWidth)
	}
	if cfg.REPL.Prompt != "ae> " {
		t.Errorf("prompt = %q", cfg.REPL.Prompt)
	}
	if cfg.Budget.MaxIterations != 0 || cfg.Budget.TimeMs != 0 {
		t.Errorf("budget should be unlimited by default: %+v", cfg.Budget)
	}
}

func TestLoadProjectOverridesUser(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()
	writeFile(t, filepath.Join(project, config.ProjectFile), "lexer:\n  tab_width: 8\n")
	writeFile(t, filepath.Join(home, config.UserDir, config.UserFile), "lexer:\n  tab_width: 2\n")

	cfg, err := config.LoadFrom(project, home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Lexer.TabWidth != 8 {
		t.Errorf("tab width = %d, want 8 from project file", cfg.Lexer.TabWidth)
	}
	if cfg.Path != filepath.Join(project, config.ProjectFile) {
		t.Errorf("path = %q", cfg.Path)
	}
	if cfg.REPL.Prompt != "ae> " {
		t.Errorf("unset keys must keep defaults, prompt = %q", cfg.REPL.Prompt)
	}
}

func TestLoadFallsBackToUser(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, config.UserDir, config.UserFile), "repl:\n  prompt: \">> \"\nbudget:\n  max_iterations: 1000\n")

	cfg, err := config.LoadFrom(t.TempDir(), home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.REPL.Prompt != ">> " || cfg.Budget.MaxIterations != 1000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	cfg, err := config.LoadFrom(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, config.ProjectFile), "")
	cfg, err := config.LoadFrom(project, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Lexer.TabWidth != 4 {
		t.Errorf("tab width = %d", cfg.Lexer.TabWidth)
	}
}

func TestMalformedFileIsAnError(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, config.ProjectFile), "lexer: [unclosed\n")
	if _, err := config.LoadFrom(project, ""); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestUnknownKeyIsAnError(t *testing.T) {
	_, err := config.Parse("lexer:\n  tab_size: 4\n")
	if err == nil || !strings.Contains(err.Error(), "tab_size") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	_, err := config.Parse("lexer:\n  tab_width: 0\nbudget:\n  max_iterations: -1\n  time_ms: -5\n")
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Issues) != 3 {
		t.Errorf("issues = %v", verr.Issues)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := config.Parse("run:\n  json: true\n  trace: out.jsonl\nbudget:\n  time_ms: 250\n")
	if err != nil {
		t.Fatal(err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var back config.Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(*cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
