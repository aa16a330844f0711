// Package config loads Aether project configuration.
//
// Configuration precedence: project (aether.yml) → user (~/.aether/config.yml)
// → built-in defaults. Only the first file found is used; keys it omits keep
// their default values.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile is the configuration file looked up in the project directory.
	ProjectFile = "aether.yml"
	// UserDir is the per-user configuration directory under $HOME.
	UserDir = ".aether"
	// UserFile is the configuration file inside UserDir.
	UserFile = "config.yml"
)

// Config is the full set of settings.
type Config struct {
	// Path is the file the configuration was read from; empty for defaults.
	Path string `yaml:"-"`

	Lexer  LexerConfig  `yaml:"lexer"`
	Run    RunConfig    `yaml:"run"`
	Budget BudgetConfig `yaml:"budget"`
	REPL   REPLConfig   `yaml:"repl"`
}

// LexerConfig controls tokenization.
type LexerConfig struct {
	TabWidth int `yaml:"tab_width"`
}

// RunConfig holds defaults for the run command.
type RunConfig struct {
	JSON  bool   `yaml:"json"`
	Trace string `yaml:"trace"`
}

// BudgetConfig limits execution. Zero means unlimited.
type BudgetConfig struct {
	MaxIterations int64 `yaml:"max_iterations"`
	TimeMs        int64 `yaml:"time_ms"`
}

// REPLConfig controls the interactive session.
type REPLConfig struct {
	Prompt string `yaml:"prompt"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Lexer: LexerConfig{TabWidth: 4},
		REPL:  REPLConfig{Prompt: "ae> "},
	}
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString("invalid configuration")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Load resolves the configuration for projectDir using the user's home
// directory for the fallback file.
func Load(projectDir string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return LoadFrom(projectDir, home)
}

// LoadFrom is Load with an explicit home directory. An empty homeDir skips
// the user file. A file that exists but cannot be parsed is an error.
func LoadFrom(projectDir, homeDir string) (*Config, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, UserDir, UserFile))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if err == nil {
			return cfg, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return nil, err
	}
	return Default(), nil
}

// LoadFile reads a single configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()
	return decode(file, path)
}

// Parse reads configuration from YAML text over the defaults.
func Parse(data string) (*Config, error) {
	return decode(strings.NewReader(data), "")
}

func decode(r io.Reader, path string) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		if path == "" {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	errs := ValidationError{Path: c.Path}
	if c.Lexer.TabWidth < 1 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("lexer.tab_width must be at least 1, got %d", c.Lexer.TabWidth))
	}
	if c.Budget.MaxIterations < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("budget.max_iterations must not be negative, got %d", c.Budget.MaxIterations))
	}
	if c.Budget.TimeMs < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("budget.time_ms must not be negative, got %d", c.Budget.TimeMs))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
