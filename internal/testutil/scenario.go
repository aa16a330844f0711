// Package testutil provides shared test helpers for Aether Go tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario is one end-to-end case loaded from a YAML file.
type Scenario struct {
	// Name is the file name without extension.
	Name        string   `yaml:"-"`
	Description string   `yaml:"description"`
	Mode        string   `yaml:"mode"` // run (default), check, or repl
	Source      string   `yaml:"source"`
	Budget      Budget   `yaml:"budget"`
	Tags        []string `yaml:"tags"`
	Expect      Expected `yaml:"expect"`
}

// Budget limits a scenario's run. Zero means unlimited.
type Budget struct {
	MaxIterations int64 `yaml:"max_iterations"`
	TimeMs        int64 `yaml:"time_ms"`
}

// Expected describes the outcome of a scenario.
type Expected struct {
	// Status is ok, compile_error, or runtime_error.
	Status string `yaml:"status"`
	// Stdout, when set, must match program output exactly.
	Stdout *string `yaml:"stdout"`
	// Kind and Message describe the error; Message is a substring.
	Kind    string `yaml:"kind"`
	Message string `yaml:"message"`
	Line    int    `yaml:"line"`
	Column  int    `yaml:"column"`
	// Globals, when set, must equal the global bindings after the run.
	Globals map[string]any `yaml:"globals"`
	// Absent names must not be bound globally after the run.
	Absent []string `yaml:"absent"`
	// Warnings lists the codes reported by a check, in order.
	Warnings []string `yaml:"warnings"`
}

// LoadScenario loads one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if s.Mode == "" {
		s.Mode = "run"
	}
	if s.Expect.Status == "" {
		s.Expect.Status = "ok"
	}
	return &s, nil
}

// ListScenarios returns the scenario files under root in name order.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yml" || ext == ".yaml" {
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// GlobalsJSON normalizes expected globals through JSON so YAML integers
// compare equal to decoded JSON numbers.
func (e Expected) GlobalsJSON() (map[string]any, error) {
	if e.Globals == nil {
		return nil, nil
	}
	data, err := json.Marshal(e.Globals)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
