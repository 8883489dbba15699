package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/agentmark/internal/compiler"
)

// Scenario defines a conformance scenario: a unit to compile, optional
// state steps to run against a compiled skill, and assertions on the
// emitted artifacts, the compile error or the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Unit is the path of the unit to compile, relative to the scenario
	// file. It is looked up in Files first.
	Unit string `yaml:"unit"`

	// Files holds inline unit sources keyed by path relative to the
	// scenario file. Imports resolve here before falling back to disk.
	Files map[string]string `yaml:"files,omitempty"`

	// Types lists .cue files declaring the types units refer to.
	Types []string `yaml:"types,omitempty"`

	// Options override the default compilation options.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// State runs operations of the compiled skill's state against a fresh
	// in-memory database, in order.
	State []StateStep `yaml:"state,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`

	// Dir is the directory relative paths resolve against. LoadScenario
	// sets it to the scenario file's directory.
	Dir string `yaml:"-"`
}

// ScenarioOptions mirror compiler.Options.
type ScenarioOptions struct {
	EmptyCell  string `yaml:"empty_cell,omitempty"`
	Separators string `yaml:"separators,omitempty"`
}

// CompilerOptions converts to compiler options, applying defaults.
func (o ScenarioOptions) CompilerOptions() compiler.Options {
	opts := compiler.DefaultOptions()
	opts.EmptyCell = o.EmptyCell
	if o.Separators != "" {
		opts.Separators = compiler.SeparatorPolicy(o.Separators)
	}
	return opts
}

// StateStep runs one state operation.
type StateStep struct {
	// Op is the operation name: init, read, write, delete or a custom
	// operation declared by the skill.
	Op string `yaml:"op"`

	// Args binds the operation's parameters by column name. Missing
	// optional columns are written as NULL.
	Args map[string]any `yaml:"args,omitempty"`

	// ExpectError marks a step that must fail, e.g. a write missing a
	// required column.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion validates part of a result.
type Assertion struct {
	// Type selects the check:
	// - "artifact_exists": Path was emitted
	// - "artifact_contains": Path contains Text
	// - "artifact_absent": Path does not contain Text
	// - "artifact_order": Path contains Texts in order
	// - "artifact_count": exactly Count artifacts were emitted
	// - "compile_error": compilation failed with Code, naming Files
	// - "final_state": Table has one row matching Where with Expect values
	Type string `yaml:"type"`

	Path  string   `yaml:"path,omitempty"`
	Text  string   `yaml:"text,omitempty"`
	Texts []string `yaml:"texts,omitempty"`
	Count int      `yaml:"count,omitempty"`

	// Code and Contains check a compile error.
	Code     string   `yaml:"code,omitempty"`
	Contains string   `yaml:"contains,omitempty"`
	Files    []string `yaml:"files,omitempty"`

	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertArtifactExists   = "artifact_exists"
	AssertArtifactContains = "artifact_contains"
	AssertArtifactAbsent   = "artifact_absent"
	AssertArtifactOrder    = "artifact_order"
	AssertArtifactCount    = "artifact_count"
	AssertCompileError     = "compile_error"
	AssertFinalState       = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML whose relative paths resolve
// against dir.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Dir = dir

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// resolve joins a scenario-relative path with Dir.
func (s *Scenario) resolve(p string) string {
	if filepath.IsAbs(p) || s.Dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(s.Dir, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, inline := s.Files[s.Unit]; !inline {
		if _, err := os.Stat(s.resolve(s.Unit)); os.IsNotExist(err) {
			return fmt.Errorf("unit file not found: %s", s.Unit)
		}
	}
	for _, typesPath := range s.Types {
		if _, err := os.Stat(s.resolve(typesPath)); os.IsNotExist(err) {
			return fmt.Errorf("types file not found: %s", typesPath)
		}
	}
	if err := s.Options.CompilerOptions().Separators.Validate(); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	for i, step := range s.State {
		if step.Op == "" {
			return fmt.Errorf("state[%d]: op is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion checks the fields each assertion type needs.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertArtifactExists:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for artifact_exists", index)
		}
	case AssertArtifactContains, AssertArtifactAbsent:
		if a.Path == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: path and text are required for %s", index, a.Type)
		}
	case AssertArtifactOrder:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for artifact_order", index)
		}
		if len(a.Texts) < 2 {
			return fmt.Errorf("assertions[%d]: texts needs at least 2 entries for artifact_order", index)
		}
	case AssertArtifactCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for artifact_count", index)
		}
	case AssertCompileError:
		if a.Code == "" && a.Contains == "" {
			return fmt.Errorf("assertions[%d]: code or contains is required for compile_error", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
