package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Value types a scenario can exercise.
const (
	TypeName     = "name"
	TypeString   = "string"
	TypeNodePath = "node_path"
)

// Scenario defines a conformance test scenario over one value type.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Type is the value type built from each case input.
	Type string `yaml:"type"`

	// StrictBounds selects the panicking bounds policy for get_name and
	// get_subname.
	StrictBounds bool `yaml:"strict_bounds,omitempty"`

	// RunID is an optional fixed run ID recorded in the trace.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Cases run in order.
	Cases []Case `yaml:"cases"`
}

// Case is one operation applied to one input.
type Case struct {
	// Op is the operation name (see the Op constants).
	Op string `yaml:"op"`

	// Input is the text the subject value is built from.
	Input string `yaml:"input,omitempty"`

	// InputHex is raw input bytes in hex, used by from_cstr.
	InputHex string `yaml:"input_hex,omitempty"`

	// Args are op-specific arguments: other inputs for equal, indices for
	// subpath and get_name.
	Args []any `yaml:"args,omitempty"`

	// Expect is the expected result. Lists compare element-wise.
	Expect any `yaml:"expect,omitempty"`

	// ExpectPanic requires the operation to panic.
	ExpectPanic bool `yaml:"expect_panic,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "case:" vs "cases:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Discover returns every scenario file under root, sorted.
func Discover(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/*.{yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("discover scenarios in %s: %w", root, err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Type {
	case TypeName, TypeString, TypeNodePath:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown type %q", s.Type)
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if err := validateCase(s.Type, c); err != nil {
			return fmt.Errorf("cases[%d]: %w", i, err)
		}
	}
	return nil
}

func validateCase(typ string, c Case) error {
	spec, ok := ops[c.Op]
	if !ok {
		if c.Op == "" {
			return fmt.Errorf("op is required")
		}
		return fmt.Errorf("unknown op %q", c.Op)
	}
	if !spec.supports(typ) {
		return fmt.Errorf("op %s does not apply to %s", c.Op, typ)
	}
	if spec.args >= 0 && len(c.Args) != spec.args {
		return fmt.Errorf("op %s takes %d args, got %d", c.Op, spec.args, len(c.Args))
	}
	if c.Expect == nil && !c.ExpectPanic {
		return fmt.Errorf("expect or expect_panic is required")
	}
	return nil
}
