package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/harness"
)

// ConformOptions holds flags for the conform command.
type ConformOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob on file name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "mismatch", "updated" or empty
	Errors []string `json:"errors,omitempty"`
}

// ConformResult holds the overall conformance result.
type ConformResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewConformCommand creates the conform command.
func NewConformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conform <scenarios-dir>",
		Short: "Run string identity conformance scenarios",
		Long: `Run every YAML scenario under a directory against the string identity
values. When golden/<scenario>.golden exists next to a scenario file the
trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios)

Examples:
  gdmod conform ./scenarios
  gdmod conform ./scenarios --filter "name_*"
  gdmod conform ./scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConform(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by file name glob")
	return cmd
}

func runConform(opts *ConformOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, "E_NOT_FOUND", fmt.Sprintf("scenarios directory not found: %s", dir), nil, nil)
	}

	files, err := harness.Discover(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_BAD_INPUT", err.Error(), nil, nil)
	}

	result := ConformResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Running %s", file)
		sr, err := runScenarioFile(file, opts.Update)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_SCENARIO", err.Error(), nil, nil)
		}
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	text := func(w io.Writer) {
		if result.Total == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return
		}
		for _, sr := range result.Scenarios {
			mark := "✓"
			if !sr.Pass {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s", mark, sr.Name)
			if sr.Golden != "" {
				fmt.Fprintf(w, " (golden %s)", sr.Golden)
			}
			fmt.Fprintln(w)
			for _, msg := range sr.Errors {
				fmt.Fprintf(w, "    %s\n", msg)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Conformance Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return formatter.Fail(ExitFailure, "E_CONFORM_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result, text)
	}
	return formatter.Emit(result, text)
}

func filterScenarios(files []string, filter string) ([]string, error) {
	if filter == "" {
		return files, nil
	}
	if !doublestar.ValidatePattern(filter) {
		return nil, fmt.Errorf("invalid --filter pattern %q", filter)
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		if ok, _ := doublestar.Match(filter, base); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// runScenarioFile runs one scenario and checks or updates its golden file.
// A malformed scenario is an error; failed cases are reported in the result.
func runScenarioFile(file string, update bool) (ScenarioResult, error) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("%s: %w", file, err)
	}
	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("%s: %w", file, err)
	}

	sr := ScenarioResult{
		Name:   scenario.Name,
		File:   file,
		Pass:   result.Pass,
		Errors: result.Errors,
	}

	goldenPath := harness.GoldenPath(file)
	switch {
	case update:
		if err := harness.UpdateGolden(scenario, result, goldenPath); err != nil {
			return ScenarioResult{}, err
		}
		sr.Golden = "updated"
	case fileExists(goldenPath):
		same, err := harness.CompareGolden(scenario, result, goldenPath)
		if err != nil {
			return ScenarioResult{}, err
		}
		if same {
			sr.Golden = "match"
		} else {
			sr.Golden = "mismatch"
			sr.Pass = false
			sr.Errors = append(sr.Errors, "trace differs from "+goldenPath)
		}
	}
	return sr, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
