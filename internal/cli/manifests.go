package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/manifest"
	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// ComponentSummary is one compiled manifest.
type ComponentSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
	Command     []string `json:"command,omitempty"`
}

// ManifestsResult holds the manifest check result.
type ManifestsResult struct {
	Valid      bool               `json:"valid"`
	Components []ComponentSummary `json:"components,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
}

// NewManifestsCommand creates the manifests command.
func NewManifestsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifests <dir>",
		Short: "Compile and validate CUE component manifests",
		Long: `Compile every component manifest under a directory and report the
components it declares, or every compile and validation error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifests(rootOpts, args[0], cmd)
		},
	}
}

func runManifests(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	catalog, err := manifest.LoadDir(dir)
	if err != nil {
		result := ManifestsResult{Errors: splitJoined(err)}
		return formatter.Fail(ExitFailure, "E_MANIFEST", fmt.Sprintf("manifests invalid: %d error(s)", len(result.Errors)), result, func(w io.Writer) {
			fmt.Fprintln(w, "✗ Manifests invalid")
			for _, msg := range result.Errors {
				fmt.Fprintf(w, "  %s\n", msg)
			}
		})
	}

	result := ManifestsResult{Valid: true}
	for _, name := range catalog.Names() {
		md, _ := catalog.Lookup(name)
		result.Components = append(result.Components, summarize(md))
	}

	return formatter.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d component(s)\n", len(result.Components))
		for _, c := range result.Components {
			fmt.Fprintf(w, "  %s  in[%s] out[%s]", c.Name, strings.Join(c.Inputs, " "), strings.Join(c.Outputs, " "))
			if len(c.Command) > 0 {
				fmt.Fprintf(w, "  runtime: %s", strings.Join(c.Command, " "))
			}
			fmt.Fprintln(w)
		}
	})
}

func summarize(md *modelica.Metadata) ComponentSummary {
	s := ComponentSummary{
		Name:        md.Name,
		Description: md.Description,
		Inputs:      make([]string, 0, len(md.Inputs)),
		Outputs:     make([]string, 0, len(md.Outputs)),
		Command:     md.Command,
	}
	for _, v := range md.Inputs {
		s.Inputs = append(s.Inputs, v.Name+":"+string(v.Kind))
	}
	for _, v := range md.Outputs {
		s.Outputs = append(s.Outputs, v.Name)
	}
	return s
}

// splitJoined flattens an errors.Join tree into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, splitJoined(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}
