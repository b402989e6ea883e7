package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Run      string // show one run's frames
}

// RunDetail is one run with its recorded frames.
type RunDetail struct {
	Run    store.Run     `json:"run"`
	Frames []store.Frame `json:"frames"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded simulation runs",
		Long: `List the runs recorded in a run log, oldest first, or show every
recorded frame of one run.

Examples:
  gdmod runs --db runs.db
  gdmod runs --db runs.db --run 0190f6c2-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the frames of one run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Do not create a database just to list nothing.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, "E_NOT_FOUND", fmt.Sprintf("database not found: %s", opts.Database), nil, nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, "E_NOT_FOUND", fmt.Sprintf("run not found: %s", opts.Run), nil, nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
		}
		frames, err := st.ReadFrames(ctx, run.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
		}
		detail := RunDetail{Run: run, Frames: frames}
		return formatter.Emit(detail, func(w io.Writer) { writeRunDetail(w, detail) })
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
	}
	return formatter.Emit(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return
		}
		fmt.Fprintf(w, "%-4s %-36s %-16s %-9s %8s %s\n", "SEQ", "ID", "COMPONENT", "STATUS", "FRAMES", "DELTA")
		for _, r := range runs {
			fmt.Fprintf(w, "%-4d %-36s %-16s %-9s %8d %g\n", r.Seq, r.ID, r.Component, r.Status, r.Frames, r.Delta)
		}
	})
}

func writeRunDetail(w io.Writer, d RunDetail) {
	fmt.Fprintf(w, "run %s: %s, %s, %d frame(s), delta %g\n", d.Run.ID, d.Run.Component, d.Run.Status, d.Run.Frames, d.Run.Delta)
	for _, f := range d.Frames {
		keys := make([]string, 0, len(f.Outputs))
		for k := range f.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "%6d", f.Number)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%g", k, f.Outputs[k])
		}
		fmt.Fprintln(w)
	}
}
