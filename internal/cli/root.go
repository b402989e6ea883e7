// Package cli implements the gdmod command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// LoaderOptions are passed to config.NewLoader (for testing).
	LoaderOptions []config.LoaderOption
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gdmod CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gdmod",
		Short: "gdmod - Modelica components for engine scenes",
		Long: `Inspect engine string identities, check component manifests and
drive Modelica simulation components headlessly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: user and project gdmod.yaml)")

	cmd.AddCommand(NewNameCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))
	cmd.AddCommand(NewConformCommand(opts))
	cmd.AddCommand(NewManifestsCommand(opts))
	cmd.AddCommand(NewSimCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig loads the layered config, or only --config when given.
func (o *RootOptions) loadConfig(logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger, o.LoaderOptions...)
	if o.ConfigPath != "" {
		return loader.LoadExplicit(o.ConfigPath)
	}
	return loader.Load()
}

// logger builds the command logger. --verbose forces debug and
// --format json switches to the JSON handler.
func (o *RootOptions) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logCfg := cfg.Log
	if o.Verbose {
		logCfg.Level = "debug"
	}
	if o.Format == "json" {
		logCfg.Format = "json"
	}
	return logCfg.NewLogger(w)
}
