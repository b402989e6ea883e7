package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/ffi"
	"github.com/bondlegend4/modelica-gdext/internal/ident"
)

// NameOptions holds flags for the name command.
type NameOptions struct {
	*RootOptions
	CStr bool // argument is hex bytes of a C string
}

// NameInfo describes one interned name as it reads back from the foreign
// side. Foreign is the hex of the bytes that crossed.
type NameInfo struct {
	Text    string `json:"text"`
	Len     int    `json:"len"`
	Hash    string `json:"hash"`
	Empty   bool   `json:"empty"`
	Foreign string `json:"foreign"`
}

// NewNameCommand creates the name command.
func NewNameCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NameOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "name <text>",
		Short: "Show how text interns as a name",
		Long: `Build a name from text and print its byte length, hash and emptiness.

With --cstr the argument is the hex encoding of a C string: bytes are
Latin-1 and decoding stops at the first NUL.

Examples:
  gdmod name health
  gdmod name --cstr b100ff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runName(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.CStr, "cstr", false, "treat the argument as hex C-string bytes")
	return cmd
}

func runName(opts *NameOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var n ident.Name
	if opts.CStr {
		raw, err := hex.DecodeString(arg)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_BAD_INPUT", fmt.Sprintf("--cstr expects hex bytes: %v", err), nil, nil)
		}
		n = ident.NameFromCStr(raw)
	} else {
		n = ident.NewName(arg)
	}

	buf := ffi.NewMemBuffer(nil)
	if err := ffi.WriteName(buf, n); err != nil {
		return formatter.Fail(ExitCommandError, "E_FFI", err.Error(), nil, nil)
	}
	n, err := ffi.ReadName(buf)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_FFI", err.Error(), nil, nil)
	}
	raw, _ := buf.ReadForeignBytes()

	info := NameInfo{
		Text:    n.String(),
		Len:     n.Len(),
		Hash:    fmt.Sprintf("%016x", n.Hash()),
		Empty:   n.IsEmpty(),
		Foreign: hex.EncodeToString(raw),
	}
	return formatter.Emit(info, func(w io.Writer) {
		fmt.Fprintf(w, "text:    %q\n", info.Text)
		fmt.Fprintf(w, "len:     %d\n", info.Len)
		fmt.Fprintf(w, "hash:    %s\n", info.Hash)
		fmt.Fprintf(w, "empty:   %t\n", info.Empty)
		fmt.Fprintf(w, "foreign: %s\n", info.Foreign)
	})
}

// PathOptions holds flags for the path command.
type PathOptions struct {
	*RootOptions
	Subpath string // "begin:end"
}

// PathInfo describes a parsed node path.
type PathInfo struct {
	Path     string   `json:"path"`
	Absolute bool     `json:"absolute"`
	Names    []string `json:"names"`
	Subnames []string `json:"subnames"`
	Subpath  *string  `json:"subpath,omitempty"`
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "path <text>",
		Short: "Split a node path into names and subnames",
		Long: `Parse a node path and print its name and subname segments.

--subpath selects segments [begin, end) over names and subnames combined.
Negative indices count from the end.

Examples:
  gdmod path /root/Player/Sprite:texture:size
  gdmod path a/b/c:d --subpath -2:4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Subpath, "subpath", "", "segment range begin:end")
	return cmd
}

func runPath(opts *PathOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	buf := ffi.NewMemBuffer(nil)
	if err := ffi.WriteNodePath(buf, ident.NewNodePath(arg)); err != nil {
		return formatter.Fail(ExitCommandError, "E_FFI", err.Error(), nil, nil)
	}
	p, err := ffi.ReadNodePath(buf)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_FFI", err.Error(), nil, nil)
	}

	info := PathInfo{
		Path:     p.String(),
		Absolute: p.IsAbsolute(),
		Names:    make([]string, 0, p.NameCount()),
		Subnames: make([]string, 0, p.SubnameCount()),
	}
	for i := 0; i < p.NameCount(); i++ {
		n, _ := p.Name(i)
		info.Names = append(info.Names, n.String())
	}
	for i := 0; i < p.SubnameCount(); i++ {
		n, _ := p.Subname(i)
		info.Subnames = append(info.Subnames, n.String())
	}

	if opts.Subpath != "" {
		begin, end, err := parseRange(opts.Subpath)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_BAD_INPUT", err.Error(), nil, nil)
		}
		sub := p.Subpath(begin, end).String()
		info.Subpath = &sub
	}

	return formatter.Emit(info, func(w io.Writer) {
		fmt.Fprintf(w, "path:     %q\n", info.Path)
		fmt.Fprintf(w, "absolute: %t\n", info.Absolute)
		fmt.Fprintf(w, "names:    %s\n", strings.Join(info.Names, " "))
		fmt.Fprintf(w, "subnames: %s\n", strings.Join(info.Subnames, " "))
		if info.Subpath != nil {
			fmt.Fprintf(w, "subpath:  %q\n", *info.Subpath)
		}
	})
}

// parseRange parses "begin:end".
func parseRange(s string) (int, int, error) {
	b, e, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("--subpath must be begin:end, got %q", s)
	}
	begin, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("--subpath begin: %w", err)
	}
	end, err := strconv.Atoi(e)
	if err != nil {
		return 0, 0, fmt.Errorf("--subpath end: %w", err)
	}
	return begin, end, nil
}
