package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// ErrNoManifests is returned when a directory holds no .cue files.
var ErrNoManifests = errors.New("no CUE manifests found")

// Catalog is a set of compiled component manifests. It implements
// modelica.Catalog.
type Catalog struct {
	entries map[string]*modelica.Metadata
	names   []string
}

// NewCatalog builds a Catalog. Duplicate names are an error.
func NewCatalog(mds ...*modelica.Metadata) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]*modelica.Metadata, len(mds))}
	for _, md := range mds {
		if _, dup := c.entries[md.Name]; dup {
			return nil, fmt.Errorf("component %q declared twice", md.Name)
		}
		c.entries[md.Name] = md
		c.names = append(c.names, md.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup returns the manifest for name.
func (c *Catalog) Lookup(name string) (*modelica.Metadata, bool) {
	if c == nil {
		return nil, false
	}
	md, ok := c.entries[name]
	return md, ok
}

// Names returns component names, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Register adds a process loader to reg for every component that declares a
// runtime command.
func (c *Catalog) Register(reg *modelica.Registry) {
	if c == nil {
		return
	}
	for _, name := range c.names {
		if cmd := c.entries[name].Command; len(cmd) > 0 {
			reg.Register(name, modelica.ProcessLoader(cmd))
		}
	}
}

// FindCUEFiles returns the .cue files under dir, relative to dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	files, err := doublestar.Glob(os.DirFS(dir), "**/*.cue")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir compiles every `component: <Name>: {...}` entry in the .cue files
// under dir. All compile and validation errors are collected.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("manifest dir: not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoManifests, dir)
	}

	// CUE loads named files one directory at a time.
	byDir := make(map[string][]string)
	var dirs []string
	for _, f := range files {
		d := path.Dir(f)
		if _, ok := byDir[d]; !ok {
			dirs = append(dirs, d)
		}
		byDir[d] = append(byDir[d], f)
	}

	ctx := cuecontext.New()
	var (
		mds  []*modelica.Metadata
		errs []error
	)
	for _, d := range dirs {
		instances := load.Instances(byDir[d], &load.Config{Dir: dir})
		if len(instances) == 0 {
			errs = append(errs, fmt.Errorf("load %s: no CUE instances", d))
			continue
		}
		inst := instances[0]
		if inst.Err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", d, inst.Err))
			continue
		}

		value := ctx.BuildInstance(inst)
		if err := value.Err(); err != nil {
			errs = append(errs, formatCUEError(err))
			continue
		}

		found, err := compileValue(value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mds = append(mds, found...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewCatalog(mds...)
}

// LoadString compiles manifests from CUE source text.
func LoadString(src string) (*Catalog, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileAll(value)
}

func compileAll(value cue.Value) (*Catalog, error) {
	mds, err := compileValue(value)
	if err != nil {
		return nil, err
	}
	return NewCatalog(mds...)
}

func compileValue(value cue.Value) ([]*modelica.Metadata, error) {
	compVal := value.LookupPath(cue.ParsePath("component"))
	if !compVal.Exists() {
		return nil, &CompileError{
			Field:   "component",
			Message: "no components declared",
			Pos:     value.Pos(),
		}
	}

	iter, err := compVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var (
		mds  []*modelica.Metadata
		errs []error
	)
	for iter.Next() {
		md, err := Compile(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("component.%s: %w", iter.Label(), err))
			continue
		}
		for _, verr := range Validate(md) {
			errs = append(errs, verr)
		}
		mds = append(mds, md)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return mds, nil
}

var _ modelica.Catalog = (*Catalog)(nil)
