// Package deps implements the lifecycle of one third-party dependency: fetch
// the source archive, patch the extracted tree, build every configuration and
// stamp the dependency as complete.
package deps

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio"
	"github.com/yact/thirdparty"
	"github.com/yact/thirdparty/internal/archive"
	"github.com/yact/thirdparty/internal/fetch"
	"github.com/yact/thirdparty/internal/rm"
	"github.com/yact/thirdparty/internal/vcproj"
	"golang.org/x/xerrors"
)

// Builder is the unit of work of a bootstrap run.
type Builder interface {
	Name() string

	// Root is the directory the dependency is extracted into.
	Root() string

	Fetch(ctx context.Context) error
	Patch(ctx context.Context) error
	Build(ctx context.Context) error

	HasStamp() bool
	WriteStamp() error
}

// Descriptor identifies one dependency. Descriptors are data; they are read
// from the manifest.
type Descriptor struct {
	Kind    string // selects the variant, e.g. gtest
	Name    string
	Version string
	Source  string // archive URL
	Hash    string // expected checksum of the archive, see fetch.ParseChecksum

	// Project is the solution or project file passed to the build tool,
	// relative to the dependency root.
	Project string

	// ProjectDir holds the project files to upgrade and patch, relative to
	// the dependency root.
	ProjectDir string
}

// DirName returns the directory name of the dependency root, e.g.
// gtest-1.5.0.
func (d Descriptor) DirName() string {
	return thirdparty.Version{Name: d.Name, Upstream: d.Version}.String()
}

// Runner runs the build tool once.
type Runner interface {
	Run(ctx context.Context, project, configuration string) error
}

// Policy is fixed before the first Builder runs and shared by all of them.
type Policy struct {
	// StaticRuntime selects /MT and /MTd instead of /MD and /MDd.
	StaticRuntime bool

	// Configurations are built in order (thirdparty.DefaultConfigurations if
	// empty).
	Configurations []string

	Tool Runner

	// Upgrader converts legacy project files. If nil, files are used as-is.
	Upgrader vcproj.Upgrader
}

func (p *Policy) configurations() []string {
	if len(p.Configurations) > 0 {
		return p.Configurations
	}
	return thirdparty.DefaultConfigurations
}

// Config holds what all Builders of one run share.
type Config struct {
	// Root holds the dependency roots (and, unless Fetcher.Dir says
	// otherwise, the cached archives).
	Root string

	Policy  *Policy
	Fetcher *fetch.Fetcher
	Remover *rm.Remover
	Log     *log.Logger
}

func (c *Config) logf(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// Dep implements the lifecycle shared by all variants. Variants contribute
// only a fix-up step which runs after upgrading and before the runtime
// policy is applied.
type Dep struct {
	Descriptor
	cfg   *Config
	fixup func(ctx context.Context) error
}

var kinds = map[string]func(*Dep) Builder{
	"gtest": newGtest,
	"gmock": newGmock,
}

// Kinds returns the supported variant tags.
func Kinds() []string {
	var k []string
	for kind := range kinds {
		k = append(k, kind)
	}
	sort.Strings(k)
	return k
}

// New returns the Builder of the variant selected by d.Kind.
func New(cfg *Config, d Descriptor) (Builder, error) {
	newFn, ok := kinds[d.Kind]
	if !ok {
		return nil, xerrors.Errorf("%s: unknown kind %q (known: %v)", d.Name, d.Kind, Kinds())
	}
	if err := (thirdparty.Version{Name: d.Name, Upstream: d.Version}).Valid(); err != nil {
		return nil, xerrors.Errorf("%s: %w", d.Name, err)
	}
	return newFn(&Dep{Descriptor: d, cfg: cfg}), nil
}

func (d *Dep) Name() string { return d.Descriptor.Name }

func (d *Dep) Root() string { return filepath.Join(d.cfg.Root, d.DirName()) }

// path returns rel, which is relative to the dependency root, as a path.
func (d *Dep) path(rel string) string {
	return filepath.Join(d.Root(), filepath.FromSlash(rel))
}

func (d *Dep) Fetch(ctx context.Context) error {
	_, err := d.cfg.Fetcher.Fetch(ctx, d.Source, d.Hash)
	return err
}

// Patch replaces the dependency root with a fresh extraction of the cached
// archive and patches it, so that patches are never layered onto the state
// of an earlier run.
func (d *Dep) Patch(ctx context.Context) error {
	root := d.Root()
	d.cfg.Remover.Remove(root)
	if _, err := os.Lstat(root); err == nil {
		return xerrors.Errorf("could not remove %s, see warnings above", root)
	}

	fn, err := d.cfg.Fetcher.CachePath(d.Source)
	if err != nil {
		return err
	}
	d.cfg.logf("[extract] %s", fn)
	if err := archive.Extract(fn, d.cfg.Root); err != nil {
		return err
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return xerrors.Errorf("%s did not contain %s", fn, d.DirName())
	}

	projectDir := d.path(d.ProjectDir)
	if u := d.cfg.Policy.Upgrader; u != nil {
		if err := vcproj.Upgrade(ctx, projectDir, u, d.cfg.Log); err != nil {
			return err
		}
	}
	if d.fixup != nil {
		if err := d.fixup(ctx); err != nil {
			return xerrors.Errorf("fix-up: %w", err)
		}
	}
	return vcproj.ApplyRuntimePolicy(projectDir, d.cfg.Policy.StaticRuntime, d.cfg.Log)
}

// Build runs the build tool for every configuration, stopping at the first
// failure.
func (d *Dep) Build(ctx context.Context) error {
	project := d.path(d.Project)
	for _, configuration := range d.cfg.Policy.configurations() {
		d.cfg.logf("[build] %s (%s)", project, configuration)
		if err := d.cfg.Policy.Tool.Run(ctx, project, configuration); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dep) stampPath() string {
	return filepath.Join(d.Root(), thirdparty.StampFile)
}

func (d *Dep) HasStamp() bool {
	fi, err := os.Stat(d.stampPath())
	return err == nil && fi.Mode().IsRegular()
}

func (d *Dep) WriteStamp() error {
	return renameio.WriteFile(d.stampPath(), nil, 0644)
}
