package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yact/thirdparty/internal/bootstrap"
	"github.com/yact/thirdparty/internal/buildtool"
	"github.com/yact/thirdparty/internal/deps"
	"github.com/yact/thirdparty/internal/env"
	"github.com/yact/thirdparty/internal/fetch"
	"github.com/yact/thirdparty/internal/manifest"
	"github.com/yact/thirdparty/internal/rm"
	"golang.org/x/xerrors"
)

const buildHelp = `thirdparty build [-flags]

Fetch, patch and build every dependency which has no completion stamp yet.
Built dependencies are skipped, so running build twice is cheap.

Example:
  % thirdparty build -static_runtime
`

const rebuildHelp = `thirdparty rebuild [-flags]

Remove all dependencies, then build them from scratch.

Example:
  % thirdparty rebuild -configurations=Release
`

const cleanHelp = `thirdparty clean [-flags]

Remove all dependencies. Cached archives are kept.

Example:
  % thirdparty clean
`

// flags are shared by all verbs operating on the manifest.
type flags struct {
	root           string
	manifest       string
	buildTool      string
	buildArgs      string
	upgradeTool    string
	staticRuntime  bool
	configurations string
}

func (f *flags) register(fset *flag.FlagSet) {
	fset.StringVar(&f.root, "root", env.Root, "directory holding the dependencies and cached archives (default: $THIRDPARTYROOT)")
	fset.StringVar(&f.manifest, "manifest", "", "path to a deps.textproto manifest. If empty, the built-in manifest is used")
	fset.StringVar(&f.buildTool, "build_tool", env.DefaultBuildTool, "build tool invoked as <build_tool> <project> /p:Configuration=<configuration>")
	fset.StringVar(&f.buildArgs, "build_args", "", "space-separated arguments appended after the project, e.g. /t:gtest /m")
	fset.StringVar(&f.upgradeTool, "upgrade_tool", env.DefaultUpgradeTool(), "tool invoked as <upgrade_tool> /upgrade <file> to convert legacy project files. If empty, project files are not upgraded")
	fset.BoolVar(&f.staticRuntime, "static_runtime", false, "link against the static C runtime (/MT, /MTd) instead of the DLL (/MD, /MDd)")
	fset.StringVar(&f.configurations, "configurations", "Debug,Release", "comma-separated list of configurations to build, in order")
}

func (f *flags) descriptors() ([]deps.Descriptor, error) {
	if f.manifest == "" {
		return manifest.Default()
	}
	return manifest.Load(f.manifest)
}

// policy returns the Policy of a run below root. Build and upgrade tools run
// with root as their working directory.
func (f *flags) policy(root string) *deps.Policy {
	var configurations []string
	for _, c := range strings.Split(f.configurations, ",") {
		if c = strings.TrimSpace(c); c != "" {
			configurations = append(configurations, c)
		}
	}
	p := &deps.Policy{
		StaticRuntime:  f.staticRuntime,
		Configurations: configurations,
		Tool: &buildtool.Tool{
			Command: strings.Fields(f.buildTool),
			Args:    strings.Fields(f.buildArgs),
			Dir:     root,
		},
	}
	if f.upgradeTool != "" {
		p.Upgrader = &buildtool.Tool{
			Command: strings.Fields(f.upgradeTool),
			Dir:     root,
		}
	}
	return p
}

// builders returns one Builder per manifest entry. All of them share one
// Policy, which is not modified afterwards.
func (f *flags) builders(logger *log.Logger) ([]deps.Builder, *rm.Remover, error) {
	descs, err := f.descriptors()
	if err != nil {
		return nil, nil, err
	}
	root, err := filepath.Abs(f.root)
	if err != nil {
		return nil, nil, err
	}
	remover := &rm.Remover{Log: logger}
	cfg := &deps.Config{
		Root:    root,
		Policy:  f.policy(root),
		Fetcher: &fetch.Fetcher{Dir: root, Log: logger},
		Remover: remover,
		Log:     logger,
	}
	var builders []deps.Builder
	for _, d := range descs {
		b, err := deps.New(cfg, d)
		if err != nil {
			return nil, nil, err
		}
		builders = append(builders, b)
	}
	return builders, remover, nil
}

func bootstrapVerb(verb string) func(ctx context.Context, args []string) error {
	mode := map[string]bootstrap.Mode{
		"build":   bootstrap.Build,
		"rebuild": bootstrap.Rebuild,
		"clean":   bootstrap.Clean,
	}[verb]
	helpText := map[string]string{
		"build":   buildHelp,
		"rebuild": rebuildHelp,
		"clean":   cleanHelp,
	}[verb]
	return func(ctx context.Context, args []string) error {
		fset := flag.NewFlagSet(verb, flag.ExitOnError)
		var f flags
		f.register(fset)
		fset.Usage = usage(fset, helpText)
		fset.Parse(args)

		if runtime.GOOS != "windows" && mode != bootstrap.Clean {
			log.Printf("WARNING: the dependencies ship Visual Studio projects; building on %s requires a compatible -build_tool", runtime.GOOS)
		}

		logger := log.New(os.Stderr, "", log.LstdFlags)
		builders, remover, err := f.builders(logger)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(f.root, 0755); err != nil {
			return err
		}
		bctx := &bootstrap.Ctx{
			Log:      logger,
			Builders: builders,
			Remover:  remover,
		}
		if err := bctx.Run(ctx, mode); err != nil {
			var be *buildtool.Error
			if xerrors.As(err, &be) {
				log.Printf("build tool output is above; rerun %s to retry", verb)
			}
			return err
		}
		return nil
	}
}
